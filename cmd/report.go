package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"pdfextract/internal/highlight"
	"pdfextract/internal/logger"
	"pdfextract/internal/pdfx"
	"pdfextract/internal/report"
	"pdfextract/pkg/models"
)

var reportCmd = &cobra.Command{
	Use:   "report [pdf-file]",
	Short: "Generate a self-contained HTML evidence report",
	Long: `Render the extraction results of a PDF into a single HTML file: every
extracted field as a table row with its quoted source text, plus one
annotated evidence screenshot per highlight.

--data points at a JSON file holding the nested extraction object
(sections of fields; a field is a {value, sourceText} leaf, a nested
object, or a bare scalar). --highlights points at a JSON array of
highlight objects ({page, text, x0, y0, x1, y1, label}; coordinates in
PDF points, top origin). Both are optional; without them the report
contains only the header.`,
	Example: `  # Report with extracted fields and evidence screenshots
  pdfextract report paper.pdf --data fields.json --highlights marks.json

  # Custom title and output path
  pdfextract report paper.pdf --data fields.json --title "Case 42" -o case42.html

  # Higher resolution evidence crops
  pdfextract report paper.pdf --highlights marks.json --dpi 200 --padding 30`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("data", "", "Path to extraction data JSON")
	reportCmd.Flags().String("highlights", "", "Path to highlights JSON array")
	reportCmd.Flags().StringP("output", "o", "extraction_report.html", "Output HTML file path")
	reportCmd.Flags().String("title", "", "Report title (default: \"Cerebellar Extraction Report\")")
	reportCmd.Flags().Float64("dpi", 0, "Evidence screenshot resolution (default: 150)")
	reportCmd.Flags().Float64("padding", 0, "Evidence crop padding in pixels (default: 20)")
	reportCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report")

	dataPath, _ := cmd.Flags().GetString("data")
	highlightsPath, _ := cmd.Flags().GetString("highlights")
	outputPath, _ := cmd.Flags().GetString("output")
	title, _ := cmd.Flags().GetString("title")
	dpi, _ := cmd.Flags().GetFloat64("dpi")
	padding, _ := cmd.Flags().GetFloat64("padding")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Str("data", dataPath).
		Str("highlights", highlightsPath).
		Str("output", outputPath).
		Int("timeout", timeoutSecs).
		Msg("Starting report generation")

	// Validate and get file info
	if _, err := validatePDFFile(pdfPath, log); err != nil {
		return err
	}

	// Create context with timeout and signal handling
	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	var extractionData map[string]any
	if dataPath != "" {
		var err error
		extractionData, err = readExtractionData(dataPath, log)
		if err != nil {
			return err
		}
	}

	var highlights []models.Highlight
	if highlightsPath != "" {
		var err error
		highlights, err = readHighlights(highlightsPath, log)
		if err != nil {
			return err
		}
	}

	pdfData, err := os.ReadFile(pdfPath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", pdfPath).
			Msg("Failed to read PDF file")
		return fmt.Errorf("failed to read PDF file: %w", err)
	}

	doc, err := pdfx.Open(pdfData)
	if err != nil {
		return handleExtractionError(err, log)
	}
	defer doc.Close()

	opts := highlight.ReportOptions()
	if cmd.Flags().Changed("dpi") {
		opts.DPI = dpi
	}
	if cmd.Flags().Changed("padding") {
		opts.Padding = padding
	}

	generator := report.NewGenerator()
	result, err := generator.Generate(ctx, doc, report.Request{
		Data:       extractionData,
		Highlights: highlights,
		Title:      title,
		Options:    opts,
	})
	if err != nil {
		log.Error().Err(err).Msg("Report generation failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("report generation timed out. Try increasing --timeout")
		}
		return fmt.Errorf("report generation failed: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(result.HTML), 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write report file")
		return fmt.Errorf("failed to write report file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(result.HTML)).
		Int("screenshots", result.Screenshots).
		Msg("Report written")

	fmt.Printf("Report written to %s (%d evidence screenshots)\n", outputPath, result.Screenshots)
	return nil
}

// readExtractionData loads the nested extraction object for the report body
func readExtractionData(path string, log zerolog.Logger) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", path).
			Msg("Failed to read extraction data file")
		return nil, fmt.Errorf("failed to read extraction data file: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		log.Error().
			Err(err).
			Str("file", path).
			Msg("Invalid extraction data JSON")
		return nil, fmt.Errorf("invalid extraction data JSON in %s: %w", path, err)
	}
	return out, nil
}

// readHighlights loads a JSON array of highlight regions
func readHighlights(path string, log zerolog.Logger) ([]models.Highlight, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", path).
			Msg("Failed to read highlights file")
		return nil, fmt.Errorf("failed to read highlights file: %w", err)
	}

	var out []models.Highlight
	if err := json.Unmarshal(data, &out); err != nil {
		log.Error().
			Err(err).
			Str("file", path).
			Msg("Invalid highlights JSON")
		return nil, fmt.Errorf("invalid highlights JSON in %s: %w", path, err)
	}
	return out, nil
}
