package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"pdfextract/internal/config"
	"pdfextract/internal/extract"
	"pdfextract/internal/figures"
	"pdfextract/internal/logger"
	"pdfextract/internal/ocr"
	"pdfextract/internal/pdfx"
	"pdfextract/internal/sections"
	"pdfextract/internal/tables"
	"pdfextract/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Run one extraction operation on a PDF",
	Long: `Run a single extraction operation against a local PDF file and print the
result as JSON, in the same shape the HTTP endpoints return.

Operations:
  layout           - full text with per-page geometry
  positions        - word-level character offsets and bounding boxes
  sections         - document sections detected from heading keywords
  tables           - table grids reconstructed from word positions
  tables-enhanced  - tables with typed cells and caption pairing
  figures          - embedded images as base64 PNG
  figures-enhanced - figures with caption pairing and size filtering
  chunks           - per-page text/table/figure chunks for LLM consumption

The --ocr flag enables the Google Cloud Vision fallback for scanned
documents; --engine documentai routes table extraction through Document AI.
Both need Google Cloud credentials:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID (Document AI)
  DOCUMENT_AI_PROCESSOR_ID - Your Document AI processor ID (Document AI)`,
	Example: `  # Extract text with layout to stdout
  pdfextract extract paper.pdf

  # Reconstruct tables and save the JSON
  pdfextract extract paper.pdf --op tables -o tables.json

  # Enhanced tables through Document AI
  pdfextract extract paper.pdf --op tables-enhanced --engine documentai

  # Scanned document with OCR fallback
  pdfextract extract scan.pdf --ocr --timeout 300`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("op", "layout", "Operation to run (see help for the list)")
	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("ocr", false, "Enable the Cloud Vision OCR fallback for scanned documents")
	extractCmd.Flags().String("engine", "", "Tables engine override (local or documentai)")
	extractCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	op, _ := cmd.Flags().GetString("op")
	outputPath, _ := cmd.Flags().GetString("output")
	ocrEnabled, _ := cmd.Flags().GetBool("ocr")
	engine, _ := cmd.Flags().GetString("engine")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Str("op", op).
		Str("output", outputPath).
		Bool("ocr", ocrEnabled).
		Int("timeout", timeoutSecs).
		Msg("Starting extraction")

	// Validate and get file info
	if _, err := validatePDFFile(pdfPath, log); err != nil {
		return err
	}

	// Create context with timeout and signal handling
	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	deps, err := buildExtractionDeps(ctx, ocrEnabled, engine, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.tables.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close tables engine")
		}
	}()

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", pdfPath).
			Msg("Failed to read PDF file")
		return fmt.Errorf("failed to read PDF file: %w", err)
	}

	doc, err := pdfx.Open(data)
	if err != nil {
		return handleExtractionError(err, log)
	}
	defer doc.Close()

	log.Info().
		Str("file", pdfPath).
		Int("pages", doc.PageCount()).
		Msg("Processing PDF")

	startTime := time.Now()
	result, err := runOperation(ctx, deps, op, doc)
	if err != nil {
		return handleExtractionError(err, log)
	}

	log.Info().
		Str("op", op).
		Dur("duration", time.Since(startTime)).
		Msg("Extraction completed successfully")

	return outputExtractResults(result, outputPath, log)
}

// operationNames lists the dispatchable operations in help order.
var operationNames = []string{
	"layout", "positions", "sections", "tables", "tables-enhanced",
	"figures", "figures-enhanced", "chunks",
}

func validOperation(op string) bool {
	for _, name := range operationNames {
		if name == op {
			return true
		}
	}
	return false
}

// extractionDeps bundles the engines an extraction operation may need.
type extractionDeps struct {
	extract *extract.Service
	tables  tables.Extractor
	figures *figures.Service
}

// buildExtractionDeps assembles the engines from configuration and flags.
// The OCR fallback is only dialed when requested, so local operations never
// need cloud credentials.
func buildExtractionDeps(ctx context.Context, ocrEnabled bool, engine string, log zerolog.Logger) (*extractionDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if engine != "" {
		cfg.TablesEngine = engine
	}

	tableEngine, err := tables.NewExtractor(ctx, cfg)
	if err != nil {
		log.Error().
			Err(err).
			Str("engine", cfg.TablesEngine).
			Msg("Failed to create tables engine")
		return nil, fmt.Errorf("failed to create tables engine %q: %w", cfg.TablesEngine, err)
	}

	var ocrEngine ocr.Service
	if ocrEnabled {
		ocrEngine, err = ocr.NewGoogleVisionService(ctx)
		if err != nil {
			if closeErr := tableEngine.Close(); closeErr != nil {
				log.Warn().Err(closeErr).Msg("Failed to close tables engine")
			}
			if errors.Is(err, ocr.ErrMissingCredentials) {
				log.Error().Err(err).Msg("Google Cloud credentials not configured")
				return nil, fmt.Errorf("Google Cloud credentials are required for --ocr. Please set one of:\n"+
					"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n"+
					"  GOOGLE_CREDENTIALS='<json-credentials>'\n"+
					"Original error: %w", err)
			}
			log.Error().Err(err).Msg("Failed to create OCR service")
			return nil, fmt.Errorf("failed to create OCR service: %w", err)
		}
	}

	return &extractionDeps{
		extract: extract.NewServiceWithDeps(ocrEngine, tableEngine),
		tables:  tableEngine,
		figures: figures.NewService(),
	}, nil
}

// runOperation dispatches one named operation against an open document and
// returns its wire-shaped result.
func runOperation(ctx context.Context, deps *extractionDeps, op string, doc *pdfx.Document) (any, error) {
	switch op {
	case "layout":
		return deps.extract.TextWithLayout(ctx, doc)
	case "positions":
		return deps.extract.TextWithPositions(ctx, doc)
	case "sections":
		pages, err := deps.extract.Pages(ctx, doc)
		if err != nil {
			return nil, err
		}
		found := sections.Detect(pages)
		return models.SectionsResult{
			Success:      true,
			Sections:     found,
			SectionCount: len(found),
		}, nil
	case "tables":
		tbls, err := deps.tables.Extract(ctx, doc)
		if err != nil {
			return nil, err
		}
		return models.TablesResult{
			Success:    true,
			Tables:     tbls,
			TableCount: len(tbls),
		}, nil
	case "tables-enhanced":
		tbls, err := deps.tables.ExtractEnhanced(ctx, doc, tables.EnhancedOptions{DetectCaptions: true})
		if err != nil {
			return nil, err
		}
		return models.EnhancedTablesResult{
			Success:    true,
			Tables:     tbls,
			TableCount: len(tbls),
		}, nil
	case "figures":
		figs, err := deps.figures.Extract(ctx, doc)
		if err != nil {
			return nil, err
		}
		return models.FiguresResult{
			Success:     true,
			Figures:     figs,
			FigureCount: len(figs),
		}, nil
	case "figures-enhanced":
		figs, err := deps.figures.ExtractEnhanced(ctx, doc, figures.DefaultOptions())
		if err != nil {
			return nil, err
		}
		return models.EnhancedFiguresResult{
			Success:     true,
			Figures:     figs,
			FigureCount: len(figs),
		}, nil
	case "chunks":
		return deps.extract.ChunksForLLM(ctx, doc)
	default:
		return nil, fmt.Errorf("unknown operation: %s (valid: %s)", op, strings.Join(operationNames, ", "))
	}
}

// validatePDFFile checks if the file exists, is readable, and appears to be a PDF
func validatePDFFile(pdfPath string, log zerolog.Logger) (os.FileInfo, error) {
	// Check if file exists and get info
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("PDF file not found")
			return nil, fmt.Errorf("PDF file not found: %s", pdfPath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("Permission denied accessing PDF file")
			return nil, fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
		}
		return nil, fmt.Errorf("error accessing PDF file: %w", err)
	}

	// Check if it's a regular file
	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", pdfPath).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", pdfPath)
	}

	// Check file extension (basic validation)
	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		log.Warn().
			Str("file", pdfPath).
			Msg("File does not have .pdf extension")
	}

	// Check file size
	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", pdfPath).
			Msg("PDF file is empty")
		return nil, fmt.Errorf("PDF file is empty: %s", pdfPath)
	}

	if fileInfo.Size() > pdfx.MaxFileSizeBytes {
		log.Error().
			Str("file", pdfPath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", pdfx.MaxFileSizeBytes).
			Msg("PDF file exceeds maximum size limit")
		return nil, fmt.Errorf("PDF file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), pdfx.MaxFileSizeBytes)
	}

	return fileInfo, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// handleExtractionError provides user-friendly error messages for extraction failures
func handleExtractionError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Extraction failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("extraction timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("extraction was canceled")
	case errors.Is(err, pdfx.ErrDocumentTooLarge):
		return fmt.Errorf("PDF file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, pdfx.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages for OCR (maximum 5 pages). Try splitting into smaller files")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "auth:") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n"+
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path\n"+
			"2. Or set GOOGLE_CREDENTIALS with inline JSON credentials\n"+
			"3. Ensure the service account can use the Vision and Document AI APIs\n\n"+
			"Original error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "forbidden"):
		return fmt.Errorf("permission denied. Please ensure your service account can use the Vision and Document AI APIs")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") ||
		strings.Contains(errStr, "quota"):
		return fmt.Errorf("Google Cloud API quota exceeded. Check your project quotas in the Google Cloud Console")
	default:
		return fmt.Errorf("extraction failed: %w", err)
	}
}

// outputExtractResults marshals the result as indented JSON to the output file or stdout
func outputExtractResults(result any, outputPath string, log zerolog.Logger) error {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal results to JSON")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	// Write output
	if outputPath != "" {
		// Write to file
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(jsonData)).
			Msg("Results written to file")
	} else {
		// Write to stdout
		if _, err := os.Stdout.Write(jsonData); err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		// Add newline for better terminal output
		fmt.Println()
	}

	return nil
}
