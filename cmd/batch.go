package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"pdfextract/internal/logger"
	"pdfextract/internal/pdfx"
	"pdfextract/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Run one extraction operation over every PDF in a folder",
	Long: `Process all PDF files in a folder through one extraction operation and write
a JSON result file per input PDF.

Files are processed by a pool of parallel workers. Results are written next
to each input file as <name>.<op>.json, or into --output-dir when set. The
operations and engine flags match the extract command.

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 12)`,
	Example: `  # Extract tables from every PDF in ./papers
  pdfextract batch ./papers --op tables

  # Enhanced figures into a separate results folder
  pdfextract batch ./papers --op figures-enhanced --output-dir ./results

  # Scanned documents with OCR fallback and verbose progress
  pdfextract batch ./scans --ocr --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// BatchResult represents the result of processing a single PDF
type BatchResult struct {
	Filename   string
	OutputFile string
	Items      int
	Error      error
	Status     string // "success", "warning", "error"
	Index      int    // Original order index
}

// WorkerJob represents a PDF processing job
type WorkerJob struct {
	FilePath string
	Index    int
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("op", "layout", "Operation to run (see extract --help for the list)")
	batchCmd.Flags().String("output-dir", "", "Directory for result files (default: alongside each PDF)")
	batchCmd.Flags().Bool("ocr", false, "Enable the Cloud Vision OCR fallback for scanned documents")
	batchCmd.Flags().String("engine", "", "Tables engine override (local or documentai)")
	batchCmd.Flags().Bool("verbose", false, "Show detailed processing information")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	// Get flags
	folderPath := args[0]
	op, _ := cmd.Flags().GetString("op")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	ocrEnabled, _ := cmd.Flags().GetBool("ocr")
	engine, _ := cmd.Flags().GetString("engine")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if !validOperation(op) {
		return fmt.Errorf("unknown operation: %s (valid: %s)", op, strings.Join(operationNames, ", "))
	}

	// Validate folder path
	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	log.Info().
		Str("folder", folderPath).
		Str("op", op).
		Str("output_dir", outputDir).
		Bool("ocr", ocrEnabled).
		Bool("verbose", verbose).
		Msg("Starting batch extraction")

	// Print header
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                         BATCH EXTRACTION")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Folder: %s\n", folderPath)
	fmt.Printf("Operation: %s\n", op)
	if outputDir != "" {
		fmt.Printf("Output: %s\n", outputDir)
	} else {
		fmt.Println("Output: alongside input files")
	}
	fmt.Println()

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
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

	// Find all PDF files
	pdfFiles, err := findPDFFiles(folderPath)
	if err != nil {
		return fmt.Errorf("failed to find PDF files: %w", err)
	}

	if len(pdfFiles) == 0 {
		fmt.Println("No PDF files found in the folder.")
		return nil
	}

	// Get number of workers from environment or use default
	numWorkers := getNumWorkers()
	fmt.Printf("Processing %d PDFs with %d parallel workers...\n", len(pdfFiles), numWorkers)
	fmt.Println()

	// Process all PDFs in parallel
	results := processPDFsInParallel(ctx, pdfFiles, op, outputDir, deps, numWorkers, log, verbose)

	fmt.Println()

	// Count results
	successCount := 0
	warningCount := 0
	errorCount := 0
	for _, result := range results {
		switch result.Status {
		case "success":
			successCount++
		case "warning":
			warningCount++
		case "error":
			errorCount++
		}
	}

	// Print summary
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Succeeded: %d\n", successCount)
	if warningCount > 0 {
		fmt.Printf("Empty results: %d\n", warningCount)
	}
	if errorCount > 0 {
		fmt.Printf("Failed: %d\n", errorCount)
	}
	fmt.Println(strings.Repeat("=", 80))

	log.Info().
		Int("total", len(pdfFiles)).
		Int("success", successCount).
		Int("warnings", warningCount).
		Int("errors", errorCount).
		Msg("Batch extraction completed")

	return nil
}

// findPDFFiles finds all PDF files in the specified folder
func findPDFFiles(folderPath string) ([]string, error) {
	var pdfFiles []string

	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".pdf") {
			pdfFiles = append(pdfFiles, path)
		}

		return nil
	})

	return pdfFiles, err
}

// processSinglePDF runs the operation on one PDF and writes its result file
func processSinglePDF(ctx context.Context, pdfPath, op, outputDir string, deps *extractionDeps, log zerolog.Logger, verbose bool) BatchResult {
	result := BatchResult{
		Status: "error",
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		result.Error = fmt.Errorf("failed to read PDF file: %w", err)
		return result
	}

	doc, err := pdfx.Open(data)
	if err != nil {
		result.Error = fmt.Errorf("failed to open PDF: %w", err)
		return result
	}
	defer doc.Close()

	opResult, err := runOperation(ctx, deps, op, doc)
	if err != nil {
		result.Error = fmt.Errorf("extraction failed: %w", err)
		return result
	}

	jsonData, err := json.MarshalIndent(opResult, "", "  ")
	if err != nil {
		result.Error = fmt.Errorf("failed to create JSON output: %w", err)
		return result
	}

	outPath := batchOutputPath(pdfPath, op, outputDir)
	if err := os.WriteFile(outPath, jsonData, 0644); err != nil {
		result.Error = fmt.Errorf("failed to write output file: %w", err)
		return result
	}

	result.OutputFile = outPath
	result.Status = "success"

	items, hasContent := resultSummary(opResult)
	result.Items = items
	if !hasContent {
		result.Status = "warning"
	}

	if verbose {
		log.Info().
			Str("file", filepath.Base(pdfPath)).
			Str("output", outPath).
			Int("items", items).
			Str("status", result.Status).
			Msg("PDF processed")
	}

	return result
}

// batchOutputPath places <name>.<op>.json in the output dir, or next to the
// input file when no dir is configured.
func batchOutputPath(pdfPath, op, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	name := base + "." + op + ".json"
	if outputDir != "" {
		return filepath.Join(outputDir, name)
	}
	return filepath.Join(filepath.Dir(pdfPath), name)
}

// resultSummary reports the item count of a result and whether the
// operation extracted anything at all.
func resultSummary(result any) (int, bool) {
	switch r := result.(type) {
	case *models.LayoutResult:
		return r.PageCount, strings.TrimSpace(r.Text) != ""
	case *models.PositionsResult:
		return len(r.Positions), len(r.Positions) > 0
	case models.SectionsResult:
		return r.SectionCount, r.SectionCount > 0
	case models.TablesResult:
		return r.TableCount, r.TableCount > 0
	case models.EnhancedTablesResult:
		return r.TableCount, r.TableCount > 0
	case models.FiguresResult:
		return r.FigureCount, r.FigureCount > 0
	case models.EnhancedFiguresResult:
		return r.FigureCount, r.FigureCount > 0
	case *models.ChunksResult:
		return len(r.Chunks), len(r.Chunks) > 0
	default:
		return 0, true
	}
}

// getNumWorkers returns the number of workers from environment or default
func getNumWorkers() int {
	if workersStr := os.Getenv("BATCH_WORKERS"); workersStr != "" {
		if workers, err := strconv.Atoi(workersStr); err == nil && workers > 0 {
			return workers
		}
	}
	return 12 // Default number of workers
}

// processPDFsInParallel processes PDFs using a worker pool pattern
func processPDFsInParallel(ctx context.Context, pdfFiles []string, op, outputDir string, deps *extractionDeps, numWorkers int, log zerolog.Logger, verbose bool) []BatchResult {
	// Create job channel and result slice
	jobs := make(chan WorkerJob, len(pdfFiles))
	results := make([]BatchResult, len(pdfFiles))

	// Create progress tracking
	var processedCount int
	var mu sync.Mutex

	// Start workers
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				log.Debug().
					Int("worker", workerID).
					Str("file", job.FilePath).
					Int("index", job.Index+1).
					Msg("Worker processing PDF")

				result := processSinglePDF(ctx, job.FilePath, op, outputDir, deps, log, verbose)
				result.Index = job.Index
				result.Filename = filepath.Base(job.FilePath)

				// Store result in correct position
				results[job.Index] = result

				// Update progress and print it safely
				mu.Lock()
				processedCount++
				fmt.Printf("[%d/%d] %s - %s", processedCount, len(pdfFiles), result.Filename, getStatusEmoji(result.Status))
				if result.Error != nil {
					fmt.Printf(" (%s)", result.Error.Error())
				} else {
					fmt.Printf(" (%d items)", result.Items)
				}
				fmt.Println()
				mu.Unlock()
			}
		}(w)
	}

	// Send jobs
	for i, pdfFile := range pdfFiles {
		jobs <- WorkerJob{
			FilePath: pdfFile,
			Index:    i,
		}
	}
	close(jobs)

	// Wait for all workers to complete
	wg.Wait()

	return results
}

// getStatusEmoji returns an emoji for the processing status
func getStatusEmoji(status string) string {
	switch status {
	case "success":
		return "✅"
	case "warning":
		return "⚠️"
	case "error":
		return "❌"
	default:
		return "❓"
	}
}
