package tables

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"pdfextract/internal/logger"
	"pdfextract/internal/pdfx"
	"pdfextract/pkg/models"
)

// DefaultProcessTimeout bounds a single Document AI call.
const DefaultProcessTimeout = 60 * time.Second

// DocumentAIConfig holds the processor coordinates for the cloud engine.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string // e.g. "us" or "eu"
	ProcessorID      string
	ProcessorVersion string
	Timeout          time.Duration
}

// DocumentAIEngine extracts tables with a Google Document AI form parser.
// Unlike the local engine it also handles scanned pages, at the cost of a
// network round trip per document.
type DocumentAIEngine struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIEngine creates the cloud engine. Credentials come from
// GOOGLE_CREDENTIALS (inline JSON), GOOGLE_APPLICATION_CREDENTIALS (file
// path), or application default credentials, in that order.
func NewDocumentAIEngine(ctx context.Context, cfg DocumentAIConfig) (Extractor, error) {
	const op = "NewDocumentAIEngine"

	if cfg.ProjectID == "" {
		return nil, NewExtractionError(op, ErrInvalidConfiguration, "project ID is required")
	}
	if cfg.ProcessorID == "" {
		return nil, NewExtractionError(op, ErrInvalidConfiguration, "processor ID is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultProcessTimeout
	}

	var clientOptions []option.ClientOption

	// Regional endpoint for non-US processors.
	if cfg.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", cfg.Location))
	}

	return &DocumentAIEngine{
		client: client,
		config: cfg,
		log:    logger.WithComponent("tables-documentai"),
	}, nil
}

// NewDocumentAIEngineWithClient creates the engine with an explicit client (for testing).
func NewDocumentAIEngineWithClient(cfg DocumentAIConfig, client *documentai.DocumentProcessorClient) Extractor {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultProcessTimeout
	}
	return &DocumentAIEngine{
		client: client,
		config: cfg,
		log:    logger.WithComponent("tables-documentai"),
	}
}

// Extract implements Extractor.
func (e *DocumentAIEngine) Extract(ctx context.Context, doc *pdfx.Document) ([]models.Table, error) {
	const op = "Extract"

	aiDoc, err := e.process(ctx, doc.Bytes())
	if err != nil {
		return nil, WrapExtractionError(op, err, "")
	}

	tables := []models.Table{}
	for i, aiPage := range aiDoc.Pages {
		page := pageNumber(aiPage, i)
		for j, t := range aiPage.Tables {
			grid := tableGrid(aiDoc, t)
			if len(grid) == 0 {
				continue
			}
			tables = append(tables, basicTable(grid, page, j))
		}
	}

	e.log.Info().Int("table_count", len(tables)).Msg("Document AI table extraction completed")
	return tables, nil
}

// ExtractEnhanced implements Extractor. Captions still come from the local
// page text; Document AI reports table geometry but not caption lines.
func (e *DocumentAIEngine) ExtractEnhanced(ctx context.Context, doc *pdfx.Document, opts EnhancedOptions) ([]models.EnhancedTable, error) {
	const op = "ExtractEnhanced"

	aiDoc, err := e.process(ctx, doc.Bytes())
	if err != nil {
		return nil, WrapExtractionError(op, err, "")
	}

	tables := []models.EnhancedTable{}
	for i, aiPage := range aiDoc.Pages {
		page := pageNumber(aiPage, i)

		var captions []string
		if opts.DetectCaptions && page >= 1 && page <= doc.PageCount() {
			text, err := doc.Text(page)
			if err != nil {
				e.log.Warn().Err(err).Int("page", page).Msg("Caption scan failed, continuing without captions")
			} else {
				captions = findTableCaptions(text)
			}
		}

		for j, t := range aiPage.Tables {
			grid := tableGrid(aiDoc, t)
			if len(grid) == 0 {
				continue
			}
			tables = append(tables, enhanceGrid(grid, page, j, captions))
		}
	}

	e.log.Info().Int("table_count", len(tables)).Msg("Enhanced Document AI table extraction completed")
	return tables, nil
}

// Close closes the underlying Document AI client.
func (e *DocumentAIEngine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// process sends the document through the configured processor.
func (e *DocumentAIEngine) process(ctx context.Context, pdfBytes []byte) (*documentaipb.Document, error) {
	const op = "process"

	processCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: e.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := e.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, e.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, NewExtractionError(op, ErrProcessingFailed, "no document in response")
	}
	return resp.Document, nil
}

// processorName constructs the full processor resource name.
func (e *DocumentAIEngine) processorName() string {
	if e.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			e.config.ProjectID, e.config.Location, e.config.ProcessorID, e.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		e.config.ProjectID, e.config.Location, e.config.ProcessorID)
}

// handleProcessingError converts Document AI errors to extraction errors.
func (e *DocumentAIEngine) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapExtractionError(op, ErrInvalidCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return WrapExtractionError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapExtractionError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", e.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapExtractionError(op, ErrProcessingFailed, "document format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"):
		return WrapExtractionError(op, context.DeadlineExceeded, "processing timeout")
	case strings.Contains(errStr, "Canceled") || strings.Contains(errStr, "context canceled"):
		return WrapExtractionError(op, ErrContextCanceled, "processing was canceled")
	default:
		return WrapExtractionError(op, ErrProcessingFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// pageNumber prefers the page number reported by the API, falling back to
// the slice position.
func pageNumber(p *documentaipb.Document_Page, index int) int {
	if p.PageNumber > 0 {
		return int(p.PageNumber)
	}
	return index + 1
}

// tableGrid flattens header and body rows into one grid, headers first.
func tableGrid(d *documentaipb.Document, t *documentaipb.Document_Page_Table) [][]string {
	grid := make([][]string, 0, len(t.HeaderRows)+len(t.BodyRows))
	for _, row := range t.HeaderRows {
		grid = append(grid, rowCells(d, row))
	}
	for _, row := range t.BodyRows {
		grid = append(grid, rowCells(d, row))
	}
	return grid
}

func rowCells(d *documentaipb.Document, row *documentaipb.Document_Page_Table_TableRow) []string {
	cells := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = strings.TrimSpace(anchorText(d, c.Layout))
	}
	return cells
}

// anchorText resolves a layout's text anchor against the document text.
func anchorText(d *documentaipb.Document, layout *documentaipb.Document_Page_Layout) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	var sb strings.Builder
	for _, seg := range layout.TextAnchor.TextSegments {
		start, end := seg.StartIndex, seg.EndIndex
		if start < 0 || end < start || end > int64(len(d.Text)) {
			continue
		}
		sb.WriteString(d.Text[start:end])
	}
	return sb.String()
}
