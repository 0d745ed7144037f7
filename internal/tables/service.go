// Package tables reconstructs tabular data from PDF pages. Two engines
// implement the same surface: a local engine that rebuilds grids from word
// geometry, and a Google Document AI engine for scanned or complex layouts.
package tables

import (
	"context"

	"pdfextract/internal/config"
	"pdfextract/internal/pdfx"
	"pdfextract/pkg/models"
)

// EnhancedOptions controls the enhanced extraction surface.
type EnhancedOptions struct {
	// DetectCaptions pairs "Table N." caption lines with tables on the
	// same page by index.
	DetectCaptions bool
}

// Extractor reconstructs tables from an open document.
type Extractor interface {
	// Extract returns every table found, pages in order. Headers is the
	// first grid row verbatim; Rows the remainder.
	Extract(ctx context.Context, doc *pdfx.Document) ([]models.Table, error)

	// ExtractEnhanced normalizes cell whitespace, promotes the first
	// non-blank row to headers, and optionally pairs captions.
	ExtractEnhanced(ctx context.Context, doc *pdfx.Document, opts EnhancedOptions) ([]models.EnhancedTable, error)

	// Close releases any underlying clients.
	Close() error
}

// NewExtractor selects the engine named by the configuration.
func NewExtractor(ctx context.Context, cfg *config.Config) (Extractor, error) {
	const op = "NewExtractor"

	switch cfg.TablesEngine {
	case config.TablesEngineDocumentAI:
		return NewDocumentAIEngine(ctx, DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		})
	case config.TablesEngineLocal, "":
		return NewLocalEngine(), nil
	default:
		return nil, NewExtractionError(op, ErrInvalidConfiguration, "unknown tables engine: "+cfg.TablesEngine)
	}
}
