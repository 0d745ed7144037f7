// Package extract implements the document-level text operations: layout text
// with page markers, word positions with absolute character offsets, and the
// page-chunked export consumed by LLM pipelines.
//
// All operations read an open pdfx.Document. A page that fails to parse
// contributes an empty entry instead of failing the operation; hard document
// errors (closed handle, malformed structure) still propagate.
//
// An optional OCR engine backs the layout operation for scanned documents:
// when no page carries a text layer the whole document goes through the
// engine and the result replaces the document text.
package extract

import (
	"github.com/rs/zerolog"

	"pdfextract/internal/logger"
	"pdfextract/internal/ocr"
	"pdfextract/internal/tables"
)

// Service exposes the text extraction operations.
type Service struct {
	log    zerolog.Logger
	ocr    ocr.Service
	tables tables.Extractor
}

// NewService creates a Service with the local table engine and no OCR
// fallback. Scanned documents come back empty.
func NewService() *Service {
	return &Service{
		log:    logger.WithComponent("extract"),
		tables: tables.NewLocalEngine(),
	}
}

// NewServiceWithDeps creates a Service with an explicit OCR engine and table
// extractor. Either may be nil: a nil engine disables the scanned-document
// fallback, a nil extractor falls back to the local table engine.
func NewServiceWithDeps(ocrEngine ocr.Service, tableEngine tables.Extractor) *Service {
	if tableEngine == nil {
		tableEngine = tables.NewLocalEngine()
	}
	return &Service{
		log:    logger.WithComponent("extract"),
		ocr:    ocrEngine,
		tables: tableEngine,
	}
}
