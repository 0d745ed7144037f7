package server

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"pdfextract/internal/figures"
	"pdfextract/internal/highlight"
	"pdfextract/internal/pdfx"
	"pdfextract/internal/report"
	"pdfextract/internal/sections"
	"pdfextract/internal/tables"
	"pdfextract/pkg/models"
)

// pdfRequest is the common JSON body of the extraction operations.
type pdfRequest struct {
	PDFBase64 string `json:"pdf_base64"`
}

// enhancedTablesRequest tunes the enhanced table pass. Caption detection is
// on unless the request turns it off.
type enhancedTablesRequest struct {
	PDFBase64      string `json:"pdf_base64"`
	DetectCaptions *bool  `json:"detect_captions"`
}

// enhancedFiguresRequest tunes the enhanced figure pass.
type enhancedFiguresRequest struct {
	PDFBase64 string `json:"pdf_base64"`
	MinSize   *int   `json:"min_size"`
	DPI       *int   `json:"dpi"`
}

// highlightPayload is one highlight box. Absent coordinates default to page
// 1 and the 0,0-100,50 box.
type highlightPayload struct {
	Page  *int     `json:"page"`
	Text  string   `json:"text"`
	X0    *float64 `json:"x0"`
	Y0    *float64 `json:"y0"`
	X1    *float64 `json:"x1"`
	Y1    *float64 `json:"y1"`
	Label string   `json:"label"`
}

func (p highlightPayload) toModel() models.Highlight {
	hl := models.Highlight{Page: 1, X1: 100, Y1: 50, Text: p.Text, Label: p.Label}
	if p.Page != nil {
		hl.Page = *p.Page
	}
	if p.X0 != nil {
		hl.X0 = *p.X0
	}
	if p.Y0 != nil {
		hl.Y0 = *p.Y0
	}
	if p.X1 != nil {
		hl.X1 = *p.X1
	}
	if p.Y1 != nil {
		hl.Y1 = *p.Y1
	}
	return hl
}

func toHighlights(payloads []highlightPayload) []models.Highlight {
	highlights := make([]models.Highlight, 0, len(payloads))
	for _, p := range payloads {
		highlights = append(highlights, p.toModel())
	}
	return highlights
}

type captureRequest struct {
	PDFBase64  string             `json:"pdf_base64"`
	Highlights []highlightPayload `json:"highlights"`
	DPI        *float64           `json:"dpi"`
	Padding    *float64           `json:"padding"`
}

type reportRequest struct {
	PDFBase64      string             `json:"pdf_base64"`
	ExtractionData map[string]any     `json:"extraction_data"`
	Highlights     []highlightPayload `json:"highlights"`
	Title          string             `json:"title"`
	DPI            *float64           `json:"dpi"`
	Padding        *float64           `json:"padding"`
}

// openEncoded decodes a base64 document and parses it. Missing or
// undecodable input is the caller's fault.
func openEncoded(encoded string) (*pdfx.Document, error) {
	if encoded == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "pdf_base64 required")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid base64 in pdf_base64")
	}
	return openDocument(data)
}

// openDocument parses raw bytes, mapping size and header problems to 400s.
func openDocument(data []byte) (*pdfx.Document, error) {
	doc, err := pdfx.Open(data)
	if err != nil {
		switch {
		case errors.Is(err, pdfx.ErrDocumentTooLarge):
			return nil, echo.NewHTTPError(http.StatusBadRequest, "PDF exceeds the 20MB processing limit")
		case errors.Is(err, pdfx.ErrInvalidPDF):
			return nil, echo.NewHTTPError(http.StatusBadRequest, "not a valid PDF document")
		}
		return nil, err
	}
	return doc, nil
}

// bindDocument binds the common JSON body and opens its document.
func bindDocument(c echo.Context) (*pdfx.Document, error) {
	var req pdfRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return openEncoded(req.PDFBase64)
}

// extractTextWithLayout accepts either a JSON body with pdf_base64 or a
// multipart upload with the PDF under the file field.
func (s *Server) extractTextWithLayout(c echo.Context) error {
	var doc *pdfx.Document
	var err error

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		doc, err = openUpload(c)
	} else {
		doc, err = bindDocument(c)
	}
	if err != nil {
		return err
	}
	defer doc.Close()

	result, err := s.extract.TextWithLayout(c.Request().Context(), doc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// openUpload reads the document from the file field of a multipart form.
func openUpload(c echo.Context) (*pdfx.Document, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "No file provided")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid file upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid file upload")
	}
	return openDocument(data)
}

func (s *Server) extractTextWithPositions(c echo.Context) error {
	doc, err := bindDocument(c)
	if err != nil {
		return err
	}
	defer doc.Close()

	result, err := s.extract.TextWithPositions(c.Request().Context(), doc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) extractForLLM(c echo.Context) error {
	doc, err := bindDocument(c)
	if err != nil {
		return err
	}
	defer doc.Close()

	result, err := s.extract.ChunksForLLM(c.Request().Context(), doc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) detectSections(c echo.Context) error {
	doc, err := bindDocument(c)
	if err != nil {
		return err
	}
	defer doc.Close()

	pages, err := s.extract.Pages(c.Request().Context(), doc)
	if err != nil {
		return err
	}
	found := sections.Detect(pages)
	return c.JSON(http.StatusOK, models.SectionsResult{
		Success:      true,
		Sections:     found,
		SectionCount: len(found),
	})
}

func (s *Server) extractTables(c echo.Context) error {
	doc, err := bindDocument(c)
	if err != nil {
		return err
	}
	defer doc.Close()

	tbls, err := s.tables.Extract(c.Request().Context(), doc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.TablesResult{
		Success:    true,
		Tables:     tbls,
		TableCount: len(tbls),
	})
}

func (s *Server) extractTablesEnhanced(c echo.Context) error {
	var req enhancedTablesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	doc, err := openEncoded(req.PDFBase64)
	if err != nil {
		return err
	}
	defer doc.Close()

	opts := tables.EnhancedOptions{DetectCaptions: true}
	if req.DetectCaptions != nil {
		opts.DetectCaptions = *req.DetectCaptions
	}

	tbls, err := s.tables.ExtractEnhanced(c.Request().Context(), doc, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.EnhancedTablesResult{
		Success:    true,
		Tables:     tbls,
		TableCount: len(tbls),
	})
}

func (s *Server) extractFigures(c echo.Context) error {
	doc, err := bindDocument(c)
	if err != nil {
		return err
	}
	defer doc.Close()

	figs, err := s.figures.Extract(c.Request().Context(), doc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.FiguresResult{
		Success:     true,
		Figures:     figs,
		FigureCount: len(figs),
	})
}

func (s *Server) extractFiguresEnhanced(c echo.Context) error {
	var req enhancedFiguresRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	doc, err := openEncoded(req.PDFBase64)
	if err != nil {
		return err
	}
	defer doc.Close()

	opts := figures.DefaultOptions()
	if req.MinSize != nil {
		opts.MinSize = *req.MinSize
	}
	if req.DPI != nil {
		opts.DPI = *req.DPI
	}

	figs, err := s.figures.ExtractEnhanced(c.Request().Context(), doc, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.EnhancedFiguresResult{
		Success:     true,
		Figures:     figs,
		FigureCount: len(figs),
	})
}

func (s *Server) captureHighlights(c echo.Context) error {
	var req captureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PDFBase64 == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "pdf_base64 required")
	}
	if len(req.Highlights) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "highlights array required")
	}
	doc, err := openEncoded(req.PDFBase64)
	if err != nil {
		return err
	}
	defer doc.Close()

	opts := highlight.CaptureOptions()
	if req.DPI != nil {
		opts.DPI = *req.DPI
	}
	if req.Padding != nil {
		opts.Padding = *req.Padding
	}

	shots, err := s.renderer.Capture(c.Request().Context(), doc, toHighlights(req.Highlights), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.ScreenshotsResult{
		Success:         true,
		Screenshots:     shots,
		ScreenshotCount: len(shots),
	})
}

func (s *Server) generateHTMLReport(c echo.Context) error {
	var req reportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	doc, err := openEncoded(req.PDFBase64)
	if err != nil {
		return err
	}
	defer doc.Close()

	opts := highlight.ReportOptions()
	if req.DPI != nil {
		opts.DPI = *req.DPI
	}
	if req.Padding != nil {
		opts.Padding = *req.Padding
	}

	result, err := s.reports.Generate(c.Request().Context(), doc, report.Request{
		Data:       req.ExtractionData,
		Highlights: toHighlights(req.Highlights),
		Title:      req.Title,
		Options:    opts,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
