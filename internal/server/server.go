// Package server exposes the extraction operations over HTTP. Every
// operation is a POST taking the document as base64 JSON (the layout
// endpoint also accepts multipart uploads) and answering with a JSON result;
// failures are rendered uniformly as {"error": msg}.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"pdfextract/internal/config"
	"pdfextract/internal/extract"
	"pdfextract/internal/figures"
	"pdfextract/internal/highlight"
	"pdfextract/internal/logger"
	"pdfextract/internal/ocr"
	"pdfextract/internal/pdfx"
	"pdfextract/internal/report"
	"pdfextract/internal/tables"
)

// bodyLimit caps request bodies above the 20MB decoded document limit to
// leave room for base64 expansion and the JSON envelope.
const bodyLimit = "30M"

// Server wires the extraction services behind an echo router.
type Server struct {
	echo *echo.Echo
	cfg  *config.Config
	log  zerolog.Logger

	extract  *extract.Service
	tables   tables.Extractor
	figures  *figures.Service
	renderer *highlight.Renderer
	reports  *report.Generator
}

// New assembles the HTTP server from the configuration. The tables engine is
// selected by TABLES_ENGINE; the Vision OCR fallback is only dialed when
// OCR_FALLBACK is set, so a plain dev server needs no cloud credentials.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	tableEngine, err := tables.NewExtractor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var ocrEngine ocr.Service
	if cfg.OCRFallback {
		ocrEngine, err = ocr.NewGoogleVisionService(ctx)
		if err != nil {
			return nil, fmt.Errorf("ocr fallback setup failed: %w", err)
		}
	}

	s := &Server{
		echo:     echo.New(),
		cfg:      cfg,
		log:      logger.WithComponent("server"),
		extract:  extract.NewServiceWithDeps(ocrEngine, tableEngine),
		tables:   tableEngine,
		figures:  figures.NewService(),
		renderer: highlight.NewRenderer(),
		reports:  report.NewGenerator(),
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError
	s.middleware()
	s.routes()

	return s, nil
}

// Handler returns the http.Handler backing the server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on the configured port until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info().Str("port", s.cfg.Port).Msg("Starting HTTP server")
	err := s.echo.Start(":" + s.cfg.Port)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and releases the engines.
func (s *Server) Shutdown(ctx context.Context) error {
	defer func() {
		if err := s.tables.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Closing tables engine failed")
		}
	}()
	s.log.Info().Msg("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) middleware() {
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			reqLog := logger.WithRequestID(v.RequestID)
			evt := reqLog.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				evt = reqLog.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("Request handled")
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.cfg.CORSOrigins(),
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
	}))
	s.echo.Use(middleware.BodyLimit(bodyLimit))
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.health)
	s.echo.POST("/extract_text_with_layout", s.extractTextWithLayout)
	s.echo.POST("/extract_text_with_positions", s.extractTextWithPositions)
	s.echo.POST("/extract_for_llm", s.extractForLLM)
	s.echo.POST("/detect_sections", s.detectSections)
	s.echo.POST("/extract_tables", s.extractTables)
	s.echo.POST("/extract_tables_enhanced", s.extractTablesEnhanced)
	s.echo.POST("/extract_figures", s.extractFigures)
	s.echo.POST("/extract_figures_enhanced", s.extractFiguresEnhanced)
	s.echo.POST("/capture_highlights", s.captureHighlights)
	s.echo.POST("/generate_html_report", s.generateHTMLReport)
}

// errorResponse is the uniform failure body.
type errorResponse struct {
	Error string `json:"error"`
}

// handleError renders every failure as {"error": msg}. HTTP-level errors
// keep their status; engine errors map to 400 when the input itself was bad
// and 500 otherwise.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := err.Error()

	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Code
		msg = fmt.Sprint(httpErr.Message)
		if status == http.StatusNotFound {
			msg = "Unknown endpoint: " + c.Request().URL.Path
		}
	case isInputError(err):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Request failed")
	}

	if writeErr := c.JSON(status, errorResponse{Error: msg}); writeErr != nil {
		s.log.Error().Err(writeErr).Msg("Writing error response failed")
	}
}

// isInputError reports whether the failure is the caller's document rather
// than a processing fault.
func isInputError(err error) bool {
	return errors.Is(err, pdfx.ErrInvalidPDF) ||
		errors.Is(err, pdfx.ErrDocumentTooLarge) ||
		errors.Is(err, ocr.ErrInvalidPDF) ||
		errors.Is(err, ocr.ErrPDFTooLarge) ||
		errors.Is(err, ocr.ErrTooManyPages)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
