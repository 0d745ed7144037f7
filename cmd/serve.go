package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"pdfextract/internal/config"
	"pdfextract/internal/logger"
	"pdfextract/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the PDF extraction HTTP server",
	Long: `Start the HTTP server exposing the extraction operations as JSON endpoints.

Every endpoint accepts a POST with a base64-encoded PDF and returns the
extraction result; GET /healthz reports liveness.

Optional environment variables:
  PORT - Listen port (default: 5003)
  CORS_ALLOWED_ORIGINS - Comma-separated allowed origins
  TABLES_ENGINE - Table extraction engine: local or documentai
  OCR_FALLBACK - Enable the Cloud Vision fallback for scanned documents
  GOOGLE_APPLICATION_CREDENTIALS - Service account JSON (cloud engines only)`,
	Example: `  # Serve on the default port
  pdfextract serve

  # Serve on port 8080 with the Document AI tables engine
  TABLES_ENGINE=documentai pdfextract serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "", "Listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	port, _ := cmd.Flags().GetString("port")

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if port != "" {
		cfg.Port = port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create server")
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("tables_engine", cfg.TablesEngine).
		Bool("ocr_fallback", cfg.OCRFallback).
		Msg("HTTP server listening")

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("Server stopped unexpectedly")
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received interrupt signal, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
		return fmt.Errorf("shutdown failed: %w", err)
	}

	log.Info().Msg("Server shut down cleanly")
	return nil
}
