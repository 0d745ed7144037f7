package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"pdfextract/internal/logger"
)

// Table extraction engine selection values.
const (
	TablesEngineLocal      = "local"
	TablesEngineDocumentAI = "documentai"
)

type Config struct {
	// HTTP Server Configuration
	Port               string
	CORSAllowedOrigins string

	// Table Extraction Configuration
	TablesEngine string

	// OCR Fallback Configuration
	OCRFallback bool

	// Google Cloud Configuration (OCR fallback and Document AI engine)
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// QA Harness Configuration
	QAAppURL string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		Port:                  getEnv("PORT", "5003"),
		CORSAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		TablesEngine:          getEnv("TABLES_ENGINE", TablesEngineLocal),
		OCRFallback:           getEnvBool("OCR_FALLBACK", false),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		QAAppURL:              getEnv("QA_APP_URL", "http://127.0.0.1:5002"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.TablesEngine {
	case TablesEngineLocal, TablesEngineDocumentAI:
	default:
		return fmt.Errorf("TABLES_ENGINE must be %q or %q, got %q",
			TablesEngineLocal, TablesEngineDocumentAI, c.TablesEngine)
	}
	if c.TablesEngine == TablesEngineDocumentAI {
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required when TABLES_ENGINE is %q", TablesEngineDocumentAI)
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required when TABLES_ENGINE is %q", TablesEngineDocumentAI)
		}
	}
	return nil
}

// CORSOrigins returns the allowed origins list. An unset or empty
// CORS_ALLOWED_ORIGINS falls back to the local development origins.
func (c *Config) CORSOrigins() []string {
	if c.CORSAllowedOrigins != "" {
		var origins []string
		for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			return origins
		}
	}
	return []string{
		"http://localhost:3000",
		"http://localhost:5000",
		"http://localhost:5002",
	}
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
