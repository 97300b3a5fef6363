package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendLanding = "landing"
	BackendLocal   = "local"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Parsing service
	ParseBackend     string
	LandingAPIKey    string
	LandingURL       string
	ParseMaxRetries  int
	ParseHTTPTimeout time.Duration

	// QA service
	QAAPIKey      string
	QABaseURL     string
	QAModel       string
	QATemperature float64
	QAMaxTokens   int64

	// Uploads
	UploadDir      string
	MaxUploadBytes int64

	// Latency stats window
	StatsWindow time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCEXTRACT_API_KEY"),

		ParseBackend:     strings.ToLower(envOr("PARSE_BACKEND", BackendLanding)),
		LandingAPIKey:    os.Getenv("LANDING_API_KEY"),
		LandingURL:       envOr("LANDING_URL", "https://api.va.landing.ai/v1/tools/agentic-document-analysis"),
		ParseMaxRetries:  envInt("PARSE_MAX_RETRIES", 3),
		ParseHTTPTimeout: envDuration("PARSE_HTTP_TIMEOUT", 10*time.Minute),

		QAAPIKey:      os.Getenv("GROQ_API_KEY"),
		QABaseURL:     envOr("QA_BASE_URL", "https://api.groq.com/openai/v1/"),
		QAModel:       envOr("QA_MODEL", "openai/gpt-oss-20b"),
		QATemperature: envFloat("QA_TEMPERATURE", 0),
		QAMaxTokens:   envInt64("QA_MAX_TOKENS", 1024),

		UploadDir:      envOr("UPLOAD_DIR", "results"),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.ParseMaxRetries < 0 {
		cfg.ParseMaxRetries = 3
	}
	if cfg.ParseHTTPTimeout <= 0 {
		cfg.ParseHTTPTimeout = 10 * time.Minute
	}
	if cfg.QATemperature < 0 {
		cfg.QATemperature = 0
	}
	if cfg.QAMaxTokens <= 0 {
		cfg.QAMaxTokens = 1024
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

// Validate checks required keys. The QA key is optional: without it the
// QA client answers with a not-initialized message.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCEXTRACT_API_KEY is required")
	}
	switch c.ParseBackend {
	case BackendLanding:
		if c.LandingAPIKey == "" {
			return fmt.Errorf("LANDING_API_KEY is required for the %s backend", BackendLanding)
		}
	case BackendLocal:
	default:
		return fmt.Errorf("PARSE_BACKEND must be %q or %q, got %q", BackendLanding, BackendLocal, c.ParseBackend)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
