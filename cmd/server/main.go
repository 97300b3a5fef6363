package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/api"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/config"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/docparse"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/metrics"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/parser"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/qa"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/session"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("could not load .env", "error", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	stats := metrics.NewRegistry(cfg.StatsWindow)

	// Initialize clients.
	var parseSvc docparse.Service
	switch cfg.ParseBackend {
	case config.BackendLocal:
		parseSvc = docparse.NewLocal(parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext}, stats.Parse, log)
	default:
		parseSvc = docparse.NewLanding(docparse.LandingConfig{
			APIKey:     cfg.LandingAPIKey,
			URL:        cfg.LandingURL,
			MaxRetries: cfg.ParseMaxRetries,
			Timeout:    cfg.ParseHTTPTimeout,
		}, stats.Parse, log)
	}

	qaClient := qa.NewClient(qa.Config{
		APIKey:      cfg.QAAPIKey,
		BaseURL:     cfg.QABaseURL,
		Model:       cfg.QAModel,
		Temperature: cfg.QATemperature,
		MaxTokens:   cfg.QAMaxTokens,
	}, stats.QA, log)
	if !qaClient.Enabled() {
		log.Warn("GROQ_API_KEY not set, question answering disabled")
	}

	store, err := storage.NewFileStore(cfg.UploadDir, cfg.MaxUploadBytes, log)
	if err != nil {
		log.Error("open upload store", "error", err)
		os.Exit(1)
	}

	sess := session.New(parseSvc, qaClient, log)

	// Initialize HTTP server.
	srv := api.NewServer(store, sess, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ParseHTTPTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting docextract",
		"port", cfg.Port,
		"parse_backend", cfg.ParseBackend,
		"qa_model", qaClient.Model(),
		"upload_dir", cfg.UploadDir,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
