package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/config"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/docparse"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/metrics"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/parser"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/session"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/storage"
)

// Server is the HTTP API server for docextract.
type Server struct {
	router  chi.Router
	store   *storage.FileStore
	session *session.Session
	stats   *metrics.Registry
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(store *storage.FileStore, sess *session.Session, stats *metrics.Registry, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:   store,
		session: sess,
		stats:   stats,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/files", s.handleUpload)
		r.Get("/api/files", s.handleListFiles)

		r.Route("/api/session", func(r chi.Router) {
			r.Get("/", s.handleSession)
			r.Put("/active", s.handleSelect)
			r.Delete("/active", s.handleDeselect)
			r.Post("/parse", s.handleParse)
			r.Put("/page", s.handleSetPage)

			r.Get("/pages", s.handlePages)
			r.Get("/tables", s.handleTables)
			r.Get("/tables/{tableID}/export", s.handleExportTable)
			r.Get("/forms", s.handleForms)
			r.Get("/forms/export", s.handleExportForms)
			r.Get("/checkboxes", s.handleCheckboxes)
			r.Get("/checkboxes/export", s.handleExportCheckboxes)
			r.Get("/corpus", s.handleCorpus)

			r.Post("/ask", s.handleAsk)
		})

		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// supportedFile reports whether the configured parse backend accepts name.
func (s *Server) supportedFile(name string) bool {
	if s.cfg.ParseBackend == config.BackendLocal {
		return parser.IsSupportedExtension(name)
	}
	return docparse.LandingExtensions[strings.ToLower(filepath.Ext(name))]
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
