package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/edupress/edupress/internal/config"
	"github.com/edupress/edupress/internal/content"
	"github.com/edupress/edupress/internal/export"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for the export service.
type Server struct {
	router   chi.Router
	exporter *export.Exporter
	contents ContentBrowser
	log      *slog.Logger
	cfg      config.Config
}

// ContentBrowser is the slice of the content client the browse handlers
// need.
type ContentBrowser interface {
	ListItems(ctx context.Context, lessonID string, rt content.ResourceType) ([]content.Item, error)
	GetHierarchy(ctx context.Context, lessonID string) (*content.Hierarchy, error)
}

// NewServer creates and configures the HTTP server.
func NewServer(exporter *export.Exporter, contents ContentBrowser, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		exporter: exporter,
		contents: contents,
		log:      log,
		cfg:      cfg,
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

		r.Get("/api/lessons/{lessonID}/hierarchy", s.handleHierarchy)
		r.Get("/api/lessons/{lessonID}/contents", s.handleListContents)
		r.Post("/api/export", s.handleExport)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
