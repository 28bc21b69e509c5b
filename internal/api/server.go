package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"leangraph/internal/config"
	"leangraph/internal/metrics"
	"leangraph/internal/pipeline"
)

// Server is the HTTP API server for leangraph.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		log:          log,
		cfg:          cfg,
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
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/v1/crawls/{jobID}", s.handleCrawlStatus)
	r.Get("/v1/decls", s.handleListDecls)
	r.Get("/v1/decls/{name}", s.handleGetDecl)
	r.Get("/v1/graph", s.handleGraphSummary)
	r.Get("/v1/graph/component/{name}", s.handleComponent)
	r.Get("/v1/graph/topo", s.handleTopo)
	r.Get("/v1/graph/export", s.handleExport)
	r.Get("/v1/stats", s.handleStats)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIToken, s.log))

		r.Post("/v1/crawls", s.handleSubmitCrawl)
		r.Post("/v1/prune", s.handlePrune)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// snapshot returns the current published snapshot, writing a 404 and
// returning nil when no corpus has been loaded yet.
func (s *Server) snapshot(w http.ResponseWriter) *pipeline.Snapshot {
	snap := s.orchestrator.Holder().Load()
	if snap == nil {
		jsonError(w, "no corpus loaded", http.StatusNotFound)
	}
	return snap
}
