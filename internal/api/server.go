// Package api exposes the HTTP interface for the artifact service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/fetch"
	"github.com/autoscraper/scrapervault/internal/history"
	"github.com/autoscraper/scrapervault/internal/metrics"
	"github.com/autoscraper/scrapervault/internal/repository"
	"github.com/autoscraper/scrapervault/internal/validate"
)

// Validator runs a stored scraper against a live URL.
type Validator interface {
	Validate(ctx context.Context, domain, url string) (validate.Result, error)
}

// ArtifactWriter persists new scrapers. Satisfied by repository.Writer and
// by the event-publishing decorator around it.
type ArtifactWriter interface {
	SaveArtifact(ctx context.Context, req repository.SaveRequest) (repository.SavedArtifact, error)
}

// Server wires HTTP handlers to the repository components.
type Server struct {
	router    chi.Router
	writer    ArtifactWriter
	resolver  *repository.Resolver
	validator Validator
	histStore history.Store
	fetcher   fetch.Fetcher
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes. validator,
// histStore and fetcher may be nil; their routes then answer 503.
func NewServer(
	writer ArtifactWriter,
	resolver *repository.Resolver,
	validator Validator,
	histStore history.Store,
	fetcher fetch.Fetcher,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		writer:    writer,
		resolver:  resolver,
		validator: validator,
		histStore: histStore,
		fetcher:   fetcher,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(120 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/scrapers", func(r chi.Router) {
			r.Post("/", s.saveScraper)
			r.Get("/", s.listScrapers)
			r.Route("/{domain}", func(r chi.Router) {
				r.Get("/", s.getScraper)
				r.Get("/history", s.getHistory)
				r.Post("/validate", s.validateScraper)
			})
		})
		r.Get("/resolve", s.resolve)
		r.Route("/pipelines", func(r chi.Router) {
			r.Get("/", s.listPipelines)
			r.Get("/{domain}", s.getPipeline)
		})
		r.Post("/probe", s.probeSelectors)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The storage tier is the only hard dependency worth probing.
	if _, err := s.resolver.ListArtifacts(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
