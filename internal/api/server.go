// Package api exposes the HTTP interface for the routing and scraping
// service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/prospecta/leadengine/internal/failover"
	"github.com/prospecta/leadengine/internal/quota"
	"github.com/prospecta/leadengine/internal/registry"
	"github.com/prospecta/leadengine/internal/scrape"
	"github.com/prospecta/leadengine/internal/selector"
)

// Server wires HTTP handlers to the routing and scraping services.
type Server struct {
	router   chi.Router
	registry *registry.Service
	selector *selector.Selector
	guard    *quota.Guard
	executor *failover.Executor
	engine   *scrape.Engine
	jobs     scrape.JobStore
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	reg *registry.Service,
	sel *selector.Selector,
	guard *quota.Guard,
	exec *failover.Executor,
	engine *scrape.Engine,
	jobs scrape.JobStore,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		registry: reg,
		selector: sel,
		guard:    guard,
		executor: exec,
		engine:   engine,
		jobs:     jobs,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(120 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/providers", func(r chi.Router) {
			r.Post("/", s.createProvider)
			r.Get("/", s.listProviders)
			r.Route("/{provider_id}", func(r chi.Router) {
				r.Get("/", s.getProvider)
				r.Put("/", s.updateProvider)
				r.Delete("/", s.deleteProvider)
				r.Post("/sync-mappings", s.syncMappings)
				r.Get("/limits/{operation}", s.checkLimits)
			})
		})
		r.Post("/mappings/sync-all", s.syncAllMappings)
		r.Route("/operations/{operation}", func(r chi.Router) {
			r.Post("/select", s.selectProvider)
			r.Post("/execute", s.executeOperation)
		})
		r.Route("/scrape", func(r chi.Router) {
			r.Post("/", s.scrapeURL)
			r.Post("/batch", s.scrapeBatch)
			r.Get("/jobs/{job_id}", s.getScrapeJob)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}
