// Package api exposes the HTTP interface for the brand discovery service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brandscan/brandscan/internal/brand"
	"github.com/brandscan/brandscan/internal/config"
	"github.com/brandscan/brandscan/internal/content"
	"github.com/brandscan/brandscan/internal/metrics"
	"github.com/brandscan/brandscan/internal/pipeline"
	"github.com/brandscan/brandscan/internal/sweeper"
	"github.com/brandscan/brandscan/internal/urlproc"
	"github.com/brandscan/brandscan/internal/webhook"
)

// Server wires HTTP handlers to the orchestrator, webhook processor, and
// stores.
type Server struct {
	router       chi.Router
	store        brand.Store
	orchestrator *pipeline.Orchestrator
	processor    *webhook.Processor
	sweeper      *sweeper.Sweeper
	adapter      *content.Adapter
	cfg          config.Config
	logger       *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The webhook
// endpoint sits outside API-key auth; it is authenticated by signature.
func NewServer(
	store brand.Store,
	orchestrator *pipeline.Orchestrator,
	processor *webhook.Processor,
	sw *sweeper.Sweeper,
	adapter *content.Adapter,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		store:        store,
		orchestrator: orchestrator,
		processor:    processor,
		sweeper:      sw,
		adapter:      adapter,
		cfg:          cfg,
		logger:       logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(cfg.ServerTimeout()))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/webhooks/firecrawl", processor.Handle)

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Route("/brands", func(r chi.Router) {
			r.Post("/discover", s.discoverBrand)
			r.Route("/{brand_id}", func(r chi.Router) {
				r.Get("/", s.getBrand)
				r.Get("/content", s.listContent)
				r.Delete("/content", s.deleteContent)
			})
		})
		r.Post("/sweep", s.runSweep)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The store is the only hard dependency; a failed lookup of a synthetic
	// id still proves connectivity.
	if _, err := s.store.GetBrandByID(r.Context(), "00000000-0000-0000-0000-000000000000"); err != nil && !errors.Is(err, brand.ErrNotFound) {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type discoverRequest struct {
	URL string `json:"url"`
}

func (s *Server) discoverBrand(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	domain, err := urlproc.Normalize(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url: "+err.Error())
		return
	}

	result := s.orchestrator.Discover(r.Context(), domain)
	if !result.Success {
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getBrand(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brand_id")
	b, err := s.store.GetBrandByID(r.Context(), brandID)
	if err != nil {
		if errors.Is(err, brand.ErrNotFound) {
			writeError(w, http.StatusNotFound, "brand not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "brand lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) listContent(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookupBrand(w, r)
	if !ok {
		return
	}
	category := r.URL.Query().Get("category")
	objects := s.adapter.List(r.Context(), b.ID, b.PrimaryDomain, category)
	writeJSON(w, http.StatusOK, map[string]any{
		"brand_id": b.ID,
		"domain":   b.PrimaryDomain,
		"count":    len(objects),
		"objects":  objects,
	})
}

func (s *Server) deleteContent(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookupBrand(w, r)
	if !ok {
		return
	}
	category := r.URL.Query().Get("category")
	deleted := s.adapter.DeleteByBrandDomain(r.Context(), b.ID, b.PrimaryDomain, category)
	writeJSON(w, http.StatusOK, map[string]any{
		"brand_id": b.ID,
		"deleted":  deleted,
	})
}

func (s *Server) lookupBrand(w http.ResponseWriter, r *http.Request) (*brand.Brand, bool) {
	brandID := chi.URLParam(r, "brand_id")
	b, err := s.store.GetBrandByID(r.Context(), brandID)
	if err != nil {
		if errors.Is(err, brand.ErrNotFound) {
			writeError(w, http.StatusNotFound, "brand not found")
		} else {
			writeError(w, http.StatusInternalServerError, "brand lookup failed")
		}
		return nil, false
	}
	return b, true
}

func (s *Server) runSweep(w http.ResponseWriter, r *http.Request) {
	stats := s.sweeper.RunOnce(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{
		"extracts_checked":   stats.ExtractsChecked,
		"extracts_completed": stats.ExtractsCompleted,
		"extracts_failed":    stats.ExtractsFailed,
		"finalized":          stats.Finalized,
		"errors":             stats.Errors,
	})
}
