// SPDX-License-Identifier: MIT

// Package api exposes the summary job API: create, poll, cancel. Rate limit
// and validation failures answer immediately; provider failures surface
// through the job record.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytsum/internal/config"
	"github.com/ManuGH/ytsum/internal/jobs"
	"github.com/ManuGH/ytsum/internal/kv"
	"github.com/ManuGH/ytsum/internal/ratelimit"
	"github.com/ManuGH/ytsum/internal/validate"
)

// globalRequestLimit caps raw ingress per client IP, in front of the
// KV-backed per-class quotas.
const globalRequestLimit = 600

// Server carries the wired collaborators behind the HTTP surface.
type Server struct {
	cfg       config.Config
	validator *validate.Validator
	driver    *jobs.Driver
	limiter   *ratelimit.Limiter
	store     kv.Store
	logger    zerolog.Logger

	// configErr is the startup validation outcome. When set, every business
	// endpoint answers 500 CONFIGURATION_ERROR without touching providers.
	configErr error
}

// NewServer builds the HTTP server. configErr carries a failed
// config.Validate so the service can boot degraded and report the condition
// per request.
func NewServer(cfg config.Config, validator *validate.Validator, driver *jobs.Driver, limiter *ratelimit.Limiter, store kv.Store, logger zerolog.Logger, configErr error) *Server {
	return &Server{
		cfg:       cfg,
		validator: validator,
		driver:    driver,
		limiter:   limiter,
		store:     store,
		logger:    logger,
		configErr: configErr,
	}
}

// Router assembles the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(securityHeaders)
	r.Use(s.requestLogger)
	r.Use(httprate.LimitByIP(globalRequestLimit, time.Minute))

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/summaries", s.handleCreate)
		r.Get("/summaries/{jobID}", s.handlePoll)
		r.Delete("/summaries/{jobID}", s.handleCancel)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	kvStatus := "ok"
	if err := s.storeHealth(r.Context()); err != nil {
		kvStatus = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "ytsum",
		"kv":      kvStatus,
	})
}

// storeHealth checks the KV backend. Backends with a dedicated health check
// (Redis pings the server) use it; others answer with a cheap read.
func (s *Server) storeHealth(ctx context.Context) error {
	if hc, ok := s.store.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	_, _, err := s.store.Get(ctx, "healthz")
	return err
}
