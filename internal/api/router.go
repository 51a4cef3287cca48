package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nightjar-io/nightjar/internal/api/alerts"
	"github.com/nightjar-io/nightjar/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	tenantLimiter := middleware.NewTenantRateLimiter(float64(s.config.RateLimitPerTenant), s.config.RateLimitBurst)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	// JSON fallbacks for unmatched routes
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrMethodNotAllowed)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/alerts", func(r chi.Router) {
			r.Use(middleware.RequireTenant)
			r.Use(middleware.JWTAuth(s.config.JWTSecret))
			r.Use(middleware.RateLimitByTenant(tenantLimiter))

			h := alerts.NewHandler(s.alerts, s.config.QueryTimeout)

			r.Post("/", h.Ingest)
			r.Get("/", h.Query)
			r.Get("/{alertId}", h.Get)
			r.Delete("/{alertId}", h.DeleteByID)

			r.Put("/tags", h.AddTags)
			r.Delete("/tags", h.RemoveTags)

			r.Put("/ack", h.Ack)
			r.Put("/resolve", h.Resolve)
			r.Put("/open", h.Reopen)
			r.Put("/delete", h.Delete)
		})
	})

	// Health check (public, no rate limit)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		OK(w, map[string]string{"status": "ok"})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}
