package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoplite/catalog-search/pkg/health"
	"github.com/shoplite/catalog-search/pkg/httputil"
	"github.com/shoplite/catalog-search/pkg/middleware"
)

const serviceName = "catalog-search"

// RouterConfig carries the boundary knobs the router needs.
type RouterConfig struct {
	// JWTSecret enables the optional identity middleware when non-empty.
	JWTSecret string
	// RateLimitRPS and RateLimitBurst protect the live/suggest endpoints.
	RateLimitRPS   int
	RateLimitBurst int
	RequestTimeout time.Duration
}

// NewRouter assembles the HTTP surface: search endpoints, health probes and
// the metrics endpoint, behind the standard middleware chain.
func NewRouter(h *SearchHandler, healthHandler *health.Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(h.logger))
	if cfg.JWTSecret != "" {
		r.Use(middleware.Identity(cfg.JWTSecret))
	}
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", h.Search)
		r.Get("/categories", h.Categories)

		// The as-you-type endpoints fire on every keystroke, so they get
		// a per-client rate limit.
		r.Group(func(r chi.Router) {
			if cfg.RateLimitRPS > 0 {
				r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, h.logger))
			}
			r.Get("/live", h.Live)
			r.Get("/suggest", h.Suggest)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "route not found"},
		})
	})

	return r
}
