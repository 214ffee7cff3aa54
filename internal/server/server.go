// Package server exposes the HTTP API: variable and district catalogs,
// choropleth feature queries, time-series fetches in the three merge
// modes, and CSV/XLSX export.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terraclim/atlas-cli/internal/boundary"
	"github.com/terraclim/atlas-cli/internal/config"
	"github.com/terraclim/atlas-cli/internal/monitoring"
	"github.com/terraclim/atlas-cli/internal/series"
)

// Server wires the query core and boundary store to HTTP handlers.
type Server struct {
	fetcher  *series.Fetcher
	store    *boundary.Store
	metrics  *monitoring.Collector
	gatherer prometheus.Gatherer
	cfg      config.ServerConfig
	timeout  time.Duration
}

// New creates a Server. metrics and gatherer may be nil, in which case
// request metrics are not recorded and /metrics serves an empty set.
func New(fetcher *series.Fetcher, store *boundary.Store, metrics *monitoring.Collector, gatherer prometheus.Gatherer, cfg config.ServerConfig, queryTimeout time.Duration) *Server {
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}
	return &Server{
		fetcher:  fetcher,
		store:    store,
		metrics:  metrics,
		gatherer: gatherer,
		cfg:      cfg,
		timeout:  queryTimeout,
	}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.accessLog)
	if s.cfg.RateLimitRPS > 0 {
		r.Use(rateLimit(s.cfg.RateLimitRPS, s.cfg.RateBurst))
	}

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Method("GET", "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/variables", s.handleVariables)
		r.Get("/districts", s.handleDistricts)
		r.Get("/data", s.handleData)
		r.Get("/data-range", s.handleDataRange)
		r.Get("/series", s.handleSeries)
		r.Get("/export", s.handleExport)
	})

	return r
}
