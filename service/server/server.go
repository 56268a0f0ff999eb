package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mintwatch/service/config"
	"mintwatch/service/metrics"
	"mintwatch/service/nats"
)

// Server represents the HTTP server for the token analysis service.
type Server struct {
	addr      string
	cfg       *config.Config
	analyzer  AnalysisService
	publisher nats.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The publisher is optional - if nil, reports are not published to NATS.
// The metrics is optional - if nil, metrics endpoints won't be available.
func New(addr string, cfg *config.Config, analyzer AnalysisService, publisher nats.Publisher, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:      addr,
		cfg:       cfg,
		analyzer:  analyzer,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Token analysis routes
	mux.Handle("GET /api/v1/tokens/{mint}/holders",
		s.instrument("/api/v1/tokens/holders", handleGetHolders(s.analyzer, s.metrics, s.logger)))
	mux.Handle("GET /api/v1/tokens/{mint}/concentration",
		s.instrument("/api/v1/tokens/concentration", handleGetConcentration(s.analyzer, s.metrics, s.logger)))
	mux.Handle("GET /api/v1/tokens/{mint}/whales",
		s.instrument("/api/v1/tokens/whales", handleGetWhales(s.analyzer, s.metrics, s.logger)))
	mux.Handle("GET /api/v1/tokens/{mint}/safety",
		s.instrument("/api/v1/tokens/safety", handleGetSafety(s.analyzer, s.metrics, s.logger)))
	mux.Handle("GET /api/v1/tokens/{mint}/report",
		s.instrument("/api/v1/tokens/report", handleGetReport(s.analyzer, s.publisher, s.metrics, s.logger)))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	if s.publisher != nil {
		s.logger.Info("report publishing to NATS enabled")
	}

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// instrument wraps a handler with HTTP metrics when a collector is
// configured.
func (s *Server) instrument(name string, h http.Handler) http.Handler {
	if s.metrics == nil {
		return h
	}
	return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers for all requests
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Pass through to next handler
		next.ServeHTTP(w, r)
	})
}
