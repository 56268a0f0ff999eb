package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Holder Scan Metrics
	holderScansTotal *prometheus.CounterVec
	holdersPerScan   *prometheus.HistogramVec

	// Analysis Metrics
	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec

	// Market Data Metrics
	marketRequestsTotal   *prometheus.CounterVec
	marketRequestDuration *prometheus.HistogramVec
	marketCacheHitsTotal  prometheus.Counter

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),

		// Holder Scan Metrics
		holderScansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holder_scans_total",
				Help: "Total number of holder aggregations by mode (full or fallback)",
			},
			[]string{"mode", "status"},
		),
		holdersPerScan: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holders_per_scan",
				Help:    "Number of distinct beneficial owners produced per aggregation",
				Buckets: []float64{1, 5, 10, 20, 50, 100, 500, 1000, 5000},
			},
			[]string{"mode"},
		),

		// Analysis Metrics
		analysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_analyses_total",
				Help: "Total number of token analysis operations",
			},
			[]string{"operation", "status"},
		),
		analysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "token_analysis_duration_seconds",
				Help:    "Duration of token analysis operations in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"operation"},
		),

		// Market Data Metrics
		marketRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_data_requests_total",
				Help: "Total number of market data requests by status",
			},
			[]string{"status"},
		),
		marketRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "market_data_request_duration_seconds",
				Help:    "Duration of market data requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"venue"},
		),
		marketCacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "market_data_cache_hits_total",
				Help: "Total number of market data lookups served from the pool cache",
			},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// Holder scan metric helpers

// RecordHolderScan records a completed holder aggregation.
// mode is "full" or "fallback".
func (m *Metrics) RecordHolderScan(mode, status string, holderCount int) {
	m.holderScansTotal.WithLabelValues(mode, status).Inc()
	if status == "success" {
		m.holdersPerScan.WithLabelValues(mode).Observe(float64(holderCount))
	}
}

// Analysis metric helpers

// RecordAnalysis records an analysis operation with duration.
func (m *Metrics) RecordAnalysis(operation, status string, duration float64) {
	m.analysesTotal.WithLabelValues(operation, status).Inc()
	m.analysisDuration.WithLabelValues(operation).Observe(duration)
}

// Market data metric helpers

// RecordMarketRequest records a market data request with duration.
func (m *Metrics) RecordMarketRequest(venue, status string, duration float64) {
	m.marketRequestsTotal.WithLabelValues(status).Inc()
	m.marketRequestDuration.WithLabelValues(venue).Observe(duration)
}

// RecordMarketCacheHit records a market data lookup served from cache.
func (m *Metrics) RecordMarketCacheHit() {
	m.marketCacheHitsTotal.Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
