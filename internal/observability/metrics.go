package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (page reload storms).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Dashboard API calls never wait on the model, so p99 should stay low.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// generateContent calls by operation and status. Watch for: error vs success ratio, rate_limited.
	GenAICallsTotal *prometheus.CounterVec

	// Model latency per call. Structured output is slow; p95 of several seconds is normal.
	GenAIDuration *prometheus.HistogramVec

	// Gateway failures by operation and kind (upstream, malformed). Malformed = model ignored the schema.
	GatewayFailuresTotal *prometheus.CounterVec

	// Widget state transitions by widget and target state.
	WidgetTransitionsTotal *prometheus.CounterVec

	// Results dropped because the widget was torn down while the fetch was in flight.
	WidgetStaleResultsTotal *prometheus.CounterVec

	// Live dashboard sessions.
	ActiveSessions prometheus.Gauge

	// Open websocket streams.
	StreamConnections prometheus.Gauge

	// Quote refresh requests denied by the limiter.
	RateLimitDeniedTotal prometheus.Counter

	// Session preference store errors by operation.
	SessionStoreErrorsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	GenAICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genaiCallsTotal",
			Help: "Total number of generateContent calls",
		},
		[]string{"operation", "status"},
	)
	GenAIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genaiDurationSeconds",
			Help:    "generateContent latency in seconds (per call)",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"operation", "status"},
	)
	GatewayFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewayFailuresTotal",
			Help: "Gateway fetch failures by operation and kind",
		},
		[]string{"operation", "kind"},
	)
	WidgetTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widgetTransitionsTotal",
			Help: "Widget controller state transitions",
		},
		[]string{"widget", "state"},
	)
	WidgetStaleResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widgetStaleResultsTotal",
			Help: "Fetch results discarded because the widget was torn down",
		},
		[]string{"widget"},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "activeSessions",
			Help: "Number of live dashboard sessions",
		},
	)
	StreamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamConnections",
			Help: "Number of open dashboard websocket streams",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	SessionStoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionStoreErrorsTotal",
			Help: "Session preference store errors by operation",
		},
		[]string{"operation"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		GenAICallsTotal, GenAIDuration,
		GatewayFailuresTotal,
		WidgetTransitionsTotal, WidgetStaleResultsTotal,
		ActiveSessions, StreamConnections,
		RateLimitDeniedTotal,
		SessionStoreErrorsTotal,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
