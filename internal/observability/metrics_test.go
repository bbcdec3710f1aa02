package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestMetrics_Usable verifies that all metrics accept the label dimensions used by
// the genai, gateway, widget, session and http packages.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/api/dashboard", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/api/dashboard").Observe(0.01)
	GenAICallsTotal.WithLabelValues("weather", "success").Inc()
	GenAICallsTotal.WithLabelValues("quote", "rate_limited").Inc()
	GenAIDuration.WithLabelValues("currency", "success").Observe(1.2)
	GatewayFailuresTotal.WithLabelValues("weather", "malformed").Inc()
	WidgetTransitionsTotal.WithLabelValues("quote", "loading").Inc()
	WidgetStaleResultsTotal.WithLabelValues("weather").Inc()
	ActiveSessions.Inc()
	ActiveSessions.Dec()
	StreamConnections.Inc()
	StreamConnections.Dec()
	RateLimitDeniedTotal.Inc()
	SessionStoreErrorsTotal.WithLabelValues("get").Inc()
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	GenAICallsTotal.WithLabelValues("quote", "success").Inc()

	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "genaiCallsTotal") {
		t.Error("MetricsHandler response should contain genaiCallsTotal")
	}
}
