package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/infohub/internal/observability"
	"github.com/kjstillabower/infohub/internal/session"
)

// RouterConfig wires the routes that need more than the Handler.
type RouterConfig struct {
	Registry *session.Registry
	// RefreshLimiter throttles quote refreshes process-wide. Nil disables it.
	RefreshLimiter *rate.Limiter
	// CookieMaxAge is the session cookie lifetime.
	CookieMaxAge time.Duration
	Logger       *zap.Logger
}

// NewRouter builds the full route table. Session routes get a dashboard in
// their context; /health and /metrics do not.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	sessions := router.NewRoute().Subrouter()
	sessions.Use(SessionMiddleware(cfg.Registry, cfg.CookieMaxAge))
	sessions.HandleFunc("/", h.GetPage).Methods(http.MethodGet)
	sessions.HandleFunc("/ws", h.Stream).Methods(http.MethodGet)

	api := sessions.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
	api.HandleFunc("/tab", h.PostTab).Methods(http.MethodPost)
	api.HandleFunc("/weather/position", h.PostPosition).Methods(http.MethodPost)
	api.HandleFunc("/currency/principal", h.PostPrincipal).Methods(http.MethodPost)
	api.Handle("/quote/refresh",
		RateLimitMiddleware(cfg.RefreshLimiter)(http.HandlerFunc(h.PostQuoteRefresh)),
	).Methods(http.MethodPost)

	return router
}
