package http

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kjstillabower/infohub/internal/dashboard"
	"github.com/kjstillabower/infohub/internal/lifecycle"
	"github.com/kjstillabower/infohub/internal/location"
	"github.com/kjstillabower/infohub/internal/models"
	"github.com/kjstillabower/infohub/internal/observability"
	"github.com/kjstillabower/infohub/internal/session"
	"github.com/kjstillabower/infohub/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 4 << 10

// MaxPrincipalLength bounds the INR amount as typed.
const MaxPrincipalLength = 32

var iconGlyphs = map[models.WeatherIcon]string{
	models.IconSun:   "☀️",
	models.IconCloud: "☁️",
	models.IconRain:  "🌧️",
	models.IconStorm: "⛈️",
	models.IconWind:  "💨",
	models.IconFog:   "🌫️",
}

var templateFuncs = template.FuncMap{
	"glyph": func(icon models.WeatherIcon) string {
		return iconGlyphs[dashboard.DisplayIcon(icon)]
	},
	"num": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
}

// HealthConfig holds optional dependencies for the health handler.
type HealthConfig struct {
	// StorePing, when set, checks session store reachability. Used when backend is memcached.
	StorePing func() error
	Version   string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	registry     *session.Registry
	healthConfig *HealthConfig
	logger       *zap.Logger
	pages        *template.Template
	upgrader     websocket.Upgrader

	// streams ends every open websocket on shutdown.
	streams     context.Context
	stopStreams context.CancelFunc

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(registry *session.Registry, healthConfig *HealthConfig, logger *zap.Logger) (*Handler, error) {
	if registry == nil {
		return nil, errors.New("session registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if healthConfig == nil {
		healthConfig = &HealthConfig{}
	}
	pages, err := template.New("infohub").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	streams, stop := context.WithCancel(context.Background())
	return &Handler{
		registry:     registry,
		healthConfig: healthConfig,
		logger:       logger,
		pages:        pages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		streams:     streams,
		stopStreams: stop,
	}, nil
}

// pageData is what the page and panel templates render.
type pageData struct {
	View          dashboard.View
	NeedsPosition bool
}

func newPageData(d *dashboard.Dashboard) pageData {
	needs := false
	if rep, ok := d.Locator().(*location.Reported); ok {
		needs = !rep.Resolved()
	}
	return pageData{View: d.View(), NeedsPosition: needs}
}

func (h *Handler) renderPanel(data pageData) (string, error) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, "panel", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GetPage handles GET /.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	ref, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "SESSION_UNAVAILABLE", "Unable to start a session")
		return
	}
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, "page", newPageData(ref.dash)); err != nil {
		observability.LoggerFromContext(r.Context(), h.logger).Error("render page failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render dashboard")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GetDashboard handles GET /api/dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ref.dash.View())
}

// PostTab handles POST /api/tab.
func (h *Handler) PostTab(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Tab string `json:"tab"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	tab, err := models.ParseTab(body.Tab)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_TAB", err.Error())
		return
	}
	if err := ref.dash.Select(r.Context(), tab); err != nil {
		writeDashboardError(w, r, err)
		return
	}
	h.registry.Save(r.Context(), ref.id)
	writeJSON(w, http.StatusOK, ref.dash.View())
}

type positionRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Error       *string  `json:"error"`
	Unsupported bool     `json:"unsupported"`
}

// PostPosition handles POST /api/weather/position: the browser's answer to
// the geolocation prompt. Only the first answer per session is used.
func (h *Handler) PostPosition(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.session(w, r)
	if !ok {
		return
	}
	var body positionRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	rep, ok := ref.dash.Locator().(*location.Reported)
	if !ok {
		writeError(w, r, http.StatusConflict, "POSITION_FIXED", "Location is fixed by configuration")
		return
	}

	var accepted bool
	switch {
	case body.Unsupported:
		accepted = rep.Unsupported()
	case body.Error != nil:
		reason, err := validation.ValidateReason(*body.Error)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_REASON", err.Error())
			return
		}
		accepted = rep.Deny(reason)
	case body.Latitude != nil && body.Longitude != nil:
		pos, err := validation.ValidatePosition(*body.Latitude, *body.Longitude)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_POSITION", err.Error())
			return
		}
		accepted = rep.Report(pos)
	default:
		writeError(w, r, http.StatusBadRequest, "INVALID_POSITION", "latitude and longitude are required")
		return
	}
	if !accepted {
		writeError(w, r, http.StatusConflict, "POSITION_ALREADY_REPORTED", "Location was already reported for this session")
		return
	}
	observability.LoggerFromContext(r.Context(), h.logger).Debug("position reported")
	writeJSON(w, http.StatusOK, ref.dash.View())
}

// PostQuoteRefresh handles POST /api/quote/refresh.
func (h *Handler) PostQuoteRefresh(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.session(w, r)
	if !ok {
		return
	}
	started, err := ref.dash.RefreshQuote(r.Context())
	if err != nil {
		writeDashboardError(w, r, err)
		return
	}
	status := http.StatusOK
	if started {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]interface{}{
		"started": started,
		"view":    ref.dash.View(),
	})
}

// PostPrincipal handles POST /api/currency/principal.
func (h *Handler) PostPrincipal(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Amount string `json:"amount"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if len(body.Amount) > MaxPrincipalLength {
		writeError(w, r, http.StatusBadRequest, "INVALID_AMOUNT", "amount too long")
		return
	}
	if err := ref.dash.SetPrincipal(body.Amount); err != nil {
		writeDashboardError(w, r, err)
		return
	}
	h.registry.Save(r.Context(), ref.id)
	writeJSON(w, http.StatusOK, ref.dash.View())
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	storeOK := true
	if h.healthConfig.StorePing != nil {
		if err := h.healthConfig.StorePing(); err != nil {
			storeOK = false
			checks["sessionStore"] = "unhealthy"
		} else {
			checks["sessionStore"] = "healthy"
		}
	}

	status, statusCode := "healthy", http.StatusOK
	switch lifecycle.CurrentState() {
	case lifecycle.StateShuttingDown:
		status, statusCode = "shutting-down", http.StatusServiceUnavailable
	case lifecycle.StateStarting:
		status, statusCode = "starting", http.StatusServiceUnavailable
	default:
		if !storeOK {
			// preferences are best effort; dashboards still work
			status = "degraded"
		}
	}

	h.healthStatusMu.Lock()
	if prev := h.healthStatusPrev; prev != "" && prev != status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", status))
	}
	h.healthStatusPrev = status
	h.healthStatusMu.Unlock()

	version := h.healthConfig.Version
	if version == "" {
		version = "dev"
	}
	writeJSON(w, statusCode, map[string]interface{}{
		"status":         status,
		"service":        "infohub",
		"version":        version,
		"checks":         checks,
		"activeSessions": h.registry.Len(),
		"uptimeSeconds":  int64(lifecycle.Uptime() / time.Second),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// CloseStreams ends every open websocket. Call during shutdown.
func (h *Handler) CloseStreams() {
	h.stopStreams()
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*sessionRef, bool) {
	ref, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "SESSION_UNAVAILABLE", "Unable to start a session")
	}
	return ref, ok
}

// decodeJSON reads a bounded JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		return false
	}
	return true
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

func writeDashboardError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, dashboard.ErrClosed) {
		writeError(w, r, http.StatusGone, "SESSION_CLOSED", "Session has ended; reload the page")
		return
	}
	writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
}
