package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/infohub/internal/dashboard"
	"github.com/kjstillabower/infohub/internal/location"
	"github.com/kjstillabower/infohub/internal/models"
	"github.com/kjstillabower/infohub/internal/session"
)

type stubGateway struct {
	mu           sync.Mutex
	weatherCalls int
	quoteCalls   int
	lastPosition models.Position
}

func (g *stubGateway) FetchWeather(_ context.Context, lat, lon float64) (models.WeatherData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.weatherCalls++
	g.lastPosition = models.Position{Latitude: lat, Longitude: lon}
	return models.WeatherData{
		Location:           "San Francisco, CA",
		TemperatureCelsius: 18.5,
		Condition:          "Partly Cloudy",
		Icon:               models.IconCloud,
		Humidity:           65,
		WindSpeedKph:       12,
	}, nil
}

func (g *stubGateway) FetchCurrencyRates(context.Context) (models.CurrencyRates, error) {
	return models.CurrencyRates{USD: 0.012, EUR: 0.011}, nil
}

func (g *stubGateway) FetchQuote(context.Context) (models.QuoteData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.quoteCalls++
	if g.quoteCalls%2 == 1 {
		return models.QuoteData{Quote: "A", Author: "First"}, nil
	}
	return models.QuoteData{Quote: "B", Author: "Second"}, nil
}

type testServerOptions struct {
	static    *models.Position
	limiter   *rate.Limiter
	store     session.Store
	logger    *zap.Logger
	storePing func() error
}

type testServer struct {
	handler  *Handler
	router   *mux.Router
	registry *session.Registry
	store    session.Store
	gateway  *stubGateway
}

func newTestServer(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()
	gw := &stubGateway{}
	store := opts.store
	if store == nil {
		store = session.NewInMemoryStore()
	}
	logger := opts.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := func(prefs session.Preferences) (*dashboard.Dashboard, error) {
		var loc location.Locator
		if opts.static != nil {
			loc = location.Static{Position: *opts.static}
		}
		return dashboard.New(gw, dashboard.Options{
			Locator:   loc,
			Tab:       prefs.Tab,
			Principal: prefs.Principal,
			Logger:    logger,
		})
	}
	registry := session.NewRegistry(store, factory, session.Config{}, logger)
	t.Cleanup(registry.CloseAll)

	h, err := NewHandler(registry, &HealthConfig{StorePing: opts.storePing, Version: "test"}, logger)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	t.Cleanup(h.CloseStreams)
	router := NewRouter(h, RouterConfig{
		Registry:       registry,
		RefreshLimiter: opts.limiter,
		CookieMaxAge:   time.Hour,
		Logger:         logger,
	})
	return &testServer{handler: h, router: router, registry: registry, store: store, gateway: gw}
}

// do sends a request through the full router. A nil cookie starts a new session.
func (s *testServer) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// open starts a session and returns its cookie.
func (s *testServer) open(t *testing.T) *http.Cookie {
	t.Helper()
	w := s.do(t, http.MethodGet, "/", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", w.Code)
	}
	c := sessionCookie(w)
	if c == nil {
		t.Fatal("GET / did not set a session cookie")
	}
	return c
}

// settle waits until the session's widgets have no fetch in flight.
func (s *testServer) settle(t *testing.T, c *http.Cookie) {
	t.Helper()
	d, ok := s.registry.Lookup(c.Value)
	if !ok {
		t.Fatalf("no dashboard for session %s", c.Value)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("dashboard did not settle: %v", err)
	}
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) dashboard.View {
	t.Helper()
	var v dashboard.View
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return v
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	if err := json.NewDecoder(w.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}
