package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/infohub/internal/dashboard"
	"github.com/kjstillabower/infohub/internal/observability"
)

// ErrInvalidID is returned for session IDs that were not issued by NewID.
var ErrInvalidID = errors.New("invalid session id")

// Factory builds the dashboard for a session, starting from the stored
// preferences (zero when the session is new).
type Factory func(prefs Preferences) (*dashboard.Dashboard, error)

// Config tunes a Registry. Zero durations pick the defaults.
type Config struct {
	// IdleTTL is how long a dashboard lives without a request or stream ping.
	IdleTTL time.Duration
	// PreferenceTTL is how long stored preferences outlive their dashboard.
	PreferenceTTL time.Duration
}

const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultPreferenceTTL = 7 * 24 * time.Hour
)

// Registry owns the live dashboards, one per session ID.
type Registry struct {
	store   Store
	factory Factory
	idleTTL time.Duration
	prefTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

type entry struct {
	dash     *dashboard.Dashboard
	lastSeen time.Time
}

func NewRegistry(store Store, factory Factory, cfg Config, logger *zap.Logger) *Registry {
	if store == nil {
		store = NewInMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.PreferenceTTL <= 0 {
		cfg.PreferenceTTL = DefaultPreferenceTTL
	}
	return &Registry{
		store:   store,
		factory: factory,
		idleTTL: cfg.IdleTTL,
		prefTTL: cfg.PreferenceTTL,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// NewID returns a fresh session ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the form NewID produces.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// Get returns the live dashboard for id, creating it from stored preferences
// when there is none. created is true when a new dashboard was built; the
// caller opens it.
func (r *Registry) Get(ctx context.Context, id string) (d *dashboard.Dashboard, created bool, err error) {
	if !ValidID(id) {
		return nil, false, ErrInvalidID
	}
	if d, ok := r.Lookup(id); ok {
		return d, false, nil
	}

	prefs := r.loadPreferences(ctx, id)
	fresh, err := r.factory(prefs)
	if err != nil && prefs != (Preferences{}) {
		r.logger.Warn("discarding stored preferences", zap.String("sessionId", id), zap.Error(err))
		fresh, err = r.factory(Preferences{})
	}
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		fresh.Close()
		return nil, false, dashboard.ErrClosed
	}
	if e, ok := r.entries[id]; ok {
		// lost a race with another request for the same session
		e.lastSeen = r.now()
		r.mu.Unlock()
		fresh.Close()
		return e.dash, false, nil
	}
	r.entries[id] = &entry{dash: fresh, lastSeen: r.now()}
	n := len(r.entries)
	r.mu.Unlock()

	observability.ActiveSessions.Set(float64(n))
	observability.LoggerFromContext(ctx, r.logger).Info("session started",
		zap.String("sessionId", id),
		zap.String("tab", string(fresh.Tab())),
	)
	return fresh, true, nil
}

// Lookup returns the live dashboard for id without creating one and marks
// the session as seen.
func (r *Registry) Lookup(id string) (*dashboard.Dashboard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.dash, true
}

// Touch marks the session as seen.
func (r *Registry) Touch(id string) {
	r.Lookup(id)
}

func (r *Registry) loadPreferences(ctx context.Context, id string) Preferences {
	prefs, ok, err := r.store.Get(ctx, id)
	if err != nil {
		observability.SessionStoreErrorsTotal.WithLabelValues("get").Inc()
		observability.LoggerFromContext(ctx, r.logger).Warn("session store get failed",
			zap.String("sessionId", id),
			zap.Error(err),
		)
		return Preferences{}
	}
	if !ok {
		return Preferences{}
	}
	return prefs
}

// Save persists the dashboard's current preferences. Store failures are
// logged and counted but not returned; preferences are best effort.
func (r *Registry) Save(ctx context.Context, id string) {
	d, ok := r.Lookup(id)
	if !ok {
		return
	}
	prefs := Preferences{Tab: d.Tab(), Principal: d.Principal()}
	if err := r.store.Set(ctx, id, prefs, r.prefTTL); err != nil {
		observability.SessionStoreErrorsTotal.WithLabelValues("set").Inc()
		observability.LoggerFromContext(ctx, r.logger).Warn("session store set failed",
			zap.String("sessionId", id),
			zap.Error(err),
		)
	}
}

// Sweep closes dashboards idle for longer than IdleTTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)
	var expired []*dashboard.Dashboard

	r.mu.Lock()
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.dash)
			delete(r.entries, id)
		}
	}
	n := len(r.entries)
	r.mu.Unlock()

	for _, d := range expired {
		d.Close()
	}
	if len(expired) > 0 {
		observability.ActiveSessions.Set(float64(n))
		r.logger.Info("idle sessions closed", zap.Int("count", len(expired)), zap.Int("active", n))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of live dashboards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// CloseAll closes every dashboard and refuses new sessions. Call during
// shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.dash.Close()
	}
	observability.ActiveSessions.Set(0)
}
