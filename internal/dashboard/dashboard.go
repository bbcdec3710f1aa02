// Package dashboard is the tabbed shell around the weather, currency and
// quote widgets. A Dashboard owns one controller per widget, mounts each on
// first display and keeps it alive until Close.
package dashboard

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/infohub/internal/gateway"
	"github.com/kjstillabower/infohub/internal/location"
	"github.com/kjstillabower/infohub/internal/models"
	"github.com/kjstillabower/infohub/internal/widget"
)

// DefaultPrincipal is the INR amount shown before the user types one.
const DefaultPrincipal = "1000"

// ErrClosed is returned by operations on a dashboard after Close.
var ErrClosed = errors.New("dashboard closed")

// Gateway is the data source the widgets fetch from.
type Gateway interface {
	FetchWeather(ctx context.Context, latitude, longitude float64) (models.WeatherData, error)
	FetchCurrencyRates(ctx context.Context) (models.CurrencyRates, error)
	FetchQuote(ctx context.Context) (models.QuoteData, error)
}

var _ Gateway = (*gateway.Gateway)(nil)

// Options configures a Dashboard. Zero values pick the defaults.
type Options struct {
	// Locator resolves the weather position. Nil means a browser-reported
	// position (location.NewReported).
	Locator location.Locator
	// Tab is the initially selected tab. Empty means WEATHER.
	Tab models.Tab
	// Principal is the initial INR amount. Empty means DefaultPrincipal.
	Principal string
	Logger    *zap.Logger
}

// Dashboard is safe for concurrent use.
type Dashboard struct {
	logger  *zap.Logger
	locator location.Locator

	weather  *widget.Controller[models.WeatherData]
	currency *widget.Controller[models.CurrencyRates]
	quote    *widget.Controller[models.QuoteData]

	// lifetime ends on Close and bounds waits for a browser position.
	lifetime context.Context
	end      context.CancelFunc

	mu        sync.Mutex
	tab       models.Tab
	mounted   map[models.Tab]bool
	principal string
	closed    bool
	listeners map[int]func(View)
	nextID    int
}

// New builds a dashboard with no widget mounted. Call Open to mount the
// selected tab.
func New(gw Gateway, opts Options) (*Dashboard, error) {
	if gw == nil {
		return nil, errors.New("gateway is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tab := opts.Tab
	if tab == "" {
		tab = models.TabWeather
	}
	if _, err := models.ParseTab(string(tab)); err != nil {
		return nil, err
	}
	principal := opts.Principal
	if principal == "" {
		principal = DefaultPrincipal
	}
	loc := opts.Locator
	if loc == nil {
		loc = location.NewReported()
	}

	lifetime, end := context.WithCancel(context.Background())
	d := &Dashboard{
		logger:    logger,
		locator:   loc,
		lifetime:  lifetime,
		end:       end,
		tab:       tab,
		mounted:   make(map[models.Tab]bool, len(models.Tabs)),
		principal: principal,
		listeners: make(map[int]func(View)),
	}
	d.weather = widget.New("weather", d.fetchWeather(gw), logger)
	d.currency = widget.New("currency", gw.FetchCurrencyRates, logger)
	d.quote = widget.New("quote", gw.FetchQuote, logger)

	d.weather.Subscribe(func(widget.Snapshot[models.WeatherData]) { d.changed() })
	d.currency.Subscribe(func(widget.Snapshot[models.CurrencyRates]) { d.changed() })
	d.quote.Subscribe(func(widget.Snapshot[models.QuoteData]) { d.changed() })
	return d, nil
}

// fetchWeather resolves the position first; a capability failure is the
// widget's error and the gateway is never called.
func (d *Dashboard) fetchWeather(gw Gateway) widget.Fetcher[models.WeatherData] {
	return func(ctx context.Context) (models.WeatherData, error) {
		locCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(d.lifetime, cancel)
		defer stop()

		pos, err := d.locator.CurrentPosition(locCtx)
		if err != nil {
			return models.WeatherData{}, err
		}
		return gw.FetchWeather(ctx, pos.Latitude, pos.Longitude)
	}
}

// Open mounts the selected tab's widget.
func (d *Dashboard) Open(ctx context.Context) error {
	d.mu.Lock()
	tab := d.tab
	d.mu.Unlock()
	return d.Select(ctx, tab)
}

// Select makes tab active. The first time a tab is shown its widget starts
// its initial fetch; later selections show the retained state as-is.
func (d *Dashboard) Select(ctx context.Context, tab models.Tab) error {
	tab, err := models.ParseTab(string(tab))
	if err != nil {
		return err
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.tab = tab
	first := !d.mounted[tab]
	d.mounted[tab] = true
	d.mu.Unlock()

	if first {
		d.logger.Debug("mounting widget", zap.String("tab", string(tab)))
		d.start(ctx, tab)
	}
	d.changed()
	return nil
}

// MountAll mounts every widget regardless of the active tab.
func (d *Dashboard) MountAll(ctx context.Context) error {
	var fresh []models.Tab
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	for _, tab := range models.Tabs {
		if !d.mounted[tab] {
			d.mounted[tab] = true
			fresh = append(fresh, tab)
		}
	}
	d.mu.Unlock()

	for _, tab := range fresh {
		d.start(ctx, tab)
	}
	return nil
}

func (d *Dashboard) start(ctx context.Context, tab models.Tab) bool {
	switch tab {
	case models.TabWeather:
		return d.weather.Fetch(ctx)
	case models.TabCurrency:
		return d.currency.Fetch(ctx)
	case models.TabQuote:
		return d.quote.Fetch(ctx)
	}
	return false
}

// RefreshQuote asks for a new quote. It reports false when a quote fetch is
// already running, matching the disabled refresh control.
func (d *Dashboard) RefreshQuote(ctx context.Context) (bool, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false, ErrClosed
	}
	d.mounted[models.TabQuote] = true
	d.mu.Unlock()
	return d.quote.Fetch(ctx), nil
}

// SetPrincipal stores the INR amount as typed. Converted values are derived
// from it on every View.
func (d *Dashboard) SetPrincipal(amount string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.principal = amount
	d.mu.Unlock()
	d.changed()
	return nil
}

// Tab returns the active tab.
func (d *Dashboard) Tab() models.Tab {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab
}

// Principal returns the INR amount as typed.
func (d *Dashboard) Principal() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.principal
}

// Locator returns the position source used by the weather widget.
func (d *Dashboard) Locator() location.Locator {
	return d.locator
}

// Mounted reports whether tab's widget has been shown at least once.
func (d *Dashboard) Mounted(tab models.Tab) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted[tab]
}

// View derives the current render state.
func (d *Dashboard) View() View {
	d.mu.Lock()
	active, principal := d.tab, d.principal
	d.mu.Unlock()

	tabs := make([]TabView, 0, len(models.Tabs))
	for _, t := range models.Tabs {
		tabs = append(tabs, TabView{ID: t, Label: t.Label(), Active: t == active})
	}
	return View{
		ActiveTab: active,
		Tabs:      tabs,
		Weather:   weatherView(d.weather.Snapshot()),
		Currency:  currencyView(d.currency.Snapshot(), principal),
		Quote:     quoteView(d.quote.Snapshot()),
	}
}

// Subscribe registers fn to receive a fresh View after every change. fn must
// not block. The returned function removes the subscription.
func (d *Dashboard) Subscribe(fn func(View)) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return func() {}
	}
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// Wait blocks until no widget has a fetch in flight or ctx is done.
func (d *Dashboard) Wait(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := d.weather.Wait(ctx)
		return err
	})
	g.Go(func() error {
		_, err := d.currency.Wait(ctx)
		return err
	})
	g.Go(func() error {
		_, err := d.quote.Wait(ctx)
		return err
	})
	return g.Wait()
}

// Close tears down every controller. Results still in flight are dropped.
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.listeners = make(map[int]func(View))
	d.mu.Unlock()

	d.weather.Teardown()
	d.currency.Teardown()
	d.quote.Teardown()
	d.end()
}

// Closed reports whether Close was called.
func (d *Dashboard) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Dashboard) changed() {
	d.mu.Lock()
	if d.closed || len(d.listeners) == 0 {
		d.mu.Unlock()
		return
	}
	fns := make([]func(View), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	v := d.View()
	for _, fn := range fns {
		fn(v)
	}
}
