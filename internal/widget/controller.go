// Package widget provides the tri-state async controller shared by every
// dashboard widget.
package widget

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/infohub/internal/observability"
)

// State is the lifecycle position of a controller.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

const unknownErrorMessage = "An unknown error occurred."

// Fetcher produces one value for a controller.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Snapshot is a consistent copy of a controller's state. Value is set only in
// StateSuccess and Err only in StateError.
type Snapshot[T any] struct {
	State State  `json:"state"`
	Value *T     `json:"value,omitempty"`
	Err   string `json:"error,omitempty"`
}

// Loading reports whether a fetch is in flight.
func (s Snapshot[T]) Loading() bool {
	return s.State == StateLoading
}

// Controller drives a single asynchronous fetch at a time and holds exactly
// one of loading, success-with-value or error-with-message once started.
// After Teardown, results of in-flight fetches are discarded.
type Controller[T any] struct {
	name   string
	fetch  Fetcher[T]
	logger *zap.Logger

	mu        sync.Mutex
	snap      Snapshot[T]
	closed    bool
	settled   chan struct{} // closed when the current fetch resolves
	listeners map[int]func(Snapshot[T])
	nextID    int
}

// New returns an idle controller. name labels logs and metrics.
func New[T any](name string, fetch Fetcher[T], logger *zap.Logger) *Controller[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	settled := make(chan struct{})
	close(settled)
	return &Controller[T]{
		name:      name,
		fetch:     fetch,
		logger:    logger.With(zap.String("widget", name)),
		snap:      Snapshot[T]{State: StateIdle},
		settled:   settled,
		listeners: make(map[int]func(Snapshot[T])),
	}
}

// Name returns the controller label.
func (c *Controller[T]) Name() string {
	return c.name
}

// Fetch enters loading, clears any prior value or error and starts the
// fetcher in its own goroutine. The fetch keeps ctx's values but not its
// cancellation, so it outlives the request that triggered it. Returns false
// when a fetch is already in flight or the controller was torn down.
func (c *Controller[T]) Fetch(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed || c.snap.State == StateLoading {
		c.mu.Unlock()
		return false
	}
	c.snap = Snapshot[T]{State: StateLoading}
	settled := make(chan struct{})
	c.settled = settled
	snap, listeners := c.snap, c.listenersLocked()
	c.mu.Unlock()

	observability.WidgetTransitionsTotal.WithLabelValues(c.name, string(StateLoading)).Inc()
	c.logger.Debug("widget loading")
	notify(listeners, snap)

	go c.run(context.WithoutCancel(ctx), settled)
	return true
}

func (c *Controller[T]) run(ctx context.Context, settled chan struct{}) {
	value, err := c.fetch(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(settled)
		observability.WidgetStaleResultsTotal.WithLabelValues(c.name).Inc()
		c.logger.Debug("discarding result after teardown")
		return
	}
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = unknownErrorMessage
		}
		c.snap = Snapshot[T]{State: StateError, Err: msg}
	} else {
		v := value
		c.snap = Snapshot[T]{State: StateSuccess, Value: &v}
	}
	snap, listeners := c.snap, c.listenersLocked()
	c.mu.Unlock()
	defer close(settled)

	observability.WidgetTransitionsTotal.WithLabelValues(c.name, string(snap.State)).Inc()
	if err != nil {
		c.logger.Debug("widget error", zap.String("message", snap.Err))
	} else {
		c.logger.Debug("widget success")
	}
	notify(listeners, snap)
}

// Snapshot returns the current state.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Wait blocks until no fetch is in flight or ctx is done.
func (c *Controller[T]) Wait(ctx context.Context) (Snapshot[T], error) {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()

	select {
	case <-settled:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// Subscribe registers fn to receive every transition. fn runs on the
// goroutine that caused the transition and must not block. The returned
// function removes the subscription.
func (c *Controller[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Teardown detaches the controller from its view. State is frozen: in-flight
// results are dropped, listeners are released and later Fetch calls are ignored.
func (c *Controller[T]) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.listeners = make(map[int]func(Snapshot[T]))
}

// Closed reports whether Teardown was called.
func (c *Controller[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller[T]) listenersLocked() []func(Snapshot[T]) {
	out := make([]func(Snapshot[T]), 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

func notify[T any](listeners []func(Snapshot[T]), snap Snapshot[T]) {
	for _, fn := range listeners {
		fn(snap)
	}
}
