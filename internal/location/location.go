// Package location supplies the position the weather widget asks for.
package location

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kjstillabower/infohub/internal/models"
)

// Locator answers "current position" once per widget mount.
type Locator interface {
	CurrentPosition(ctx context.Context) (models.Position, error)
}

// CapabilityError means the host could not provide a position. Its text is
// shown to the user as-is.
type CapabilityError struct {
	Unsupported bool
	Reason      string
}

func (e *CapabilityError) Error() string {
	if e.Unsupported {
		return "Geolocation is not supported by your browser."
	}
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = "permission denied"
	}
	return fmt.Sprintf("Geolocation error: %s. Please enable location services.", strings.TrimSuffix(reason, "."))
}

// Static always returns the same position, typically from configuration.
type Static struct {
	Position models.Position
}

func (s Static) CurrentPosition(context.Context) (models.Position, error) {
	return s.Position, nil
}

// Unavailable reports the capability as missing.
type Unavailable struct{}

func (Unavailable) CurrentPosition(context.Context) (models.Position, error) {
	return models.Position{}, &CapabilityError{Unsupported: true}
}

// Reported is filled in by the browser. CurrentPosition blocks until the
// first Report, Deny or Unsupported call; later calls are ignored.
type Reported struct {
	once  sync.Once
	ready chan struct{}
	pos   models.Position
	err   error
}

func NewReported() *Reported {
	return &Reported{ready: make(chan struct{})}
}

// Report resolves the locator with pos. Returns false if it was already resolved.
func (r *Reported) Report(pos models.Position) bool {
	return r.resolve(pos, nil)
}

// Deny resolves the locator with a permission or lookup failure.
func (r *Reported) Deny(reason string) bool {
	return r.resolve(models.Position{}, &CapabilityError{Reason: reason})
}

// Unsupported resolves the locator as lacking the capability.
func (r *Reported) Unsupported() bool {
	return r.resolve(models.Position{}, &CapabilityError{Unsupported: true})
}

func (r *Reported) resolve(pos models.Position, err error) bool {
	resolved := false
	r.once.Do(func() {
		r.pos, r.err = pos, err
		close(r.ready)
		resolved = true
	})
	return resolved
}

// Resolved reports whether the browser has answered.
func (r *Reported) Resolved() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

func (r *Reported) CurrentPosition(ctx context.Context) (models.Position, error) {
	select {
	case <-r.ready:
		return r.pos, r.err
	case <-ctx.Done():
		return models.Position{}, ctx.Err()
	}
}
