// Package session keeps one live dashboard per browser session and persists
// each session's preferences so a restarted process can restore them.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/infohub/internal/models"
)

// Preferences are the parts of a session that survive its dashboard: the
// selected tab and the INR amount as typed.
type Preferences struct {
	Tab       models.Tab `json:"tab"`
	Principal string     `json:"principal"`
}

// Store persists Preferences by session ID. Get returns false on a miss or
// after expiry.
type Store interface {
	Get(ctx context.Context, id string) (Preferences, bool, error)
	Set(ctx context.Context, id string, prefs Preferences, ttl time.Duration) error
}

// InMemoryStore implements Store with a map. Expired entries are removed on
// access. Safe for concurrent use.
type InMemoryStore struct {
	mu   sync.Mutex
	data map[string]storeEntry
}

type storeEntry struct {
	prefs     Preferences
	expiresAt time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]storeEntry)}
}

func (s *InMemoryStore) Get(ctx context.Context, id string) (Preferences, bool, error) {
	if err := ctx.Err(); err != nil {
		return Preferences{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.data[id]
	if !ok {
		return Preferences{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.data, id)
		return Preferences{}, false, nil
	}
	return entry.prefs, true, nil
}

func (s *InMemoryStore) Set(ctx context.Context, id string, prefs Preferences, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = storeEntry{prefs: prefs, expiresAt: time.Now().Add(ttl)}
	return nil
}
