package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const keyPrefix = "infohub:session:"

// maxRelativeExp is the longest expiration memcached treats as relative.
const maxRelativeExp = 30 * 24 * 60 * 60

// MemcachedStore implements Store using memcached. Values are JSON.
type MemcachedStore struct {
	client *memcache.Client
}

// NewMemcachedStore creates a MemcachedStore. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and
// maxIdleConns use the client defaults when zero.
func NewMemcachedStore(addrs string, timeout time.Duration, maxIdleConns int) *MemcachedStore {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedStore{client: client}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (s *MemcachedStore) key(id string) string {
	return keyPrefix + id
}

func (s *MemcachedStore) Get(ctx context.Context, id string) (Preferences, bool, error) {
	if err := ctx.Err(); err != nil {
		return Preferences{}, false, err
	}
	item, err := s.client.Get(s.key(id))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return Preferences{}, false, nil
		}
		return Preferences{}, false, err
	}
	var prefs Preferences
	if err := json.Unmarshal(item.Value, &prefs); err != nil {
		return Preferences{}, false, err
	}
	return prefs, true, nil
}

func (s *MemcachedStore) Set(ctx context.Context, id string, prefs Preferences, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.client.Set(&memcache.Item{
		Key:        s.key(id),
		Value:      raw,
		Expiration: expirationSeconds(ttl),
	})
}

func expirationSeconds(ttl time.Duration) int32 {
	sec := int64(ttl / time.Second)
	if sec <= 0 || sec > maxRelativeExp {
		return maxRelativeExp
	}
	return int32(sec)
}

// Ping checks memcached reachability for the health endpoint.
func (s *MemcachedStore) Ping() error {
	return s.client.Ping()
}

// Close releases idle connections. Call during shutdown.
func (s *MemcachedStore) Close() error {
	return s.client.Close()
}
