// Package cache provides the read-through cache used for catalog and
// dashboard reads. Every backend is invalidated wholesale on writes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// DefaultTTL is the lifetime of an entry unless the caller overrides it.
const DefaultTTL = 5 * time.Minute

// Cache stores opaque byte payloads by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	InvalidateAll(ctx context.Context) error
}

// MemoryCache is an in-process cache backed by go-cache.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{store: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.store.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) InvalidateAll(context.Context) error {
	m.store.Flush()
	return nil
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) InvalidateAll(context.Context) error { return nil }

// Fetch returns the cached value for key, or loads, stores, and returns it.
// Cache failures are logged and bypassed; only load errors are returned.
func Fetch[T any](ctx context.Context, c Cache, logger *logging.Logger, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if c == nil {
		return load(ctx)
	}

	if raw, ok, err := c.Get(ctx, key); err != nil {
		logger.Warn("cache get failed", "key", key, "error", err)
	} else if ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		logger.Warn("cache entry undecodable", "key", key)
	}

	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		logger.Warn("cache encode failed", "key", key, "error", err)
		return out, nil
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		logger.Warn("cache set failed", "key", key, "error", err)
	}
	return out, nil
}

// Invalidate clears c and logs, rather than returns, a failure.
func Invalidate(ctx context.Context, c Cache, logger *logging.Logger) {
	if c == nil {
		return
	}
	if err := c.InvalidateAll(ctx); err != nil {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Warn("cache invalidation failed", "error", err)
	}
}

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("cache: unknown backend")
