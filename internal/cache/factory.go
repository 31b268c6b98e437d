package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// New builds the backend named by CACHE_BACKEND: memory, redis, or none.
func New(backend string, ttl time.Duration, client *redis.Client) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return NewMemoryCache(ttl), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("cache: redis backend requires a client")
		}
		return NewRedisCache(client, ttl), nil
	case "none", "noop", "off":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
