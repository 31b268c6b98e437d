package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (brokenCache) InvalidateAll(context.Context) error { return errors.New("down") }

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	require.NoError(t, c.InvalidateAll(ctx))
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	c := NewRedisCache(client, time.Minute)

	require.NoError(t, c.Set(ctx, "providers:active", []byte(`[1,2]`), 0))
	require.NoError(t, c.Set(ctx, "dashboard", []byte(`{}`), 30*time.Second))
	require.NoError(t, client.Set(ctx, "unrelated", "keep", 0).Err())

	got, ok, err := c.Get(ctx, "providers:active")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1,2]`, string(got))
	assert.True(t, mr.Exists(defaultRedisPrefix+"dashboard"))
	assert.Equal(t, 30*time.Second, mr.TTL(defaultRedisPrefix+"dashboard"))

	require.NoError(t, c.InvalidateAll(ctx))
	_, ok, err = c.Get(ctx, "providers:active")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("unrelated"), "invalidation must stay inside the prefix")
}

func TestFetchReadsThrough(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, c, logging.Discard(), "letters", 0, load)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got)
	}
	assert.Equal(t, 1, calls)

	Invalidate(ctx, c, logging.Discard())
	_, err := Fetch(ctx, c, logging.Discard(), "letters", 0, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	boom := errors.New("boom")

	_, err := Fetch(ctx, c, logging.Discard(), "k", 0, func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestFetchBypassesBrokenCache(t *testing.T) {
	got, err := Fetch(context.Background(), brokenCache{}, logging.Discard(), "k", 0, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	Invalidate(context.Background(), brokenCache{}, logging.Discard())
}

func TestNewSelectsBackend(t *testing.T) {
	client, _ := setupTestRedis(t)

	c, err := New("memory", time.Minute, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = New("redis", time.Minute, client)
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)

	c, err = New("none", time.Minute, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)

	_, err = New("redis", time.Minute, nil)
	assert.Error(t, err)

	_, err = New("memcached", time.Minute, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
