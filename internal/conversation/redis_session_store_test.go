package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSessionStore(client, 10*time.Minute)
	ctx := context.Background()

	s, err := store.Acquire(ctx, "whatsapp:55119")
	require.NoError(t, err)
	assert.Equal(t, StageChooseProvider, s.Stage)
	s.Stage = StageChooseDate
	s.Dates = []string{"02/03/2026", "03/03/2026"}
	require.NoError(t, store.Release(ctx, s))

	assert.True(t, mr.Exists("agenda:session:whatsapp:55119"))
	assert.Equal(t, 10*time.Minute, mr.TTL("agenda:session:whatsapp:55119"))

	again, err := store.Acquire(ctx, "whatsapp:55119")
	require.NoError(t, err)
	assert.Equal(t, StageChooseDate, again.Stage)
	assert.Equal(t, []string{"02/03/2026", "03/03/2026"}, again.Dates)
	require.NoError(t, store.Release(ctx, again))
}

func TestRedisSessionStoreExpiresIdle(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSessionStore(client, time.Minute)
	ctx := context.Background()

	s, err := store.Acquire(ctx, "web:1")
	require.NoError(t, err)
	s.Stage = StageMainMenu
	require.NoError(t, store.Release(ctx, s))

	mr.FastForward(2 * time.Minute)
	fresh, err := store.Acquire(ctx, "web:1")
	require.NoError(t, err)
	assert.Equal(t, StageChooseProvider, fresh.Stage)
	require.NoError(t, store.Release(ctx, fresh))
}

func TestRedisSessionStoreCorruptSessionRestarts(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSessionStore(client, time.Minute)
	require.NoError(t, mr.Set("agenda:session:web:1", "{not json"))

	s, err := store.Acquire(context.Background(), "web:1")
	require.NoError(t, err)
	assert.Equal(t, StageChooseProvider, s.Stage)
	require.NoError(t, store.Release(context.Background(), s))
}

func TestRedisSessionStoreUnavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSessionStore(client, time.Minute)
	mr.Close()

	_, err := store.Acquire(context.Background(), "web:1")
	require.ErrorIs(t, err, ErrSessionStore)
	assert.Zero(t, store.locks.size(), "failed acquire releases the lock")
}
