package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/agenda-platform/internal/cache"
	appconfig "github.com/wolfman30/agenda-platform/internal/config"
	"github.com/wolfman30/agenda-platform/internal/conversation"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

func memoryConfig() *appconfig.Config {
	return &appconfig.Config{
		ClinicName:         "Test Salon",
		ClinicTimezone:     "UTC",
		BookingWindow:      30,
		ChatDateHorizon:    7,
		SlotInterval:       30 * time.Minute,
		SlotOccupancy:      "point",
		CacheBackend:       "memory",
		CacheTTL:           time.Minute,
		SessionBackend:     "memory",
		SessionIdleTimeout: time.Minute,
		ConversationQueue:  "memory",
		WorkerCount:        2,
	}
}

func TestBuildRequiresConfig(t *testing.T) {
	_, err := Build(context.Background(), nil, logging.Discard())
	assert.Error(t, err)
}

func TestBuildInMemory(t *testing.T) {
	app, err := Build(context.Background(), memoryConfig(), logging.Discard(), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Pool)
	assert.Nil(t, app.Redis)
	assert.IsType(t, &conversation.MemorySessionStore{}, app.Sessions)
	assert.IsType(t, &conversation.MemoryQueue{}, app.Queue)

	providers, err := app.Catalog.ActiveProviders(context.Background())
	require.NoError(t, err)
	assert.Len(t, providers, 3, "demo catalog is seeded")

	reply, err := app.Machine.Handle(context.Background(), "api:bootstrap", "hi")
	require.NoError(t, err)
	assert.Contains(t, reply, "Welcome to Test Salon")
}

func TestBuildWorkerRoundTrip(t *testing.T) {
	app, err := Build(context.Background(), memoryConfig(), logging.Discard(), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer app.Close()

	sender := &captureSender{replies: make(chan conversation.OutboundReply, 1)}
	worker := app.NewWorker(sender)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	require.NoError(t, app.Publisher.Enqueue(ctx, conversation.InboundMessage{
		ChannelID: "whatsapp:5511987654321",
		Channel:   conversation.ChannelWhatsApp,
		Message:   "oi",
	}))

	select {
	case reply := <-sender.replies:
		assert.Equal(t, "whatsapp:5511987654321", reply.ChannelID)
		assert.Contains(t, reply.Body, "Choose a professional")
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not reply")
	}
	cancel()
	worker.Wait()
}

type captureSender struct {
	replies chan conversation.OutboundReply
}

func (c *captureSender) SendReply(_ context.Context, reply conversation.OutboundReply) error {
	c.replies <- reply
	return nil
}

func TestBuildRedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.RedisAddr = mr.Addr()
	cfg.CacheBackend = "redis"
	cfg.SessionBackend = "redis"

	app, err := Build(context.Background(), cfg, logging.Discard(), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Redis)
	assert.IsType(t, &cache.RedisCache{}, app.Cache)
	assert.IsType(t, &conversation.RedisSessionStore{}, app.Sessions)

	_, err = app.Machine.Handle(context.Background(), "webchat:abc", "hello")
	require.NoError(t, err)
	assert.True(t, mr.Exists("agenda:session:webchat:abc"))
}

func TestBuildRedisSessionsWithoutRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.SessionBackend = "redis"
	_, err := Build(context.Background(), cfg, logging.Discard(), WithRegisterer(prometheus.NewRegistry()))
	assert.Error(t, err)
}

func TestBuildQueue(t *testing.T) {
	cfg := memoryConfig()
	q, err := BuildQueue(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	assert.NotNil(t, q)

	cfg.ConversationQueue = "sqs"
	_, err = BuildQueue(context.Background(), cfg, logging.Discard())
	assert.ErrorContains(t, err, "CONVERSATION_QUEUE_URL")

	cfg.ConversationQueue = "kafka"
	_, err = BuildQueue(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

func TestBuildCacheUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.CacheBackend = "memcached"
	_, err := BuildCache(cfg, nil)
	assert.ErrorIs(t, err, cache.ErrUnknownBackend)
}

func TestRetryPolicyFromConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.DBRetryMaxAttempts = 5
	cfg.DBRetryBaseDelay = 10 * time.Millisecond

	p := RetryPolicy(cfg)
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 20*time.Millisecond, p.Backoff(2))
	assert.NotNil(t, p.Retryable)
}

func TestBuildRedisClientSkippedWhenUnused(t *testing.T) {
	cfg := memoryConfig()
	cfg.RedisAddr = "localhost:6379"
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, logging.Discard(), false))
}
