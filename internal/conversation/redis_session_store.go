package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const sessionKeyPrefix = "agenda:session:"

// RedisSessionStore keeps sessions in Redis so they survive restarts. The key
// TTL is the idle timeout. Locks are per process: route every channel to
// one replica (the queue shards by channel id).
type RedisSessionStore struct {
	redis  *redis.Client
	locks  *keyedLocks
	idle   time.Duration
	tracer trace.Tracer
}

func NewRedisSessionStore(client *redis.Client, idle time.Duration) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client required")
	}
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &RedisSessionStore{
		redis:  client,
		locks:  newKeyedLocks(),
		idle:   idle,
		tracer: otel.Tracer("agenda.internal.conversation.sessions"),
	}
}

func sessionKey(channelID string) string {
	return sessionKeyPrefix + channelID
}

func (s *RedisSessionStore) Acquire(ctx context.Context, channelID string) (*Session, error) {
	if err := s.locks.Lock(ctx, channelID); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "conversation.sessions.acquire")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(channelID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSession(channelID), nil
	}
	if err != nil {
		s.locks.Unlock(channelID)
		span.RecordError(err)
		return nil, fmt.Errorf("%w: redis get: %w", ErrSessionStore, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil || !session.Stage.Valid() {
		// Unreadable sessions restart the conversation.
		return NewSession(channelID), nil
	}
	session.ChannelID = channelID
	return &session, nil
}

func (s *RedisSessionStore) Release(ctx context.Context, session *Session) error {
	defer s.locks.Unlock(session.ChannelID)
	ctx, span := s.tracer.Start(ctx, "conversation.sessions.release")
	defer span.End()

	session.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("conversation: marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.ChannelID), data, s.idle).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: redis set: %w", ErrSessionStore, err)
	}
	return nil
}
