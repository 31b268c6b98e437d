package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// DefaultIdleTimeout evicts sessions nobody has written to for this long.
const DefaultIdleTimeout = 30 * time.Minute

// ErrSessionStore wraps failures of the session backend.
var ErrSessionStore = errors.New("conversation: session store unavailable")

// SessionStore gives exclusive access to one channel's session at a time.
// Every successful Acquire must be paired with exactly one Release.
type SessionStore interface {
	// Acquire locks channelID and returns its session, creating a fresh one
	// on first contact or after idle eviction.
	Acquire(ctx context.Context, channelID string) (*Session, error)
	// Release persists s and unlocks its channel.
	Release(ctx context.Context, s *Session) error
}

type memoryEntry struct {
	session Session
	seen    time.Time
}

// MemorySessionStore keeps sessions in process.
type MemorySessionStore struct {
	locks *keyedLocks
	idle  time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]memoryEntry
	logger   *logging.Logger
}

// MemoryStoreOption customizes a MemorySessionStore.
type MemoryStoreOption func(*MemorySessionStore)

func WithIdleTimeout(d time.Duration) MemoryStoreOption {
	return func(s *MemorySessionStore) {
		if d > 0 {
			s.idle = d
		}
	}
}

func withStoreClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemorySessionStore) { s.now = now }
}

func WithStoreLogger(l *logging.Logger) MemoryStoreOption {
	return func(s *MemorySessionStore) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewMemorySessionStore(opts ...MemoryStoreOption) *MemorySessionStore {
	s := &MemorySessionStore{
		locks:    newKeyedLocks(),
		idle:     DefaultIdleTimeout,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemorySessionStore) Acquire(ctx context.Context, channelID string) (*Session, error) {
	if err := s.locks.Lock(ctx, channelID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[channelID]
	if !ok || s.now().Sub(entry.seen) > s.idle {
		return NewSession(channelID), nil
	}
	session := entry.session
	return &session, nil
}

func (s *MemorySessionStore) Release(_ context.Context, session *Session) error {
	defer s.locks.Unlock(session.ChannelID)
	now := s.now()
	session.UpdatedAt = now
	s.mu.Lock()
	s.sessions[session.ChannelID] = memoryEntry{session: *session, seen: now}
	s.mu.Unlock()
	return nil
}

// Len is the number of stored sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict drops sessions idle longer than the timeout and returns how many
// were removed.
func (s *MemorySessionStore) Evict() int {
	cutoff := s.now().Add(-s.idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.sessions {
		if entry.seen.Before(cutoff) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (s *MemorySessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.idle / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				s.logger.Debug("evicted idle chat sessions", "count", n)
			}
		}
	}
}
