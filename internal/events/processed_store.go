// Package events deduplicates inbound channel deliveries.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore records channel message ids that were already accepted.
type ProcessedStore struct {
	pool rowQuerier
}

func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{pool: pool}
}

func newProcessedStoreWithExec(exec rowQuerier) *ProcessedStore {
	if exec == nil {
		panic("events: exec required")
	}
	return &ProcessedStore{pool: exec}
}

// AlreadyProcessed checks if the source already delivered eventID.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, source, eventID string) (bool, error) {
	query := `SELECT 1 FROM processed_events WHERE source = $1 AND event_id = $2`
	var exists int
	if err := s.pool.QueryRow(ctx, query, source, eventID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return true, nil
}

// MarkProcessed inserts an event id for the source, returning false if it already exists.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, source, eventID string) (bool, error) {
	query := `
		INSERT INTO processed_events (source, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, query, source, eventID)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ForgetProcessed removes the marker so a later delivery of eventID is accepted.
func (s *ProcessedStore) ForgetProcessed(ctx context.Context, source, eventID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM processed_events WHERE source = $1 AND event_id = $2`, source, eventID)
	if err != nil {
		return fmt.Errorf("events: forget processed: %w", err)
	}
	return nil
}

// PurgeBefore deletes markers older than cutoff.
func (s *ProcessedStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM processed_events WHERE processed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("events: purge processed: %w", err)
	}
	return ct.RowsAffected(), nil
}

// MemoryProcessedStore is the single-process stand-in used without a database.
type MemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{seen: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryProcessedStore) AlreadyProcessed(_ context.Context, source, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[source+"\x00"+eventID]
	return ok, nil
}

func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, source, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := source + "\x00" + eventID
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = s.now()
	return true, nil
}

func (s *MemoryProcessedStore) ForgetProcessed(_ context.Context, source, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, source+"\x00"+eventID)
	return nil
}

func (s *MemoryProcessedStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, key)
			n++
		}
	}
	return n, nil
}
