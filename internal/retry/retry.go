// Package retry applies bounded, backoff-spaced retries to idempotent reads.
package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Policy describes how an operation is retried.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(err error) bool
}

// Exponential returns a backoff that waits base, 2*base, 4*base, ...
func Exponential(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// DefaultPolicy retries transient storage errors three times starting at 100ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Exponential(100 * time.Millisecond),
		Retryable:   IsTransient,
	}
}

// NoRetry runs the operation once.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

// Do runs fn until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		wait := time.Duration(0)
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}

// Value is Do for operations that return a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// IsTransient reports whether err looks like a connection-level failure that
// is safe to repeat for a read.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}
