package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/agenda-platform/internal/retry"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// ErrPermanentDelivery marks a delivery failure that must not be retried.
var ErrPermanentDelivery = errors.New("conversation: permanent delivery failure")

// RetrySender retries failed outbound replies until max attempts.
type RetrySender struct {
	next        ReplySender
	logger      *logging.Logger
	maxAttempts int
	baseDelay   time.Duration
}

func NewRetrySender(next ReplySender, logger *logging.Logger) *RetrySender {
	if next == nil {
		panic("conversation: reply sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RetrySender{
		next:        next,
		logger:      logger,
		maxAttempts: 3,
		baseDelay:   200 * time.Millisecond,
	}
}

func (r *RetrySender) WithMaxAttempts(n int) *RetrySender {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

func (r *RetrySender) WithBaseDelay(d time.Duration) *RetrySender {
	if d > 0 {
		r.baseDelay = d
	}
	return r
}

func (r *RetrySender) SendReply(ctx context.Context, reply OutboundReply) error {
	attempt := 0
	policy := retry.Policy{
		MaxAttempts: r.maxAttempts,
		Backoff:     retry.Exponential(r.baseDelay),
		Retryable: func(err error) bool {
			return !errors.Is(err, ErrPermanentDelivery) && !errors.Is(err, context.Canceled)
		},
	}
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		attempt++
		err := r.next.SendReply(ctx, reply)
		if err != nil {
			r.logger.Warn("reply delivery failed", "error", err, "channel_id", reply.ChannelID, "attempt", attempt)
		}
		return err
	})
	if err != nil {
		r.logger.Error("giving up on reply", "error", err, "channel_id", reply.ChannelID, "attempts", attempt)
	}
	return err
}
