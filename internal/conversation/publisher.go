package conversation

import (
	"context"
	"fmt"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// Publisher enqueues inbound chat messages for the worker.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// Enqueue publishes msg grouped by its channel id.
func (p *Publisher) Enqueue(ctx context.Context, msg InboundMessage) error {
	if ctx == nil {
		ctx = context.Background()
	}
	msg, body, err := encodeInbound(msg)
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, msg.ChannelID, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue message: %w", err)
	}
	p.logger.Debug("chat message enqueued", "job_id", msg.ID, "channel_id", msg.ChannelID, "channel", msg.Channel)
	return nil
}
