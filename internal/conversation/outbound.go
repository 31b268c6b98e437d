package conversation

import (
	"context"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// OutboundReply is the answer to an InboundMessage.
type OutboundReply struct {
	ChannelID string  `json:"channel_id"`
	Channel   Channel `json:"channel"`
	InReplyTo string  `json:"in_reply_to,omitempty"`
	Body      string  `json:"body"`
}

// ReplySender delivers replies back to the user.
type ReplySender interface {
	SendReply(ctx context.Context, reply OutboundReply) error
}

// LogReplySender writes replies to the log. It is the default when no
// messaging provider is configured.
type LogReplySender struct {
	logger *logging.Logger
}

func NewLogReplySender(logger *logging.Logger) *LogReplySender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogReplySender{logger: logger}
}

func (s *LogReplySender) SendReply(_ context.Context, reply OutboundReply) error {
	s.logger.Info("chat reply",
		"channel_id", reply.ChannelID,
		"channel", reply.Channel,
		"in_reply_to", reply.InReplyTo,
		"body", reply.Body,
	)
	return nil
}
