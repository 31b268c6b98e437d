package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type queueClient interface {
	// Send enqueues body. Messages sharing groupID are delivered in order and
	// never in flight on two consumers at once.
	Send(ctx context.Context, groupID, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Queue is the message transport shared by Publisher and Worker. MemoryQueue
// and SQSQueue implement it.
type Queue interface {
	queueClient
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Channel names the transport a message arrived on.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWebChat  Channel = "webchat"
	ChannelAPI      Channel = "api"
)

// InboundMessage is one chat message waiting for the state machine.
type InboundMessage struct {
	ID         string    `json:"id"`
	ChannelID  string    `json:"channel_id"`
	Channel    Channel   `json:"channel"`
	Message    string    `json:"message"`
	MessageID  string    `json:"message_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

func encodeInbound(msg InboundMessage) (InboundMessage, string, error) {
	if strings.TrimSpace(msg.ChannelID) == "" {
		return InboundMessage{}, "", fmt.Errorf("conversation: channel id required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return InboundMessage{}, "", fmt.Errorf("conversation: failed to encode message: %w", err)
	}
	return msg, string(body), nil
}
