package conversation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

func TestPublisherEnqueue(t *testing.T) {
	queue := &stubQueue{}
	publisher := NewPublisher(queue, logging.Discard())

	err := publisher.Enqueue(context.Background(), InboundMessage{
		ChannelID: "whatsapp:5511",
		Channel:   ChannelWhatsApp,
		Message:   "hi",
		MessageID: "wamid.1",
	})
	require.NoError(t, err)
	require.Len(t, queue.sent, 1)
	assert.Equal(t, "whatsapp:5511", queue.groups[0])

	var payload InboundMessage
	require.NoError(t, json.Unmarshal([]byte(queue.sent[0]), &payload))
	assert.NotEmpty(t, payload.ID)
	assert.False(t, payload.ReceivedAt.IsZero())
	assert.Equal(t, "hi", payload.Message)
	assert.Equal(t, "wamid.1", payload.MessageID)
}

func TestPublisherRequiresChannel(t *testing.T) {
	queue := &stubQueue{}
	publisher := NewPublisher(queue, logging.Discard())

	require.Error(t, publisher.Enqueue(context.Background(), InboundMessage{Message: "hi"}))
	assert.Empty(t, queue.sent)
}

type stubQueue struct {
	mu     sync.Mutex
	sent   []string
	groups []string
}

func (s *stubQueue) Send(_ context.Context, groupID, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, body)
	s.groups = append(s.groups, groupID)
	return nil
}

func (s *stubQueue) Receive(context.Context, int, int) ([]queueMessage, error) {
	return nil, context.Canceled
}

func (s *stubQueue) Delete(context.Context, string) error {
	return nil
}
