package conversation

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

type recordingEnqueuer struct {
	mu   sync.Mutex
	msgs []InboundMessage
	err  error
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, msg InboundMessage) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

type memoryProcessed struct {
	seen map[string]bool
}

func (m *memoryProcessed) MarkProcessed(_ context.Context, provider, eventID string) (bool, error) {
	key := provider + ":" + eventID
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memoryProcessed) ForgetProcessed(_ context.Context, provider, eventID string) error {
	delete(m.seen, provider+":"+eventID)
	return nil
}

const cloudPayload = `{
  "entry": [{
    "changes": [{
      "value": {
        "messages": [
          {"from": "5511987654321", "id": "wamid.A", "type": "text", "text": {"body": "Hi"}},
          {"from": "5511987654321", "id": "wamid.B", "type": "image"}
        ]
      }
    }]
  }]
}`

const messengerPayload = `{
  "entry": [{
    "messaging": [
      {"sender": {"id": "5511900000000"}, "message": {"mid": "m.1", "text": {"body": " 2 "}}},
      {"sender": {"id": "5511900000000"}}
    ]
  }]
}`

func TestWebhookVerify(t *testing.T) {
	h := NewWebhookHandler("secret-token", "", &recordingEnqueuer{}, nil, logging.Discard())

	w := httptest.NewRecorder()
	h.Verify(w, httptest.NewRequest(http.MethodGet, "/api/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())

	w = httptest.NewRecorder()
	h.Verify(w, httptest.NewRequest(http.MethodGet, "/api/whatsapp/webhook?hub.verify_token=wrong&hub.challenge=12345", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookQueuesCloudMessages(t *testing.T) {
	queue := &recordingEnqueuer{}
	h := NewWebhookHandler("tok", "", queue, nil, logging.Discard())

	w := httptest.NewRecorder()
	h.Inbound(w, httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(cloudPayload)))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, queue.msgs, 1, "non-text messages are skipped")
	assert.Equal(t, "whatsapp:5511987654321", queue.msgs[0].ChannelID)
	assert.Equal(t, "Hi", queue.msgs[0].Message)
	assert.Equal(t, "wamid.A", queue.msgs[0].MessageID)
	assert.Equal(t, ChannelWhatsApp, queue.msgs[0].Channel)
}

func TestWebhookQueuesMessengerShape(t *testing.T) {
	queue := &recordingEnqueuer{}
	h := NewWebhookHandler("tok", "", queue, nil, logging.Discard())

	w := httptest.NewRecorder()
	h.Inbound(w, httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(messengerPayload)))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, queue.msgs, 1)
	assert.Equal(t, "2", queue.msgs[0].Message)
}

func TestWebhookDeduplicatesRedeliveries(t *testing.T) {
	queue := &recordingEnqueuer{}
	h := NewWebhookHandler("tok", "", queue, &memoryProcessed{seen: map[string]bool{}}, logging.Discard())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.Inbound(w, httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(cloudPayload)))
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Len(t, queue.msgs, 1)
}

func TestWebhookSignature(t *testing.T) {
	queue := &recordingEnqueuer{}
	h := NewWebhookHandler("tok", "app-secret", queue, nil, logging.Discard())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(cloudPayload))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	h.Inbound(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write([]byte(cloudPayload))
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(cloudPayload))
	req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	h.Inbound(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, queue.msgs, 1)
}

func TestWebhookRejectsBadPayloadAndQueueFailure(t *testing.T) {
	h := NewWebhookHandler("tok", "", &recordingEnqueuer{}, nil, logging.Discard())
	w := httptest.NewRecorder()
	h.Inbound(w, httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h = NewWebhookHandler("tok", "", &recordingEnqueuer{err: errors.New("queue full")}, nil, logging.Discard())
	w = httptest.NewRecorder()
	h.Inbound(w, httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(cloudPayload)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookRedeliveryAfterQueueFailure(t *testing.T) {
	queue := &recordingEnqueuer{err: errors.New("queue unavailable")}
	h := NewWebhookHandler("tok", "", queue, &memoryProcessed{seen: map[string]bool{}}, logging.Discard())

	w := httptest.NewRecorder()
	h.Inbound(w, httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(cloudPayload)))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, queue.msgs)

	queue.err = nil
	w = httptest.NewRecorder()
	h.Inbound(w, httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(cloudPayload)))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, queue.msgs, 1, "the retried delivery is queued")
	assert.Equal(t, "wamid.A", queue.msgs[0].MessageID)

	w = httptest.NewRecorder()
	h.Inbound(w, httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(cloudPayload)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, queue.msgs, 1, "later duplicates are still skipped")
}
