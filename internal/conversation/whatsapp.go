package conversation

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

const whatsappProvider = "whatsapp"

const maxWebhookBody = 1 << 20

// Enqueuer hands inbound messages to the worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg InboundMessage) error
}

// ProcessedStore remembers provider message ids already accepted.
// ForgetProcessed drops a claim whose message never reached the queue.
type ProcessedStore interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
	ForgetProcessed(ctx context.Context, provider, eventID string) error
}

// WebhookEvent covers both the Cloud API shape (entry.changes.value.messages)
// and the Messenger shape (entry.messaging).
type WebhookEvent struct {
	Entry []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	Changes []struct {
		Value struct {
			Messages []struct {
				From string `json:"from"`
				ID   string `json:"id"`
				Type string `json:"type"`
				Text struct {
					Body string `json:"body"`
				} `json:"text"`
			} `json:"messages"`
		} `json:"value"`
	} `json:"changes"`
	Messaging []struct {
		Sender struct {
			ID string `json:"id"`
		} `json:"sender"`
		Message *struct {
			MID  string `json:"mid"`
			Text struct {
				Body string `json:"body"`
			} `json:"text"`
		} `json:"message"`
	} `json:"messaging"`
}

// ParseWebhookEvent extracts the text messages of event.
func ParseWebhookEvent(event WebhookEvent) []InboundMessage {
	var out []InboundMessage
	add := func(from, id, text string) {
		from, text = strings.TrimSpace(from), strings.TrimSpace(text)
		if from == "" || text == "" {
			return
		}
		out = append(out, InboundMessage{
			ChannelID: whatsappProvider + ":" + from,
			Channel:   ChannelWhatsApp,
			Message:   text,
			MessageID: id,
		})
	}
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				if m.Type != "" && m.Type != "text" {
					continue
				}
				add(m.From, m.ID, m.Text.Body)
			}
		}
		for _, m := range entry.Messaging {
			if m.Message == nil {
				continue
			}
			add(m.Sender.ID, m.Message.MID, m.Message.Text.Body)
		}
	}
	return out
}

// WebhookHandler receives WhatsApp webhooks and queues their messages.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	queue       Enqueuer
	processed   ProcessedStore
	logger      *logging.Logger
}

// NewWebhookHandler creates the handler. An empty appSecret skips signature
// checks; processed may be nil.
func NewWebhookHandler(verifyToken, appSecret string, queue Enqueuer, processed ProcessedStore, logger *logging.Logger) *WebhookHandler {
	if queue == nil {
		panic("conversation: webhook queue required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		queue:       queue,
		processed:   processed,
		logger:      logger,
	}
}

// Verify handles GET /api/whatsapp/webhook.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("hub.verify_token")
	if h.verifyToken == "" || !hmac.Equal([]byte(token), []byte(h.verifyToken)) {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, q.Get("hub.challenge"))
}

// Inbound handles POST /api/whatsapp/webhook.
func (h *WebhookHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if h.appSecret != "" && !VerifySignature(h.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	for _, msg := range ParseWebhookEvent(event) {
		if !h.firstDelivery(r.Context(), msg) {
			continue
		}
		h.logger.Info("whatsapp message received", "channel_id", msg.ChannelID, "message_id", msg.MessageID)
		if err := h.queue.Enqueue(r.Context(), msg); err != nil {
			h.logger.Error("failed to enqueue whatsapp message", "error", err, "channel_id", msg.ChannelID)
			h.forget(r.Context(), msg)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not queue message"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) firstDelivery(ctx context.Context, msg InboundMessage) bool {
	if h.processed == nil || msg.MessageID == "" {
		return true
	}
	fresh, err := h.processed.MarkProcessed(ctx, whatsappProvider, msg.MessageID)
	if err != nil {
		h.logger.Warn("dedupe check failed, processing anyway", "error", err, "message_id", msg.MessageID)
		return true
	}
	if !fresh {
		h.logger.Debug("skipping duplicate whatsapp message", "message_id", msg.MessageID)
	}
	return fresh
}

// forget releases the dedupe claim so the provider's retry is accepted.
func (h *WebhookHandler) forget(ctx context.Context, msg InboundMessage) {
	if h.processed == nil || msg.MessageID == "" {
		return
	}
	if err := h.processed.ForgetProcessed(ctx, whatsappProvider, msg.MessageID); err != nil {
		h.logger.Error("failed to release dedupe claim, redelivery will be dropped",
			"error", err, "message_id", msg.MessageID)
	}
}

// VerifySignature checks an X-Hub-Signature-256 header ("sha256=<hex>").
func VerifySignature(appSecret string, body []byte, signature string) bool {
	const prefix = "sha256="
	if appSecret == "" || !strings.HasPrefix(signature, prefix) {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature[len(prefix):]))
}
