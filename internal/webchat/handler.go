// Package webchat serves the booking chat to browsers over WebSocket.
package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/agenda-platform/internal/conversation"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// Responder answers one chat message.
type Responder interface {
	Handle(ctx context.Context, channelID, text string) (string, error)
}

// History reads past exchanges of a channel.
type History interface {
	List(ctx context.Context, channelID string, limit int) ([]conversation.TranscriptMessage, error)
}

// Handler manages web chat connections.
type Handler struct {
	responder Responder
	history   History
	logger    *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what the widget receives.
type OutboundMessage struct {
	Type      string           `json:"type"` // "session", "history", "message", "error", "pong"
	Text      string           `json:"text,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a transcript line as the widget renders it.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler. history may be nil.
func NewHandler(responder Responder, history History, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{responder: responder, history: history, logger: logger}
}

// ChannelID is the conversation key of a web chat session.
func ChannelID(sessionID string) string {
	return "webchat:" + sessionID
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket handles GET /api/chat/ws?session=ID.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	channelID := ChannelID(sessionID)
	ctx := r.Context()

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
	if history := h.load(ctx, channelID, 50); len(history) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
	}

	h.logger.Info("webchat: connection opened", "session_id", sessionID)
	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}
		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		reply, err := h.responder.Handle(ctx, channelID, msg.Text)
		out := OutboundMessage{Type: "message", Text: reply, Timestamp: time.Now().UTC().Format(time.RFC3339)}
		if err != nil {
			h.logger.Error("webchat: failed to handle message", "error", err, "session_id", sessionID)
			out.Type = "error"
		}
		if err := websocket.JSON.Send(conn, out); err != nil {
			h.logger.Debug("webchat: send failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

// HandleHistory handles GET /api/chat/history?session=ID.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	history := h.load(r.Context(), ChannelID(sessionID), 100)
	if history == nil {
		history = []HistoryMessage{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}

func (h *Handler) load(ctx context.Context, channelID string, limit int) []HistoryMessage {
	if h.history == nil {
		return nil
	}
	msgs, err := h.history.List(ctx, channelID, limit)
	if err != nil {
		h.logger.Warn("webchat: failed to load history", "error", err, "channel_id", channelID)
		return nil
	}
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{
			Role:      m.Role,
			Text:      m.Body,
			Timestamp: m.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
