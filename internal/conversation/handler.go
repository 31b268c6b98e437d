package conversation

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// Handler serves the synchronous chat API.
type Handler struct {
	responder  Responder
	transcript *TranscriptStore
	logger     *logging.Logger
}

// NewHandler creates a chat handler. transcript may be nil.
func NewHandler(responder Responder, transcript *TranscriptStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{responder: responder, transcript: transcript, logger: logger}
}

// MessageRequest is the body of POST /api/chat/messages.
type MessageRequest struct {
	ChannelID string `json:"channel_id"`
	Message   string `json:"message"`
}

// MessageResponse carries the bot reply.
type MessageResponse struct {
	ChannelID string `json:"channel_id"`
	Response  string `json:"response"`
}

// Message handles POST /api/chat/messages.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat message", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.ChannelID = strings.TrimSpace(req.ChannelID)
	if req.ChannelID == "" {
		http.Error(w, "channel_id is required", http.StatusBadRequest)
		return
	}

	reply, err := h.responder.Handle(r.Context(), req.ChannelID, req.Message)
	if err != nil {
		h.logger.Error("failed to process chat message", "error", err, "channel_id", req.ChannelID)
		h.writeJSON(w, http.StatusServiceUnavailable, MessageResponse{ChannelID: req.ChannelID, Response: reply})
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{ChannelID: req.ChannelID, Response: reply})
}

// Transcript handles GET /api/chat/transcripts/{channelID}?limit=N.
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	if h.transcript == nil {
		http.Error(w, "transcripts are not enabled", http.StatusNotFound)
		return
	}
	channelID := chi.URLParam(r, "channelID")
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	msgs, err := h.transcript.List(r.Context(), channelID, limit)
	if err != nil {
		h.logger.Error("failed to list chat transcript", "error", err, "channel_id", channelID)
		http.Error(w, "Failed to load transcript", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []TranscriptMessage{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"channel_id": channelID, "messages": msgs})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
