package conversation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

func TestChatMessageHandler(t *testing.T) {
	f := newChatFixture(t)
	h := NewHandler(f.machine, nil, logging.Discard())

	body, _ := json.Marshal(MessageRequest{ChannelID: "web:1", Message: "hi"})
	w := httptest.NewRecorder()
	h.Message(w, httptest.NewRequest(http.MethodPost, "/api/chat/messages", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	var resp MessageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "web:1", resp.ChannelID)
	assert.Contains(t, resp.Response, "Choose a professional")
}

func TestChatMessageHandlerValidation(t *testing.T) {
	f := newChatFixture(t)
	h := NewHandler(f.machine, nil, logging.Discard())

	w := httptest.NewRecorder()
	h.Message(w, httptest.NewRequest(http.MethodPost, "/api/chat/messages", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.Message(w, httptest.NewRequest(http.MethodPost, "/api/chat/messages", bytes.NewReader([]byte(`{"message":"hi"}`))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatTranscriptHandler(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	f := newChatFixture(t)
	h := NewHandler(f.machine, NewTranscriptStore(db), logging.Discard())
	r := chi.NewRouter()
	r.Get("/api/chat/transcripts/{channelID}", h.Transcript)

	mock.ExpectQuery("FROM chat_messages").
		WithArgs("web:1", int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "channel_id", "role", "body", "stage", "created_at"}).
			AddRow(int64(1), "web:1", RoleClient, "hi", "choose_provider", time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/transcripts/web:1?limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []TranscriptMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "hi", body.Messages[0].Body)
	assert.NoError(t, mock.ExpectationsWereMet())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/transcripts/web:1?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatTranscriptHandlerDisabled(t *testing.T) {
	f := newChatFixture(t)
	h := NewHandler(f.machine, nil, logging.Discard())
	w := httptest.NewRecorder()
	h.Transcript(w, httptest.NewRequest(http.MethodGet, "/api/chat/transcripts/web:1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
