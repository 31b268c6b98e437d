package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	RoleClient = "client"
	RoleBot    = "bot"
)

// TranscriptMessage is one line of a chat transcript.
type TranscriptMessage struct {
	ID        int64     `json:"id"`
	ChannelID string    `json:"channel_id"`
	Role      string    `json:"role"`
	Body      string    `json:"body"`
	Stage     Stage     `json:"stage,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptStore persists chat exchanges to chat_messages.
type TranscriptStore struct {
	db *sql.DB
}

// NewTranscriptStore returns nil when db is nil so callers can wire it
// unconditionally.
func NewTranscriptStore(db *sql.DB) *TranscriptStore {
	if db == nil {
		return nil
	}
	return &TranscriptStore{db: db}
}

// Append stores one message.
func (s *TranscriptStore) Append(ctx context.Context, msg TranscriptMessage) error {
	if s == nil || s.db == nil {
		return nil
	}
	if strings.TrimSpace(msg.ChannelID) == "" {
		return fmt.Errorf("conversation: transcript channel id required")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (channel_id, role, body, stage, created_at) VALUES ($1, $2, $3, $4, $5)`,
		msg.ChannelID, msg.Role, msg.Body, string(msg.Stage), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("conversation: append transcript: %w", err)
	}
	return nil
}

// List returns the latest limit messages of channelID, oldest first.
func (s *TranscriptStore) List(ctx context.Context, channelID string, limit int) ([]TranscriptMessage, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel_id, role, body, stage, created_at FROM (
			SELECT id, channel_id, role, body, stage, created_at
			FROM chat_messages
			WHERE channel_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: list transcript: %w", err)
	}
	defer rows.Close()

	var out []TranscriptMessage
	for rows.Next() {
		var (
			m     TranscriptMessage
			stage string
		)
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.Role, &m.Body, &stage, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan transcript: %w", err)
		}
		m.Stage = Stage(stage)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: list transcript: %w", err)
	}
	return out, nil
}
