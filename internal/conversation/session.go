package conversation

import (
	"time"
)

// ProcedureOption is a procedure as listed in the chat menu.
type ProcedureOption struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Price           string `json:"price,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Session is the per-channel conversation state.
type Session struct {
	ChannelID     string            `json:"channel_id"`
	Stage         Stage             `json:"stage"`
	ProviderID    int64             `json:"provider_id,omitempty"`
	ProviderName  string            `json:"provider_name,omitempty"`
	ProcedureID   int64             `json:"procedure_id,omitempty"`
	ProcedureName string            `json:"procedure_name,omitempty"`
	ClientName    string            `json:"client_name,omitempty"`
	ClientPhone   string            `json:"client_phone,omitempty"`
	Date          string            `json:"date,omitempty"`
	Procedures    []ProcedureOption `json:"procedures,omitempty"`
	Dates         []string          `json:"dates,omitempty"`
	Times         []string          `json:"times,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewSession starts a conversation at provider selection.
func NewSession(channelID string) *Session {
	return &Session{ChannelID: channelID, Stage: StageChooseProvider}
}

// Reset drops everything, including the provider.
func (s *Session) Reset() {
	*s = Session{ChannelID: s.ChannelID, Stage: StageChooseProvider}
}

// clearBooking drops the answers and procedure of a finished booking. The
// provider stays selected.
func (s *Session) clearBooking() {
	s.ProcedureID = 0
	s.ProcedureName = ""
	s.ClientName = ""
	s.ClientPhone = ""
	s.Date = ""
	s.Dates = nil
	s.Times = nil
}
