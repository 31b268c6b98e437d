// Package appointments validates and persists bookings and guarantees that a
// provider slot holds at most one confirmed appointment.
package appointments

import (
	"encoding/json"
	"time"

	"github.com/wolfman30/agenda-platform/internal/calendar"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Appointment is a booked slot. Appointments are never deleted.
type Appointment struct {
	ID              int64
	Code            string
	ProviderID      int64
	ProcedureID     int64
	ProcedureName   string
	ClientName      string
	ClientPhone     string
	Date            time.Time
	StartTime       calendar.Clock
	DurationMinutes int
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// End is the first minute after the procedure itself.
func (a Appointment) End() calendar.Clock {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

type appointmentJSON struct {
	ID              int64     `json:"id"`
	Code            string    `json:"booking_code"`
	ProviderID      int64     `json:"provider_id"`
	ProcedureID     int64     `json:"procedure_id"`
	ProcedureName   string    `json:"procedure_name"`
	ClientName      string    `json:"client_name"`
	ClientPhone     string    `json:"client_phone"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (a Appointment) MarshalJSON() ([]byte, error) {
	return json.Marshal(appointmentJSON{
		ID:              a.ID,
		Code:            a.Code,
		ProviderID:      a.ProviderID,
		ProcedureID:     a.ProcedureID,
		ProcedureName:   a.ProcedureName,
		ClientName:      a.ClientName,
		ClientPhone:     a.ClientPhone,
		Date:            calendar.FormatDate(a.Date),
		Time:            calendar.FormatClock(a.StartTime),
		DurationMinutes: a.DurationMinutes,
		Status:          a.Status,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	})
}

func (a *Appointment) UnmarshalJSON(b []byte) error {
	var raw appointmentJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	date, err := calendar.ParseDate(raw.Date, time.UTC)
	if err != nil {
		return err
	}
	start, err := calendar.ParseClock(raw.Time)
	if err != nil {
		return err
	}
	*a = Appointment{
		ID:              raw.ID,
		Code:            raw.Code,
		ProviderID:      raw.ProviderID,
		ProcedureID:     raw.ProcedureID,
		ProcedureName:   raw.ProcedureName,
		ClientName:      raw.ClientName,
		ClientPhone:     raw.ClientPhone,
		Date:            date,
		StartTime:       start,
		DurationMinutes: raw.DurationMinutes,
		Status:          raw.Status,
		CreatedAt:       raw.CreatedAt,
		UpdatedAt:       raw.UpdatedAt,
	}
	return nil
}

// CreateRequest carries everything needed to book a slot.
type CreateRequest struct {
	ProviderID    int64  `json:"provider_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	ProcedureID   int64  `json:"procedure_id"`
	ProcedureName string `json:"procedure_name"`
}

// ProviderSummary is one dashboard row.
type ProviderSummary struct {
	ProviderID int64  `json:"provider_id"`
	Name       string `json:"name"`
	Specialty  string `json:"specialty"`
	Total      int    `json:"total"`
	Confirmed  int    `json:"confirmed"`
	Cancelled  int    `json:"cancelled"`
	Completed  int    `json:"completed"`
}

// Dashboard aggregates appointment counts over active providers.
type Dashboard struct {
	Providers      []ProviderSummary `json:"providers"`
	TotalConfirmed int               `json:"total_confirmed"`
}

// StatusCounts tallies one provider's appointments by status.
type StatusCounts struct {
	Confirmed int
	Cancelled int
	Completed int
}

func (c StatusCounts) Total() int { return c.Confirmed + c.Cancelled + c.Completed }
