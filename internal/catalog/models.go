// Package catalog owns providers and the procedures they offer.
package catalog

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a provider or procedure does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Provider is a professional whose time is booked.
type Provider struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Specialty     string   `json:"specialty"`
	WorkingDays   []string `json:"working_days"`
	BufferMinutes int      `json:"buffer_minutes"`
	Active        bool     `json:"active"`
}

// WorksOn reports whether the provider works on the named weekday. An empty
// working-day list means every day.
func (p *Provider) WorksOn(weekday string) bool {
	if len(p.WorkingDays) == 0 {
		return true
	}
	for _, d := range p.WorkingDays {
		if strings.EqualFold(d, weekday) {
			return true
		}
	}
	return false
}

// Procedure is a bookable service offered by one provider.
type Procedure struct {
	ID              int64  `json:"id"`
	ProviderID      int64  `json:"provider_id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          bool   `json:"active"`
}
