package appointments

import (
	"strings"
	"time"

	"github.com/wolfman30/agenda-platform/internal/calendar"
)

// Occupancy decides how much of the grid a confirmed appointment blocks.
type Occupancy string

const (
	// OccupancyPoint blocks only the exact start time.
	OccupancyPoint Occupancy = "point"
	// OccupancyDuration blocks the procedure duration plus the provider buffer.
	OccupancyDuration Occupancy = "duration"
)

// ParseOccupancy maps a config value to an Occupancy, defaulting to point.
func ParseOccupancy(s string) Occupancy {
	if strings.EqualFold(strings.TrimSpace(s), string(OccupancyDuration)) {
		return OccupancyDuration
	}
	return OccupancyPoint
}

// Conflicts reports whether a booking at start lasting length collides with
// any of the existing confirmed appointments.
func (o Occupancy) Conflicts(existing []Appointment, start calendar.Clock, length, buffer time.Duration) bool {
	for _, a := range existing {
		if a.Status != StatusConfirmed {
			continue
		}
		if a.StartTime == start {
			return true
		}
		if o != OccupancyDuration {
			continue
		}
		busyEnd := a.End().Add(buffer)
		wantEnd := start.Add(length + buffer)
		if start < busyEnd && a.StartTime < wantEnd {
			return true
		}
	}
	return false
}
