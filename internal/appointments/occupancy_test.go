package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/agenda-platform/internal/calendar"
)

func clock(t *testing.T, s string) calendar.Clock {
	t.Helper()
	c, err := calendar.ParseClock(s)
	if err != nil {
		t.Fatalf("parse clock %q: %v", s, err)
	}
	return c
}

func TestOccupancyConflicts(t *testing.T) {
	existing := []Appointment{
		{StartTime: clock(t, "10:00"), DurationMinutes: 45, Status: StatusConfirmed},
		{StartTime: clock(t, "15:00"), DurationMinutes: 30, Status: StatusCancelled},
	}
	thirty := 30 * time.Minute
	buffer := 15 * time.Minute

	assert.True(t, OccupancyPoint.Conflicts(existing, clock(t, "10:00"), thirty, buffer))
	assert.False(t, OccupancyPoint.Conflicts(existing, clock(t, "10:30"), thirty, buffer))
	assert.False(t, OccupancyPoint.Conflicts(existing, clock(t, "15:00"), thirty, buffer), "cancelled never blocks")

	// 10:00 + 45m + 15m buffer keeps the provider busy until 11:00.
	assert.True(t, OccupancyDuration.Conflicts(existing, clock(t, "10:30"), thirty, buffer))
	assert.False(t, OccupancyDuration.Conflicts(existing, clock(t, "11:00"), thirty, buffer))
	// 09:30 + 30m + 15m runs into 10:00.
	assert.True(t, OccupancyDuration.Conflicts(existing, clock(t, "09:30"), thirty, buffer))
	assert.False(t, OccupancyDuration.Conflicts(existing, clock(t, "09:00"), thirty, buffer))
}

func TestParseOccupancy(t *testing.T) {
	assert.Equal(t, OccupancyDuration, ParseOccupancy(" Duration "))
	assert.Equal(t, OccupancyPoint, ParseOccupancy(""))
	assert.Equal(t, OccupancyPoint, ParseOccupancy("bogus"))
}
