package calendar

import (
	"fmt"
	"time"
)

// DayHours is the opening window for a single weekday.
type DayHours struct {
	Open  Clock `json:"open"`
	Close Clock `json:"close"`
}

// NewDayHours builds a DayHours from HH:MM strings.
func NewDayHours(open, close string) (DayHours, error) {
	o, err := ParseClock(open)
	if err != nil {
		return DayHours{}, err
	}
	c, err := ParseClock(close)
	if err != nil {
		return DayHours{}, err
	}
	if c <= o {
		return DayHours{}, fmt.Errorf("calendar: close %s must be after open %s", close, open)
	}
	return DayHours{Open: o, Close: c}, nil
}

// OnGrid reports whether c is a slot start of a grid spaced interval apart,
// anchored at opening, and before closing. Intervals under MinSlotInterval
// have no grid.
func (h DayHours) OnGrid(c Clock, interval time.Duration) bool {
	if interval < MinSlotInterval || c < h.Open || c >= h.Close {
		return false
	}
	step := Clock(interval / time.Minute)
	return (c-h.Open)%step == 0
}

// BusinessHours holds the clinic-wide schedule. A nil day is closed.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// ForWeekday returns the hours for a weekday, or nil when closed.
func (b *BusinessHours) ForWeekday(weekday time.Weekday) *DayHours {
	if b == nil {
		return nil
	}
	switch weekday {
	case time.Sunday:
		return b.Sunday
	case time.Monday:
		return b.Monday
	case time.Tuesday:
		return b.Tuesday
	case time.Wednesday:
		return b.Wednesday
	case time.Thursday:
		return b.Thursday
	case time.Friday:
		return b.Friday
	case time.Saturday:
		return b.Saturday
	default:
		return nil
	}
}

// Set assigns (or clears, when h is nil) the hours for a weekday.
func (b *BusinessHours) Set(weekday time.Weekday, h *DayHours) {
	switch weekday {
	case time.Sunday:
		b.Sunday = h
	case time.Monday:
		b.Monday = h
	case time.Tuesday:
		b.Tuesday = h
	case time.Wednesday:
		b.Wednesday = h
	case time.Thursday:
		b.Thursday = h
	case time.Friday:
		b.Friday = h
	case time.Saturday:
		b.Saturday = h
	}
}

// Holiday is a closure date. Recurring holidays match every year on the
// same day and month.
type Holiday struct {
	Date        time.Time `json:"-"`
	Description string    `json:"description"`
	Recurring   bool      `json:"recurring"`
}

// Matches reports whether the holiday falls on date.
func (h Holiday) Matches(date time.Time) bool {
	if h.Recurring {
		return h.Date.Month() == date.Month() && h.Date.Day() == date.Day()
	}
	y1, m1, d1 := h.Date.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
