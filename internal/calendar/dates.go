package calendar

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the external date format (DD/MM/YYYY).
	DateLayout = "02/01/2006"
	// ClockLayout is the external time-of-day format (HH:MM, 24-hour).
	ClockLayout = "15:04"
)

var weekdayNames = [...]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// WeekdayName returns the lowercase English name used in storage and APIs.
func WeekdayName(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return ""
	}
	return weekdayNames[d]
}

// ParseWeekday is the inverse of WeekdayName.
func ParseWeekday(name string) (time.Weekday, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range weekdayNames {
		if n == name {
			return time.Weekday(i), true
		}
	}
	return time.Sunday, false
}

// ValidWeekday reports whether name is one of the seven weekday names.
func ValidWeekday(name string) bool {
	_, ok := ParseWeekday(name)
	return ok
}

// ParseDate parses a DD/MM/YYYY string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid date %q", s)
	}
	return t, nil
}

// FormatDate renders t as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Clock is a time of day expressed in minutes after midnight.
type Clock int

// ParseClock parses an HH:MM string.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("calendar: invalid time %q", s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// FormatClock renders c as HH:MM.
func FormatClock(c Clock) string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) String() string { return FormatClock(c) }

// MinSlotInterval is the finest slot grid: clocks have minute resolution.
const MinSlotInterval = time.Minute

// Add returns c shifted by d, truncated to whole minutes.
func (c Clock) Add(d time.Duration) Clock {
	return c + Clock(d/time.Minute)
}

// On returns the instant c falls on for the given date.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, date.Location())
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(FormatClock(c)), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
