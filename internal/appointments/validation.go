package appointments

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/wolfman30/agenda-platform/internal/calendar"
)

// ValidateDate parses a DD/MM/YYYY date and checks it is between today and
// today+windowDays inclusive, in the location of today.
func ValidateDate(s string, today time.Time, windowDays int) (time.Time, error) {
	today = calendar.DateOf(today)
	d, err := calendar.ParseDate(s, today.Location())
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: ReasonInvalidDate}
	}
	if d.Before(today) || d.After(today.AddDate(0, 0, windowDays)) {
		return time.Time{}, &ValidationError{Field: "date", Reason: ReasonInvalidDate}
	}
	return d, nil
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePhone accepts 10 or 11 digits once formatting is removed.
func ValidatePhone(s string) error {
	if n := len(Digits(s)); n != 10 && n != 11 {
		return &ValidationError{Field: "phone", Reason: ReasonInvalidPhone}
	}
	return nil
}

// ValidateName accepts a trimmed name of 3 to 100 characters.
func ValidateName(s string) error {
	n := utf8.RuneCountInString(strings.TrimFunc(s, unicode.IsSpace))
	if n < 3 || n > 100 {
		return &ValidationError{Field: "name", Reason: ReasonInvalidName}
	}
	return nil
}

// ValidateTime parses an HH:MM start time.
func ValidateTime(s string) (calendar.Clock, error) {
	c, err := calendar.ParseClock(s)
	if err != nil {
		return 0, &ValidationError{Field: "time", Reason: ReasonInvalidTime}
	}
	return c, nil
}
