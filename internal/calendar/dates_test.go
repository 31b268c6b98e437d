package calendar

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	d, err := ParseDate(" 25/12/2026 ", loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2026 || d.Month() != time.December || d.Day() != 25 || d.Hour() != 0 {
		t.Fatalf("unexpected date %v", d)
	}
	if d.Location() != loc {
		t.Fatalf("expected clinic location, got %v", d.Location())
	}
	if got := FormatDate(d); got != "25/12/2026" {
		t.Fatalf("round trip mismatch: %s", got)
	}

	for _, bad := range []string{"", "2026-12-25", "32/01/2026", "12/13/2026", "abc"} {
		if _, err := ParseDate(bad, loc); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != 9*60+30 {
		t.Fatalf("expected 570, got %d", c)
	}
	if c.String() != "09:30" {
		t.Fatalf("expected 09:30, got %s", c)
	}
	if got := c.Add(45 * time.Minute); got.String() != "10:15" {
		t.Fatalf("expected 10:15, got %s", got)
	}
	if _, err := ParseClock("9h30"); err == nil {
		t.Fatalf("expected error for malformed clock")
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Fatalf("expected error for out of range hour")
	}
}

func TestClockOn(t *testing.T) {
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	got := Clock(14*60 + 30).On(day)
	want := time.Date(2026, time.March, 2, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestWeekdayNames(t *testing.T) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := WeekdayName(d)
		back, ok := ParseWeekday(name)
		if !ok || back != d {
			t.Fatalf("round trip failed for %v (%q)", d, name)
		}
	}
	if !ValidWeekday("Monday") {
		t.Fatalf("expected case-insensitive match")
	}
	if ValidWeekday("segunda") {
		t.Fatalf("expected unknown name to be rejected")
	}
	if WeekdayName(time.Weekday(9)) != "" {
		t.Fatalf("expected empty name for invalid weekday")
	}
}

func TestNewDayHoursRejectsInvertedWindow(t *testing.T) {
	if _, err := NewDayHours("18:00", "09:00"); err == nil {
		t.Fatalf("expected error for close before open")
	}
	h, err := NewDayHours("09:00", "18:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Open.String() != "09:00" || h.Close.String() != "18:00" {
		t.Fatalf("unexpected hours %+v", h)
	}
}

func TestHolidayMatches(t *testing.T) {
	xmas := Holiday{Date: time.Date(2026, time.December, 25, 0, 0, 0, 0, time.UTC)}
	if !xmas.Matches(time.Date(2026, time.December, 25, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected same-day match")
	}
	if xmas.Matches(time.Date(2027, time.December, 25, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("non-recurring holiday should not match next year")
	}
	xmas.Recurring = true
	if !xmas.Matches(time.Date(2027, time.December, 25, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("recurring holiday should match next year")
	}
}

func TestClockJSON(t *testing.T) {
	raw, err := json.Marshal(DayHours{Open: 9 * 60, Close: 18 * 60})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"open":"09:00","close":"18:00"}` {
		t.Fatalf("unexpected json %s", raw)
	}
	var back DayHours
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Open != 9*60 || back.Close != 18*60 {
		t.Fatalf("unexpected hours %+v", back)
	}
}
