package domain

import (
	"fmt"
	"time"
)

// DayFormat is the canonical calendar-day layout. Days are compared as
// strings, never as timestamps: multiple records may share one day and must
// aggregate by day, not by instant.
const DayFormat = "2006-01-02"

// Day converts a time to its canonical calendar-day string in UTC.
func Day(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// ValidDay reports whether s is a well-formed canonical day string.
func ValidDay(s string) bool {
	_, err := time.Parse(DayFormat, s)
	return err == nil
}

// NormalizeDay converts any accepted external date representation to the
// canonical form. This is the single boundary where loose input formats are
// tolerated; everything past it operates on the canonical string only.
func NormalizeDay(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range []string{DayFormat, time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(DayFormat), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format: %q", raw)
}

// ParseDay parses a canonical day string back into a UTC midnight time.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayFormat, s)
}

// DaysAgo returns the canonical day string n days before t.
func DaysAgo(t time.Time, n int) string {
	return Day(t.AddDate(0, 0, -n))
}
