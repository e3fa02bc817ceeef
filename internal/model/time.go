package model

import (
	"fmt"
	"time"
)

const (
	// TimeLayout is the ISO 8601 UTC layout used by every downstream service.
	TimeLayout = "2006-01-02T15:04:05.000Z"
	// DateLayout is the ISO 8601 calendar date layout.
	DateLayout = "2006-01-02"
)

var parseLayouts = []string{
	time.RFC3339Nano,
	TimeLayout,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	DateLayout,
}

// FormatTime renders t as a UTC timestamp with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatDate renders the UTC calendar date of t.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseTime accepts the timestamp and date forms returned by downstream
// services. Values without a zone are treated as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
