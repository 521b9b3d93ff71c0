package utils

import (
	"fmt"
	"strings"
	"time"
)

// ServiceDateLayout is the GTFS service date format (YYYYMMDD).
const ServiceDateLayout = "20060102"

// DisplayDateLayout is used for human-facing reports.
const DisplayDateLayout = "02/01/2006"

// ParseServiceDate parses a trimmed YYYYMMDD string into a date at 00:00 UTC.
func ParseServiceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(ServiceDateLayout) {
		return time.Time{}, fmt.Errorf("invalid service date %q", s)
	}
	t, err := time.Parse(ServiceDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid service date %q: %w", s, err)
	}
	return t, nil
}

// FormatServiceDate formats t as YYYYMMDD.
func FormatServiceDate(t time.Time) string {
	return t.Format(ServiceDateLayout)
}

// DisplayDate formats t as dd/mm/yyyy.
func DisplayDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}

// DateOf drops the clock of t and returns its calendar date (in t's own zone) at 00:00 UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// Positive when b is after a.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// Iso8601 formats t in RFC3339 (UTC).
func Iso8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
