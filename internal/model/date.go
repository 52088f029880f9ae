package model

import (
    "errors"
    "strings"
    "time"
)

// DateLayout is the wire and storage format of booking dates.
const DateLayout = "2006-01-02"

var errBadDate = errors.New("date must be YYYY-MM-DD")

// ParseDate reads a calendar date.  Bookings carry no time of day, so
// RFC3339 timestamps are accepted and truncated to their UTC date.
func ParseDate(s string) (time.Time, error) {
    s = strings.TrimSpace(s)
    if t, err := time.Parse(DateLayout, s); err == nil {
        return t, nil
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return DateOf(t), nil
    }
    return time.Time{}, errBadDate
}

// DateOf strips the time of day and returns midnight UTC of t's UTC date.
func DateOf(t time.Time) time.Time {
    y, m, d := t.UTC().Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date in DateLayout.
func FormatDate(t time.Time) string {
    return t.UTC().Format(DateLayout)
}

// NightsBetween returns the number of whole nights in [start, end).  It
// is negative when end precedes start.
func NightsBetween(start, end time.Time) int {
    return int(DateOf(end).Sub(DateOf(start)) / (24 * time.Hour))
}

// Overlaps reports whether the half-open intervals [s1, e1) and [s2, e2)
// intersect.  Intervals that only touch (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
    return s1.Before(e2) && e1.After(s2)
}
