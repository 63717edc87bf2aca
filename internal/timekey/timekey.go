// Package timekey converts between wall-clock times and the minute-resolution
// keys matches are scheduled under, e.g. "2026-03-01-18-30".
package timekey

import (
	"fmt"
	"time"
)

const Layout = "2006-01-02-15-04"

func Format(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(Layout)
}

func Parse(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time key %q: %w", key, err)
	}
	return t, nil
}

// Day returns the [start, end) bounds of the local day containing t.
func Day(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
