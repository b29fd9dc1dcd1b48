package store

import (
	"fmt"
	"time"
)

// DateLayout is the canonical run-date format used across the pipeline.
const DateLayout = "2006-01-02"

// Today returns the current date as a run date.
func Today() string {
	return time.Now().Format(DateLayout)
}

// Yesterday returns yesterday's date as a run date. The daily run defaults to
// it so a morning run covers the previous full day of news.
func Yesterday() string {
	return time.Now().AddDate(0, 0, -1).Format(DateLayout)
}

// ParseRunDate validates a YYYY-MM-DD run date and returns its midnight.
func ParseRunDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid run date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}
