// Package isoweek computes ISO 8601 week keys of the form "2026-W43"
// (Monday-start weeks, week 1 contains the year's first Thursday).
package isoweek

import (
	"fmt"
	"time"
)

// Window is the number of weeks in the rolling planning window.
const Window = 9

// Key returns the week key containing t, evaluated in UTC.
func Key(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return format(year, week)
}

// Monday returns 00:00 UTC of the Monday that starts the given ISO week.
func Monday(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+(week-1)*7)
}

// Expected returns the week containing now followed by the next Window-1 weeks.
func Expected(now time.Time) []string {
	year, week := now.UTC().ISOWeek()
	start := Monday(year, week)

	keys := make([]string, 0, Window)
	for i := 0; i < Window; i++ {
		keys = append(keys, Key(start.AddDate(0, 0, 7*i)))
	}
	return keys
}

func format(year, week int) string {
	return fmt.Sprintf("%d-W%02d", year, week)
}
