// Package recency provides the calendar-date helpers shared by the agenda
// and prospect classifiers.
package recency

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Day is the length of one day as used by DaysBetween.
const Day = 24 * time.Hour

// DaysBetween returns the whole days elapsed from earlier to later, rounding
// toward negative infinity. The result is negative when later precedes
// earlier (for example a visit scheduled in the future).
func DaysBetween(earlier, later time.Time) int {
	d := later.Sub(earlier)
	days := d / Day
	if d%Day < 0 {
		days--
	}
	return int(days)
}

// ParseDate parses a YYYY-MM-DD string as local midnight. No time zone
// conversion is applied: the date is the wall-clock date the user entered.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Later returns the later of two optional instants, or nil when both are nil.
func Later(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
