package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates (start/end of a subscription)
const DateLayout = "2006-01-02"

// DaysPerMonth is the fixed month length used for subscription arithmetic
const DaysPerMonth = 30

// StartOfDay returns midnight of t in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays adds n calendar days to the midnight-normalized date
func AddDays(t time.Time, n int) time.Time {
	return StartOfDay(t).AddDate(0, 0, n)
}

// ToISODate formats t as YYYY-MM-DD. The zero time renders as an empty string.
func ToISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseISODate parses a YYYY-MM-DD string at midnight in loc
func ParseISODate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

const secondsPerDay = 24 * 60 * 60

// DayDifference returns the number of calendar days from b to a.
// Positive means a is after b. Both values are reduced to their calendar date
// first, so the result is the ceiling of the millisecond difference between
// the two midnights and is not skewed by DST transitions.
func DayDifference(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	// Unix seconds instead of Sub: a Duration saturates after ~292 years
	return int((ua.Unix() - ub.Unix()) / secondsPerDay)
}

// DateToStorage converts a YYYY-MM-DD string to the timestamp persisted in the
// document store (UTC midnight of that calendar day). Empty input yields the zero time.
func DateToStorage(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return ParseISODate(s, time.UTC)
}

// DateFromStorage is the inverse of DateToStorage
func DateFromStorage(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return ToISODate(t.UTC())
}
