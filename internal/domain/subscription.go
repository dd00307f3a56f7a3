package domain

import (
	"fmt"
	"time"
)

// ExtensionPolicy selects how a renewal moves the subscription window
type ExtensionPolicy string

const (
	// PolicyFromToday restarts the cycle on the payment day; unused days are discarded
	PolicyFromToday ExtensionPolicy = "from_today"
	// PolicyFromCurrentEnd stacks the renewal on an end date that has not passed yet
	PolicyFromCurrentEnd ExtensionPolicy = "from_current_end"
)

// ParseExtensionPolicy maps the API value to a policy. Empty means PolicyFromToday.
func ParseExtensionPolicy(s string) (ExtensionPolicy, error) {
	switch ExtensionPolicy(s) {
	case "", PolicyFromToday:
		return PolicyFromToday, nil
	case PolicyFromCurrentEnd:
		return PolicyFromCurrentEnd, nil
	}
	return "", NewValidationError("policy", fmt.Sprintf("unknown extension policy %q", s))
}

// Extension is the outcome of a renewal. StartDate is empty when it was not changed.
type Extension struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date"`
}

// ValidateMonths rejects renewals that would not move the end date forward
func ValidateMonths(months int) error {
	if months < 1 {
		return NewValidationError("months", "months must be at least 1")
	}
	return nil
}

// DefaultEndDate is the end date given to a member created without one
func DefaultEndDate(start time.Time) time.Time {
	return AddDays(start, DaysPerMonth)
}

// RenewFromToday returns the window of a renewal paid today
func RenewFromToday(today time.Time, months int) Extension {
	return Extension{
		StartDate: ToISODate(StartOfDay(today)),
		EndDate:   ToISODate(AddDays(today, months*DaysPerMonth)),
	}
}

// ExtendFromEnd calculates the new end date with stacking logic.
// If currentEnd is today or later, the new date extends from currentEnd.
// If currentEnd is in the past, missing or unparseable, it extends from today.
func ExtendFromEnd(currentEnd string, today time.Time, months int) Extension {
	base := StartOfDay(today)
	if currentEnd != "" {
		if end, err := ParseISODate(currentEnd, today.Location()); err == nil && end.After(base) {
			base = end
		}
	}
	return Extension{EndDate: ToISODate(AddDays(base, months*DaysPerMonth))}
}
