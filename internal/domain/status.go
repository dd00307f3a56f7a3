package domain

import (
	"fmt"
	"time"
)

// SubscriptionStatus is derived from a member's end date and is never persisted
type SubscriptionStatus string

const (
	StatusActive       SubscriptionStatus = "active"
	StatusExpiringSoon SubscriptionStatus = "expiring_soon"
	StatusExpired      SubscriptionStatus = "expired"
)

// ExpiringSoonWindowDays is the inclusive number of days before expiry in
// which a subscription is flagged as expiring soon
const ExpiringSoonWindowDays = 5

// DeriveStatus computes the subscription status for endDate as seen on today.
// An empty or unparseable end date is never flagged: it is reported as active.
func DeriveStatus(endDate string, today time.Time) SubscriptionStatus {
	if endDate == "" {
		return StatusActive
	}
	end, err := ParseISODate(endDate, today.Location())
	if err != nil {
		return StatusActive
	}

	diffDays := DayDifference(end, today)
	switch {
	case diffDays < 0:
		return StatusExpired
	case diffDays <= ExpiringSoonWindowDays:
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// DaysRemaining returns the signed number of days until endDate.
// ok is false when the end date is missing or unparseable.
func DaysRemaining(endDate string, today time.Time) (days int, ok bool) {
	if endDate == "" {
		return 0, false
	}
	end, err := ParseISODate(endDate, today.Location())
	if err != nil {
		return 0, false
	}
	return DayDifference(end, today), true
}

// StatusPriority orders statuses for display: expired first, active last
func StatusPriority(s SubscriptionStatus) int {
	switch s {
	case StatusExpired:
		return 0
	case StatusExpiringSoon:
		return 1
	default:
		return 2
	}
}

// StatusFilter selects members by derived status
type StatusFilter string

const (
	FilterAll          StatusFilter = "all"
	FilterActive       StatusFilter = "active"
	FilterExpiringSoon StatusFilter = "expiring_soon"
	FilterExpired      StatusFilter = "expired"
)

// ParseStatusFilter accepts the filter names used by the API. Empty means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch StatusFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive, FilterExpiringSoon, FilterExpired:
		return StatusFilter(s), nil
	}
	return "", NewValidationError("status", fmt.Sprintf("unknown status filter %q", s))
}

// Matches reports whether status passes the filter
func (f StatusFilter) Matches(status SubscriptionStatus) bool {
	if f == FilterAll || f == "" {
		return true
	}
	return SubscriptionStatus(f) == status
}
