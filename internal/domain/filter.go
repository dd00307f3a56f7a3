package domain

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// MinSearchTermLength is the shortest trimmed term FilterMembers applies
const MinSearchTermLength = 3

// FilterMembers narrows members by derived status and then by a free-text term.
// Terms shorter than MinSearchTermLength (after trimming) are ignored.
// Output keeps the input order.
func FilterMembers(members []*Member, filter StatusFilter, term string, today time.Time) []*Member {
	term = strings.TrimSpace(term)
	useTerm := utf8.RuneCountInString(term) >= MinSearchTermLength
	lower := strings.ToLower(term)

	result := make([]*Member, 0, len(members))
	for _, m := range members {
		if !filter.Matches(DeriveStatus(m.EndDate, today)) {
			continue
		}
		if useTerm && !matchesFilterTerm(m, term, lower) {
			continue
		}
		result = append(result, m)
	}
	return result
}

func matchesFilterTerm(m *Member, raw, lower string) bool {
	return strings.Contains(strings.ToLower(m.FirstName), lower) ||
		strings.Contains(strings.ToLower(m.LastName), lower) ||
		strings.Contains(strings.ToLower(m.FullName()), lower) ||
		strings.Contains(strings.ToLower(string(m.Discipline)), lower) ||
		strings.Contains(m.NationalID, raw)
}

// SearchMembers matches first or last name case-insensitively and the national
// id as a raw substring. An empty term returns every member.
func SearchMembers(members []*Member, term string) []*Member {
	if term == "" {
		return append([]*Member(nil), members...)
	}
	lower := strings.ToLower(term)
	var result []*Member
	for _, m := range members {
		if strings.Contains(strings.ToLower(m.FirstName), lower) ||
			strings.Contains(strings.ToLower(m.LastName), lower) ||
			strings.Contains(m.NationalID, term) {
			result = append(result, m)
		}
	}
	return result
}

// SortForDisplay orders a copy of members by status priority and then by
// ascending end date. Members without a usable end date go last within their group.
func SortForDisplay(members []*Member, today time.Time) []*Member {
	type keyed struct {
		m        *Member
		priority int
		end      time.Time
		hasEnd   bool
	}
	rows := make([]keyed, len(members))
	for i, m := range members {
		k := keyed{m: m, priority: StatusPriority(DeriveStatus(m.EndDate, today))}
		if end, err := ParseISODate(m.EndDate, today.Location()); err == nil && m.EndDate != "" {
			k.end, k.hasEnd = end, true
		}
		rows[i] = k
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.hasEnd != b.hasEnd {
			return a.hasEnd
		}
		return a.end.Before(b.end)
	})

	out := make([]*Member, len(rows))
	for i, r := range rows {
		out[i] = r.m
	}
	return out
}

// MemberStats are the dashboard counters per derived status
type MemberStats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	ExpiringSoon int `json:"expiring_soon"`
	Expired      int `json:"expired"`
}

// ComputeStats counts members per derived status
func ComputeStats(members []*Member, today time.Time) MemberStats {
	var s MemberStats
	for _, m := range members {
		s.Total++
		switch DeriveStatus(m.EndDate, today) {
		case StatusActive:
			s.Active++
		case StatusExpiringSoon:
			s.ExpiringSoon++
		case StatusExpired:
			s.Expired++
		}
	}
	return s
}
