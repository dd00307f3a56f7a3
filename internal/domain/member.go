package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Discipline is the training category of a member or routine
type Discipline string

const (
	DisciplineNone       Discipline = ""
	DisciplineStrength   Discipline = "Strength"
	DisciplineCrossfit   Discipline = "Crossfit"
	DisciplineFunctional Discipline = "Functional"
)

// Disciplines lists the selectable disciplines
var Disciplines = []Discipline{DisciplineStrength, DisciplineCrossfit, DisciplineFunctional}

// IsValid reports whether d is a known discipline. The empty discipline is valid for members.
func (d Discipline) IsValid() bool {
	switch d {
	case DisciplineNone, DisciplineStrength, DisciplineCrossfit, DisciplineFunctional:
		return true
	}
	return false
}

// Accepted year range for member dates. Renewals from the upper bound still
// stay far inside what the stores can hold.
const (
	MinDateYear = 1900
	MaxDateYear = 2999
)

var nationalIDPattern = regexp.MustCompile(`^\d+$`)

// Member is a gym client with a tracked subscription window.
// StartDate and EndDate are calendar dates in YYYY-MM-DD form.
type Member struct {
	ID         string     `json:"id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	NationalID string     `json:"national_id"`
	Discipline Discipline `json:"discipline"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// FullName returns "first last"
func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// Clone returns a copy safe to hand out of a cache
func (m *Member) Clone() *Member {
	c := *m
	return &c
}

// MemberInput is the payload for creating a member. Dates are optional.
type MemberInput struct {
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	NationalID string     `json:"national_id"`
	Discipline Discipline `json:"discipline"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
}

// Normalize trims the text fields in place
func (in *MemberInput) Normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.EndDate = strings.TrimSpace(in.EndDate)
}

// Validate enforces the hard rules for a new member. Call Normalize first.
func (in *MemberInput) Validate() error {
	if in.FirstName == "" {
		return NewValidationError("first_name", "first name is required")
	}
	if in.LastName == "" {
		return NewValidationError("last_name", "last name is required")
	}
	if err := validateNationalID(in.NationalID); err != nil {
		return err
	}
	if !in.Discipline.IsValid() {
		return invalidDiscipline(in.Discipline)
	}
	if err := validateOptionalDate("start_date", in.StartDate); err != nil {
		return err
	}
	return validateOptionalDate("end_date", in.EndDate)
}

// MemberPatch carries a partial update; nil fields are left untouched
type MemberPatch struct {
	FirstName  *string     `json:"first_name,omitempty"`
	LastName   *string     `json:"last_name,omitempty"`
	NationalID *string     `json:"national_id,omitempty"`
	Discipline *Discipline `json:"discipline,omitempty"`
	StartDate  *string     `json:"start_date,omitempty"`
	EndDate    *string     `json:"end_date,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p *MemberPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.NationalID == nil &&
		p.Discipline == nil && p.StartDate == nil && p.EndDate == nil
}

// Normalize trims present text fields in place
func (p *MemberPatch) Normalize() {
	for _, f := range []*string{p.FirstName, p.LastName, p.NationalID, p.StartDate, p.EndDate} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

// Validate applies the creation rules to the fields present in the patch
func (p *MemberPatch) Validate() error {
	if p.FirstName != nil && *p.FirstName == "" {
		return NewValidationError("first_name", "first name is required")
	}
	if p.LastName != nil && *p.LastName == "" {
		return NewValidationError("last_name", "last name is required")
	}
	if p.NationalID != nil {
		if err := validateNationalID(*p.NationalID); err != nil {
			return err
		}
	}
	if p.Discipline != nil && !p.Discipline.IsValid() {
		return invalidDiscipline(*p.Discipline)
	}
	if p.StartDate != nil {
		if err := validateOptionalDate("start_date", *p.StartDate); err != nil {
			return err
		}
	}
	if p.EndDate != nil {
		return validateOptionalDate("end_date", *p.EndDate)
	}
	return nil
}

// ApplyTo merges the patch onto m
func (p *MemberPatch) ApplyTo(m *Member) {
	if p.FirstName != nil {
		m.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		m.LastName = *p.LastName
	}
	if p.NationalID != nil {
		m.NationalID = *p.NationalID
	}
	if p.Discipline != nil {
		m.Discipline = *p.Discipline
	}
	if p.StartDate != nil {
		m.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		m.EndDate = *p.EndDate
	}
}

func validateNationalID(id string) error {
	if id == "" {
		return NewValidationError("national_id", "national id is required")
	}
	if !nationalIDPattern.MatchString(id) {
		return NewValidationError("national_id", "national id must contain digits only")
	}
	return nil
}

func validateOptionalDate(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := ParseISODate(value, time.UTC)
	if err != nil {
		return NewValidationError(field, fmt.Sprintf("%s: %v", field, err))
	}
	if y := d.Year(); y < MinDateYear || y > MaxDateYear {
		return NewValidationError(field, fmt.Sprintf("%s: year must be between %d and %d", field, MinDateYear, MaxDateYear))
	}
	return nil
}

func invalidDiscipline(d Discipline) error {
	return NewValidationError("discipline", fmt.Sprintf("unknown discipline %q", d))
}

// MemberRepository is the persistence contract for the members collection
type MemberRepository interface {
	List(ctx context.Context) ([]*Member, error)
	// Create stores the member and assigns its ID and CreatedAt
	Create(ctx context.Context, member *Member) error
	// Replace overwrites the stored document with member (last write wins)
	Replace(ctx context.Context, member *Member) error
	Delete(ctx context.Context, id string) error
}
