package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Weekday is a key of Routine.Days
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
)

// Weekdays is the fixed, ordered set of planned days
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// ParseWeekday validates a day key
func ParseWeekday(s string) (Weekday, error) {
	d := Weekday(strings.ToLower(strings.TrimSpace(s)))
	for _, w := range Weekdays {
		if d == w {
			return d, nil
		}
	}
	return "", NewValidationError("day", fmt.Sprintf("unknown weekday %q", s))
}

// DefaultRoutineDiscipline is used when a draft is started without one
const DefaultRoutineDiscipline = DisciplineFunctional

// RoutineExercise is an exercise embedded in a routine day. Name is a copy taken
// when the exercise was added, so renaming or deleting the catalog entry does not
// break saved routines.
type RoutineExercise struct {
	ExerciseID string `json:"exercise_id" bson:"exercise_id" firestore:"exercise_id"`
	Name       string `json:"name" bson:"name" firestore:"name"`
	Reps       string `json:"reps,omitempty" bson:"reps,omitempty" firestore:"reps,omitempty"`
	Weight     string `json:"weight,omitempty" bson:"weight,omitempty" firestore:"weight,omitempty"`
	Duration   string `json:"duration,omitempty" bson:"duration,omitempty" firestore:"duration,omitempty"`
	Rest       string `json:"rest,omitempty" bson:"rest,omitempty" firestore:"rest,omitempty"`
}

// SnapshotExercise builds the embedded copy of a catalog entry
func SnapshotExercise(ex *Exercise) RoutineExercise {
	return RoutineExercise{
		ExerciseID: ex.ID,
		Name:       ex.Name,
		Reps:       ex.Reps,
		Weight:     ex.Weight,
		Duration:   ex.Duration,
		Rest:       ex.Rest,
	}
}

// RoutineExerciseFields updates the prescription of an embedded exercise; nil fields are kept
type RoutineExerciseFields struct {
	Reps     *string `json:"reps,omitempty"`
	Weight   *string `json:"weight,omitempty"`
	Duration *string `json:"duration,omitempty"`
	Rest     *string `json:"rest,omitempty"`
}

func (f RoutineExerciseFields) applyTo(ex *RoutineExercise) {
	if f.Reps != nil {
		ex.Reps = strings.TrimSpace(*f.Reps)
	}
	if f.Weight != nil {
		ex.Weight = strings.TrimSpace(*f.Weight)
	}
	if f.Duration != nil {
		ex.Duration = strings.TrimSpace(*f.Duration)
	}
	if f.Rest != nil {
		ex.Rest = strings.TrimSpace(*f.Rest)
	}
}

// Routine is a weekly plan. Days always holds exactly the five Weekdays keys.
type Routine struct {
	ID         string                        `json:"id"`
	Name       string                        `json:"name"`
	Discipline Discipline                    `json:"discipline"`
	Days       map[Weekday][]RoutineExercise `json:"days"`
	CreatedAt  time.Time                     `json:"created_at"`
	UpdatedAt  time.Time                     `json:"updated_at"`
}

// NewDraftRoutine returns an unsaved routine with five empty days
func NewDraftRoutine(discipline Discipline) Routine {
	if discipline == DisciplineNone {
		discipline = DefaultRoutineDiscipline
	}
	return Routine{
		Discipline: discipline,
		Days:       EmptyWeek(),
	}
}

// EmptyWeek returns a days map with every weekday present and empty
func EmptyWeek() map[Weekday][]RoutineExercise {
	days := make(map[Weekday][]RoutineExercise, len(Weekdays))
	for _, d := range Weekdays {
		days[d] = []RoutineExercise{}
	}
	return days
}

// NormalizeDays rebuilds Days with exactly the five weekday keys, dropping
// unknown keys and filling missing ones
func NormalizeDays(days map[Weekday][]RoutineExercise) map[Weekday][]RoutineExercise {
	out := EmptyWeek()
	for _, d := range Weekdays {
		if exs, ok := days[d]; ok && len(exs) > 0 {
			out[d] = append([]RoutineExercise(nil), exs...)
		}
	}
	return out
}

// Clone returns a deep copy of the routine
func (r Routine) Clone() Routine {
	c := r
	c.Days = NormalizeDays(r.Days)
	return c
}

// IsDraft reports whether the routine has never been saved
func (r Routine) IsDraft() bool {
	return r.ID == ""
}

// Validate checks the rules enforced before a save
func (r Routine) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "routine name is required")
	}
	if r.Discipline != DisciplineNone && !r.Discipline.IsValid() {
		return invalidDiscipline(r.Discipline)
	}
	return nil
}

// SetMeta replaces a metadata field: "name" or "discipline"
func (r *Routine) SetMeta(field, value string) error {
	switch field {
	case "name":
		r.Name = value
	case "discipline":
		d := Discipline(strings.TrimSpace(value))
		if d == DisciplineNone || !d.IsValid() {
			return invalidDiscipline(d)
		}
		r.Discipline = d
	default:
		return NewValidationError("field", fmt.Sprintf("unknown routine field %q", field))
	}
	return nil
}

// SetDay replaces the whole exercise list of day
func (r *Routine) SetDay(day Weekday, exercises []RoutineExercise) error {
	d, err := ParseWeekday(string(day))
	if err != nil {
		return err
	}
	if r.Days == nil {
		r.Days = EmptyWeek()
	}
	r.Days[d] = append([]RoutineExercise{}, exercises...)
	return nil
}

// DayExercise returns a copy of the exercise at index on day
func (r Routine) DayExercise(day Weekday, index int) (RoutineExercise, error) {
	exs := r.Days[day]
	if index < 0 || index >= len(exs) {
		return RoutineExercise{}, NewValidationError("index", fmt.Sprintf("no exercise at position %d on %s", index, day))
	}
	return exs[index], nil
}

// WithDayExerciseUpdated returns the day list with fields applied at index
func (r Routine) WithDayExerciseUpdated(day Weekday, index int, fields RoutineExerciseFields) ([]RoutineExercise, error) {
	if _, err := r.DayExercise(day, index); err != nil {
		return nil, err
	}
	exs := append([]RoutineExercise{}, r.Days[day]...)
	fields.applyTo(&exs[index])
	return exs, nil
}

// WithDayExerciseRemoved returns the day list without the exercise at index
func (r Routine) WithDayExerciseRemoved(day Weekday, index int) ([]RoutineExercise, error) {
	if _, err := r.DayExercise(day, index); err != nil {
		return nil, err
	}
	exs := make([]RoutineExercise, 0, len(r.Days[day])-1)
	exs = append(exs, r.Days[day][:index]...)
	return append(exs, r.Days[day][index+1:]...), nil
}

type RoutineRepository interface {
	List(ctx context.Context) ([]*Routine, error)
	GetByID(ctx context.Context, id string) (*Routine, error)
	// Create stores a new routine and assigns its ID
	Create(ctx context.Context, routine *Routine) error
	// Replace overwrites name, discipline and days of an existing routine
	Replace(ctx context.Context, routine *Routine) error
	Delete(ctx context.Context, id string) error
	// Watch streams all routines, sorted by name, on every change
	Watch(ctx context.Context) (*Feed[*Routine], error)
}
