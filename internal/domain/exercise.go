package domain

import (
	"context"
	"strings"
	"time"
)

// Exercise is an entry of the exercise catalog. Prescription fields are free text
// (e.g. reps "4x10", weight "20", duration "45s").
type Exercise struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Reps      string    `json:"reps,omitempty"`
	Weight    string    `json:"weight,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	Rest      string    `json:"rest,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExerciseInput is the payload for adding a catalog entry
type ExerciseInput struct {
	Name     string `json:"name"`
	Reps     string `json:"reps"`
	Weight   string `json:"weight"`
	Duration string `json:"duration"`
	Rest     string `json:"rest"`
}

// ToExercise validates the input and builds the catalog entry
func (in ExerciseInput) ToExercise() (*Exercise, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, NewValidationError("name", "exercise name is required")
	}
	return &Exercise{
		Name:     name,
		Reps:     strings.TrimSpace(in.Reps),
		Weight:   strings.TrimSpace(in.Weight),
		Duration: strings.TrimSpace(in.Duration),
		Rest:     strings.TrimSpace(in.Rest),
	}, nil
}

type ExerciseRepository interface {
	List(ctx context.Context) ([]*Exercise, error)
	Create(ctx context.Context, exercise *Exercise) error
	Delete(ctx context.Context, id string) error
	// Watch streams the full catalog, sorted by name, on every change
	Watch(ctx context.Context) (*Feed[*Exercise], error)
}
