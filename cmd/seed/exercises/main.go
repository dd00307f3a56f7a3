package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mansoorceksport/gymdesk/internal/config"
	"github.com/mansoorceksport/gymdesk/internal/domain"
	"github.com/mansoorceksport/gymdesk/internal/repository"
)

// catalog is the starter exercise list. Prescriptions are defaults copied into
// routines and edited there.
var catalog = []domain.ExerciseInput{
	// Strength
	{Name: "Barbell Squat", Reps: "5x5", Weight: "60", Rest: "120s"},
	{Name: "Deadlift", Reps: "5x3", Weight: "80", Rest: "180s"},
	{Name: "Barbell Bench Press", Reps: "5x5", Weight: "50", Rest: "120s"},
	{Name: "Overhead Press", Reps: "4x6", Weight: "30", Rest: "90s"},
	{Name: "Barbell Row", Reps: "4x8", Weight: "40", Rest: "90s"},
	{Name: "Romanian Deadlift", Reps: "3x10", Weight: "50", Rest: "90s"},
	{Name: "Pull Up", Reps: "4x6", Rest: "90s"},
	{Name: "Dips", Reps: "3x10", Rest: "60s"},

	// Functional
	{Name: "Goblet Squat", Reps: "3x12", Weight: "16", Rest: "60s"},
	{Name: "Walking Lunge", Reps: "3x20", Weight: "10", Rest: "60s"},
	{Name: "Kettlebell Swing", Reps: "4x15", Weight: "16", Rest: "60s"},
	{Name: "Farmer Carry", Duration: "40s", Weight: "24", Rest: "60s"},
	{Name: "Plank", Duration: "45s", Rest: "30s"},
	{Name: "Russian Twist", Reps: "3x20", Rest: "30s"},
	{Name: "Mountain Climber", Duration: "30s", Rest: "30s"},
	{Name: "Glute Bridge", Reps: "3x15", Rest: "45s"},

	// Crossfit
	{Name: "Burpee", Reps: "5x10", Rest: "60s"},
	{Name: "Wall Ball", Reps: "5x15", Weight: "9", Rest: "60s"},
	{Name: "Box Jump", Reps: "5x10", Rest: "60s"},
	{Name: "Thruster", Reps: "5x10", Weight: "30", Rest: "90s"},
	{Name: "Double Under", Reps: "5x30", Rest: "45s"},
	{Name: "Rowing", Duration: "500m", Rest: "120s"},
	{Name: "Toes to Bar", Reps: "4x10", Rest: "60s"},
	{Name: "Power Clean", Reps: "5x3", Weight: "40", Rest: "120s"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := repository.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer stores.Close(context.Background())

	existing, err := stores.Exercises.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list exercises: %v", err)
	}
	known := make(map[string]bool, len(existing))
	for _, ex := range existing {
		known[strings.ToLower(ex.Name)] = true
	}

	created := 0
	for _, in := range catalog {
		if known[strings.ToLower(in.Name)] {
			fmt.Printf("Skipping existing: %s\n", in.Name)
			continue
		}
		ex, err := in.ToExercise()
		if err != nil {
			log.Printf("Invalid catalog entry %q: %v", in.Name, err)
			continue
		}
		if err := stores.Exercises.Create(ctx, ex); err != nil {
			log.Printf("Error creating %s: %v", in.Name, err)
			continue
		}
		created++
		fmt.Printf("Created: %s\n", ex.Name)
	}
	fmt.Printf("Seeding exercises complete (%d created).\n", created)
}
