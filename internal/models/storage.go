package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutRow is one logged exercise entry in the workouts table.
type WorkoutRow struct {
	ID           uuid.UUID `json:"id"`
	UserID       int       `json:"-"`
	ExerciseID   string    `json:"exercise_id"`
	ExerciseName string    `json:"exercise_name"`
	Sets         int       `json:"sets"`
	Reps         int       `json:"reps"`
	WeightKg     float64   `json:"weight_kg"`
	Notes        *string   `json:"notes,omitempty"`
	WorkoutDate  time.Time `json:"workout_date"`
	CreatedAt    time.Time `json:"created_at"`
}

// Volume returns sets × reps × weight.
func (w WorkoutRow) Volume() float64 {
	return float64(w.Sets*w.Reps) * w.WeightKg
}

// ExerciseRow is one entry of the exercise catalog.
type ExerciseRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}
