package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/claude/gymbro/internal/dialogue"
	"github.com/claude/gymbro/internal/models"
)

// ListExercises returns the exercise catalog ordered by name.
func (db *DB) ListExercises(ctx context.Context) ([]models.ExerciseRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, category FROM exercises ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseRow
	for rows.Next() {
		var e models.ExerciseRow
		if err := rows.Scan(&e.ID, &e.Name, &e.Category); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetExercise returns a single catalog entry.
func (db *DB) GetExercise(ctx context.Context, id string) (*models.ExerciseRow, error) {
	var e models.ExerciseRow
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, category FROM exercises WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise: %w", err)
	}
	return &e, nil
}

// Catalog exposes the exercise table to the dialogue manager.
func (db *DB) Catalog() dialogue.Catalog {
	return catalog{db}
}

type catalog struct{ db *DB }

func (c catalog) ListExercises(ctx context.Context) ([]dialogue.Exercise, error) {
	rows, err := c.db.ListExercises(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dialogue.Exercise, len(rows))
	for i, r := range rows {
		out[i] = dialogue.Exercise{ID: r.ID, Name: r.Name, Category: r.Category}
	}
	return out, nil
}

// ExerciseSummary holds aggregated stats for a single exercise.
type ExerciseSummary struct {
	ExerciseID  string    `json:"exercise_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Entries     int       `json:"entries"`
	TotalSets   int       `json:"total_sets"`
	TotalReps   int       `json:"total_reps"`
	TonnageKg   float64   `json:"tonnage_kg"`
	MaxWeightKg float64   `json:"max_weight_kg"`
	LastLogged  time.Time `json:"last_logged"`
}

// GetExerciseSummaries returns per-exercise totals for every exercise the user
// has logged, most tonnage first.
func (db *DB) GetExerciseSummaries(ctx context.Context, userID int) ([]ExerciseSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT e.id, e.name, e.category,
		        COUNT(*)::int,
		        SUM(w.sets)::int,
		        SUM(w.sets * w.reps)::int,
		        SUM(w.sets * w.reps * w.weight_kg)::float8,
		        MAX(w.weight_kg)::float8,
		        MAX(w.workout_date)
		 FROM workouts w JOIN exercises e ON e.id = w.exercise_id
		 WHERE w.user_id = $1
		 GROUP BY e.id, e.name, e.category
		 ORDER BY SUM(w.sets * w.reps * w.weight_kg) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise summaries: %w", err)
	}
	defer rows.Close()

	result := []ExerciseSummary{}
	for rows.Next() {
		var s ExerciseSummary
		if err := rows.Scan(&s.ExerciseID, &s.Name, &s.Category, &s.Entries, &s.TotalSets,
			&s.TotalReps, &s.TonnageKg, &s.MaxWeightKg, &s.LastLogged); err != nil {
			return nil, fmt.Errorf("scanning exercise summary: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
