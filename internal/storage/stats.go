package storage

import (
	"context"
	"fmt"
	"math"
	"time"
)

// WorkoutStats holds the dashboard overview for one user.
type WorkoutStats struct {
	UserName              string                `json:"user_name"`
	TotalWorkouts         int64                 `json:"total_workouts"`
	TotalVolumeKg         float64               `json:"total_volume_kg"`
	DaysTrainedThisMonth  int                   `json:"days_trained_this_month"`
	TrainingDaysThisMonth []string              `json:"training_days_this_month"`
	LastWorkoutDate       *time.Time            `json:"last_workout_date"`
	LastWorkoutExercises  []LastWorkoutExercise `json:"last_workout_exercises"`
}

// LastWorkoutExercise is one entry logged on the most recent training day.
type LastWorkoutExercise struct {
	ExerciseName string  `json:"exercise_name"`
	Sets         int     `json:"sets"`
	Reps         int     `json:"reps"`
	WeightKg     float64 `json:"weight_kg"`
}

// GetWorkoutStats returns aggregate statistics for a user's logged workouts.
// now anchors "this month".
func (db *DB) GetWorkoutStats(ctx context.Context, userID int, now time.Time) (*WorkoutStats, error) {
	stats := &WorkoutStats{
		TrainingDaysThisMonth: []string{},
		LastWorkoutExercises:  []LastWorkoutExercise{},
	}

	err := db.Pool.QueryRow(ctx,
		`SELECT COALESCE(NULLIF(display_name, ''), login) FROM users WHERE id = $1`, userID,
	).Scan(&stats.UserName)
	if err != nil {
		return nil, fmt.Errorf("querying user name: %w", err)
	}

	// Totals
	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(sets * reps * weight_kg), 0)::float8, MAX(workout_date)
		 FROM workouts WHERE user_id = $1`, userID,
	).Scan(&stats.TotalWorkouts, &stats.TotalVolumeKg, &stats.LastWorkoutDate)
	if err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}
	stats.TotalVolumeKg = math.Round(stats.TotalVolumeKg)

	// Distinct training days this month
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT workout_date::date AS day
		 FROM workouts
		 WHERE user_id = $1 AND workout_date >= $2
		 ORDER BY day`, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("querying training days: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scanning training day: %w", err)
		}
		stats.TrainingDaysThisMonth = append(stats.TrainingDaysThisMonth, day.Format("2006-01-02"))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats.DaysTrainedThisMonth = len(stats.TrainingDaysThisMonth)

	if stats.LastWorkoutDate == nil {
		return stats, nil
	}

	// Everything logged on the last training day
	lastRows, err := db.Pool.Query(ctx,
		`SELECT e.name, w.sets, w.reps, w.weight_kg::float8
		 FROM workouts w JOIN exercises e ON e.id = w.exercise_id
		 WHERE w.user_id = $1 AND w.workout_date::date = $2::date
		 ORDER BY w.workout_date DESC`, userID, *stats.LastWorkoutDate)
	if err != nil {
		return nil, fmt.Errorf("querying last workout: %w", err)
	}
	defer lastRows.Close()
	for lastRows.Next() {
		var e LastWorkoutExercise
		if err := lastRows.Scan(&e.ExerciseName, &e.Sets, &e.Reps, &e.WeightKg); err != nil {
			return nil, fmt.Errorf("scanning last workout: %w", err)
		}
		stats.LastWorkoutExercises = append(stats.LastWorkoutExercises, e)
	}
	return stats, lastRows.Err()
}
