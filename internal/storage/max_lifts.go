package storage

import (
	"context"
	"fmt"
)

// CoreExercises are the lifts compared on the max-lifts board.
var CoreExercises = []string{"press-banca", "sentadilla", "peso-muerto"}

// MaxLift is a user's heaviest logged weight for one exercise.
type MaxLift struct {
	ExerciseID   string  `json:"exercise_id"`
	ExerciseName string  `json:"exercise_name"`
	MaxWeightKg  float64 `json:"max_weight_kg"`
}

// GetMaxLifts returns the max weight per exercise in exerciseIDs, in the
// given order. Exercises never logged report 0.
func (db *DB) GetMaxLifts(ctx context.Context, userID int, exerciseIDs []string) ([]MaxLift, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT e.id, e.name, COALESCE(MAX(w.weight_kg), 0)::float8
		 FROM exercises e
		 LEFT JOIN workouts w ON w.exercise_id = e.id AND w.user_id = $1
		 WHERE e.id = ANY($2)
		 GROUP BY e.id, e.name
		 ORDER BY array_position($2, e.id)`,
		userID, exerciseIDs)
	if err != nil {
		return nil, fmt.Errorf("querying max lifts: %w", err)
	}
	defer rows.Close()

	result := []MaxLift{}
	for rows.Next() {
		var m MaxLift
		if err := rows.Scan(&m.ExerciseID, &m.ExerciseName, &m.MaxWeightKg); err != nil {
			return nil, fmt.Errorf("scanning max lift: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
