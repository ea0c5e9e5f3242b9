package storage

import (
	"context"
	"fmt"
	"time"
)

// ProgressPeriod holds one exercise's aggregated lifting stats for a period.
type ProgressPeriod struct {
	Period      string  `json:"period"`
	TopWeightKg float64 `json:"top_weight_kg"`
	VolumeKg    float64 `json:"volume_kg"`
	TotalSets   int     `json:"total_sets"`
	TotalReps   int     `json:"total_reps"`
	Sessions    int     `json:"sessions"`
}

// GetProgress returns per-period top weight and volume for one exercise,
// oldest period first so the result can be charted directly.
func (db *DB) GetProgress(ctx context.Context, userID int, exerciseID string, start, end time.Time, bucket string) ([]ProgressPeriod, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, workout_date)::date AS period,
		        MAX(weight_kg)::float8,
		        COALESCE(SUM(sets * reps * weight_kg), 0)::float8,
		        SUM(sets)::int,
		        SUM(sets * reps)::int,
		        COUNT(DISTINCT workout_date::date)::int
		 FROM workouts
		 WHERE user_id = $2 AND exercise_id = $3 AND workout_date >= $4 AND workout_date < $5
		 GROUP BY period
		 ORDER BY period ASC`,
		truncInterval(bucket), userID, exerciseID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}
	defer rows.Close()

	result := []ProgressPeriod{}
	for rows.Next() {
		var periodTime time.Time
		var p ProgressPeriod
		if err := rows.Scan(&periodTime, &p.TopWeightKg, &p.VolumeKg, &p.TotalSets, &p.TotalReps, &p.Sessions); err != nil {
			return nil, fmt.Errorf("scanning progress: %w", err)
		}
		p.Period = periodTime.Format("2006-01-02")
		result = append(result, p)
	}
	return result, rows.Err()
}

// truncInterval converts bucket strings like "week" or "1 month" to the
// interval name that date_trunc expects.
func truncInterval(bucket string) string {
	switch bucket {
	case "day", "1 day":
		return "day"
	case "week", "1 week":
		return "week"
	default:
		return "month"
	}
}
