package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/gymbro/internal/dialogue"
	"github.com/claude/gymbro/internal/models"
)

const workoutColumns = `w.id, w.user_id, w.exercise_id, e.name, w.sets, w.reps, w.weight_kg::float8,
	w.notes, w.workout_date, w.created_at`

// InsertWorkout inserts a workout row. A zero ID is replaced with a new UUID.
func (db *DB) InsertWorkout(ctx context.Context, row models.WorkoutRow) (uuid.UUID, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.WorkoutDate.IsZero() {
		row.WorkoutDate = time.Now()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workouts (id, user_id, exercise_id, sets, reps, weight_kg, notes, workout_date)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		row.ID, row.UserID, row.ExerciseID, row.Sets, row.Reps, row.WeightKg, row.Notes, row.WorkoutDate)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting workout: %w", err)
	}
	return row.ID, nil
}

// CommitWorkout persists a workout completed in a chat conversation.
func (db *DB) CommitWorkout(ctx context.Context, w dialogue.Workout) error {
	_, err := db.InsertWorkout(ctx, models.WorkoutRow{
		UserID:      w.UserID,
		ExerciseID:  w.ExerciseID,
		Sets:        w.Sets,
		Reps:        w.Reps,
		WeightKg:    w.WeightKg,
		WorkoutDate: w.Date,
	})
	return err
}

// WorkoutQuery filters QueryWorkouts. Zero values mean "no filter".
type WorkoutQuery struct {
	UserID     int
	ExerciseID string
	From       time.Time
	To         time.Time
	Limit      int
}

// DefaultWorkoutLimit caps listings that do not specify a limit.
const DefaultWorkoutLimit = 50

// QueryWorkouts lists a user's workouts newest first.
func (db *DB) QueryWorkouts(ctx context.Context, q WorkoutQuery) ([]models.WorkoutRow, error) {
	where := []string{"w.user_id = $1"}
	args := []any{q.UserID}
	if q.ExerciseID != "" {
		args = append(args, q.ExerciseID)
		where = append(where, fmt.Sprintf("w.exercise_id = $%d", len(args)))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		where = append(where, fmt.Sprintf("w.workout_date >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where = append(where, fmt.Sprintf("w.workout_date < $%d", len(args)))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultWorkoutLimit
	}
	args = append(args, limit)

	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts w JOIN exercises e ON e.id = w.exercise_id
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY w.workout_date DESC, w.created_at DESC
		 LIMIT $`+fmt.Sprint(len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	return scanWorkoutRows(rows)
}

// RecentWorkouts returns the user's last n workouts.
func (db *DB) RecentWorkouts(ctx context.Context, userID, n int) ([]models.WorkoutRow, error) {
	return db.QueryWorkouts(ctx, WorkoutQuery{UserID: userID, Limit: n})
}

// GetWorkout retrieves a single workout by ID.
func (db *DB) GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*models.WorkoutRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+`
		 FROM workouts w JOIN exercises e ON e.id = w.exercise_id
		 WHERE w.id = $1 AND w.user_id = $2`,
		workoutID, userID)

	w, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}
	return &w, nil
}

// UpdateWorkout overwrites the editable fields of a workout.
func (db *DB) UpdateWorkout(ctx context.Context, row models.WorkoutRow) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workouts
		 SET exercise_id = $3, sets = $4, reps = $5, weight_kg = $6, notes = $7, workout_date = $8
		 WHERE id = $1 AND user_id = $2`,
		row.ID, row.UserID, row.ExerciseID, row.Sets, row.Reps, row.WeightKg, row.Notes, row.WorkoutDate)
	if err != nil {
		return fmt.Errorf("updating workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWorkout removes a workout.
func (db *DB) DeleteWorkout(ctx context.Context, workoutID uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workouts WHERE id = $1 AND user_id = $2`, workoutID, userID)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row rowScanner) (models.WorkoutRow, error) {
	var w models.WorkoutRow
	err := row.Scan(&w.ID, &w.UserID, &w.ExerciseID, &w.ExerciseName, &w.Sets, &w.Reps,
		&w.WeightKg, &w.Notes, &w.WorkoutDate, &w.CreatedAt)
	return w, err
}

func scanWorkoutRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.WorkoutRow, error) {
	var result []models.WorkoutRow
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}
