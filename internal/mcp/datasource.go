package mcp

import (
	"context"
	"time"

	"github.com/claude/gymbro/internal/bot"
	"github.com/claude/gymbro/internal/models"
	"github.com/claude/gymbro/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QueryWorkouts(ctx context.Context, q storage.WorkoutQuery) ([]models.WorkoutRow, error)
	GetWorkoutStats(ctx context.Context, userID int, now time.Time) (*storage.WorkoutStats, error)
	GetProgress(ctx context.Context, userID int, exerciseID string, start, end time.Time, bucket string) ([]storage.ProgressPeriod, error)
	ListExercises(ctx context.Context) ([]models.ExerciseRow, error)
	GetMaxLifts(ctx context.Context, userID int, exerciseIDs []string) ([]storage.MaxLift, error)
	GetArena(ctx context.Context, userID int) (*storage.Arena, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)

// Chat feeds a message into the intake bot. Only available in local mode.
type Chat interface {
	Handle(ctx context.Context, msg bot.Message) bot.Reply
}
