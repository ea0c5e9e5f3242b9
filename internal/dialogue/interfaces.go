// Package dialogue implements the workout intake state machine: it keeps one
// draft per conversation, feeds utterances to an extraction oracle, merges the
// result and decides whether to ask again, ask for confirmation or commit.
package dialogue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrOracleUnavailable wraps transport and provider failures of the oracle.
	ErrOracleUnavailable = errors.New("oracle unavailable")
	// ErrMalformedOutput wraps oracle responses that cannot be decoded.
	ErrMalformedOutput = errors.New("oracle returned malformed output")
)

// Exercise is one catalog entry.
type Exercise struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Extractor maps an utterance plus the current draft into structured fields.
type Extractor interface {
	Extract(ctx context.Context, utterance string, draft Draft, catalog []Exercise) (Extraction, error)
}

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Catalog lists the exercises the oracle may match against.
type Catalog interface {
	ListExercises(ctx context.Context) ([]Exercise, error)
}

// Workout is a complete draft ready to be persisted.
type Workout struct {
	UserID       int
	ExerciseID   string
	ExerciseName string
	Sets         int
	Reps         int
	WeightKg     float64
	Date         time.Time
}

// Committer persists completed workouts.
type Committer interface {
	CommitWorkout(ctx context.Context, w Workout) error
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, utterance string, draft Draft, catalog []Exercise) (Extraction, error)

func (f ExtractorFunc) Extract(ctx context.Context, utterance string, draft Draft, catalog []Exercise) (Extraction, error) {
	return f(ctx, utterance, draft, catalog)
}

// StaticCatalog serves a fixed list of exercises.
type StaticCatalog []Exercise

func (c StaticCatalog) ListExercises(context.Context) ([]Exercise, error) {
	out := make([]Exercise, len(c))
	copy(out, c)
	return out, nil
}
