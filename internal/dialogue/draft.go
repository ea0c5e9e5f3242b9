package dialogue

import (
	"math"
	"time"
)

// Confidence is the oracle's certainty that a free-text exercise mention maps
// to a specific catalog entry.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is one of the known confidence levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// ExerciseRef points into the exercise catalog.
type ExerciseRef struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Confidence Confidence `json:"confidence"`
}

// Field names a required draft field. The order of RequiredFields is the order
// follow-up questions are asked in.
type Field string

const (
	FieldExercise Field = "exercise"
	FieldWeight   Field = "weight"
	FieldSets     Field = "sets"
	FieldReps     Field = "reps"
)

var RequiredFields = []Field{FieldExercise, FieldWeight, FieldSets, FieldReps}

// Draft is the in-progress workout record of one conversation.
type Draft struct {
	Exercise            *ExerciseRef `json:"exercise,omitempty"`
	WeightKg            *float64     `json:"weightKg,omitempty"`
	Sets                *int         `json:"sets,omitempty"`
	Reps                *int         `json:"reps,omitempty"`
	WorkoutDate         *time.Time   `json:"workoutDate,omitempty"`
	PendingConfirmation bool         `json:"pendingConfirmation,omitempty"`
}

// Empty reports whether no field has been collected yet.
func (d Draft) Empty() bool {
	return d.Exercise == nil && d.WeightKg == nil && d.Sets == nil &&
		d.Reps == nil && d.WorkoutDate == nil && !d.PendingConfirmation
}

// Missing returns the required fields that are absent or invalid, in
// RequiredFields order. Numeric fields count as missing when non-finite or <= 0.
func (d Draft) Missing() []Field {
	var missing []Field
	if d.Exercise == nil || d.Exercise.ID == "" {
		missing = append(missing, FieldExercise)
	}
	if d.WeightKg == nil || !positive(*d.WeightKg) {
		missing = append(missing, FieldWeight)
	}
	if d.Sets == nil || !positive(float64(*d.Sets)) {
		missing = append(missing, FieldSets)
	}
	if d.Reps == nil || !positive(float64(*d.Reps)) {
		missing = append(missing, FieldReps)
	}
	return missing
}

// Complete reports whether the draft can be committed.
func (d Draft) Complete() bool {
	return len(d.Missing()) == 0
}

// Clone returns a deep copy so callers never share pointers with a stored draft.
func (d Draft) Clone() Draft {
	out := Draft{PendingConfirmation: d.PendingConfirmation}
	if d.Exercise != nil {
		ref := *d.Exercise
		out.Exercise = &ref
	}
	if d.WeightKg != nil {
		v := *d.WeightKg
		out.WeightKg = &v
	}
	if d.Sets != nil {
		v := *d.Sets
		out.Sets = &v
	}
	if d.Reps != nil {
		v := *d.Reps
		out.Reps = &v
	}
	if d.WorkoutDate != nil {
		v := *d.WorkoutDate
		out.WorkoutDate = &v
	}
	return out
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Extraction is the validated result of one oracle call. A nil field means the
// oracle did not supply it.
type Extraction struct {
	Exercise    *ExerciseRef
	WeightKg    *float64
	Sets        *int
	Reps        *int
	WorkoutDate *time.Time
	Reply       string
}

// Merge applies "last non-null wins": every field present in x replaces the
// corresponding draft field, everything else is inherited from current. The
// exercise reference is replaced as a whole. Merge never mutates its inputs.
func Merge(current Draft, x Extraction) Draft {
	out := current.Clone()
	if x.Exercise != nil {
		ref := *x.Exercise
		out.Exercise = &ref
	}
	if x.WeightKg != nil {
		v := *x.WeightKg
		out.WeightKg = &v
	}
	if x.Sets != nil {
		v := *x.Sets
		out.Sets = &v
	}
	if x.Reps != nil {
		v := *x.Reps
		out.Reps = &v
	}
	if x.WorkoutDate != nil {
		v := *x.WorkoutDate
		out.WorkoutDate = &v
	}
	return out
}

// State is the dialogue state of a conversation.
type State string

const (
	StateIdle                 State = "idle"
	StateCollecting           State = "collecting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateCommitting           State = "committing"
)

// StateOf derives the resting state of a stored draft. Committing is never a
// resting state.
func StateOf(d Draft) State {
	switch {
	case d.PendingConfirmation:
		return StateAwaitingConfirmation
	case d.Empty():
		return StateIdle
	default:
		return StateCollecting
	}
}
