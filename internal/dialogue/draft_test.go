package dialogue

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

// TestMergeLastNonNullWins verifies that supplied fields overwrite and absent
// fields are inherited.
func TestMergeLastNonNullWins(t *testing.T) {
	current := Draft{
		Exercise: &ExerciseRef{ID: "bench", Name: "Press banca", Confidence: ConfidenceHigh},
		WeightKg: ptr(80.0),
	}
	got := Merge(current, Extraction{WeightKg: ptr(82.5), Sets: ptr(3)})

	want := Draft{
		Exercise: &ExerciseRef{ID: "bench", Name: "Press banca", Confidence: ConfidenceHigh},
		WeightKg: ptr(82.5),
		Sets:     ptr(3),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

// TestMergeReplacesExerciseWholesale verifies the reference is never mixed
// field by field.
func TestMergeReplacesExerciseWholesale(t *testing.T) {
	current := Draft{Exercise: &ExerciseRef{ID: "bench", Name: "Press banca", Confidence: ConfidenceHigh}}
	got := Merge(current, Extraction{Exercise: &ExerciseRef{ID: "squat", Name: "Sentadilla", Confidence: ConfidenceLow}})

	want := &ExerciseRef{ID: "squat", Name: "Sentadilla", Confidence: ConfidenceLow}
	if diff := cmp.Diff(want, got.Exercise); diff != "" {
		t.Errorf("exercise mismatch (-want +got):\n%s", diff)
	}
}

// TestMergeDoesNotMutateInputs verifies the pure-function contract.
func TestMergeDoesNotMutateInputs(t *testing.T) {
	current := Draft{WeightKg: ptr(80.0)}
	x := Extraction{WeightKg: ptr(90.0)}
	got := Merge(current, x)

	*got.WeightKg = 1
	if *current.WeightKg != 80 {
		t.Errorf("current mutated: %v", *current.WeightKg)
	}
	if *x.WeightKg != 90 {
		t.Errorf("extraction mutated: %v", *x.WeightKg)
	}
}

// TestMergeKeepsPendingConfirmation verifies the flag is not touched by extraction.
func TestMergeKeepsPendingConfirmation(t *testing.T) {
	got := Merge(Draft{PendingConfirmation: true}, Extraction{Sets: ptr(4)})
	if !got.PendingConfirmation {
		t.Error("pending confirmation lost in merge")
	}
}

// TestMissingOrder verifies missing fields come back in canonical order and
// invalid numbers count as missing.
func TestMissingOrder(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		want  []Field
	}{
		{"empty", Draft{}, []Field{FieldExercise, FieldWeight, FieldSets, FieldReps}},
		{"exercise only", Draft{Exercise: &ExerciseRef{ID: "bench", Name: "Press banca"}}, []Field{FieldWeight, FieldSets, FieldReps}},
		{"exercise without id", Draft{Exercise: &ExerciseRef{Name: "Press banca"}}, []Field{FieldExercise, FieldWeight, FieldSets, FieldReps}},
		{"zero weight", Draft{
			Exercise: &ExerciseRef{ID: "bench"}, WeightKg: ptr(0.0), Sets: ptr(3), Reps: ptr(8),
		}, []Field{FieldWeight}},
		{"NaN weight", Draft{
			Exercise: &ExerciseRef{ID: "bench"}, WeightKg: ptr(math.NaN()), Sets: ptr(3), Reps: ptr(8),
		}, []Field{FieldWeight}},
		{"negative reps", Draft{
			Exercise: &ExerciseRef{ID: "bench"}, WeightKg: ptr(50.0), Sets: ptr(3), Reps: ptr(-1),
		}, []Field{FieldReps}},
		{"complete", Draft{
			Exercise: &ExerciseRef{ID: "bench"}, WeightKg: ptr(50.0), Sets: ptr(3), Reps: ptr(8),
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.draft.Missing()); diff != "" {
				t.Errorf("Missing() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestStateOf verifies resting states derived from the draft.
func TestStateOf(t *testing.T) {
	if got := StateOf(Draft{}); got != StateIdle {
		t.Errorf("empty = %q, want idle", got)
	}
	if got := StateOf(Draft{Sets: ptr(3)}); got != StateCollecting {
		t.Errorf("partial = %q, want collecting", got)
	}
	if got := StateOf(Draft{Exercise: &ExerciseRef{Name: "x"}, PendingConfirmation: true}); got != StateAwaitingConfirmation {
		t.Errorf("pending = %q, want awaiting_confirmation", got)
	}
}

// TestCloneIsDeep verifies that a clone shares no pointers with the original.
func TestCloneIsDeep(t *testing.T) {
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	d := Draft{
		Exercise:    &ExerciseRef{ID: "bench", Name: "Press banca"},
		WeightKg:    ptr(60.0),
		Sets:        ptr(3),
		Reps:        ptr(10),
		WorkoutDate: &date,
	}
	c := d.Clone()
	c.Exercise.Name = "changed"
	*c.Sets = 99
	if d.Exercise.Name != "Press banca" || *d.Sets != 3 {
		t.Error("clone shares state with original")
	}
}

// TestIsAffirmative verifies the accepted confirmation vocabulary.
func TestIsAffirmative(t *testing.T) {
	for _, text := range []string{"sí", "Si", "YES", "ok", "Confirmar", "correcto!"} {
		if !IsAffirmative(text) {
			t.Errorf("IsAffirmative(%q) = false, want true", text)
		}
	}
	for _, text := range []string{"no", "nope", "otro ejercicio"} {
		if IsAffirmative(text) {
			t.Errorf("IsAffirmative(%q) = true, want false", text)
		}
	}
}

// TestMissingPrompt verifies one question per missing field in order.
func TestMissingPrompt(t *testing.T) {
	got := MissingPrompt([]Field{FieldSets, FieldReps})
	want := "¿Cuántas series hiciste? ¿Cuántas repeticiones por serie?"
	if got != want {
		t.Errorf("MissingPrompt = %q, want %q", got, want)
	}
}
