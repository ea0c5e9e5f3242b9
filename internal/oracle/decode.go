// Package oracle turns free-text workout descriptions into structured draft
// fields using a language model. Model output is never trusted: every field
// is validated by Decode before it reaches the dialogue.
package oracle

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/claude/gymbro/internal/dialogue"
)

// payload is the JSON object the model is asked to return. It doubles as the
// schema source for providers that support structured output.
type payload struct {
	ExerciseID         *string  `json:"exerciseId,omitempty" jsonschema_description:"id of the matching catalog exercise"`
	ExerciseName       *string  `json:"exerciseName,omitempty" jsonschema_description:"exercise name as it appears in the catalog"`
	ExerciseConfidence *string  `json:"exerciseConfidence,omitempty" jsonschema:"enum=high,enum=medium,enum=low" jsonschema_description:"certainty of the catalog match"`
	WeightKg           *float64 `json:"weightKg,omitempty" jsonschema_description:"weight lifted in kilograms"`
	Sets               *int     `json:"sets,omitempty" jsonschema_description:"number of sets"`
	Reps               *int     `json:"reps,omitempty" jsonschema_description:"repetitions per set"`
	WorkoutDate        *string  `json:"workoutDate,omitempty" jsonschema_description:"workout date as YYYY-MM-DD when the user mentions one"`
	Reply              *string  `json:"reply,omitempty" jsonschema_description:"short Spanish reply asking for whatever is still missing"`
}

// Decode extracts the first JSON object from raw model output and validates
// it field by field. Invalid fields are dropped, not reported; only a missing
// or unparsable object is an error.
func Decode(raw string, catalog []dialogue.Exercise) (dialogue.Extraction, error) {
	obj, ok := outermostObject(raw)
	if !ok {
		return dialogue.Extraction{}, fmt.Errorf("%w: no JSON object in response", dialogue.ErrMalformedOutput)
	}
	var fields map[string]any
	if err := sonic.UnmarshalString(obj, &fields); err != nil {
		return dialogue.Extraction{}, fmt.Errorf("%w: %v", dialogue.ErrMalformedOutput, err)
	}

	var x dialogue.Extraction
	x.Exercise = decodeExercise(fields, catalog)
	if v, ok := fields["weightKg"].(float64); ok && !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0 {
		x.WeightKg = &v
	}
	x.Sets = positiveInt(fields["sets"])
	x.Reps = positiveInt(fields["reps"])
	if s, ok := fields["workoutDate"].(string); ok {
		if t, ok := parseDate(s); ok {
			x.WorkoutDate = &t
		}
	}
	if s, ok := fields["reply"].(string); ok && strings.TrimSpace(s) != "" {
		x.Reply = strings.TrimSpace(s)
	}
	return x, nil
}

func outermostObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func decodeExercise(fields map[string]any, catalog []dialogue.Exercise) *dialogue.ExerciseRef {
	id, _ := fields["exerciseId"].(string)
	name, _ := fields["exerciseName"].(string)
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)

	var match *dialogue.Exercise
	if id != "" {
		for i := range catalog {
			if catalog[i].ID == id {
				match = &catalog[i]
				break
			}
		}
	}
	if match == nil && name != "" {
		for i := range catalog {
			if strings.EqualFold(catalog[i].Name, name) {
				match = &catalog[i]
				break
			}
		}
	}
	if match == nil {
		return nil
	}

	confidence := dialogue.ConfidenceMedium
	if s, ok := fields["exerciseConfidence"].(string); ok {
		if c := dialogue.Confidence(strings.ToLower(strings.TrimSpace(s))); c.Valid() {
			confidence = c
		}
	}
	return &dialogue.ExerciseRef{ID: match.ID, Name: match.Name, Confidence: confidence}
}

func positiveInt(v any) *int {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
