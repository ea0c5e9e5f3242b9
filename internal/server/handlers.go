package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/gymbro/internal/models"
	"github.com/claude/gymbro/internal/storage"
)

const (
	maxWorkoutLimit = 500
	maxPatchBytes   = 64 << 10
	progressWindow  = 180
	defaultBucket   = "month"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.ListExercises(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleExerciseSummaries(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.GetExerciseSummaries(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleQueryWorkouts(w http.ResponseWriter, r *http.Request) {
	q := storage.WorkoutQuery{
		UserID:     userIDFromContext(r),
		ExerciseID: r.URL.Query().Get("exercise"),
		Limit:      storage.DefaultWorkoutLimit,
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		q.Limit = min(n, maxWorkoutLimit)
	}

	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if q.From, err = parseTimeParam(v, false); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from: " + err.Error()})
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if q.To, err = parseTimeParam(v, true); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to: " + err.Error()})
			return
		}
	}

	rows, err := s.db.QueryWorkouts(r.Context(), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []models.WorkoutRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}

	row, err := s.db.GetWorkout(r.Context(), id, userIDFromContext(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// workoutPatch is the editable view of a workout. PATCH bodies are JSON merge
// patches (RFC 7396) applied to it.
type workoutPatch struct {
	ExerciseID  string    `json:"exercise_id"`
	Sets        int       `json:"sets"`
	Reps        int       `json:"reps"`
	WeightKg    float64   `json:"weight_kg"`
	WorkoutDate time.Time `json:"workout_date"`
	Notes       *string   `json:"notes"`
}

var patchFields = map[string]bool{
	"exercise_id": true, "sets": true, "reps": true,
	"weight_kg": true, "workout_date": true, "notes": true,
}

func (s *Server) handlePatchWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	userID := userIDFromContext(r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPatchBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading body: " + err.Error()})
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(fields) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no update fields provided"})
		return
	}
	for k := range fields {
		if !patchFields[k] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field not editable: " + k})
			return
		}
	}

	row, err := s.db.GetWorkout(r.Context(), id, userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	original, err := json.Marshal(workoutPatch{
		ExerciseID:  row.ExerciseID,
		Sets:        row.Sets,
		Reps:        row.Reps,
		WeightKg:    row.WeightKg,
		WorkoutDate: row.WorkoutDate,
		Notes:       row.Notes,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	merged, err := jsonpatch.MergePatch(original, body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid merge patch: " + err.Error()})
		return
	}

	var upd workoutPatch
	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid field value: " + err.Error()})
		return
	}
	if err := validatePatch(upd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if upd.ExerciseID != row.ExerciseID {
		if _, err := s.db.GetExercise(r.Context(), upd.ExerciseID); errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown exercise: " + upd.ExerciseID})
			return
		} else if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	row.ExerciseID = upd.ExerciseID
	row.Sets = upd.Sets
	row.Reps = upd.Reps
	row.WeightKg = upd.WeightKg
	row.WorkoutDate = upd.WorkoutDate
	row.Notes = upd.Notes
	if err := s.db.UpdateWorkout(r.Context(), *row); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
			return
		}
		s.log.Error("updating workout", "workout_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	updated, err := s.db.GetWorkout(r.Context(), id, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func validatePatch(p workoutPatch) error {
	switch {
	case p.ExerciseID == "":
		return errors.New("exercise_id is required")
	case p.Sets <= 0:
		return errors.New("sets must be a positive integer")
	case p.Reps <= 0:
		return errors.New("reps must be a positive integer")
	case p.WeightKg <= 0:
		return errors.New("weight_kg must be positive")
	case p.WorkoutDate.IsZero():
		return errors.New("workout_date is required")
	}
	return nil
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}

	err := s.db.DeleteWorkout(r.Context(), id, userIDFromContext(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetWorkoutStats(r.Context(), userIDFromContext(r), s.now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	exercise := r.URL.Query().Get("exercise")
	if exercise == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise parameter required"})
		return
	}

	bucket := r.URL.Query().Get("bucket")
	switch bucket {
	case "":
		bucket = defaultBucket
	case "week", "month":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bucket must be week or month"})
		return
	}

	start, end, err := parseTimeRange(r, progressWindow)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	periods, err := s.db.GetProgress(r.Context(), userIDFromContext(r), exercise, start, end, bucket)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if periods == nil {
		periods = []storage.ProgressPeriod{}
	}
	writeJSON(w, http.StatusOK, periods)
}

func (s *Server) handleMaxLifts(w http.ResponseWriter, r *http.Request) {
	lifts, err := s.db.GetMaxLifts(r.Context(), userIDFromContext(r), storage.CoreExercises)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, lifts)
}

func workoutID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseTimeRange reads the start/end query parameters. Without a start the
// range covers the last defaultDays days.
func parseTimeRange(r *http.Request, defaultDays int) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if endStr == "" {
		end = time.Now()
	} else if end, err = parseTimeParam(endStr, true); err != nil {
		return time.Time{}, time.Time{}, err
	}

	if startStr == "" {
		return end.AddDate(0, 0, -defaultDays), end, nil
	}
	if start, err = parseTimeParam(startStr, false); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start must be before end")
	}
	return start, end, nil
}

// parseTimeParam accepts RFC 3339 or YYYY-MM-DD. A date-only end bound is
// moved to the end of that day.
func parseTimeParam(v string, isEnd bool) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	if isEnd {
		t = t.Add(24 * time.Hour)
	}
	return t, nil
}
