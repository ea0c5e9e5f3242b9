package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/gymbro/internal/models"
	"github.com/claude/gymbro/internal/storage"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestQueryWorkouts verifies the workout filters are sent as dashboard query params.
func TestQueryWorkouts(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if got := q.Get("exercise"); got != "sentadilla" {
				t.Errorf("exercise=%q, want sentadilla", got)
			}
			if got := q.Get("from"); got != "2026-01-01T00:00:00Z" {
				t.Errorf("from=%q", got)
			}
			if got := q.Get("limit"); got != "20" {
				t.Errorf("limit=%q, want 20", got)
			}
			if q.Has("user_id") {
				t.Error("user id must not be sent")
			}
			writeTestJSON(t, w, []models.WorkoutRow{{ExerciseID: "sentadilla", Sets: 5, Reps: 5, WeightKg: 100}})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL + "/")
	rows, err := client.QueryWorkouts(context.Background(), storage.WorkoutQuery{
		UserID:     7,
		ExerciseID: "sentadilla",
		From:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Limit:      20,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].WeightKg != 100 {
		t.Errorf("rows = %+v", rows)
	}
}

// TestGetWorkoutStats verifies the HTTP client correctly parses a single struct response.
func TestGetWorkoutStats(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/stats": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, storage.WorkoutStats{UserName: "Ana", TotalWorkouts: 30, TotalVolumeKg: 12000})
		},
	})
	defer ts.Close()

	stats, err := NewHTTPClient(ts.URL).GetWorkoutStats(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalWorkouts != 30 || stats.UserName != "Ana" {
		t.Errorf("stats = %+v", stats)
	}
}

// TestGetProgress verifies progress params and array parsing.
func TestGetProgress(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/progress": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("exercise") != "press-banca" || q.Get("bucket") != "week" {
				t.Errorf("query = %v", q)
			}
			if q.Get("start") == "" || q.Get("end") == "" {
				t.Errorf("missing range: %v", q)
			}
			writeTestJSON(t, w, []storage.ProgressPeriod{{Period: "2026-01-05", TopWeightKg: 85}})
		},
	})
	defer ts.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periods, err := NewHTTPClient(ts.URL).GetProgress(context.Background(), 1, "press-banca", start, start.AddDate(0, 1, 0), "week")
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) != 1 || periods[0].TopWeightKg != 85 {
		t.Errorf("periods = %+v", periods)
	}
}

// TestGetMaxLiftsFiltersBoard verifies requested order and zero fill for
// exercises missing from the server board.
func TestGetMaxLiftsFiltersBoard(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/max-lifts": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []storage.MaxLift{
				{ExerciseID: "press-banca", ExerciseName: "Press banca", MaxWeightKg: 90},
				{ExerciseID: "sentadilla", ExerciseName: "Sentadilla", MaxWeightKg: 130},
			})
		},
	})
	defer ts.Close()

	got, err := NewHTTPClient(ts.URL).GetMaxLifts(context.Background(), 1, []string{"sentadilla", "dominadas"})
	if err != nil {
		t.Fatal(err)
	}
	want := []storage.MaxLift{
		{ExerciseID: "sentadilla", ExerciseName: "Sentadilla", MaxWeightKg: 130},
		{ExerciseID: "dominadas"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("max lifts mismatch (-want +got):\n%s", diff)
	}
}

// TestHTTPClientError verifies non-200 responses surface status and body.
func TestHTTPClientError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"db down"}`, http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).ListExercises(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "db down") {
		t.Errorf("error = %v", err)
	}
}

// TestGetArena verifies the remote client reads the dashboard arena route.
func TestGetArena(t *testing.T) {
	want := storage.Arena{
		Rivals: []storage.Rival{{
			UserProfile: storage.UserProfile{ID: 2, Login: "ana", DisplayName: "Ana"},
			MaxLifts:    []storage.MaxLift{{ExerciseID: "peso-muerto", ExerciseName: "Peso muerto", MaxWeightKg: 140}},
		}},
		UserMaxLifts: []storage.MaxLift{{ExerciseID: "peso-muerto", ExerciseName: "Peso muerto", MaxWeightKg: 150}},
	}
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/arena/rivals": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %s, want GET", r.Method)
			}
			writeTestJSON(t, w, want)
		},
	})
	defer ts.Close()

	got, err := NewHTTPClient(ts.URL).GetArena(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("arena mismatch (-want +got):\n%s", diff)
	}
}
