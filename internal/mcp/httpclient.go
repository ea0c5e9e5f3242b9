package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/gymbro/internal/models"
	"github.com/claude/gymbro/internal/storage"
)

// HTTPClient implements DataSource by calling the GymBro REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	if !start.IsZero() {
		v.Set("start", start.Format(time.RFC3339))
	}
	if !end.IsZero() {
		v.Set("end", end.Format(time.RFC3339))
	}
	return v
}

// QueryWorkouts lists workouts. The server resolves the user from the tailnet
// identity, so q.UserID is not sent.
func (c *HTTPClient) QueryWorkouts(ctx context.Context, q storage.WorkoutQuery) ([]models.WorkoutRow, error) {
	params := url.Values{}
	if q.ExerciseID != "" {
		params.Set("exercise", q.ExerciseID)
	}
	if !q.From.IsZero() {
		params.Set("from", q.From.Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.Format(time.RFC3339))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var workouts []models.WorkoutRow
	if err := c.get(ctx, "/api/v1/workouts", params, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

func (c *HTTPClient) GetWorkoutStats(ctx context.Context, _ int, _ time.Time) (*storage.WorkoutStats, error) {
	var stats storage.WorkoutStats
	if err := c.get(ctx, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *HTTPClient) GetProgress(ctx context.Context, _ int, exerciseID string, start, end time.Time, bucket string) ([]storage.ProgressPeriod, error) {
	params := timeParams(start, end)
	params.Set("exercise", exerciseID)
	if bucket != "" {
		params.Set("bucket", bucket)
	}

	var periods []storage.ProgressPeriod
	if err := c.get(ctx, "/api/v1/progress", params, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]models.ExerciseRow, error) {
	var exercises []models.ExerciseRow
	if err := c.get(ctx, "/api/v1/exercises", nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// GetArena fetches the caller's rival comparison.
func (c *HTTPClient) GetArena(ctx context.Context, _ int) (*storage.Arena, error) {
	var arena storage.Arena
	if err := c.get(ctx, "/api/v1/arena/rivals", nil, &arena); err != nil {
		return nil, err
	}
	return &arena, nil
}

// GetMaxLifts fetches the server's core lift board and keeps the requested
// exercises, in request order. IDs outside the core lifts report 0.
func (c *HTTPClient) GetMaxLifts(ctx context.Context, _ int, exerciseIDs []string) ([]storage.MaxLift, error) {
	var board []storage.MaxLift
	if err := c.get(ctx, "/api/v1/max-lifts", nil, &board); err != nil {
		return nil, err
	}

	byID := make(map[string]storage.MaxLift, len(board))
	for _, l := range board {
		byID[l.ExerciseID] = l
	}
	out := make([]storage.MaxLift, 0, len(exerciseIDs))
	for _, id := range exerciseIDs {
		l, ok := byID[id]
		if !ok {
			l = storage.MaxLift{ExerciseID: id}
		}
		out = append(out, l)
	}
	return out, nil
}
