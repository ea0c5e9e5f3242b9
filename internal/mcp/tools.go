package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/gymbro/internal/bot"
	"github.com/claude/gymbro/internal/storage"
)

// defaultTimeRange returns start/end defaulting to the days before now.
func defaultTimeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("List logged workouts newest first. Each entry is one exercise with sets, reps and weight in kg."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise ID (e.g. 'press-banca', 'sentadilla'). See list_exercises.")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts. Defaults to 50.")),
)

var toolGetWorkoutStats = mcp.NewTool("get_workout_stats",
	mcp.WithDescription("Overall training stats: total workouts, total volume (sets x reps x kg), distinct training days this month and the exercises of the last training day."),
)

var toolGetProgress = mcp.NewTool("get_progress",
	mcp.WithDescription("Per-period progress for one exercise: top weight, volume, sets, reps and sessions. Oldest period first."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise ID (e.g. 'sentadilla'). See list_exercises.")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 180 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to 'month'."), mcp.Enum("week", "month")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List the exercise catalog with IDs, Spanish names and muscle-group categories."),
)

var toolGetMaxLifts = mcp.NewTool("get_max_lifts",
	mcp.WithDescription("Heaviest weight ever logged per exercise. Exercises never logged report 0."),
	mcp.WithString("exercises", mcp.Description("Comma-separated exercise IDs. Defaults to the core lifts: press-banca, sentadilla, peso-muerto.")),
)

var toolGetRivals = mcp.NewTool("get_rivals",
	mcp.WithDescription("Compare the user's core-lift maxes (press-banca, sentadilla, peso-muerto) with each accepted rival's. Rivals without a logged lift report 0."),
)

var toolLogWorkoutMessage = mcp.NewTool("log_workout_message",
	mcp.WithDescription("Send a chat message to the GymBro intake bot, exactly as a user would (e.g. 'press banca 3x8 con 80 kilos'). The bot asks for missing fields and records the workout once complete. Slash commands like /cancel and /history work too."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Message text, in Spanish")),
	mcp.WithString("conversation", mcp.Description("Conversation key that holds the in-progress draft. Defaults to 'mcp'.")),
)

// --- Tool handlers ---

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 30)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	limit := req.GetInt("limit", storage.DefaultWorkoutLimit)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	workouts, err := h.ds.QueryWorkouts(ctx, storage.WorkoutQuery{
		UserID:     UserIDFromContext(ctx),
		ExerciseID: req.GetString("exercise", ""),
		From:       start,
		To:         end,
		Limit:      limit,
	})
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkoutStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.GetWorkoutStats(ctx, UserIDFromContext(ctx), time.Now())
	if err != nil {
		h.log.Error("mcp get_workout_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(stats)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 180)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	bucket := req.GetString("bucket", "month")
	if bucket != "week" && bucket != "month" {
		return mcp.NewToolResultError("bucket must be week or month"), nil
	}

	periods, err := h.ds.GetProgress(ctx, UserIDFromContext(ctx), exercise, start, end, bucket)
	if err != nil {
		h.log.Error("mcp get_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(periods)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(exercises)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getMaxLifts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := storage.CoreExercises
	if v := req.GetString("exercises", ""); v != "" {
		ids = nil
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return mcp.NewToolResultError("exercises must list at least one exercise ID"), nil
		}
	}

	lifts, err := h.ds.GetMaxLifts(ctx, UserIDFromContext(ctx), ids)
	if err != nil {
		h.log.Error("mcp get_max_lifts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(lifts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRivals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arena, err := h.ds.GetArena(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_rivals", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(arena)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) logWorkoutMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text parameter is required"), nil
	}

	conversation := req.GetString("conversation", "mcp")
	reply := h.chat.Handle(ctx, bot.Message{
		Conversation: "mcp:" + conversation,
		Login:        "local",
		DisplayName:  "Local Dev User",
		Text:         text,
	})
	h.log.Debug("mcp log_workout_message", "conversation", conversation, "outcome", reply.Outcome)

	result, err := mcp.NewToolResultJSON(reply)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
