package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered. chat may
// be nil, in which case log_workout_message is not offered.
func New(ds DataSource, chat Chat, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("GymBro", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("GymBro strength training log. Query logged workouts, per-exercise progress, max lifts, rival comparisons and overall stats. Weights are in kilograms and exercise names are in Spanish. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, chat: chat, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetWorkoutStats, Handler: h.getWorkoutStats},
		server.ServerTool{Tool: toolGetProgress, Handler: h.getProgress},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolGetMaxLifts, Handler: h.getMaxLifts},
		server.ServerTool{Tool: toolGetRivals, Handler: h.getRivals},
	)
	if chat != nil {
		s.AddTool(toolLogWorkoutMessage, h.logWorkoutMessage)
	}

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds   DataSource
	chat Chat
	log  *slog.Logger
}

// --- Resource definitions ---

var resRecentWorkouts = mcp.NewResource(
	"gymbro://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Workouts logged in the last 14 days, newest first"),
	mcp.WithMIMEType("application/json"),
)
