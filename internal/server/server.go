package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"tailscale.com/client/tailscale/apitype"

	"github.com/claude/gymbro/internal/bot"
	"github.com/claude/gymbro/internal/models"
	"github.com/claude/gymbro/internal/storage"
)

// Store is the data layer behind the dashboard API. *storage.DB satisfies it.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	ListExercises(ctx context.Context) ([]models.ExerciseRow, error)
	GetExercise(ctx context.Context, id string) (*models.ExerciseRow, error)
	GetExerciseSummaries(ctx context.Context, userID int) ([]storage.ExerciseSummary, error)
	QueryWorkouts(ctx context.Context, q storage.WorkoutQuery) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*models.WorkoutRow, error)
	UpdateWorkout(ctx context.Context, row models.WorkoutRow) error
	DeleteWorkout(ctx context.Context, workoutID uuid.UUID, userID int) error
	GetWorkoutStats(ctx context.Context, userID int, now time.Time) (*storage.WorkoutStats, error)
	GetProgress(ctx context.Context, userID int, exerciseID string, start, end time.Time, bucket string) ([]storage.ProgressPeriod, error)
	GetMaxLifts(ctx context.Context, userID int, exerciseIDs []string) ([]storage.MaxLift, error)
	ListRivals(ctx context.Context, userID int) ([]storage.UserProfile, error)
	SearchUsers(ctx context.Context, userID int, query string) ([]storage.UserProfile, error)
	AddRival(ctx context.Context, userID, rivalID int) error
}

var _ Store = (*storage.DB)(nil)

// Chat handles one chat message. *bot.Bot satisfies it.
type Chat interface {
	Handle(ctx context.Context, msg bot.Message) bot.Reply
}

// WhoIser resolves a tailnet peer address to its identity.
// The tsnet local client satisfies it.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db     Store
	chat   Chat
	whois  WhoIser
	log    *slog.Logger
	apiKey string
	router chi.Router
	now    func() time.Time
}

// New creates a new Server with all routes configured.
func New(db Store, chat Chat, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		chat:   chat,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
		now:    time.Now,
	}
	s.routes()
	return s
}

// SetTailscale switches dashboard identity from the local dev user to the
// tailnet peer making the request.
func (s *Server) SetTailscale(whois WhoIser) {
	s.whois = whois
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Chat endpoints (API key required)
	s.router.Route("/api/v1/chat", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/messages", s.handleChatMessage)
		r.Post("/voice", s.handleChatVoice)
	})

	// Dashboard API endpoints (no API key, tsnet handles access)
	s.router.Group(func(r chi.Router) {
		r.Use(s.identify)
		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/exercises", s.handleExercises)
		r.Get("/api/v1/exercises/summary", s.handleExerciseSummaries)
		r.Get("/api/v1/workouts", s.handleQueryWorkouts)
		r.Get("/api/v1/workouts/{id}", s.handleGetWorkout)
		r.Patch("/api/v1/workouts/{id}", s.handlePatchWorkout)
		r.Delete("/api/v1/workouts/{id}", s.handleDeleteWorkout)
		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/progress", s.handleProgress)
		r.Get("/api/v1/max-lifts", s.handleMaxLifts)
		r.Get("/api/v1/arena/rivals", s.handleArenaRivals)
		r.Post("/api/v1/arena/rivals", s.handleAddRival)
		r.Get("/api/v1/arena/search", s.handleArenaSearch)
	})
}
