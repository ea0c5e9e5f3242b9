// Package bot is the chat-facing front of GymBro. It resolves the sender,
// routes slash commands and hands everything else to the intake dialogue.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/claude/gymbro/internal/dialogue"
	"github.com/claude/gymbro/internal/models"
	"github.com/claude/gymbro/internal/storage"
)

const (
	msgWelcome           = "¡Bienvenido a GymBro! Usa /log para registrar un entrenamiento."
	msgUnknownUser       = "No pude identificar tu usuario."
	msgRegisterFailed    = "No pude registrarte en este momento."
	msgNoHistory         = "Aún no tienes entrenamientos registrados."
	msgHistoryFailed     = "No pude cargar tu historial."
	msgStatsFailed       = "No pude cargar tus estadísticas."
	msgHistoryHeader     = "Tus últimos entrenamientos:"
	msgStatsTemplate     = "📊 Estadísticas:\n- Entrenamientos: %d\n- Volumen total: %d kg"
	msgDashboardTemplate = "Abre tu dashboard aquí: %s"
	msgNoDashboard       = "El dashboard no está configurado."

	historySize = 5
)

// Store is the slice of storage the bot needs.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	RecentWorkouts(ctx context.Context, userID, n int) ([]models.WorkoutRow, error)
	GetWorkoutStats(ctx context.Context, userID int, now time.Time) (*storage.WorkoutStats, error)
}

// Dialogue is the intake state machine.
type Dialogue interface {
	HandleText(ctx context.Context, turn dialogue.Turn, text string) dialogue.Result
	HandleVoice(ctx context.Context, turn dialogue.Turn, audio []byte, mimeType string) dialogue.Result
	Cancel(ctx context.Context, conversationID string) dialogue.Result
	Restart(ctx context.Context, conversationID string) dialogue.Result
}

// Message is one inbound chat message, already stripped of transport details.
type Message struct {
	// Conversation keys the draft; one per chat.
	Conversation string
	// Login identifies the sender across transports, e.g. "whatsapp:3460011".
	Login       string
	DisplayName string
	Text        string
	Audio       []byte
	AudioMIME   string
}

// Reply is what the transport should send back. An empty Text means stay silent.
type Reply struct {
	Text    string           `json:"reply"`
	Command string           `json:"command,omitempty"`
	Outcome dialogue.Outcome `json:"outcome,omitempty"`
	State   dialogue.State   `json:"state,omitempty"`
}

// Bot routes chat messages.
type Bot struct {
	store        Store
	dialogue     Dialogue
	dashboardURL string
	log          *slog.Logger
	now          func() time.Time
}

// New creates a Bot. dashboardURL is the base URL of the web dashboard.
func New(store Store, d Dialogue, dashboardURL string, log *slog.Logger) *Bot {
	return &Bot{
		store:        store,
		dialogue:     d,
		dashboardURL: strings.TrimRight(dashboardURL, "/"),
		log:          log,
		now:          time.Now,
	}
}

// Handle processes one message and returns the reply to send.
func (b *Bot) Handle(ctx context.Context, msg Message) Reply {
	if cmd, ok := parseCommand(msg.Text); ok && len(msg.Audio) == 0 {
		return b.command(ctx, cmd, msg)
	}

	userID, err := b.store.GetOrCreateUser(ctx, msg.Login, msg.DisplayName)
	if err != nil {
		b.log.Error("resolving user", "login", msg.Login, "error", err)
		return Reply{Text: msgUnknownUser}
	}
	turn := dialogue.Turn{ConversationID: msg.Conversation, UserID: userID}

	var res dialogue.Result
	if len(msg.Audio) > 0 {
		res = b.dialogue.HandleVoice(ctx, turn, msg.Audio, msg.AudioMIME)
	} else {
		res = b.dialogue.HandleText(ctx, turn, msg.Text)
	}
	b.log.Debug("turn handled", "conversation", msg.Conversation, "outcome", res.Outcome, "state", res.State)
	return fromResult(res)
}

func (b *Bot) command(ctx context.Context, cmd string, msg Message) Reply {
	switch cmd {
	case "start":
		if _, err := b.store.GetOrCreateUser(ctx, msg.Login, msg.DisplayName); err != nil {
			b.log.Error("registering user", "login", msg.Login, "error", err)
			return Reply{Text: msgRegisterFailed, Command: cmd}
		}
		return Reply{Text: msgWelcome, Command: cmd}
	case "log":
		r := fromResult(b.dialogue.Restart(ctx, msg.Conversation))
		r.Command = cmd
		return r
	case "cancel":
		r := fromResult(b.dialogue.Cancel(ctx, msg.Conversation))
		r.Command = cmd
		return r
	case "history":
		return Reply{Text: b.history(ctx, msg), Command: cmd}
	case "stats":
		return Reply{Text: b.stats(ctx, msg), Command: cmd}
	case "dashboard":
		if b.dashboardURL == "" {
			return Reply{Text: msgNoDashboard, Command: cmd}
		}
		return Reply{Text: fmt.Sprintf(msgDashboardTemplate, b.dashboardURL+"/dashboard"), Command: cmd}
	default:
		return Reply{Command: cmd}
	}
}

func (b *Bot) history(ctx context.Context, msg Message) string {
	userID, err := b.store.GetOrCreateUser(ctx, msg.Login, msg.DisplayName)
	if err != nil {
		b.log.Error("resolving user", "login", msg.Login, "error", err)
		return msgUnknownUser
	}
	rows, err := b.store.RecentWorkouts(ctx, userID, historySize)
	if err != nil {
		b.log.Error("loading history", "user_id", userID, "error", err)
		return msgHistoryFailed
	}
	if len(rows) == 0 {
		return msgNoHistory
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, msgHistoryHeader)
	for _, r := range rows {
		lines = append(lines, FormatWorkout(r))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) stats(ctx context.Context, msg Message) string {
	userID, err := b.store.GetOrCreateUser(ctx, msg.Login, msg.DisplayName)
	if err != nil {
		b.log.Error("resolving user", "login", msg.Login, "error", err)
		return msgUnknownUser
	}
	stats, err := b.store.GetWorkoutStats(ctx, userID, b.now())
	if err != nil {
		b.log.Error("loading stats", "user_id", userID, "error", err)
		return msgStatsFailed
	}
	return fmt.Sprintf(msgStatsTemplate, stats.TotalWorkouts, int64(math.Round(stats.TotalVolumeKg)))
}

func fromResult(res dialogue.Result) Reply {
	return Reply{Text: res.Reply, Outcome: res.Outcome, State: res.State}
}

// parseCommand recognizes "/name" and "/name@botname" with optional arguments.
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return "", true
	}
	cmd, _, _ := strings.Cut(name[0], "@")
	return strings.ToLower(cmd), true
}

var spanishMonths = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// FormatWorkout renders one history line, e.g. "• Press banca: 3x8 @ 80kg (2 jun 2025)".
func FormatWorkout(w models.WorkoutRow) string {
	d := w.WorkoutDate
	date := fmt.Sprintf("%d %s %d", d.Day(), spanishMonths[d.Month()-1], d.Year())
	return fmt.Sprintf("• %s: %dx%d @ %skg (%s)",
		w.ExerciseName, w.Sets, w.Reps, strconv.FormatFloat(w.WeightKg, 'f', -1, 64), date)
}
