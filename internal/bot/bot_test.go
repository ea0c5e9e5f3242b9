package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/claude/gymbro/internal/dialogue"
	"github.com/claude/gymbro/internal/models"
	"github.com/claude/gymbro/internal/storage"
)

type fakeStore struct {
	userErr  error
	users    map[string]int
	workouts []models.WorkoutRow
	histErr  error
	stats    *storage.WorkoutStats
}

func (f *fakeStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	if f.userErr != nil {
		return 0, f.userErr
	}
	if f.users == nil {
		f.users = map[string]int{}
	}
	if id, ok := f.users[login]; ok {
		return id, nil
	}
	f.users[login] = len(f.users) + 1
	return f.users[login], nil
}

func (f *fakeStore) RecentWorkouts(_ context.Context, _, n int) ([]models.WorkoutRow, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	if len(f.workouts) > n {
		return f.workouts[:n], nil
	}
	return f.workouts, nil
}

func (f *fakeStore) GetWorkoutStats(context.Context, int, time.Time) (*storage.WorkoutStats, error) {
	if f.stats == nil {
		return nil, errors.New("no stats")
	}
	return f.stats, nil
}

type fakeDialogue struct {
	texts    []string
	voices   int
	turns    []dialogue.Turn
	cancels  []string
	restarts []string
}

func (f *fakeDialogue) HandleText(_ context.Context, turn dialogue.Turn, text string) dialogue.Result {
	f.texts = append(f.texts, text)
	f.turns = append(f.turns, turn)
	return dialogue.Result{Reply: "ok:" + text, Outcome: dialogue.OutcomePrompted, State: dialogue.StateCollecting}
}

func (f *fakeDialogue) HandleVoice(_ context.Context, turn dialogue.Turn, _ []byte, _ string) dialogue.Result {
	f.voices++
	f.turns = append(f.turns, turn)
	return dialogue.Result{Reply: "voice", Outcome: dialogue.OutcomePrompted}
}

func (f *fakeDialogue) Cancel(_ context.Context, conv string) dialogue.Result {
	f.cancels = append(f.cancels, conv)
	return dialogue.Result{Reply: dialogue.MsgCancelled, Outcome: dialogue.OutcomeCancelled, State: dialogue.StateIdle}
}

func (f *fakeDialogue) Restart(_ context.Context, conv string) dialogue.Result {
	f.restarts = append(f.restarts, conv)
	return dialogue.Result{Reply: dialogue.MsgRestart, Outcome: dialogue.OutcomeRestarted, State: dialogue.StateIdle}
}

func newTestBot(store *fakeStore, d *fakeDialogue) *Bot {
	return New(store, d, "https://gymbro.example/", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var msg = Message{Conversation: "chat-1", Login: "whatsapp:3460011", DisplayName: "Ana"}

func withText(text string) Message {
	m := msg
	m.Text = text
	return m
}

// TestTextGoesToDialogue verifies plain text is forwarded with the resolved user.
func TestTextGoesToDialogue(t *testing.T) {
	store := &fakeStore{}
	d := &fakeDialogue{}
	b := newTestBot(store, d)

	r := b.Handle(context.Background(), withText("press banca 3x8 80"))
	if r.Text != "ok:press banca 3x8 80" || r.Outcome != dialogue.OutcomePrompted {
		t.Errorf("reply = %+v", r)
	}
	if len(d.turns) != 1 || d.turns[0].UserID != 1 || d.turns[0].ConversationID != "chat-1" {
		t.Errorf("turns = %+v", d.turns)
	}
}

// TestVoiceGoesToDialogue verifies audio takes the voice path even with a caption.
func TestVoiceGoesToDialogue(t *testing.T) {
	d := &fakeDialogue{}
	b := newTestBot(&fakeStore{}, d)
	m := withText("/log")
	m.Audio = []byte("ogg")
	m.AudioMIME = "audio/ogg"

	b.Handle(context.Background(), m)
	if d.voices != 1 || len(d.restarts) != 0 {
		t.Errorf("voices=%d restarts=%d", d.voices, len(d.restarts))
	}
}

// TestUnknownUser verifies user resolution failures never reach the dialogue.
func TestUnknownUser(t *testing.T) {
	d := &fakeDialogue{}
	b := newTestBot(&fakeStore{userErr: errors.New("db down")}, d)

	r := b.Handle(context.Background(), withText("hola"))
	if r.Text != msgUnknownUser {
		t.Errorf("reply = %q", r.Text)
	}
	if len(d.texts) != 0 {
		t.Error("dialogue called without a user")
	}
}

// TestCommands verifies slash command routing.
func TestCommands(t *testing.T) {
	store := &fakeStore{
		workouts: []models.WorkoutRow{{
			ExerciseName: "Press banca", Sets: 3, Reps: 8, WeightKg: 82.5,
			WorkoutDate: time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC),
		}},
		stats: &storage.WorkoutStats{TotalWorkouts: 12, TotalVolumeKg: 15320.4},
	}
	d := &fakeDialogue{}
	b := newTestBot(store, d)
	ctx := context.Background()

	tests := []struct {
		text string
		want string
	}{
		{"/start", msgWelcome},
		{"/log", dialogue.MsgRestart},
		{"/cancel", dialogue.MsgCancelled},
		{"/CANCEL@GymBroBot", dialogue.MsgCancelled},
		{"/history", "Tus últimos entrenamientos:\n• Press banca: 3x8 @ 82.5kg (2 jun 2025)"},
		{"/stats", "📊 Estadísticas:\n- Entrenamientos: 12\n- Volumen total: 15320 kg"},
		{"/dashboard", "Abre tu dashboard aquí: https://gymbro.example/dashboard"},
		{"/unknown", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := b.Handle(ctx, withText(tt.text))
			if r.Text != tt.want {
				t.Errorf("reply = %q, want %q", r.Text, tt.want)
			}
		})
	}
	if len(d.texts) != 0 {
		t.Errorf("commands leaked into dialogue: %v", d.texts)
	}
	if len(d.cancels) != 2 || len(d.restarts) != 1 {
		t.Errorf("cancels=%v restarts=%v", d.cancels, d.restarts)
	}
}

// TestHistoryEmptyAndFailing verifies the fallbacks of /history and /stats.
func TestHistoryEmptyAndFailing(t *testing.T) {
	b := newTestBot(&fakeStore{}, &fakeDialogue{})
	ctx := context.Background()

	if r := b.Handle(ctx, withText("/history")); r.Text != msgNoHistory {
		t.Errorf("empty history = %q", r.Text)
	}
	if r := b.Handle(ctx, withText("/stats")); r.Text != msgStatsFailed {
		t.Errorf("failing stats = %q", r.Text)
	}

	b = newTestBot(&fakeStore{histErr: errors.New("timeout")}, &fakeDialogue{})
	if r := b.Handle(ctx, withText("/history")); r.Text != msgHistoryFailed {
		t.Errorf("failing history = %q", r.Text)
	}
}

// TestParseCommand covers the command syntax.
func TestParseCommand(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"/start", "start", true},
		{"  /Log extra words", "log", true},
		{"/stats@bot", "stats", true},
		{"/", "", true},
		{"hola /start", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := parseCommand(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseCommand(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

// TestFormatWorkout verifies whole weights drop the decimal part.
func TestFormatWorkout(t *testing.T) {
	got := FormatWorkout(models.WorkoutRow{
		ExerciseName: "Sentadilla", Sets: 5, Reps: 5, WeightKg: 100,
		WorkoutDate: time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC),
	})
	if !strings.HasSuffix(got, "5x5 @ 100kg (14 sept 2025)") {
		t.Errorf("FormatWorkout = %q", got)
	}
}
