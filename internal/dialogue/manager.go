package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/gymbro/internal/serial"
)

// Turn identifies who is speaking in which conversation.
type Turn struct {
	ConversationID string
	UserID         int
}

// Result is the manager's answer to one turn.
type Result struct {
	Reply   string
	Outcome Outcome
	State   State
	Draft   Draft
}

// Manager drives the intake dialogue. Turns of one conversation are handled
// strictly in arrival order; turns of different conversations run concurrently.
type Manager struct {
	extractor   Extractor
	transcriber Transcriber
	catalog     Catalog
	committer   Committer
	store       Store
	log         *slog.Logger
	now         func() time.Time

	lanes serial.Queue
}

// Option customizes a Manager.
type Option func(*Manager)

// WithStore replaces the default in-memory draft store.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithTranscriber enables voice turns.
func WithTranscriber(t Transcriber) Option {
	return func(m *Manager) { m.transcriber = t }
}

// WithClock sets the time source used to date workouts without a date.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager.
func NewManager(extractor Extractor, catalog Catalog, committer Committer, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		extractor: extractor,
		catalog:   catalog,
		committer: committer,
		store:     NewMemoryStore(),
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleText processes one text utterance.
func (m *Manager) HandleText(ctx context.Context, turn Turn, text string) Result {
	var res Result
	if err := m.lanes.Do(ctx, turn.ConversationID, func(ctx context.Context) {
		res = m.handleUtterance(ctx, turn, text)
	}); err != nil {
		return m.abandoned(turn.ConversationID, err)
	}
	return res
}

// HandleVoice transcribes a voice note and processes it as an utterance. An
// empty or failed transcription leaves the conversation untouched.
func (m *Manager) HandleVoice(ctx context.Context, turn Turn, audio []byte, mimeType string) Result {
	var res Result
	if err := m.lanes.Do(ctx, turn.ConversationID, func(ctx context.Context) {
		text, ok := m.transcribe(ctx, turn.ConversationID, audio, mimeType)
		if !ok {
			res = m.unchanged(ctx, turn.ConversationID, OutcomeUnintelligibleAudio, MsgUnintelligible)
			return
		}
		res = m.handleUtterance(ctx, turn, text)
	}); err != nil {
		return m.abandoned(turn.ConversationID, err)
	}
	return res
}

// Cancel clears the conversation's draft regardless of its state.
func (m *Manager) Cancel(ctx context.Context, conversationID string) Result {
	return m.reset(ctx, conversationID, OutcomeCancelled, MsgCancelled)
}

// Restart clears the draft and invites the user to describe a workout.
func (m *Manager) Restart(ctx context.Context, conversationID string) Result {
	return m.reset(ctx, conversationID, OutcomeRestarted, MsgRestart)
}

// Draft returns a copy of the conversation's current draft.
func (m *Manager) Draft(ctx context.Context, conversationID string) (Draft, error) {
	return m.store.Load(ctx, conversationID)
}

func (m *Manager) reset(ctx context.Context, conversationID string, outcome Outcome, reply string) Result {
	var res Result
	if err := m.lanes.Do(ctx, conversationID, func(ctx context.Context) {
		if err := m.store.Clear(ctx, conversationID); err != nil {
			m.log.Error("clearing draft", "conversation", conversationID, "error", err)
			res = Result{Reply: MsgStoreFailed, Outcome: OutcomeStoreFailed}
			return
		}
		res = Result{Reply: reply, Outcome: outcome, State: StateIdle}
	}); err != nil {
		return m.abandoned(conversationID, err)
	}
	return res
}

func (m *Manager) handleUtterance(ctx context.Context, turn Turn, raw string) Result {
	draft, err := m.store.Load(ctx, turn.ConversationID)
	if err != nil {
		m.log.Error("loading draft", "conversation", turn.ConversationID, "error", err)
		return Result{Reply: MsgStoreFailed, Outcome: OutcomeStoreFailed}
	}

	// Blank input leaves a pending confirmation in place.
	text := strings.TrimSpace(raw)
	if text == "" {
		return result(draft, OutcomeEmpty, MsgEmpty)
	}

	if draft.PendingConfirmation {
		return m.resolveConfirmation(ctx, turn, draft, text)
	}

	catalog, err := m.catalog.ListExercises(ctx)
	if err != nil {
		m.log.Error("listing exercises", "conversation", turn.ConversationID, "error", err)
		return result(draft, OutcomeNotUnderstood, MsgNotUnderstood)
	}

	extraction, err := m.extractor.Extract(ctx, text, draft.Clone(), catalog)
	if err != nil {
		m.log.Warn("extraction failed",
			"conversation", turn.ConversationID,
			"malformed", errors.Is(err, ErrMalformedOutput),
			"error", err)
		return result(draft, OutcomeNotUnderstood, MsgNotUnderstood)
	}

	merged := Merge(draft, extraction)

	if merged.Exercise != nil && merged.Exercise.Confidence == ConfidenceLow &&
		merged.Exercise.Name != "" && !merged.PendingConfirmation {
		merged.PendingConfirmation = true
		if err := m.store.Save(ctx, turn.ConversationID, merged); err != nil {
			m.log.Error("saving draft", "conversation", turn.ConversationID, "error", err)
			return Result{Reply: MsgStoreFailed, Outcome: OutcomeStoreFailed}
		}
		m.log.Debug("low confidence match", "conversation", turn.ConversationID, "exercise", merged.Exercise.Name)
		return result(merged, OutcomeConfirmationRequested, confirmationPrompt(merged.Exercise.Name))
	}

	return m.checkComplete(ctx, turn, merged, extraction.Reply)
}

// resolveConfirmation consumes the reply to a low-confidence prompt. It never
// calls the oracle: a rejection is a decision, not new workout data.
func (m *Manager) resolveConfirmation(ctx context.Context, turn Turn, draft Draft, text string) Result {
	if !IsAffirmative(text) {
		if err := m.store.Clear(ctx, turn.ConversationID); err != nil {
			m.log.Error("clearing draft", "conversation", turn.ConversationID, "error", err)
			return Result{Reply: MsgStoreFailed, Outcome: OutcomeStoreFailed}
		}
		return result(Draft{}, OutcomeRejected, MsgRejected)
	}

	draft.PendingConfirmation = false
	if draft.Exercise != nil {
		draft.Exercise.Confidence = ConfidenceHigh
	}
	return m.checkComplete(ctx, turn, draft, "")
}

// checkComplete commits a complete draft or saves it and asks for what is
// missing, preferring the oracle's own reply when it gave one.
func (m *Manager) checkComplete(ctx context.Context, turn Turn, draft Draft, oracleReply string) Result {
	missing := draft.Missing()
	if len(missing) > 0 {
		if err := m.store.Save(ctx, turn.ConversationID, draft); err != nil {
			m.log.Error("saving draft", "conversation", turn.ConversationID, "error", err)
			return Result{Reply: MsgStoreFailed, Outcome: OutcomeStoreFailed}
		}
		reply := strings.TrimSpace(oracleReply)
		if reply == "" {
			reply = MissingPrompt(missing)
		}
		return result(draft, OutcomePrompted, reply)
	}
	return m.commit(ctx, turn, draft)
}

func (m *Manager) commit(ctx context.Context, turn Turn, draft Draft) Result {
	w := Workout{
		UserID:       turn.UserID,
		ExerciseID:   draft.Exercise.ID,
		ExerciseName: draft.Exercise.Name,
		Sets:         *draft.Sets,
		Reps:         *draft.Reps,
		WeightKg:     *draft.WeightKg,
		Date:         m.now(),
	}
	if draft.WorkoutDate != nil {
		w.Date = *draft.WorkoutDate
	}

	m.log.Debug("committing workout", "conversation", turn.ConversationID, "exercise_id", w.ExerciseID)
	if err := m.committer.CommitWorkout(ctx, w); err != nil {
		m.log.Error("committing workout", "conversation", turn.ConversationID, "error", err)
		if serr := m.store.Save(ctx, turn.ConversationID, draft); serr != nil {
			m.log.Error("saving draft after failed commit", "conversation", turn.ConversationID, "error", serr)
		}
		return Result{Reply: MsgCommitFailed, Outcome: OutcomeCommitFailed, State: StateOf(draft), Draft: draft.Clone()}
	}

	if err := m.store.Clear(ctx, turn.ConversationID); err != nil {
		m.log.Error("clearing draft after commit", "conversation", turn.ConversationID, "error", err)
	}
	m.log.Info("workout committed", "conversation", turn.ConversationID, "user_id", w.UserID, "exercise", w.ExerciseName)
	return result(Draft{}, OutcomeCommitted, committedSummary(w))
}

func (m *Manager) transcribe(ctx context.Context, conversationID string, audio []byte, mimeType string) (string, bool) {
	if m.transcriber == nil || len(audio) == 0 {
		return "", false
	}
	text, err := m.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		m.log.Warn("transcription failed", "conversation", conversationID, "error", err)
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func (m *Manager) unchanged(ctx context.Context, conversationID string, outcome Outcome, reply string) Result {
	draft, err := m.store.Load(ctx, conversationID)
	if err != nil {
		m.log.Error("loading draft", "conversation", conversationID, "error", err)
	}
	return result(draft, outcome, reply)
}

func (m *Manager) abandoned(conversationID string, err error) Result {
	m.log.Warn("turn abandoned while queued", "conversation", conversationID, "error", err)
	return Result{Reply: MsgStoreFailed, Outcome: OutcomeStoreFailed}
}

func result(d Draft, outcome Outcome, reply string) Result {
	return Result{Reply: reply, Outcome: outcome, State: StateOf(d), Draft: d.Clone()}
}
