package dialogue

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome tells the transport which case of a turn fired.
type Outcome string

const (
	OutcomePrompted              Outcome = "prompted"
	OutcomeConfirmationRequested Outcome = "confirmation_requested"
	OutcomeCommitted             Outcome = "committed"
	OutcomeCommitFailed          Outcome = "commit_failed"
	OutcomeRejected              Outcome = "rejected"
	OutcomeCancelled             Outcome = "cancelled"
	OutcomeRestarted             Outcome = "restarted"
	OutcomeNotUnderstood         Outcome = "not_understood"
	OutcomeUnintelligibleAudio   Outcome = "unintelligible_audio"
	OutcomeEmpty                 Outcome = "empty"
	OutcomeStoreFailed           Outcome = "store_failed"
)

const (
	MsgNotUnderstood     = "Tuve un problema entendiendo tu mensaje. ¿Puedes repetirlo?"
	MsgUnintelligible    = "No pude entender el audio, intenta de nuevo."
	MsgEmpty             = "Escríbeme tu entrenamiento para registrarlo."
	MsgRejected          = "Registro cancelado. Usa /log para empezar de nuevo."
	MsgCancelled         = "Registro cancelado."
	MsgRestart           = "Cuéntame tu entrenamiento en una frase."
	MsgCommitFailed      = "No pude guardar tu entrenamiento. Vuelve a enviarlo para reintentar."
	MsgStoreFailed       = "Algo salió mal de nuestro lado. Inténtalo de nuevo en un momento."
	msgConfirmationAsk   = "¿Te refieres a \"%s\"? Responde sí para confirmar."
	msgCommittedTemplate = "✅ Registrado:\n- Ejercicio: %s\n- Peso: %s kg\n- Series: %d\n- Repeticiones: %d"
)

var fieldQuestions = map[Field]string{
	FieldExercise: "¿Qué ejercicio realizaste?",
	FieldWeight:   "¿Cuánto peso levantaste (en kg)?",
	FieldSets:     "¿Cuántas series hiciste?",
	FieldReps:     "¿Cuántas repeticiones por serie?",
}

// affirmations are matched as case-insensitive substrings.
var affirmations = []string{"si", "sí", "yes", "ok", "confirmar", "correcto"}

// MissingPrompt joins one canned question per missing field.
func MissingPrompt(missing []Field) string {
	parts := make([]string, 0, len(missing))
	for _, f := range missing {
		if q, ok := fieldQuestions[f]; ok {
			parts = append(parts, q)
		}
	}
	return strings.Join(parts, " ")
}

// IsAffirmative reports whether a confirmation reply accepts the match.
func IsAffirmative(text string) bool {
	normalized := strings.ToLower(text)
	for _, word := range affirmations {
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}

func confirmationPrompt(name string) string {
	return fmt.Sprintf(msgConfirmationAsk, name)
}

func committedSummary(w Workout) string {
	return fmt.Sprintf(msgCommittedTemplate,
		w.ExerciseName, strconv.FormatFloat(w.WeightKg, 'f', -1, 64), w.Sets, w.Reps)
}
