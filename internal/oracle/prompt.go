package oracle

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/claude/gymbro/internal/dialogue"
)

const systemPrompt = `Eres un asistente de gym que ayuda a registrar entrenamientos.

Los usuarios pueden darte la información en varios mensajes. Recibirás el
estado actual del registro, el catálogo de ejercicios y el último mensaje.

- Extrae solo lo que el mensaje dice: ejercicio, peso en kg, series, repeticiones y fecha.
- El ejercicio DEBE ser uno del catálogo. Usa su id en "exerciseId" y su nombre en "exerciseName".
- "exerciseConfidence" es "high" si el usuario nombró el ejercicio claramente,
  "medium" si es una forma habitual de llamarlo y "low" si estás adivinando.
- Si el mensaje no menciona un campo, omítelo o devuélvelo como null.
- "reply" es una frase corta en español pidiendo lo que falta.

La fecha de hoy es %s.

Devuelve SIEMPRE un JSON con este formato:
{
  "exerciseId": string | null,
  "exerciseName": string | null,
  "exerciseConfidence": "high" | "medium" | "low" | null,
  "weightKg": number | null,
  "sets": number | null,
  "reps": number | null,
  "workoutDate": "YYYY-MM-DD" | null,
  "reply": string
}`

const transcribePrompt = "Transcribe el audio en texto."

// Prompt is the provider-neutral request for one extraction.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders the system instruction and the user turn for one
// extraction call.
func BuildPrompt(utterance string, draft dialogue.Draft, catalog []dialogue.Exercise, today time.Time) (Prompt, error) {
	state, err := sonic.MarshalString(draft)
	if err != nil {
		return Prompt{}, fmt.Errorf("encoding draft: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Estado actual: %s\n", state)
	b.WriteString("Catálogo:\n")
	for _, e := range catalog {
		if e.Category != "" {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", e.ID, e.Name, e.Category)
		} else {
			fmt.Fprintf(&b, "- %s: %s\n", e.ID, e.Name)
		}
	}
	fmt.Fprintf(&b, "Mensaje del usuario: %s", utterance)

	return Prompt{
		System: fmt.Sprintf(systemPrompt, today.Format(time.DateOnly)),
		User:   b.String(),
	}, nil
}
