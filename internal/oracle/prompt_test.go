package oracle

import (
	"strings"
	"testing"
	"time"

	"github.com/claude/gymbro/internal/dialogue"
)

// TestBuildPrompt verifies the prompt carries the date, the draft, the catalog
// and the user's message.
func TestBuildPrompt(t *testing.T) {
	draft := dialogue.Draft{Sets: ptr(3)}
	today := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	p, err := BuildPrompt("con 80 kilos", draft, catalog, today)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.System, "2025-06-02") {
		t.Errorf("system prompt missing today's date")
	}
	for _, want := range []string{
		`"sets":3`,
		"- bench: Press banca (pecho)",
		"- deadlift: Peso muerto (espalda)",
		"Mensaje del usuario: con 80 kilos",
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("user prompt missing %q:\n%s", want, p.User)
		}
	}
}

// TestAudioExtension verifies upload file names follow the MIME type.
func TestAudioExtension(t *testing.T) {
	tests := map[string]string{
		"audio/ogg; codecs=opus": ".ogg",
		"audio/mpeg":             ".mp3",
		"audio/mp4":              ".m4a",
		"audio/webm":             ".webm",
		"":                       ".ogg",
	}
	for mime, want := range tests {
		if got := audioExtension(mime); got != want {
			t.Errorf("audioExtension(%q) = %q, want %q", mime, got, want)
		}
	}
}
