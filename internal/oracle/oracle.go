package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/gymbro/internal/dialogue"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderEino   = "eino"

	DefaultGeminiModel        = "gemini-2.5-flash"
	DefaultOpenAIModel        = "gpt-4o-mini"
	DefaultTranscriptionModel = "whisper-1"
)

// Config selects and configures a provider.
type Config struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
	Timeout            time.Duration
}

// Oracle is an extractor that can also transcribe voice notes.
type Oracle interface {
	dialogue.Extractor
	dialogue.Transcriber
}

// New builds the configured provider. An empty provider means Gemini.
func New(ctx context.Context, cfg Config) (Oracle, error) {
	switch cfg.Provider {
	case "", ProviderGemini:
		return NewGemini(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	case ProviderEino:
		return NewEino(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
