package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/claude/gymbro/internal/dialogue"
)

// Gemini extracts and transcribes with Google's Gemini API.
type Gemini struct {
	client             *genai.Client
	model              string
	transcriptionModel string
	timeout            time.Duration
	now                func() time.Time
}

// NewGemini creates a Gemini-backed oracle.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	transcription := cfg.TranscriptionModel
	if transcription == "" {
		transcription = model
	}
	return &Gemini{
		client:             client,
		model:              model,
		transcriptionModel: transcription,
		timeout:            cfg.Timeout,
		now:                time.Now,
	}, nil
}

func (g *Gemini) Extract(ctx context.Context, utterance string, draft dialogue.Draft, catalog []dialogue.Exercise) (dialogue.Extraction, error) {
	prompt, err := BuildPrompt(utterance, draft, catalog, g.now())
	if err != nil {
		return dialogue.Extraction{}, err
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt.User, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0.2),
		})
	if err != nil {
		return dialogue.Extraction{}, fmt.Errorf("%w: gemini generate: %v", dialogue.ErrOracleUnavailable, err)
	}
	return Decode(resp.Text(), catalog)
}

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "audio/ogg"
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(audio, mimeType),
		genai.NewPartFromText(transcribePrompt),
	}, genai.RoleUser)

	resp, err := g.client.Models.GenerateContent(ctx, g.transcriptionModel,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "text/plain",
			Temperature:      genai.Ptr[float32](0.2),
		})
	if err != nil {
		return "", fmt.Errorf("%w: gemini transcribe: %v", dialogue.ErrOracleUnavailable, err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
