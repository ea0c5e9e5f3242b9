package oracle

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/claude/gymbro/internal/dialogue"
)

func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var payloadSchema = generateSchema[payload]()

// OpenAI talks to any OpenAI-compatible chat completions endpoint (OpenAI,
// Groq, local gateways).
type OpenAI struct {
	client             openai.Client
	model              string
	transcriptionModel string
	timeout            time.Duration
	now                func() time.Time
}

func newOpenAIClient(cfg Config) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return openai.NewClient(opts...)
}

// NewOpenAI creates an oracle backed by an OpenAI-compatible API.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	transcription := cfg.TranscriptionModel
	if transcription == "" {
		transcription = DefaultTranscriptionModel
	}
	return &OpenAI{
		client:             newOpenAIClient(cfg),
		model:              model,
		transcriptionModel: transcription,
		timeout:            cfg.Timeout,
		now:                time.Now,
	}, nil
}

func (o *OpenAI) Extract(ctx context.Context, utterance string, draft dialogue.Draft, catalog []dialogue.Exercise) (dialogue.Extraction, error) {
	prompt, err := BuildPrompt(utterance, draft, catalog, o.now())
	if err != nil {
		return dialogue.Extraction{}, err
	}

	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "workout_extraction",
		Description: openai.String("Workout fields extracted from the user message"),
		Schema:      payloadSchema,
		Strict:      openai.Bool(false),
	}
	chat, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0.2),
		Model:       o.model,
	})
	if err != nil {
		return dialogue.Extraction{}, fmt.Errorf("%w: chat completion: %v", dialogue.ErrOracleUnavailable, err)
	}
	if len(chat.Choices) == 0 {
		return dialogue.Extraction{}, fmt.Errorf("%w: chat completion returned no choices", dialogue.ErrMalformedOutput)
	}
	return Decode(chat.Choices[0].Message.Content, catalog)
}

func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return transcribeOpenAI(ctx, o.client, o.transcriptionModel, o.timeout, audio, mimeType)
}

func transcribeOpenAI(ctx context.Context, client openai.Client, model string, timeout time.Duration, audio []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "audio/ogg"
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	resp, err := client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "voice"+audioExtension(mimeType), mimeType),
		Model: openai.AudioModel(model),
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcription: %v", dialogue.ErrOracleUnavailable, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func audioExtension(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	default:
		return ".ogg"
	}
}
