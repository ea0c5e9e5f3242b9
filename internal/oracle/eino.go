package oracle

import (
	"context"
	"fmt"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go/v2"

	"github.com/claude/gymbro/internal/dialogue"
)

const recordToolName = "record_workout_fields"

// Eino extracts through a forced tool call on an eino chat model. The tool
// arguments carry the same JSON object the other providers return as text.
type Eino struct {
	chatModel model.ToolCallingChatModel
	toolInfo  *schema.ToolInfo
	timeout   time.Duration
	now       func() time.Time

	// transcription has no eino component; it goes through openai-go.
	audio              *openai.Client
	transcriptionModel string
}

// NewEino creates a tool-calling oracle on top of an OpenAI-compatible eino
// chat model.
func NewEino(ctx context.Context, cfg Config) (*Eino, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("eino api key is required")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}
	cm, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   modelName,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating eino chat model: %w", err)
	}
	e, err := newEinoWithModel(cm, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	client := newOpenAIClient(cfg)
	e.audio = &client
	e.transcriptionModel = cfg.TranscriptionModel
	if e.transcriptionModel == "" {
		e.transcriptionModel = DefaultTranscriptionModel
	}
	return e, nil
}

func newEinoWithModel(cm model.ToolCallingChatModel, timeout time.Duration) (*Eino, error) {
	toolInfo, err := utils.GoStruct2ToolInfo[payload](recordToolName,
		"Record the workout fields found in the user's message.")
	if err != nil {
		return nil, fmt.Errorf("convert tool info: %w", err)
	}
	return &Eino{chatModel: cm, toolInfo: toolInfo, timeout: timeout, now: time.Now}, nil
}

func (e *Eino) Extract(ctx context.Context, utterance string, draft dialogue.Draft, catalog []dialogue.Exercise) (dialogue.Extraction, error) {
	prompt, err := BuildPrompt(utterance, draft, catalog, e.now())
	if err != nil {
		return dialogue.Extraction{}, err
	}

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.chatModel.Generate(ctx,
		[]*schema.Message{schema.SystemMessage(prompt.System), schema.UserMessage(prompt.User)},
		model.WithTools([]*schema.ToolInfo{e.toolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, e.toolInfo.Name),
	)
	if err != nil {
		return dialogue.Extraction{}, fmt.Errorf("%w: call model: %v", dialogue.ErrOracleUnavailable, err)
	}
	if len(resp.ToolCalls) == 0 {
		// some gateways ignore tool_choice and answer in plain JSON
		return Decode(resp.Content, catalog)
	}
	return Decode(resp.ToolCalls[0].Function.Arguments, catalog)
}

func (e *Eino) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if e.audio == nil {
		return "", fmt.Errorf("%w: transcription not configured", dialogue.ErrOracleUnavailable)
	}
	return transcribeOpenAI(ctx, *e.audio, e.transcriptionModel, e.timeout, audio, mimeType)
}
