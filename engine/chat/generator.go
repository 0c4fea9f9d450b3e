package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrGeneration marks chat completion failures.
var ErrGeneration = errors.New("generation failed")

// GenerateOptions are the per-call knobs passed to the model.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator runs one completion over an ordered message list.
type Generator interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error)
}

// GeneratorConfig selects and authenticates the chat model.
type GeneratorConfig struct {
	Provider string
	Model    string
	APIKey   string
}

// langchainGenerator adapts a langchaingo model to the Generator
// interface.
type langchainGenerator struct {
	model llms.Model
}

// NewGenerator builds the provider-specific langchaingo model.
func NewGenerator(ctx context.Context, cfg GeneratorConfig) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("chat: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("chat: model name is required")
	}
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "google", "":
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
	case "openai":
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("chat: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("chat: create model: %w", err)
	}
	return &langchainGenerator{model: model}, nil
}

func (g *langchainGenerator) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(mapRole(msg.Role), msg.Content))
	}
	var callOpts []llms.CallOption
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	response, err := g.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if response == nil || len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGeneration)
	}
	return response.Choices[0].Content, nil
}

func mapRole(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
