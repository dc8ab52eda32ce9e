package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicProvider implements Provider for Anthropic's Claude models.
type AnthropicProvider struct {
	client       *anthropic.LLM
	defaultModel string
}

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. Falls back to ANTHROPIC_API_KEY.
	APIKey string

	// Model is the default model for requests that do not name one.
	Model string
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key not configured")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	client, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("anthropic: creating client: %w", err)
	}

	return &AnthropicProvider{
		client:       client,
		defaultModel: model,
	}, nil
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete sends a completion request.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("anthropic: invalid request: %w", err)
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.System)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(req.Prompt)},
	})

	callOpts := []llms.CallOption{llms.WithModel(model)}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	}

	resp, err := p.client.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic: completion failed: %w", err)
	}

	return fromContentResponse(resp, model), nil
}

// fromContentResponse converts a langchaingo response to a Response.
func fromContentResponse(resp *llms.ContentResponse, model string) *Response {
	if resp == nil || len(resp.Choices) == 0 {
		return &Response{Model: model}
	}

	choice := resp.Choices[0]
	out := &Response{
		Content:    choice.Content,
		Model:      model,
		StopReason: choice.StopReason,
	}

	// langchaingo reports token counts through GenerationInfo.
	if choice.GenerationInfo != nil {
		out.Usage.InputTokens = intFromInfo(choice.GenerationInfo, "InputTokens")
		out.Usage.OutputTokens = intFromInfo(choice.GenerationInfo, "OutputTokens")
	}

	return out
}

func intFromInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
