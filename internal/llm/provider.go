package llm

import (
	"context"
	"fmt"
)

// Provider is the abstraction over LLM backends used by the clinical agents.
// It is deliberately narrow: the agents only ever need a single blocking
// completion with a system prompt and one user message.
type Provider interface {
	// Name returns the provider name (e.g., "anthropic", "mock").
	Name() string

	// Complete sends a completion request and blocks until the full
	// response is available or the context is done.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request describes a single completion call.
type Request struct {
	Model       string  `json:"model"`
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Validate checks that the request is well formed.
func (r Request) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d", r.MaxTokens)
	}
	if r.Temperature < 0 || r.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", r.Temperature)
	}
	return nil
}

// Usage contains token usage statistics for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the result of a completion call.
type Response struct {
	// Content is the generated text.
	Content string `json:"content"`

	// Model is the model that generated the response.
	Model string `json:"model"`

	// Usage contains token usage reported by the provider. Zero values
	// when the provider does not report usage.
	Usage Usage `json:"usage"`

	// StopReason indicates why generation stopped, when known.
	StopReason string `json:"stop_reason,omitempty"`
}
