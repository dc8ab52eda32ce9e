package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clinical-bridge/clinbridge/internal/llm"
)

const defaultMaxTokens = 4096

// LLMAgent is an Agent backed by an llm.Provider. Each specialist agent is
// an LLMAgent with its own system prompt and prompt builder.
//
// Provider failures are reported as agent-level errors in the Result so the
// pipeline retry policy can handle them; Run only returns a Go error for
// malformed invocations.
type LLMAgent struct {
	name        string
	system      string
	provider    llm.Provider
	model       string
	maxTokens   int
	buildPrompt func(inputs map[string]string) (string, error)
	logger      *slog.Logger
}

// LLMAgentOption is a functional option for configuring an LLMAgent.
type LLMAgentOption func(*LLMAgent)

// WithModel overrides the provider's default model for this agent.
func WithModel(model string) LLMAgentOption {
	return func(a *LLMAgent) {
		a.model = model
	}
}

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(n int) LLMAgentOption {
	return func(a *LLMAgent) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithLogger sets the structured logger for agent events.
func WithLogger(logger *slog.Logger) LLMAgentOption {
	return func(a *LLMAgent) {
		a.logger = logger
	}
}

func newLLMAgent(name, system string, provider llm.Provider, build func(map[string]string) (string, error), opts ...LLMAgentOption) *LLMAgent {
	a := &LLMAgent{
		name:        name,
		system:      system,
		provider:    provider,
		maxTokens:   defaultMaxTokens,
		buildPrompt: build,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent identifier.
func (a *LLMAgent) Name() string {
	return a.name
}

// Run builds the phase prompt from the named inputs and completes it
// through the provider.
func (a *LLMAgent) Run(ctx context.Context, inputs map[string]string) (*Result, error) {
	prompt, err := a.buildPrompt(inputs)
	if err != nil {
		return nil, fmt.Errorf("%s: building prompt: %w", a.name, err)
	}

	a.logger.InfoContext(ctx, "agent run started",
		"agent", a.name,
		"prompt_length", len(prompt),
	)

	resp, err := a.provider.Complete(ctx, llm.Request{
		Model:     a.model,
		System:    a.system,
		Prompt:    prompt,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		// Transport and provider failures are agent-level errors: the
		// retry policy must see them.
		return &Result{Agent: a.name, Err: err.Error()}, nil
	}
	if resp.Content == "" {
		return &Result{Agent: a.name, Err: "provider returned empty content"}, nil
	}

	a.logger.InfoContext(ctx, "agent run completed",
		"agent", a.name,
		"model", resp.Model,
		"output_length", len(resp.Content),
	)

	return &Result{
		Agent:   a.name,
		Content: resp.Content,
		Model:   resp.Model,
		Usage: &TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

// requireInputs returns an error naming the first missing input key.
func requireInputs(inputs map[string]string, keys ...string) error {
	for _, key := range keys {
		if inputs[key] == "" {
			return fmt.Errorf("missing required input %q", key)
		}
	}
	return nil
}
