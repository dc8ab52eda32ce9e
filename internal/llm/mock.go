package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockCall records a single call made to the mock provider.
type MockCall struct {
	Request Request
}

// MockProvider implements Provider for testing. It replays a fixed list of
// responses in order, wrapping around when exhausted, and records every
// request it receives.
type MockProvider struct {
	mu            sync.Mutex
	responses     []string
	responseIndex int
	calls         []MockCall
	err           error
}

// NewMockProvider creates a mock provider that cycles through the given
// responses.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{responses: responses}
}

// FailWith makes every subsequent Complete call return err.
func (p *MockProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// Complete replays the next canned response.
func (p *MockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, MockCall{Request: req})

	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("mock: no responses configured")
	}

	content := p.responses[p.responseIndex%len(p.responses)]
	p.responseIndex++

	return &Response{
		Content:    content,
		Model:      "mock-model",
		StopReason: "stop",
		Usage: Usage{
			InputTokens:  len(req.Prompt) / 4,
			OutputTokens: len(content) / 4,
		},
	}, nil
}

// Calls returns a copy of all recorded calls.
func (p *MockProvider) Calls() []MockCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]MockCall, len(p.calls))
	copy(out, p.calls)
	return out
}
