package agent

import (
	"context"
	"sync"
)

// MockCall records one invocation of a MockAgent.
type MockCall struct {
	Inputs map[string]string
}

// MockAgent is a scripted Agent for tests. Each Run consumes the next
// scripted result; when the script is exhausted the last result repeats.
type MockAgent struct {
	mu      sync.Mutex
	name    string
	results []*Result
	err     error
	index   int
	calls   []MockCall
}

// NewMockAgent creates a mock agent that replays the given results.
func NewMockAgent(name string, results ...*Result) *MockAgent {
	return &MockAgent{name: name, results: results}
}

// NewMockAgentContent creates a mock agent that always succeeds with the
// given content.
func NewMockAgentContent(name, content string) *MockAgent {
	return NewMockAgent(name, &Result{
		Agent:   name,
		Content: content,
		Usage:   &TokenUsage{InputTokens: 10, OutputTokens: 20},
	})
}

// NewMockAgentError creates a mock agent that always returns an
// agent-level error.
func NewMockAgentError(name, errMsg string) *MockAgent {
	return NewMockAgent(name, &Result{Agent: name, Err: errMsg})
}

// FailWith makes Run return the given Go error instead of a result.
func (a *MockAgent) FailWith(err error) *MockAgent {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
	return a
}

// Name returns the agent identifier.
func (a *MockAgent) Name() string {
	return a.name
}

// Run replays the next scripted result.
func (a *MockAgent) Run(ctx context.Context, inputs map[string]string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	copied := make(map[string]string, len(inputs))
	for k, v := range inputs {
		copied[k] = v
	}
	a.calls = append(a.calls, MockCall{Inputs: copied})

	if a.err != nil {
		return nil, a.err
	}
	if len(a.results) == 0 {
		return &Result{Agent: a.name, Err: "no results scripted"}, nil
	}

	i := a.index
	if i >= len(a.results) {
		i = len(a.results) - 1
	}
	a.index++
	return a.results[i], nil
}

// Calls returns a copy of all recorded invocations.
func (a *MockAgent) Calls() []MockCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]MockCall, len(a.calls))
	copy(out, a.calls)
	return out
}

// CallCount returns how many times Run was invoked.
func (a *MockAgent) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}
