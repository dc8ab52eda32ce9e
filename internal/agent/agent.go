// Package agent defines the specialist collaborators that each own one
// pipeline phase, and the contract the pipeline drives them through.
package agent

import "context"

// Named text inputs passed to an agent's Run. Each specialist requires a
// subset of these and ignores the rest.
const (
	InputNote          = "note"
	InputDocumentation = "documentation"
	InputCodes         = "codes"
	InputCompliance    = "compliance"
	InputPayer         = "payer"
	InputProcedure     = "procedure"
	InputPatientID     = "patient_id"
)

// TokenUsage counts provider token consumption for a single run or an
// aggregate of runs.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another usage into u. A nil other is ignored.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns combined input and output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Result is the outcome of one agent run.
//
// Err is an agent-level failure: the provider could not produce usable
// content. Agent-level failures are retryable. It is distinct from the Go
// error returned by Run, which signals a defect in the invocation itself.
type Result struct {
	// Agent is the name of the agent that produced this result.
	Agent string `json:"agent"`

	// Content is the text the agent produced. Empty when Err is set.
	Content string `json:"content,omitempty"`

	// Model is the provider model that produced the content.
	Model string `json:"model,omitempty"`

	// Usage is the token consumption for this run, when known.
	Usage *TokenUsage `json:"usage,omitempty"`

	// Err is the agent-level failure message. Empty on success.
	Err string `json:"error,omitempty"`
}

// Failed reports whether the run ended in an agent-level failure.
func (r *Result) Failed() bool {
	return r != nil && r.Err != ""
}

// Agent is one specialist in the pipeline. Run executes the agent against
// the named inputs and returns its result.
//
// Implementations report provider and content failures through Result.Err
// and reserve the Go error for malformed invocations, such as a missing
// required input.
type Agent interface {
	Name() string
	Run(ctx context.Context, inputs map[string]string) (*Result, error)
}
