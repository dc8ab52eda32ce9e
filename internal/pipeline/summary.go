package pipeline

import (
	"time"

	"github.com/clinical-bridge/clinbridge/internal/agent"
)

// PhaseSummary is the serializable view of one phase result.
type PhaseSummary struct {
	Phase       PhaseName         `json:"phase"`
	Agent       string            `json:"agent"`
	Status      PhaseStatus       `json:"status"`
	Content     string            `json:"content,omitempty"`
	Error       string            `json:"error,omitempty"`
	DurationMS  int64             `json:"duration_ms,omitempty"`
	Usage       *agent.TokenUsage `json:"usage,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// WorkflowSummary is the coordinator's sole externally observable product:
// a serializable snapshot of one pipeline run. Enclosing services (CLI,
// HTTP API, review UI) may depend only on this contract.
type WorkflowSummary struct {
	WorkflowID      string           `json:"workflow_id"`
	Status          WorkflowStatus   `json:"status"`
	PatientID       string           `json:"patient_id,omitempty"`
	Payer           string           `json:"payer,omitempty"`
	Procedure       string           `json:"procedure,omitempty"`
	Phases          []PhaseSummary   `json:"phases"`
	TotalDurationMS int64            `json:"total_duration_ms"`
	TotalTokens     agent.TokenUsage `json:"total_tokens"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`

	// FailedPhase names the phase whose error a caller must surface for a
	// FAILED run.
	FailedPhase PhaseName `json:"failed_phase,omitempty"`

	// ReviewPhase names the non-fatal phase that degraded a run to
	// NEEDS_REVIEW, so a reviewer knows what to check.
	ReviewPhase PhaseName `json:"review_phase,omitempty"`

	// Diagnostic carries a coordinator-internal fault, when one occurred.
	Diagnostic *PhaseSummary `json:"diagnostic,omitempty"`
}

// Summary builds the serializable snapshot of the run.
func (s *WorkflowState) Summary() WorkflowSummary {
	phases := make([]PhaseSummary, 0, len(PhaseOrder))
	for _, p := range s.AllPhases() {
		phases = append(phases, summarizePhase(p))
	}

	out := WorkflowSummary{
		WorkflowID:      s.ID,
		Status:          s.Status,
		PatientID:       s.Input.PatientID,
		Payer:           s.Input.Payer,
		Procedure:       s.Input.Procedure,
		Phases:          phases,
		TotalDurationMS: s.TotalDuration().Milliseconds(),
		TotalTokens:     s.TotalTokens(),
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
	}

	switch s.Status {
	case WorkflowStatusFailed:
		out.FailedPhase = s.FailedPhase()
	case WorkflowStatusNeedsReview:
		out.ReviewPhase = s.ReviewPhase()
	}

	if s.Diagnostic != nil {
		d := summarizePhase(s.Diagnostic)
		out.Diagnostic = &d
	}

	return out
}

func summarizePhase(p *PhaseResult) PhaseSummary {
	sum := PhaseSummary{
		Phase:       p.Phase,
		Agent:       p.Agent,
		Status:      p.Status,
		Content:     p.Content,
		Error:       p.Error,
		Usage:       p.Usage,
		StartedAt:   p.StartedAt,
		CompletedAt: p.CompletedAt,
	}
	if d, ok := p.Duration(); ok {
		sum.DurationMS = d.Milliseconds()
	}
	return sum
}
