package pipeline

import (
	"time"

	"github.com/clinical-bridge/clinbridge/internal/agent"
)

// PhaseName identifies one of the five fixed pipeline phases.
type PhaseName string

const (
	PhaseDocumentation    PhaseName = "documentation"
	PhaseCoding           PhaseName = "coding"
	PhaseCompliance       PhaseName = "compliance"
	PhasePriorAuth        PhaseName = "prior_auth"
	PhaseQualityAssurance PhaseName = "quality_assurance"
)

// PhaseOrder is the fixed execution sequence of the pipeline.
var PhaseOrder = []PhaseName{
	PhaseDocumentation,
	PhaseCoding,
	PhaseCompliance,
	PhasePriorAuth,
	PhaseQualityAssurance,
}

// String returns the string representation of the phase name.
func (n PhaseName) String() string {
	return string(n)
}

// IsValid checks if the phase name is one of the five fixed phases.
func (n PhaseName) IsValid() bool {
	switch n {
	case PhaseDocumentation, PhaseCoding, PhaseCompliance, PhasePriorAuth, PhaseQualityAssurance:
		return true
	default:
		return false
	}
}

// PhaseResult tracks the outcome of a single pipeline phase.
//
// Content and Error are mutually exclusive. A running phase has StartedAt
// set and CompletedAt unset; any terminal status has CompletedAt set.
type PhaseResult struct {
	// Phase is the phase this result belongs to.
	Phase PhaseName `json:"phase"`

	// Agent is the name of the collaborator assigned to the phase.
	Agent string `json:"agent"`

	// Status is the current status of the phase.
	Status PhaseStatus `json:"status"`

	// Content is the text produced by the collaborator. Empty until the
	// phase completes.
	Content string `json:"content,omitempty"`

	// Error is the human-readable failure message. Empty unless the
	// phase failed.
	Error string `json:"error,omitempty"`

	// Usage is the collaborator's token consumption. Nil until the phase
	// completes.
	Usage *agent.TokenUsage `json:"usage,omitempty"`

	// StartedAt is when the phase began executing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the phase reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// newPhaseResult creates a pending result for the given phase slot.
func newPhaseResult(phase PhaseName, agentName string) *PhaseResult {
	return &PhaseResult{
		Phase:  phase,
		Agent:  agentName,
		Status: PhaseStatusPending,
	}
}

// MarkRunning transitions the phase to running and records the start time.
func (r *PhaseResult) MarkRunning() {
	r.Status = PhaseStatusRunning
	now := time.Now()
	r.StartedAt = &now
	r.CompletedAt = nil
}

// MarkCompleted transitions the phase to completed with the produced
// content and usage.
func (r *PhaseResult) MarkCompleted(content string, usage *agent.TokenUsage) {
	r.Status = PhaseStatusCompleted
	r.Content = content
	r.Error = ""
	r.Usage = usage
	now := time.Now()
	r.CompletedAt = &now
}

// MarkFailed transitions the phase to failed with an error message.
func (r *PhaseResult) MarkFailed(errMsg string) {
	r.Status = PhaseStatusFailed
	r.Error = errMsg
	r.Content = ""
	now := time.Now()
	r.CompletedAt = &now
}

// MarkSkipped transitions the phase to skipped. The collaborator is never
// invoked for a skipped phase.
func (r *PhaseResult) MarkSkipped() {
	r.Status = PhaseStatusSkipped
	now := time.Now()
	r.CompletedAt = &now
}

// Duration returns how long the phase took, and whether both timestamps
// are available.
func (r *PhaseResult) Duration() (time.Duration, bool) {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0, false
	}
	return r.CompletedAt.Sub(*r.StartedAt), true
}
