package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinical-bridge/clinbridge/internal/agent"
)

// Input is everything a caller supplies for one pipeline run.
type Input struct {
	// Note is the raw physician note text.
	Note string `json:"note"`

	// PatientID is an optional patient identifier.
	PatientID string `json:"patient_id,omitempty"`

	// Payer is the optional payer name, required for prior authorization.
	Payer string `json:"payer,omitempty"`

	// Procedure is the optional procedure description or code, required
	// for prior authorization.
	Procedure string `json:"procedure,omitempty"`

	// SkipPriorAuth forces the prior authorization phase to be skipped
	// even when payer and procedure are present.
	SkipPriorAuth bool `json:"skip_prior_auth,omitempty"`
}

// WorkflowState holds the full state of one pipeline run.
//
// A WorkflowState is exclusively owned by the coordinator invocation that
// created it. The core assumes single-writer access and performs no
// internal locking; hosts that execute phases step by step must serialize
// access per workflow themselves.
type WorkflowState struct {
	// ID uniquely identifies this run.
	ID string `json:"workflow_id"`

	// Input is the run's input, captured at construction.
	Input Input `json:"input"`

	// Status is the workflow-level status.
	Status WorkflowStatus `json:"status"`

	// StartedAt is when the run began.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the run reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Diagnostic captures a coordinator-internal fault that could not be
	// attributed to any phase slot. Nil in normal operation.
	Diagnostic *PhaseResult `json:"diagnostic,omitempty"`

	phases map[PhaseName]*PhaseResult
}

// AgentNames maps each phase to the name of its default collaborator.
var AgentNames = map[PhaseName]string{
	PhaseDocumentation:    "clinical_documentation",
	PhaseCoding:           "medical_coding",
	PhaseCompliance:       "compliance",
	PhasePriorAuth:        "prior_authorization",
	PhaseQualityAssurance: "quality_assurance",
}

// NewWorkflowState creates a new run with all five phase slots pending.
// Every slot exists from construction, including phases that end up
// skipped or never reached.
func NewWorkflowState(in Input) *WorkflowState {
	phases := make(map[PhaseName]*PhaseResult, len(PhaseOrder))
	for _, name := range PhaseOrder {
		phases[name] = newPhaseResult(name, AgentNames[name])
	}

	return &WorkflowState{
		ID:     uuid.New().String(),
		Input:  in,
		Status: WorkflowStatusPending,
		phases: phases,
	}
}

// Phase returns the result slot for the given phase, or nil for an
// unknown phase name.
func (s *WorkflowState) Phase(name PhaseName) *PhaseResult {
	return s.phases[name]
}

// AllPhases returns the five phase results in execution order.
func (s *WorkflowState) AllPhases() []*PhaseResult {
	out := make([]*PhaseResult, 0, len(PhaseOrder))
	for _, name := range PhaseOrder {
		out = append(out, s.phases[name])
	}
	return out
}

// CompletedPhases returns the phases that completed successfully.
func (s *WorkflowState) CompletedPhases() []*PhaseResult {
	var out []*PhaseResult
	for _, p := range s.AllPhases() {
		if p.Status == PhaseStatusCompleted {
			out = append(out, p)
		}
	}
	return out
}

// FailedPhases returns the phases that failed.
func (s *WorkflowState) FailedPhases() []*PhaseResult {
	var out []*PhaseResult
	for _, p := range s.AllPhases() {
		if p.Status == PhaseStatusFailed {
			out = append(out, p)
		}
	}
	return out
}

// TotalDuration returns the sum of all phase durations.
func (s *WorkflowState) TotalDuration() time.Duration {
	var total time.Duration
	for _, p := range s.AllPhases() {
		if d, ok := p.Duration(); ok {
			total += d
		}
	}
	return total
}

// TotalTokens returns the aggregate token usage across all phases.
func (s *WorkflowState) TotalTokens() agent.TokenUsage {
	var total agent.TokenUsage
	for _, p := range s.AllPhases() {
		total.Add(p.Usage)
	}
	return total
}

// Start marks the workflow as in progress. No-op once terminal.
func (s *WorkflowState) Start() {
	if s.Status.IsTerminal() {
		return
	}
	s.Status = WorkflowStatusInProgress
	now := time.Now()
	s.StartedAt = &now
}

// Complete marks the workflow as completed. No-op once terminal.
func (s *WorkflowState) Complete() {
	s.finish(WorkflowStatusCompleted)
}

// Fail marks the workflow as failed. No-op once terminal.
func (s *WorkflowState) Fail() {
	s.finish(WorkflowStatusFailed)
}

// NeedsReview marks the workflow as needing human review. No-op once terminal.
func (s *WorkflowState) NeedsReview() {
	s.finish(WorkflowStatusNeedsReview)
}

func (s *WorkflowState) finish(status WorkflowStatus) {
	if s.Status.IsTerminal() {
		return
	}
	s.Status = status
	now := time.Now()
	s.CompletedAt = &now
}

// FailedPhase returns the first failed phase in execution order, or ""
// when no phase failed. For a FAILED workflow this is the phase whose
// error the caller must surface.
func (s *WorkflowState) FailedPhase() PhaseName {
	for _, p := range s.AllPhases() {
		if p.Status == PhaseStatusFailed {
			return p.Phase
		}
	}
	return ""
}

// ReviewPhase returns the non-fatal phase that degraded the outcome to
// NEEDS_REVIEW, or "" when neither prior auth nor quality assurance failed.
func (s *WorkflowState) ReviewPhase() PhaseName {
	for _, name := range []PhaseName{PhasePriorAuth, PhaseQualityAssurance} {
		if s.phases[name].Status == PhaseStatusFailed {
			return name
		}
	}
	return ""
}
