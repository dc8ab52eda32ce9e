package pipeline

// WorkflowStatus represents the current status of a pipeline run.
type WorkflowStatus string

const (
	// WorkflowStatusPending indicates the workflow is created but not yet started.
	WorkflowStatusPending WorkflowStatus = "pending"

	// WorkflowStatusInProgress indicates the workflow is currently executing.
	WorkflowStatusInProgress WorkflowStatus = "in_progress"

	// WorkflowStatusCompleted indicates every executed phase succeeded.
	WorkflowStatusCompleted WorkflowStatus = "completed"

	// WorkflowStatusFailed indicates a fatal phase failed and the run halted.
	WorkflowStatusFailed WorkflowStatus = "failed"

	// WorkflowStatusNeedsReview indicates the run finished but a non-fatal
	// phase failed, so a human reviewer must inspect the output.
	WorkflowStatusNeedsReview WorkflowStatus = "needs_review"
)

// String returns the string representation of the workflow status.
func (s WorkflowStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status represents a terminal state.
// Terminal workflow statuses are never reverted.
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusNeedsReview:
		return true
	default:
		return false
	}
}

// PhaseStatus represents the status of an individual pipeline phase.
type PhaseStatus string

const (
	// PhaseStatusPending indicates the phase has not been attempted.
	PhaseStatusPending PhaseStatus = "pending"

	// PhaseStatusRunning indicates the phase's collaborator is executing.
	PhaseStatusRunning PhaseStatus = "running"

	// PhaseStatusCompleted indicates the phase produced content.
	PhaseStatusCompleted PhaseStatus = "completed"

	// PhaseStatusFailed indicates the phase's collaborator failed after
	// exhausting retries.
	PhaseStatusFailed PhaseStatus = "failed"

	// PhaseStatusSkipped indicates the phase was intentionally bypassed
	// and its collaborator never invoked. Distinct from pending: a pending
	// phase after a terminal workflow status was simply never reached.
	PhaseStatusSkipped PhaseStatus = "skipped"
)

// String returns the string representation of the phase status.
func (s PhaseStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status represents a terminal state for a phase.
func (s PhaseStatus) IsTerminal() bool {
	switch s {
	case PhaseStatusCompleted, PhaseStatusFailed, PhaseStatusSkipped:
		return true
	default:
		return false
	}
}
