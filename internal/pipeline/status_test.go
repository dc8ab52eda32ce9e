package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status WorkflowStatus
		want   bool
	}{
		{WorkflowStatusPending, false},
		{WorkflowStatusInProgress, false},
		{WorkflowStatusCompleted, true},
		{WorkflowStatusFailed, true},
		{WorkflowStatusNeedsReview, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestPhaseStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status PhaseStatus
		want   bool
	}{
		{PhaseStatusPending, false},
		{PhaseStatusRunning, false},
		{PhaseStatusCompleted, true},
		{PhaseStatusFailed, true},
		{PhaseStatusSkipped, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestPhaseNameIsValid(t *testing.T) {
	for _, name := range PhaseOrder {
		assert.True(t, name.IsValid(), "phase %s should be valid", name)
	}
	assert.False(t, PhaseName("triage").IsValid())
	assert.False(t, PhaseName("").IsValid())
}
