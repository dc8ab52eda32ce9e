package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/clinical-bridge/clinbridge/internal/agent"
)

type testAgents struct {
	doc        *agent.MockAgent
	coding     *agent.MockAgent
	compliance *agent.MockAgent
	priorAuth  *agent.MockAgent
	qa         *agent.MockAgent
}

func happyAgents() testAgents {
	return testAgents{
		doc:        agent.NewMockAgentContent(agent.NameDocumentation, "structured documentation"),
		coding:     agent.NewMockAgentContent(agent.NameCoding, "suggested codes"),
		compliance: agent.NewMockAgentContent(agent.NameCompliance, "compliance findings"),
		priorAuth:  agent.NewMockAgentContent(agent.NamePriorAuth, "auth assessment"),
		qa:         agent.NewMockAgentContent(agent.NameQualityAssurance, "final review"),
	}
}

func (a testAgents) agents() Agents {
	return Agents{
		Documentation:    a.doc,
		Coding:           a.coding,
		Compliance:       a.compliance,
		PriorAuth:        a.priorAuth,
		QualityAssurance: a.qa,
	}
}

func newTestCoordinator(t *testing.T, a testAgents, opts ...CoordinatorOption) *Coordinator {
	t.Helper()
	opts = append([]CoordinatorOption{
		WithExecutor(NewPhaseExecutor(
			WithRetryPolicy(RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}),
		)),
	}, opts...)
	c, err := NewCoordinator(a.agents(), opts...)
	require.NoError(t, err)
	return c
}

func TestNewCoordinatorRequiresAllAgents(t *testing.T) {
	a := happyAgents()
	agents := a.agents()
	agents.Compliance = nil

	_, err := NewCoordinator(agents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compliance")
}

func TestProcessNoteAllPhasesSucceed(t *testing.T) {
	a := happyAgents()
	c := newTestCoordinator(t, a)

	state := c.ProcessNote(context.Background(), Input{
		Note:      "65yo male with chest pain",
		Payer:     "Medicare",
		Procedure: "99214",
	})

	assert.Equal(t, WorkflowStatusCompleted, state.Status)
	for _, p := range state.AllPhases() {
		assert.Equal(t, PhaseStatusCompleted, p.Status, "phase %s", p.Phase)
	}
}

func TestProcessNoteChainsPhaseInputs(t *testing.T) {
	a := happyAgents()
	c := newTestCoordinator(t, a)

	c.ProcessNote(context.Background(), Input{
		Note:      "raw note",
		PatientID: "P42",
		Payer:     "Aetna",
		Procedure: "27447",
	})

	require.Len(t, a.doc.Calls(), 1)
	assert.Equal(t, "raw note", a.doc.Calls()[0].Inputs[agent.InputNote])

	require.Len(t, a.coding.Calls(), 1)
	assert.Equal(t, "structured documentation", a.coding.Calls()[0].Inputs[agent.InputDocumentation])

	require.Len(t, a.compliance.Calls(), 1)
	assert.Equal(t, "suggested codes", a.compliance.Calls()[0].Inputs[agent.InputCodes])

	require.Len(t, a.priorAuth.Calls(), 1)
	authInputs := a.priorAuth.Calls()[0].Inputs
	assert.Equal(t, "Aetna", authInputs[agent.InputPayer])
	assert.Equal(t, "27447", authInputs[agent.InputProcedure])
	assert.Equal(t, "structured documentation", authInputs[agent.InputDocumentation])

	require.Len(t, a.qa.Calls(), 1)
	qaInputs := a.qa.Calls()[0].Inputs
	assert.Equal(t, "raw note", qaInputs[agent.InputNote])
	assert.Equal(t, "compliance findings", qaInputs[agent.InputCompliance])
}

func TestProcessNoteSharesRunContextWithEveryPhase(t *testing.T) {
	a := happyAgents()
	c := newTestCoordinator(t, a)

	c.ProcessNote(context.Background(), Input{
		Note:      "raw note",
		PatientID: "P42",
		Payer:     "Aetna",
		Procedure: "27447",
	})

	for _, mock := range []*agent.MockAgent{a.doc, a.coding, a.compliance, a.priorAuth, a.qa} {
		require.Len(t, mock.Calls(), 1)
		inputs := mock.Calls()[0].Inputs
		assert.Equal(t, "P42", inputs[agent.InputPatientID], "agent %s", mock.Name())
		assert.Equal(t, "Aetna", inputs[agent.InputPayer], "agent %s", mock.Name())
	}
}

func TestProcessNoteFatalPhaseHaltsSequence(t *testing.T) {
	tests := []struct {
		name  string
		phase PhaseName
	}{
		{"documentation fails", PhaseDocumentation},
		{"coding fails", PhaseCoding},
		{"compliance fails", PhaseCompliance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := happyAgents()
			failing := agent.NewMockAgentError(AgentNames[tt.phase], "persistent failure")
			switch tt.phase {
			case PhaseDocumentation:
				a.doc = failing
			case PhaseCoding:
				a.coding = failing
			case PhaseCompliance:
				a.compliance = failing
			}

			c := newTestCoordinator(t, a)
			state := c.ProcessNote(context.Background(), Input{
				Note:      "note",
				Payer:     "Medicare",
				Procedure: "99214",
			})

			assert.Equal(t, WorkflowStatusFailed, state.Status)
			assert.Equal(t, tt.phase, state.FailedPhase())
			assert.Equal(t, PhaseStatusFailed, state.Phase(tt.phase).Status)

			// Every later phase stays pending: never attempted, not skipped.
			seen := false
			for _, name := range PhaseOrder {
				if name == tt.phase {
					seen = true
					continue
				}
				if seen {
					assert.Equal(t, PhaseStatusPending, state.Phase(name).Status,
						"phase %s after the failure must stay pending", name)
				}
			}
		})
	}
}

func TestProcessNotePriorAuthSkipConditions(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{"no payer", Input{Note: "note", Procedure: "99214"}},
		{"no procedure", Input{Note: "note", Payer: "Medicare"}},
		{"skip flag", Input{Note: "note", Payer: "Medicare", Procedure: "99214", SkipPriorAuth: true}},
		{"note only", Input{Note: "note"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := happyAgents()
			c := newTestCoordinator(t, a)

			state := c.ProcessNote(context.Background(), tt.input)

			assert.Equal(t, WorkflowStatusCompleted, state.Status)
			assert.Equal(t, PhaseStatusSkipped, state.Phase(PhasePriorAuth).Status)
			assert.Zero(t, a.priorAuth.CallCount(), "skipped phase must never invoke its agent")
			assert.Equal(t, PhaseStatusCompleted, state.Phase(PhaseQualityAssurance).Status,
				"quality assurance still runs after a skip")
		})
	}
}

func TestProcessNotePriorAuthFailureIsNonFatal(t *testing.T) {
	a := happyAgents()
	a.priorAuth = agent.NewMockAgentError(agent.NamePriorAuth, "payer criteria unavailable")
	c := newTestCoordinator(t, a)

	state := c.ProcessNote(context.Background(), Input{
		Note:      "note",
		Payer:     "Medicare",
		Procedure: "99214",
	})

	assert.Equal(t, WorkflowStatusNeedsReview, state.Status)
	assert.Equal(t, PhasePriorAuth, state.ReviewPhase())
	assert.Equal(t, PhaseStatusCompleted, state.Phase(PhaseQualityAssurance).Status,
		"quality assurance still runs after a prior auth failure")
}

func TestProcessNoteQualityAssuranceFailureNeedsReview(t *testing.T) {
	a := happyAgents()
	a.qa = agent.NewMockAgentError(agent.NameQualityAssurance, "review could not complete")
	c := newTestCoordinator(t, a)

	state := c.ProcessNote(context.Background(), Input{Note: "note"})

	assert.Equal(t, WorkflowStatusNeedsReview, state.Status,
		"a failing terminal phase never yields a failed workflow")
	assert.Equal(t, PhaseQualityAssurance, state.ReviewPhase())
}

func TestProcessNoteRetriesTransientAgentErrors(t *testing.T) {
	a := happyAgents()
	a.coding = agent.NewMockAgent(agent.NameCoding,
		&agent.Result{Agent: agent.NameCoding, Err: "overloaded"},
		&agent.Result{Agent: agent.NameCoding, Err: "overloaded"},
		&agent.Result{Agent: agent.NameCoding, Content: "suggested codes"},
	)
	c := newTestCoordinator(t, a)

	state := c.ProcessNote(context.Background(), Input{Note: "note"})

	assert.Equal(t, WorkflowStatusCompleted, state.Status)
	assert.Equal(t, 3, a.coding.CallCount())
	assert.Equal(t, PhaseStatusCompleted, state.Phase(PhaseCoding).Status)
}

func TestProcessNoteDeterministicAcrossRuns(t *testing.T) {
	input := Input{Note: "note", Payer: "Medicare", Procedure: "99214"}

	run := func() *WorkflowState {
		a := happyAgents()
		a.priorAuth = agent.NewMockAgentError(agent.NamePriorAuth, "criteria missing")
		return newTestCoordinator(t, a).ProcessNote(context.Background(), input)
	}

	first, second := run(), run()

	assert.Equal(t, first.Status, second.Status)
	for _, name := range PhaseOrder {
		assert.Equal(t, first.Phase(name).Status, second.Phase(name).Status, "phase %s", name)
	}
}

func TestProcessNoteRecoversFromPanic(t *testing.T) {
	a := happyAgents()
	a.coding = nil
	agents := a.agents()
	agents.Coding = &funcAgent{
		name: agent.NameCoding,
		run: func(ctx context.Context, inputs map[string]string) (*agent.Result, error) {
			panic("corrupted state")
		},
	}

	c, err := NewCoordinator(agents, WithExecutor(NewPhaseExecutor(
		WithRetryPolicy(RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond}),
	)))
	require.NoError(t, err)

	var state *WorkflowState
	require.NotPanics(t, func() {
		state = c.ProcessNote(context.Background(), Input{Note: "note"})
	})

	assert.Equal(t, WorkflowStatusFailed, state.Status)
	assert.Equal(t, PhaseStatusFailed, state.Phase(PhaseCoding).Status)
	assert.Contains(t, state.Phase(PhaseCoding).Error, "internal error")
}

func TestProcessNoteEmitsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	a := happyAgents()
	c := newTestCoordinator(t, a, WithTracer(tp.Tracer("test")))

	c.ProcessNote(context.Background(), Input{Note: "note"})

	spans := exporter.GetSpans()
	// One workflow span plus one per executed phase (prior auth skipped).
	assert.Len(t, spans, 5)
}

func TestRunPhaseStepwiseExecution(t *testing.T) {
	a := happyAgents()
	c := newTestCoordinator(t, a, WithTracer(noop.NewTracerProvider().Tracer("test")))

	state := NewWorkflowState(Input{Note: "note"})

	require.NoError(t, c.RunPhase(context.Background(), state, PhaseDocumentation))
	assert.Equal(t, WorkflowStatusInProgress, state.Status)
	assert.Equal(t, PhaseStatusCompleted, state.Phase(PhaseDocumentation).Status)

	require.NoError(t, c.RunPhase(context.Background(), state, PhaseCoding))
	require.NoError(t, c.RunPhase(context.Background(), state, PhaseCompliance))
	require.NoError(t, c.RunPhase(context.Background(), state, PhasePriorAuth))
	assert.Equal(t, PhaseStatusSkipped, state.Phase(PhasePriorAuth).Status,
		"no payer or procedure in the input")
	require.NoError(t, c.RunPhase(context.Background(), state, PhaseQualityAssurance))

	c.Resolve(state)
	assert.Equal(t, WorkflowStatusCompleted, state.Status)
}

func TestRunPhaseAllowsEditedContent(t *testing.T) {
	a := happyAgents()
	c := newTestCoordinator(t, a)

	state := NewWorkflowState(Input{Note: "note"})
	require.NoError(t, c.RunPhase(context.Background(), state, PhaseDocumentation))

	// A reviewer edits the documentation before coding runs.
	state.Phase(PhaseDocumentation).Content = "edited documentation"

	require.NoError(t, c.RunPhase(context.Background(), state, PhaseCoding))
	assert.Equal(t, "edited documentation", a.coding.Calls()[0].Inputs[agent.InputDocumentation])
}

func TestRunPhaseValidation(t *testing.T) {
	a := happyAgents()
	c := newTestCoordinator(t, a)

	state := NewWorkflowState(Input{Note: "note"})

	err := c.RunPhase(context.Background(), state, PhaseName("triage"))
	assert.ErrorContains(t, err, "unknown phase")

	err = c.RunPhase(context.Background(), state, PhaseCoding)
	assert.ErrorContains(t, err, "requires completed documentation")

	empty := NewWorkflowState(Input{})
	err = c.RunPhase(context.Background(), empty, PhaseDocumentation)
	assert.ErrorContains(t, err, "clinical note")
}

func TestResolveStepwiseOutcomes(t *testing.T) {
	a := happyAgents()
	c := newTestCoordinator(t, a)

	t.Run("fatal failure fails the workflow", func(t *testing.T) {
		state := NewWorkflowState(Input{Note: "note"})
		state.Start()
		state.Phase(PhaseDocumentation).MarkCompleted("doc", nil)
		state.Phase(PhaseCoding).MarkFailed("no codes")

		c.Resolve(state)
		assert.Equal(t, WorkflowStatusFailed, state.Status)
	})

	t.Run("incomplete workflow is left open", func(t *testing.T) {
		state := NewWorkflowState(Input{Note: "note"})
		state.Start()
		state.Phase(PhaseDocumentation).MarkCompleted("doc", nil)

		c.Resolve(state)
		assert.Equal(t, WorkflowStatusInProgress, state.Status)
	})

	t.Run("non-fatal failure needs review", func(t *testing.T) {
		state := NewWorkflowState(Input{Note: "note", Payer: "Medicare", Procedure: "99214"})
		state.Start()
		state.Phase(PhaseDocumentation).MarkCompleted("doc", nil)
		state.Phase(PhaseCoding).MarkCompleted("codes", nil)
		state.Phase(PhaseCompliance).MarkCompleted("findings", nil)
		state.Phase(PhasePriorAuth).MarkFailed("criteria missing")
		state.Phase(PhaseQualityAssurance).MarkCompleted("review", nil)

		c.Resolve(state)
		assert.Equal(t, WorkflowStatusNeedsReview, state.Status)
	})
}
