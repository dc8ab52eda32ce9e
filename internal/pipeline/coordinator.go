package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinical-bridge/clinbridge/internal/agent"
)

// Agents holds the five collaborators, one per phase. All dependencies are
// constructor-injected; the coordinator keeps no global state.
type Agents struct {
	Documentation    agent.Agent
	Coding           agent.Agent
	Compliance       agent.Agent
	PriorAuth        agent.Agent
	QualityAssurance agent.Agent
}

// Validate checks that every phase has a collaborator assigned.
func (a Agents) Validate() error {
	for name, ag := range a.byPhase() {
		if ag == nil {
			return fmt.Errorf("no agent assigned to phase %s", name)
		}
	}
	return nil
}

func (a Agents) byPhase() map[PhaseName]agent.Agent {
	return map[PhaseName]agent.Agent{
		PhaseDocumentation:    a.Documentation,
		PhaseCoding:           a.Coding,
		PhaseCompliance:       a.Compliance,
		PhasePriorAuth:        a.PriorAuth,
		PhaseQualityAssurance: a.QualityAssurance,
	}
}

// phaseSpec is one entry in the declarative phase plan. The fatal policy
// and the conditional branch live here, not in per-phase branch logic.
type phaseSpec struct {
	name  PhaseName
	fatal bool

	// skip, when non-nil and true for the run's input, marks the phase
	// skipped without invoking its collaborator.
	skip func(in Input) bool

	// inputs builds the collaborator's named text inputs from the state.
	inputs func(s *WorkflowState) map[string]string

	// require lists phases whose content must be present before this
	// phase may run in step mode.
	require []PhaseName
}

// sharedInputs adds the run-level context every collaborator receives:
// the patient identifier and the payer, when present.
func sharedInputs(s *WorkflowState, in map[string]string) map[string]string {
	if s.Input.PatientID != "" {
		in[agent.InputPatientID] = s.Input.PatientID
	}
	if s.Input.Payer != "" {
		in[agent.InputPayer] = s.Input.Payer
	}
	return in
}

// phasePlan is the fixed five-phase sequence. Documentation, coding, and
// compliance are fatal: their failure halts the run. Prior auth is
// conditional and non-fatal. Quality assurance is non-fatal and terminal.
var phasePlan = []phaseSpec{
	{
		name:  PhaseDocumentation,
		fatal: true,
		inputs: func(s *WorkflowState) map[string]string {
			return sharedInputs(s, map[string]string{
				agent.InputNote: s.Input.Note,
			})
		},
	},
	{
		name:    PhaseCoding,
		fatal:   true,
		require: []PhaseName{PhaseDocumentation},
		inputs: func(s *WorkflowState) map[string]string {
			return sharedInputs(s, map[string]string{
				agent.InputDocumentation: s.Phase(PhaseDocumentation).Content,
			})
		},
	},
	{
		name:    PhaseCompliance,
		fatal:   true,
		require: []PhaseName{PhaseDocumentation, PhaseCoding},
		inputs: func(s *WorkflowState) map[string]string {
			return sharedInputs(s, map[string]string{
				agent.InputDocumentation: s.Phase(PhaseDocumentation).Content,
				agent.InputCodes:         s.Phase(PhaseCoding).Content,
			})
		},
	},
	{
		name:    PhasePriorAuth,
		fatal:   false,
		require: []PhaseName{PhaseDocumentation},
		skip: func(in Input) bool {
			return in.SkipPriorAuth || in.Payer == "" || in.Procedure == ""
		},
		inputs: func(s *WorkflowState) map[string]string {
			return sharedInputs(s, map[string]string{
				agent.InputDocumentation: s.Phase(PhaseDocumentation).Content,
				agent.InputProcedure:     s.Input.Procedure,
			})
		},
	},
	{
		name:    PhaseQualityAssurance,
		fatal:   false,
		require: []PhaseName{PhaseDocumentation, PhaseCoding},
		inputs: func(s *WorkflowState) map[string]string {
			return sharedInputs(s, map[string]string{
				agent.InputNote:          s.Input.Note,
				agent.InputDocumentation: s.Phase(PhaseDocumentation).Content,
				agent.InputCodes:         s.Phase(PhaseCoding).Content,
				agent.InputCompliance:    s.Phase(PhaseCompliance).Content,
			})
		},
	},
}

// Coordinator owns the fixed phase sequence, the fatal/non-fatal failure
// policy, the conditional prior-auth branch, and the final workflow-status
// decision. It is the only component with cross-phase knowledge.
//
// A Coordinator is safe for concurrent use: each ProcessNote call owns its
// WorkflowState exclusively.
type Coordinator struct {
	agents   map[PhaseName]agent.Agent
	executor *PhaseExecutor
	logger   *slog.Logger
	tracer   trace.Tracer
}

// CoordinatorOption is a functional option for configuring the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the structured logger for workflow events.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithTracer enables OpenTelemetry spans per workflow and per phase.
func WithTracer(tracer trace.Tracer) CoordinatorOption {
	return func(c *Coordinator) {
		c.tracer = tracer
	}
}

// WithExecutor replaces the phase executor. Use this to tune the retry
// policy or the per-invocation timeout.
func WithExecutor(e *PhaseExecutor) CoordinatorOption {
	return func(c *Coordinator) {
		c.executor = e
	}
}

// NewCoordinator creates a Coordinator with the given collaborators.
func NewCoordinator(agents Agents, opts ...CoordinatorOption) (*Coordinator, error) {
	if err := agents.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		agents: agents.byPhase(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.executor == nil {
		c.executor = NewPhaseExecutor(WithExecutorLogger(c.logger))
	}
	return c, nil
}

// ProcessNote runs a clinical note through the full pipeline and returns
// the finished WorkflowState. It never returns an error and never panics
// outward: pipeline failures land in the workflow status, and any fault in
// the orchestration logic itself is converted into a FAILED workflow with
// a synthetic diagnostic result.
func (c *Coordinator) ProcessNote(ctx context.Context, in Input) *WorkflowState {
	state := NewWorkflowState(in)
	state.Start()

	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.Start(ctx, "pipeline.process_note",
			trace.WithAttributes(
				attribute.String("workflow.id", state.ID),
				attribute.Bool("workflow.skip_prior_auth", in.SkipPriorAuth),
			),
		)
		defer span.End()
	}

	c.logger.InfoContext(ctx, "workflow started",
		"workflow_id", state.ID,
		"has_patient_id", in.PatientID != "",
		"payer", in.Payer,
		"skip_prior_auth", in.SkipPriorAuth,
	)

	start := time.Now()
	c.runGuarded(ctx, state)

	c.logger.InfoContext(ctx, "workflow finished",
		"workflow_id", state.ID,
		"status", state.Status,
		"duration", time.Since(start),
		"total_tokens", state.TotalTokens().Total(),
	)
	if span != nil {
		span.SetAttributes(attribute.String("workflow.status", state.Status.String()))
	}

	return state
}

// runGuarded executes the phase plan with a recovery boundary around the
// coordinator's own logic. A panic here is a coordinator-internal fault:
// it is logged, attributed to the running phase when one exists, and the
// workflow fails.
func (c *Coordinator) runGuarded(ctx context.Context, state *WorkflowState) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "workflow internal fault",
				"workflow_id", state.ID,
				"panic", r,
			)
			c.recordFault(state, fmt.Sprintf("internal error: %v", r))
			state.Fail()
		}
	}()

	c.run(ctx, state)
}

func (c *Coordinator) run(ctx context.Context, state *WorkflowState) {
	for _, spec := range phasePlan {
		pr := state.Phase(spec.name)

		if spec.skip != nil && spec.skip(state.Input) {
			pr.MarkSkipped()
			c.logger.InfoContext(ctx, "phase skipped",
				"workflow_id", state.ID,
				"phase", spec.name,
			)
			continue
		}

		c.executePhase(ctx, state, spec, pr)

		if pr.Status == PhaseStatusFailed && spec.fatal {
			// Later phases stay pending: never attempted, as opposed to
			// intentionally bypassed.
			state.Fail()
			return
		}
	}

	c.resolve(state)
}

func (c *Coordinator) executePhase(ctx context.Context, state *WorkflowState, spec phaseSpec, pr *PhaseResult) {
	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.Start(ctx, "pipeline.phase",
			trace.WithAttributes(
				attribute.String("workflow.id", state.ID),
				attribute.String("phase.name", spec.name.String()),
				attribute.String("phase.agent", pr.Agent),
			),
		)
		defer span.End()
	}

	c.executor.Execute(ctx, pr, c.agents[spec.name], spec.inputs(state), true)

	if span != nil {
		span.SetAttributes(attribute.String("phase.status", pr.Status.String()))
	}
}

// resolve applies the final workflow-status decision after the full plan
// has run: a failed non-fatal phase downgrades the run to NEEDS_REVIEW,
// otherwise the run completed.
func (c *Coordinator) resolve(state *WorkflowState) {
	if state.ReviewPhase() != "" {
		state.NeedsReview()
		return
	}
	state.Complete()
}

// recordFault attributes a coordinator-internal fault to the phase that was
// running, or to a synthetic diagnostic slot when no phase was in flight.
func (c *Coordinator) recordFault(state *WorkflowState, msg string) {
	for _, p := range state.AllPhases() {
		if p.Status == PhaseStatusRunning {
			p.MarkFailed(msg)
			return
		}
	}
	diag := newPhaseResult("coordinator", "coordinator")
	diag.MarkFailed(msg)
	state.Diagnostic = diag
}

// RunPhase executes exactly one phase against a caller-owned state. Hosts
// that pause between phases for human approval use this instead of
// ProcessNote. The caller must serialize RunPhase calls per workflow; the
// core assumes single-writer access.
//
// Prerequisite phases must have content (possibly human-edited) before the
// phase may run. The workflow status is left untouched; call Resolve once
// no further phases will be run.
func (c *Coordinator) RunPhase(ctx context.Context, state *WorkflowState, name PhaseName) error {
	spec, ok := findPhaseSpec(name)
	if !ok {
		return fmt.Errorf("unknown phase: %s", name)
	}

	if spec.skip != nil && spec.skip(state.Input) {
		state.Phase(name).MarkSkipped()
		return nil
	}

	for _, req := range spec.require {
		if state.Phase(req).Content == "" {
			return fmt.Errorf("phase %s requires completed %s content", name, req)
		}
	}
	if name == PhaseDocumentation && state.Input.Note == "" {
		return fmt.Errorf("phase %s requires a clinical note", name)
	}

	if state.Status == WorkflowStatusPending {
		state.Start()
	}

	c.executePhase(ctx, state, spec, state.Phase(name))
	return nil
}

// Resolve applies the terminal-status policy to a stepwise-executed state:
// a failed fatal phase fails the workflow, a failed non-fatal phase
// downgrades it to NEEDS_REVIEW, otherwise it completes. No-op when any
// phase is still pending or running.
func (c *Coordinator) Resolve(state *WorkflowState) {
	for _, spec := range phasePlan {
		pr := state.Phase(spec.name)
		if pr.Status == PhaseStatusFailed && spec.fatal {
			state.Fail()
			return
		}
		if !pr.Status.IsTerminal() {
			return
		}
	}
	c.resolve(state)
}

func findPhaseSpec(name PhaseName) (phaseSpec, bool) {
	for _, spec := range phasePlan {
		if spec.name == name {
			return spec, true
		}
	}
	return phaseSpec{}, false
}
