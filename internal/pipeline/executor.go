package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clinical-bridge/clinbridge/internal/agent"
)

// PhaseExecutor runs one collaborator invocation with PhaseResult
// lifecycle bookkeeping. It absorbs both agent-level errors and Go errors:
// the coordinator above it only ever observes terminal PhaseResults.
type PhaseExecutor struct {
	retry   RetryPolicy
	timeout time.Duration
	logger  *slog.Logger
}

// ExecutorOption is a functional option for configuring PhaseExecutor.
type ExecutorOption func(*PhaseExecutor)

// WithRetryPolicy sets the retry policy applied to collaborator calls.
func WithRetryPolicy(p RetryPolicy) ExecutorOption {
	return func(e *PhaseExecutor) {
		e.retry = p
	}
}

// WithTimeout sets the per-invocation timeout. A timed-out invocation is
// treated identically to an agent-level error. Zero disables the timeout.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *PhaseExecutor) {
		e.timeout = d
	}
}

// WithExecutorLogger sets the logger used for phase lifecycle events.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *PhaseExecutor) {
		e.logger = logger
	}
}

// NewPhaseExecutor creates a PhaseExecutor with the default retry policy
// and no timeout.
func NewPhaseExecutor(opts ...ExecutorOption) *PhaseExecutor {
	e := &PhaseExecutor{
		retry:  DefaultRetryPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the collaborator against the given phase slot.
//
// The slot moves to running before the call, then to a terminal status:
// completed when the result carries content, failed when it carries an
// agent-level error or the call returned a Go error. Failure here is not
// fatal to the pipeline; fatality is the coordinator's decision.
func (e *PhaseExecutor) Execute(ctx context.Context, pr *PhaseResult, ag agent.Agent, inputs map[string]string, useRetry bool) {
	pr.MarkRunning()

	e.logger.InfoContext(ctx, "phase started",
		"phase", pr.Phase,
		"agent", pr.Agent,
	)

	call := func(ctx context.Context) (*agent.Result, error) {
		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		result, err := ag.Run(ctx, inputs)
		if err != nil {
			// A timed-out call follows the same retry and failure path
			// as an agent-level error.
			if errors.Is(err, context.DeadlineExceeded) {
				return &agent.Result{
					Agent: ag.Name(),
					Err:   fmt.Sprintf("phase timed out after %s", e.timeout),
				}, nil
			}
			return result, err
		}
		return result, nil
	}

	var result *agent.Result
	var err error
	if useRetry {
		result, err = e.retry.Do(ctx, call)
	} else {
		result, err = call(ctx)
	}

	switch {
	case err != nil:
		pr.MarkFailed(fmt.Sprintf("unexpected error: %v", err))
		e.logger.ErrorContext(ctx, "phase error",
			"phase", pr.Phase,
			"agent", pr.Agent,
			"error", err,
		)
	case result == nil:
		pr.MarkFailed("agent returned no result")
		e.logger.ErrorContext(ctx, "phase error",
			"phase", pr.Phase,
			"agent", pr.Agent,
			"error", "nil result",
		)
	case result.Failed():
		pr.MarkFailed(result.Err)
		e.logger.ErrorContext(ctx, "phase failed",
			"phase", pr.Phase,
			"agent", pr.Agent,
			"error", result.Err,
		)
	default:
		pr.MarkCompleted(result.Content, result.Usage)
		d, _ := pr.Duration()
		e.logger.InfoContext(ctx, "phase completed",
			"phase", pr.Phase,
			"agent", pr.Agent,
			"duration", d,
		)
	}
}
