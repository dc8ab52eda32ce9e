package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/clinical-bridge/clinbridge/internal/agent"
)

// AgentCall is a single collaborator invocation, already bound to its
// inputs.
type AgentCall func(ctx context.Context) (*agent.Result, error)

// RetryPolicy retries collaborator invocations that return agent-level
// errors, with exponential backoff. It is stateless and safe to share.
//
// Only results carrying an agent-level error (Result.Err) are retried.
// Go errors returned by the call are programming defects and propagate to
// the caller immediately; classifying them is the executor's job.
type RetryPolicy struct {
	// MaxRetries is the number of retry attempts after the first call.
	MaxRetries int

	// BaseDelay is the delay before the first retry. Each subsequent
	// retry doubles it.
	BaseDelay time.Duration

	// Logger receives retry warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultRetryPolicy returns the standard policy: 3 retries starting at
// one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

// Do invokes fn up to MaxRetries+1 times. On exhaustion the last erroring
// result is returned unchanged; the caller inspects Result.Err. The
// inter-attempt delay suspends on the context so concurrent runs are never
// stalled by one run's backoff.
func (p RetryPolicy) Do(ctx context.Context, fn AgentCall) (*agent.Result, error) {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}

	var last *agent.Result
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err != nil {
			return result, err
		}
		if !result.Failed() {
			return result, nil
		}
		last = result

		if attempt < p.MaxRetries {
			delay := p.BaseDelay << attempt
			log.WarnContext(ctx, "agent call failed, retrying",
				"agent", result.Agent,
				"attempt", attempt+1,
				"max_retries", p.MaxRetries,
				"error", result.Err,
				"delay", delay,
			)

			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	log.ErrorContext(ctx, "agent retries exhausted",
		"agent", last.Agent,
		"max_retries", p.MaxRetries,
		"error", last.Err,
	)
	return last, nil
}
