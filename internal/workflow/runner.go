package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const (
	// defaultAttempts is the total attempt budget for one durable step,
	// including the first execution.
	defaultAttempts = 3
	defaultBackoff  = 1 * time.Second
)

// Runner executes named durable steps. A step whose result is already
// checkpointed is skipped on replay; otherwise the unit of work runs with a
// bounded retry budget and its result is checkpointed on success. Units of
// work that mutate external state must be safe to re-invoke, since a crash
// between execution and checkpointing replays the whole step.
type Runner struct {
	checkpoints CheckpointStore
	attempts    int
	backoff     time.Duration
	logger      *slog.Logger
}

func NewRunner(checkpoints CheckpointStore, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		checkpoints: checkpoints,
		attempts:    defaultAttempts,
		backoff:     defaultBackoff,
		logger:      logger,
	}
}

// WithAttempts overrides the per-step attempt budget. Values below one are
// ignored.
func (r *Runner) WithAttempts(attempts int) *Runner {
	if attempts >= 1 {
		r.attempts = attempts
	}
	return r
}

// WithBackoff overrides the initial retry backoff.
func (r *Runner) WithBackoff(d time.Duration) *Runner {
	if d > 0 {
		r.backoff = d
	}
	return r
}

// Do runs a durable step that produces no result.
func (r *Runner) Do(ctx context.Context, projectID, step string, fn func(ctx context.Context) error) error {
	_, err := RunStep(ctx, r, projectID, step, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RunStep runs a durable step that produces a typed result. On replay the
// checkpointed result is decoded and returned without re-executing the unit
// of work. After the retry budget is exhausted the underlying error is
// returned to the caller unaltered.
//
// This is a package-level generic function because Go does not allow generic
// methods.
func RunStep[T any](ctx context.Context, r *Runner, projectID, step string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	data, err := r.checkpoints.Get(ctx, projectID, step)
	if err != nil {
		return zero, fmt.Errorf("step %q: %w", step, err)
	}
	if len(data) > 0 {
		var result T
		if err := json.Unmarshal(data, &result); err != nil {
			return zero, fmt.Errorf("failed to decode checkpointed result for step %q: %w", step, err)
		}
		r.logger.Info("Skipping already-completed step.", "projectId", projectID, "step", step)
		return result, nil
	}

	result, runErr := executeStep(ctx, r, projectID, step, fn)
	if runErr != nil {
		return zero, runErr
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("failed to encode result for step %q: %w", step, err)
	}
	if err := r.checkpoints.Save(ctx, projectID, step, encoded); err != nil {
		return zero, fmt.Errorf("step %q: %w", step, err)
	}
	return result, nil
}

// executeStep retries the unit of work up to the attempt budget with
// exponential backoff. No partial result is carried across attempts.
func executeStep[T any](ctx context.Context, r *Runner, projectID, step string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	backoff := r.backoff
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == r.attempts {
			break
		}
		r.logger.Warn("Step failed, will retry.",
			"projectId", projectID,
			"step", step,
			"attempt", attempt,
			"maxAttempts", r.attempts,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			r.logger.Error("Context cancelled during backoff. Aborting retries.", "step", step, "error", ctx.Err())
			return zero, ctx.Err()
		}
	}

	r.logger.Error("Step failed after all attempts.", "projectId", projectID, "step", step, "error", lastErr)
	return zero, lastErr
}
