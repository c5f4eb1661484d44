package workflow

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/podgen/contentflow/internal/models"
)

// JobSpec names one generation job and the unit of work that produces its
// asset. Specs are built per run from the plan policy's output.
type JobSpec struct {
	Name    string
	Produce func(ctx context.Context) (*models.GeneratedAsset, error)
}

// JobOutcome is the terminal result of one job: exactly one of Asset and Err
// is set.
type JobOutcome struct {
	Name  string
	Asset *models.GeneratedAsset
	Err   error
}

// Fulfilled reports whether the job produced an asset.
func (o JobOutcome) Fulfilled() bool { return o.Err == nil }

// FanOut runs independent jobs concurrently and joins on all of their
// terminal outcomes. One job's failure never cancels or blocks its siblings;
// the caller observes the outcomes only once every job has settled.
type FanOut struct {
	runner *Runner
	logger *slog.Logger

	// Limit bounds concurrent jobs; zero means unbounded.
	Limit int
	// AttemptsPerJob adds a coordinator-level retry around each job's
	// durable execution. The default of 1 leaves retrying entirely to the
	// step runner's budget.
	AttemptsPerJob int
}

func NewFanOut(runner *Runner, logger *slog.Logger) *FanOut {
	if logger == nil {
		logger = slog.Default()
	}
	return &FanOut{runner: runner, logger: logger, AttemptsPerJob: 1}
}

// RunAll executes every job as a durable step named "generate:<job>" and
// returns one outcome per spec, index-aligned with the input regardless of
// completion order.
func (f *FanOut) RunAll(ctx context.Context, projectID string, specs []JobSpec) []JobOutcome {
	outcomes := make([]JobOutcome, len(specs))

	var g errgroup.Group
	if f.Limit > 0 {
		g.SetLimit(f.Limit)
	}

	for i, spec := range specs {
		g.Go(func() error {
			asset, err := f.runJob(ctx, projectID, spec)
			// Each job writes only its own slot; failures are recorded, not
			// propagated, so siblings always run to completion.
			outcomes[i] = JobOutcome{Name: spec.Name, Asset: asset, Err: err}
			if err != nil {
				f.logger.Warn("Generation job failed.", "projectId", projectID, "job", spec.Name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (f *FanOut) runJob(ctx context.Context, projectID string, spec JobSpec) (*models.GeneratedAsset, error) {
	attempts := f.AttemptsPerJob
	if attempts < 1 {
		attempts = 1
	}
	var asset *models.GeneratedAsset
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		asset, err = RunStep(ctx, f.runner, projectID, "generate:"+spec.Name, spec.Produce)
		if err == nil {
			return asset, nil
		}
	}
	return nil, err
}
