package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"github.com/podgen/contentflow/internal/models"
	"github.com/podgen/contentflow/internal/plan"
)

// StatusStore is the external status/persistence collaborator. Every
// mutation must be an idempotent overwrite, since durable-step retry may
// re-issue a call that already landed.
type StatusStore interface {
	SetProjectStatus(ctx context.Context, projectID string, status models.ProjectStatus) error
	SetJobStatuses(ctx context.Context, projectID string, patch models.JobStatuses) error
	SaveTranscript(ctx context.Context, projectID string, transcript *models.Transcript) error
	SaveJobErrors(ctx context.Context, projectID string, jobErrors map[string]string) error
	SaveGeneratedContent(ctx context.Context, projectID string, assets map[string]*models.GeneratedAsset) error
	// RecordWorkflowError writes the terminal failure record and the failing
	// stage's failed flag in one mutation.
	RecordWorkflowError(ctx context.Context, projectID string, rec *models.WorkflowError, stage models.JobStatuses) error
}

// Transcriber turns the uploaded audio into a transcript. Transcription depth
// may scale with the plan tier.
type Transcriber interface {
	Transcribe(ctx context.Context, req *models.WorkflowRequest, tier plan.Tier) (*models.Transcript, error)
}

// Generator produces one content asset for a named job.
type Generator interface {
	Produce(ctx context.Context, job string, transcript *models.Transcript, req *models.WorkflowRequest) (*models.GeneratedAsset, error)
}

// Orchestrator sequences one workflow run: status mutations, transcription,
// the generation fan-out, error aggregation and persistence. All durable
// steps go through the Runner so a resumed run skips completed work.
type Orchestrator struct {
	store       StatusStore
	transcriber Transcriber
	generator   Generator
	runner      *Runner
	fanout      *FanOut
	logger      *slog.Logger
}

func NewOrchestrator(store StatusStore, transcriber Transcriber, generator Generator, runner *Runner, fanout *FanOut, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:       store,
		transcriber: transcriber,
		generator:   generator,
		runner:      runner,
		fanout:      fanout,
		logger:      logger,
	}
}

// runState is the orchestrator-private state of one run. It lives only for
// the duration of Run; durable history lives in the external store.
type runState struct {
	transcript *models.Transcript
	generated  map[string]*models.GeneratedAsset
	jobErrors  map[string]string
}

// Run executes the full workflow for one trigger event. Individual
// generation-job failures degrade the result set without aborting the run;
// any failure in the sequential spine is recorded best-effort and re-raised
// so the invoking platform can apply its own retry policy.
func (o *Orchestrator) Run(ctx context.Context, req *models.WorkflowRequest) (*models.WorkflowResult, error) {
	tier := plan.ParseTier(req.Plan)
	logCtx := o.logger.With(
		"projectId", req.ProjectID,
		"plan", string(tier),
		"runId", uuid.NewString(),
	)
	logCtx.Info("Starting content workflow run.", "fileUrl", req.FileURL)

	state := &runState{
		generated: make(map[string]*models.GeneratedAsset),
		jobErrors: make(map[string]string),
	}

	if err := o.runner.Do(ctx, req.ProjectID, "status-processing", func(ctx context.Context) error {
		return o.store.SetProjectStatus(ctx, req.ProjectID, models.ProjectStatusProcessing)
	}); err != nil {
		return nil, o.fail(ctx, logCtx, req.ProjectID, "status-processing", err)
	}

	if err := o.runner.Do(ctx, req.ProjectID, "transcription-running", func(ctx context.Context) error {
		return o.store.SetJobStatuses(ctx, req.ProjectID, models.JobStatuses{Transcription: models.StepRunning})
	}); err != nil {
		return nil, o.fail(ctx, logCtx, req.ProjectID, "transcription-running", err)
	}

	transcript, err := RunStep(ctx, o.runner, req.ProjectID, "transcribe", func(ctx context.Context) (*models.Transcript, error) {
		return o.transcriber.Transcribe(ctx, req, tier)
	})
	if err != nil {
		// Transcription failure after retry exhaustion is fatal: the
		// generation phase is never entered.
		return nil, o.fail(ctx, logCtx, req.ProjectID, "transcribe", err)
	}
	state.transcript = transcript
	logCtx.Info("Transcription complete.", "durationSeconds", transcript.DurationSeconds)

	if err := o.runner.Do(ctx, req.ProjectID, "save-transcript", func(ctx context.Context) error {
		return o.store.SaveTranscript(ctx, req.ProjectID, transcript)
	}); err != nil {
		return nil, o.fail(ctx, logCtx, req.ProjectID, "save-transcript", err)
	}

	if err := o.runner.Do(ctx, req.ProjectID, "generation-running", func(ctx context.Context) error {
		return o.store.SetJobStatuses(ctx, req.ProjectID, models.JobStatuses{
			Transcription:     models.StepCompleted,
			ContentGeneration: models.StepRunning,
		})
	}); err != nil {
		return nil, o.fail(ctx, logCtx, req.ProjectID, "generation-running", err)
	}

	// Fan-out. This phase never raises: a failing job lands in jobErrors and
	// the run proceeds with a degraded result set.
	specs := o.buildSpecs(req, tier, transcript)
	outcomes := o.fanout.RunAll(ctx, req.ProjectID, specs)
	for _, outcome := range outcomes {
		if outcome.Fulfilled() {
			state.generated[outcome.Name] = outcome.Asset
		} else {
			state.jobErrors[outcome.Name] = outcome.Err.Error()
		}
	}
	logCtx.Info("Generation fan-out settled.",
		"jobs", len(outcomes),
		"fulfilled", len(state.generated),
		"failed", len(state.jobErrors),
	)

	if len(state.jobErrors) > 0 {
		if err := o.runner.Do(ctx, req.ProjectID, "save-job-errors", func(ctx context.Context) error {
			return o.store.SaveJobErrors(ctx, req.ProjectID, state.jobErrors)
		}); err != nil {
			return nil, o.fail(ctx, logCtx, req.ProjectID, "save-job-errors", err)
		}
	}

	if err := o.runner.Do(ctx, req.ProjectID, "generation-completed", func(ctx context.Context) error {
		return o.store.SetJobStatuses(ctx, req.ProjectID, models.JobStatuses{ContentGeneration: models.StepCompleted})
	}); err != nil {
		return nil, o.fail(ctx, logCtx, req.ProjectID, "generation-completed", err)
	}

	if err := o.runner.Do(ctx, req.ProjectID, "save-generated-content", func(ctx context.Context) error {
		return o.store.SaveGeneratedContent(ctx, req.ProjectID, state.generated)
	}); err != nil {
		return nil, o.fail(ctx, logCtx, req.ProjectID, "save-generated-content", err)
	}

	if err := o.runner.Do(ctx, req.ProjectID, "status-completed", func(ctx context.Context) error {
		return o.store.SetProjectStatus(ctx, req.ProjectID, models.ProjectStatusCompleted)
	}); err != nil {
		return nil, o.fail(ctx, logCtx, req.ProjectID, "status-completed", err)
	}

	logCtx.Info("Workflow run completed.")
	return &models.WorkflowResult{
		Success:   true,
		ProjectID: req.ProjectID,
		Plan:      string(tier),
	}, nil
}

func (o *Orchestrator) buildSpecs(req *models.WorkflowRequest, tier plan.Tier, transcript *models.Transcript) []JobSpec {
	names := plan.SelectJobs(tier)
	specs := make([]JobSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, JobSpec{
			Name: name,
			Produce: func(ctx context.Context) (*models.GeneratedAsset, error) {
				return o.generator.Produce(ctx, name, transcript, req)
			},
		})
	}
	return specs
}

// fail is the top-level failure handler. It attempts exactly one best-effort
// error-recording mutation; a failure of that recording is swallowed and
// logged so it never masks the original error, which is always returned.
func (o *Orchestrator) fail(ctx context.Context, logCtx *slog.Logger, projectID, step string, err error) error {
	logCtx.Error("Workflow run failed.", "step", step, "error", err)

	rec := &models.WorkflowError{
		Message:    err.Error(),
		Step:       step,
		StatusCode: statusCodeOf(err),
		Diagnostic: fmt.Sprintf("%+v", err),
		OccurredAt: time.Now().UTC(),
	}
	if recErr := o.store.RecordWorkflowError(ctx, projectID, rec, failedStage(step)); recErr != nil {
		logCtx.Error("CRITICAL: Failed to record workflow error after a processing failure.", "recordError", recErr)
	}
	return err
}

// failedStage maps the failing step to the stage flag that must terminate,
// so a dead run never leaves a flag stuck at running.
func failedStage(step string) models.JobStatuses {
	switch step {
	case "status-processing", "transcription-running", "transcribe", "save-transcript":
		return models.JobStatuses{Transcription: models.StepFailed}
	default:
		return models.JobStatuses{ContentGeneration: models.StepFailed}
	}
}

// statusCodeOf pulls a numeric HTTP status code out of the error chain when
// the failure originated in a Google API call.
func statusCodeOf(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
