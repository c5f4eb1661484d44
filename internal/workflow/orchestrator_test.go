package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podgen/contentflow/internal/models"
	"github.com/podgen/contentflow/internal/plan"
)

type orchestratorHarness struct {
	store       *fakeStatusStore
	transcriber *fakeTranscriber
	generator   *fakeGenerator
	checkpoints *memoryCheckpoints
	orch        *Orchestrator
}

func newHarness() *orchestratorHarness {
	h := &orchestratorHarness{
		store:       newFakeStatusStore(),
		transcriber: &fakeTranscriber{},
		generator:   newFakeGenerator(),
		checkpoints: newMemoryCheckpoints(),
	}
	h.rebuild()
	return h
}

// rebuild rewires the orchestrator over the same checkpoint store, as happens
// when the platform retries a failed invocation in a fresh process.
func (h *orchestratorHarness) rebuild() {
	runner := testRunner(h.checkpoints)
	h.orch = NewOrchestrator(h.store, h.transcriber, h.generator, runner, NewFanOut(runner, nil), nil)
}

func request(tier string) *models.WorkflowRequest {
	return &models.WorkflowRequest{
		ProjectID: "proj-1",
		FileURL:   "gs://uploads/proj-1/audio.mp3",
		Plan:      tier,
	}
}

func TestRunFreePlanAllSucceed(t *testing.T) {
	h := newHarness()

	result, err := h.orch.Run(context.Background(), request("free"))
	require.NoError(t, err)
	assert.Equal(t, &models.WorkflowResult{Success: true, ProjectID: "proj-1", Plan: "free"}, result)

	assert.Equal(t, models.ProjectStatusCompleted, h.store.status)
	assert.Equal(t, models.StepCompleted, h.store.jobStatuses.Transcription)
	assert.Equal(t, models.StepCompleted, h.store.jobStatuses.ContentGeneration)
	require.Len(t, h.store.generated, 1)
	assert.Contains(t, h.store.generated, plan.JobSummary)
	assert.Empty(t, h.store.jobErrors)
	assert.NotNil(t, h.store.transcript)
	assert.Zero(t, h.store.errorRecords)
}

func TestRunProPlanToleratesSingleJobFailure(t *testing.T) {
	h := newHarness()
	h.generator.failJobs[plan.JobTitles] = errBoom

	result, err := h.orch.Run(context.Background(), request("pro"))
	require.NoError(t, err, "a failing generation job must not abort the run")
	assert.True(t, result.Success)

	assert.Equal(t, models.ProjectStatusCompleted, h.store.status)
	assert.Len(t, h.store.generated, 3)
	assert.NotContains(t, h.store.generated, plan.JobTitles)
	require.Len(t, h.store.jobErrors, 1)
	assert.Equal(t, errBoom.Error(), h.store.jobErrors[plan.JobTitles])
	assert.Zero(t, h.store.errorRecords)
}

func TestRunEveryJobSettlesExactlyOnce(t *testing.T) {
	h := newHarness()
	h.generator.failJobs[plan.JobKeyMoments] = errBoom

	_, err := h.orch.Run(context.Background(), request("ultra"))
	require.NoError(t, err)

	for _, job := range plan.SelectJobs(plan.TierUltra) {
		_, fulfilled := h.store.generated[job]
		_, failed := h.store.jobErrors[job]
		assert.True(t, fulfilled != failed, "job %s must appear in exactly one of generatedContent/jobErrors", job)
	}
}

func TestRunTranscriptionFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.transcriber.err = errBoom

	result, err := h.orch.Run(context.Background(), request("ultra"))
	assert.Nil(t, result)
	assert.Equal(t, errBoom, err, "the original error must be re-raised")

	// Retried to the full budget, then no generation job was ever launched.
	assert.Equal(t, 3, h.transcriber.calls)
	assert.Empty(t, h.generator.calls)

	assert.Equal(t, models.ProjectStatusFailed, h.store.status)
	assert.Equal(t, 1, h.store.errorRecords)
	require.NotNil(t, h.store.workflowErr)
	assert.Equal(t, "transcribe", h.store.workflowErr.Step)
	assert.Equal(t, errBoom.Error(), h.store.workflowErr.Message)

	// The failing stage flag reaches a terminal state instead of sticking
	// at running on a dead run.
	assert.Equal(t, models.StepFailed, h.store.jobStatuses.Transcription)
}

func TestRunSpineMutationFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.store.failOn["SaveGeneratedContent"] = errBoom

	_, err := h.orch.Run(context.Background(), request("free"))
	assert.Equal(t, errBoom, err)
	assert.Equal(t, 1, h.store.errorRecords)
	assert.Equal(t, "save-generated-content", h.store.workflowErr.Step)
	assert.Equal(t, models.StepFailed, h.store.jobStatuses.ContentGeneration)
	assert.Equal(t, models.StepCompleted, h.store.jobStatuses.Transcription)
}

func TestRunErrorRecordingFailureNeverMasksOriginal(t *testing.T) {
	h := newHarness()
	h.transcriber.err = errBoom
	h.store.failOn["RecordWorkflowError"] = assert.AnError

	_, err := h.orch.Run(context.Background(), request("free"))
	assert.Equal(t, errBoom, err)
}

func TestRunUnknownPlanFailsClosedToFree(t *testing.T) {
	h := newHarness()

	result, err := h.orch.Run(context.Background(), request("platinum"))
	require.NoError(t, err)
	assert.Equal(t, "free", result.Plan)
	assert.Len(t, h.store.generated, 1)
}

func TestRunResumeSkipsCompletedSteps(t *testing.T) {
	h := newHarness()
	h.store.failOn["SaveGeneratedContent"] = errBoom

	_, err := h.orch.Run(context.Background(), request("pro"))
	require.Error(t, err)
	transcribeCalls := h.transcriber.calls
	summaryCalls := h.generator.calls[plan.JobSummary]

	// Platform retry: the persistence backend has recovered, the run resumes
	// from its checkpoints.
	delete(h.store.failOn, "SaveGeneratedContent")
	h.rebuild()

	result, err := h.orch.Run(context.Background(), request("pro"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, transcribeCalls, h.transcriber.calls, "transcription must not re-run on resume")
	assert.Equal(t, summaryCalls, h.generator.calls[plan.JobSummary], "settled jobs must not re-run on resume")
	assert.Equal(t, models.ProjectStatusCompleted, h.store.status)
}

func TestStatusMutationsAreIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	patch := models.JobStatuses{Transcription: models.StepRunning}
	require.NoError(t, h.store.SetJobStatuses(ctx, "proj-1", patch))
	once := h.store.jobStatuses
	require.NoError(t, h.store.SetJobStatuses(ctx, "proj-1", patch))
	assert.Equal(t, once, h.store.jobStatuses)

	// A partial patch leaves the other flag untouched.
	require.NoError(t, h.store.SetJobStatuses(ctx, "proj-1", models.JobStatuses{ContentGeneration: models.StepRunning}))
	assert.Equal(t, models.StepRunning, h.store.jobStatuses.Transcription)
	assert.Equal(t, models.StepRunning, h.store.jobStatuses.ContentGeneration)
}
