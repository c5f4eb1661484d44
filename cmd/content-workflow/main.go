package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/podgen/contentflow/internal/gcp"
	"github.com/podgen/contentflow/internal/models"
	"github.com/podgen/contentflow/internal/services"
	"github.com/podgen/contentflow/internal/workflow"
)

var (
	orchestratorInstance *workflow.Orchestrator
	once                 sync.Once
	initErr              error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework routes the trigger
	// event here.
	functions.CloudEvent("RunContentWorkflow", runContentWorkflow)
}

// main is required by the Go Functions Framework.
func main() {}

// initOrchestrator wires every collaborator explicitly: shared clients are
// created once and passed down, never read from package globals.
func initOrchestrator(ctx context.Context) (*workflow.Orchestrator, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	collection := gcp.GetEnv("FIRESTORE_COLLECTION", "projects")
	region := gcp.GetEnv("VERTEX_AI_REGION", "us-central1")

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	store := gcp.NewProjectStore(firestoreClient, collection)
	checkpoints := workflow.NewFirestoreCheckpoints(firestoreClient, collection)
	runner := workflow.NewRunner(checkpoints, slog.Default())

	fanout := workflow.NewFanOut(runner, slog.Default())
	fanout.Limit = intEnv("GENERATION_CONCURRENCY", 4)
	fanout.AttemptsPerJob = intEnv("GENERATION_JOB_ATTEMPTS", 1)

	transcriber := services.NewVertexTranscriber(storageClient, vertexClient, services.TranscriberConfig{
		TranscriptBucket: gcp.GetEnv("TRANSCRIPT_BUCKET", ""),
	})
	generator := services.NewVertexGenerator(vertexClient)

	return workflow.NewOrchestrator(store, transcriber, generator, runner, fanout, slog.Default()), nil
}

// runContentWorkflow is the Cloud Function entry point for one workflow run.
func runContentWorkflow(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		orchestratorInstance, initErr = initOrchestrator(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var req models.WorkflowRequest
	if err := json.Unmarshal(e.Data(), &req); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	if req.ProjectID == "" || req.FileURL == "" {
		err := fmt.Errorf("trigger payload must include projectId and fileUrl")
		slog.Error("Rejecting malformed trigger event.", "error", err, "data", string(e.Data()))
		return err
	}

	result, err := orchestratorInstance.Run(ctx, &req)
	if err != nil {
		// The error is already logged with context inside Run. Returning it
		// marks the invocation failed so the platform's retry policy applies.
		return err
	}

	slog.Info("Workflow invocation finished.", "projectId", result.ProjectID, "plan", result.Plan)
	return nil
}

func intEnv(key string, fallback int) int {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		slog.Warn("Ignoring invalid integer environment variable.", "key", key, "value", raw)
		return fallback
	}
	return value
}
