package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/podgen/contentflow/internal/gcp"
	"github.com/podgen/contentflow/internal/models"
	"github.com/podgen/contentflow/internal/plan"
	"github.com/podgen/contentflow/internal/progress"
)

type progressService struct {
	store           *gcp.ProjectStore
	estimateSeconds float64
	capPercent      float64
}

var (
	serviceInstance *progressService
	once            sync.Once
	initErr         error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("ProjectProgress", handleProjectProgress)
}

// main is required by the Go Functions Framework.
func main() {}

func initService(ctx context.Context) (*progressService, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &progressService{
		store:           gcp.NewProjectStore(firestoreClient, gcp.GetEnv("FIRESTORE_COLLECTION", "projects")),
		estimateSeconds: floatEnv("TRANSCRIBE_ESTIMATE_SECONDS", progress.DefaultEstimateSeconds),
		capPercent:      floatEnv("PROGRESS_CAP_PERCENT", progress.DefaultCapPercent),
	}, nil
}

// handleProjectProgress maps a project document's raw execution state into a
// user-facing progress snapshot. Clients poll it on an interval; the optional
// "current" parameter carries the last percent they displayed so a failed
// run freezes instead of jumping.
func handleProjectProgress(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		serviceInstance, initErr = initService(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		http.Error(w, "Bad Request: projectId is required", http.StatusBadRequest)
		return
	}

	project, err := serviceInstance.store.GetProject(r.Context(), projectID)
	if err != nil {
		slog.Error("Failed to load project for progress.", "projectId", projectID, "error", err)
		http.Error(w, "Internal Server Error: failed to load project", http.StatusInternalServerError)
		return
	}

	snap := progress.Estimate(serviceInstance.input(project, r))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		slog.Error("Failed to write progress response.", "projectId", projectID, "error", err)
	}
}

func (s *progressService) input(project *models.Project, r *http.Request) progress.Input {
	var elapsed float64
	if !project.ProcessingStartedAt.IsZero() {
		elapsed = time.Since(project.ProcessingStartedAt).Seconds()
	}

	current := 0
	if raw := r.URL.Query().Get("current"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			current = v
		}
	}

	return progress.Input{
		TranscriptionStatus:    project.JobStatuses.Transcription,
		GenerationStatus:       project.JobStatuses.ContentGeneration,
		SettledGenerationSteps: len(project.GeneratedContent) + len(project.JobErrors),
		TotalGenerationSteps:   len(plan.SelectJobs(plan.ParseTier(project.Plan))),
		ElapsedSeconds:         elapsed,
		EstimateSeconds:        s.estimateSeconds,
		CapPercent:             s.capPercent,
		Failed:                 project.Status == models.ProjectStatusFailed,
		CurrentPercent:         current,
	}
}

func floatEnv(key string, fallback float64) float64 {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		slog.Warn("Ignoring invalid numeric environment variable.", "key", key, "value", raw)
		return fallback
	}
	return value
}
