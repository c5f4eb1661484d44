package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/podgen/contentflow/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given
// project ID. It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// ProjectStore is the Firestore-backed status store for the workflow. Every
// mutation is a Set with MergeAll, so re-issuing a call that already landed
// overwrites the same fields with the same values.
type ProjectStore struct {
	client     *firestore.Client
	collection string
}

func NewProjectStore(client *firestore.Client, collection string) *ProjectStore {
	return &ProjectStore{client: client, collection: collection}
}

func (s *ProjectStore) doc(projectID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(projectID)
}

func (s *ProjectStore) merge(ctx context.Context, projectID string, data map[string]interface{}) error {
	data["updatedAt"] = firestore.ServerTimestamp
	if _, err := s.doc(projectID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update project %s: %w", projectID, err)
	}
	return nil
}

func (s *ProjectStore) SetProjectStatus(ctx context.Context, projectID string, status models.ProjectStatus) error {
	data := map[string]interface{}{"status": status}
	if status == models.ProjectStatusProcessing {
		data["processingStartedAt"] = firestore.ServerTimestamp
	}
	return s.merge(ctx, projectID, data)
}

func (s *ProjectStore) SetJobStatuses(ctx context.Context, projectID string, patch models.JobStatuses) error {
	statuses := make(map[string]interface{}, 2)
	if patch.Transcription != "" {
		statuses["transcription"] = patch.Transcription
	}
	if patch.ContentGeneration != "" {
		statuses["contentGeneration"] = patch.ContentGeneration
	}
	if len(statuses) == 0 {
		return nil
	}
	return s.merge(ctx, projectID, map[string]interface{}{"jobStatuses": statuses})
}

func (s *ProjectStore) SaveTranscript(ctx context.Context, projectID string, transcript *models.Transcript) error {
	return s.merge(ctx, projectID, map[string]interface{}{"transcript": transcript})
}

func (s *ProjectStore) SaveJobErrors(ctx context.Context, projectID string, jobErrors map[string]string) error {
	errs := make(map[string]interface{}, len(jobErrors))
	for job, message := range jobErrors {
		errs[job] = message
	}
	return s.merge(ctx, projectID, map[string]interface{}{"jobErrors": errs})
}

func (s *ProjectStore) SaveGeneratedContent(ctx context.Context, projectID string, assets map[string]*models.GeneratedAsset) error {
	content := make(map[string]interface{}, len(assets))
	for job, asset := range assets {
		content[job] = asset
	}
	return s.merge(ctx, projectID, map[string]interface{}{"generatedContent": content})
}

func (s *ProjectStore) RecordWorkflowError(ctx context.Context, projectID string, rec *models.WorkflowError, stage models.JobStatuses) error {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	data := map[string]interface{}{
		"status":        models.ProjectStatusFailed,
		"workflowError": rec,
	}
	statuses := make(map[string]interface{}, 2)
	if stage.Transcription != "" {
		statuses["transcription"] = stage.Transcription
	}
	if stage.ContentGeneration != "" {
		statuses["contentGeneration"] = stage.ContentGeneration
	}
	if len(statuses) > 0 {
		data["jobStatuses"] = statuses
	}
	return s.merge(ctx, projectID, data)
}

// GetProject reads the full project document. Used by the progress endpoint,
// not by the workflow itself.
func (s *ProjectStore) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	snap, err := s.doc(projectID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read project %s: %w", projectID, err)
	}
	var project models.Project
	if err := snap.DataTo(&project); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", projectID, err)
	}
	return &project, nil
}
