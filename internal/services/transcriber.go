package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"cloud.google.com/go/vertexai/genai"

	"github.com/podgen/contentflow/internal/gcp"
	"github.com/podgen/contentflow/internal/models"
	"github.com/podgen/contentflow/internal/plan"
)

// TranscriberConfig holds all configuration for the transcription service.
type TranscriberConfig struct {
	// TranscriptBucket is where raw transcripts are archived. Empty disables
	// archival.
	TranscriptBucket string
}

// VertexTranscriber transcribes uploaded audio via Gemini. Transcription
// depth scales with the plan: paid tiers get speaker diarization.
type VertexTranscriber struct {
	storageClient *storage.Client
	vertexClient  *gcp.VertexClient
	config        TranscriberConfig
}

func NewVertexTranscriber(storageClient *storage.Client, vertexClient *gcp.VertexClient, config TranscriberConfig) *VertexTranscriber {
	return &VertexTranscriber{
		storageClient: storageClient,
		vertexClient:  vertexClient,
		config:        config,
	}
}

// Transcribe runs one transcription call and archives the raw result. The
// archive write is conditional on the object not existing, so replaying the
// step after a crash is safe.
func (f *VertexTranscriber) Transcribe(ctx context.Context, req *models.WorkflowRequest, tier plan.Tier) (*models.Transcript, error) {
	logCtx := slog.With("projectId", req.ProjectID, "plan", string(tier))
	logCtx.Info("Starting transcription.", "fileUrl", req.FileURL)

	uri, err := gcp.ResolveGCSURI(req.FileURL)
	if err != nil {
		return nil, err
	}

	prompt := gcp.TranscriberUserPrompt
	if tier != plan.TierFree {
		prompt = gcp.TranscriberDiarizedUserPrompt
	}
	filePart := genai.FileData{
		MIMEType: gcp.AudioMIMEType(uri),
		FileURI:  uri,
	}

	resp, err := f.vertexClient.TranscriberModel.GenerateContent(ctx, filePart, genai.Text(prompt))
	if err != nil {
		logCtx.Error("Vertex AI transcription call failed.", "error", err)
		return nil, fmt.Errorf("failed to transcribe audio: %w", err)
	}

	raw := responseText(resp)
	if looksLikeRefusal(raw) {
		err := fmt.Errorf("transcription response indicates refusal")
		logCtx.Error("Model refused to transcribe.", "response", raw)
		return nil, err
	}

	var transcript models.Transcript
	if err := json.Unmarshal([]byte(raw), &transcript); err != nil {
		logCtx.Error("Transcription response was not valid JSON.", "error", err)
		return nil, fmt.Errorf("failed to parse transcription response: %w", err)
	}
	if transcript.Text == "" {
		return nil, fmt.Errorf("transcription produced an empty transcript")
	}

	if f.config.TranscriptBucket != "" && f.storageClient != nil {
		objectName := fmt.Sprintf("%s/transcript.json", req.ProjectID)
		bucketHandle := f.storageClient.Bucket(f.config.TranscriptBucket)
		if err := gcp.SaveObjectOnce(ctx, bucketHandle, objectName, raw); err != nil {
			logCtx.Error("Failed to archive transcript.", "error", err)
			return nil, err
		}
	}

	logCtx.Info("Transcription complete.",
		"language", transcript.Language,
		"durationSeconds", transcript.DurationSeconds,
		"segments", len(transcript.Segments),
	)
	return &transcript, nil
}
