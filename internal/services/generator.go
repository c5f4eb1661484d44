package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/podgen/contentflow/internal/gcp"
	"github.com/podgen/contentflow/internal/models"
	"github.com/podgen/contentflow/internal/plan"
)

// VertexGenerator produces derivative content assets from a transcript, one
// job at a time. Each job maps to a prompt and one of the pre-configured
// models: prose jobs return free text, list jobs return JSON string arrays.
type VertexGenerator struct {
	vertexClient *gcp.VertexClient
}

func NewVertexGenerator(vertexClient *gcp.VertexClient) *VertexGenerator {
	return &VertexGenerator{vertexClient: vertexClient}
}

func (g *VertexGenerator) Produce(ctx context.Context, job string, transcript *models.Transcript, req *models.WorkflowRequest) (*models.GeneratedAsset, error) {
	switch job {
	case plan.JobSummary:
		return g.prose(ctx, job, gcp.SummaryUserPrompt, transcript)
	case plan.JobSocialPosts:
		return g.list(ctx, job, gcp.SocialPostsUserPrompt, transcript)
	case plan.JobTitles:
		return g.list(ctx, job, gcp.TitlesUserPrompt, transcript)
	case plan.JobHashtags:
		return g.list(ctx, job, gcp.HashtagsUserPrompt, transcript)
	case plan.JobKeyMoments:
		return g.list(ctx, job, gcp.KeyMomentsUserPrompt, transcript)
	case plan.JobYouTubeTimestamps:
		return g.list(ctx, job, gcp.YouTubeTimestampsUserPrompt, transcript)
	default:
		return nil, fmt.Errorf("unknown generation job %q", job)
	}
}

func (g *VertexGenerator) prose(ctx context.Context, job, prompt string, transcript *models.Transcript) (*models.GeneratedAsset, error) {
	raw, err := g.generate(ctx, g.vertexClient.ProseModel, job, prompt, transcript)
	if err != nil {
		return nil, err
	}
	return &models.GeneratedAsset{Job: job, Text: raw}, nil
}

func (g *VertexGenerator) list(ctx context.Context, job, prompt string, transcript *models.Transcript) (*models.GeneratedAsset, error) {
	raw, err := g.generate(ctx, g.vertexClient.ListModel, job, prompt, transcript)
	if err != nil {
		return nil, err
	}
	items, err := parseStringArray(raw)
	if err != nil {
		return nil, fmt.Errorf("job %s returned a malformed list: %w", job, err)
	}
	return &models.GeneratedAsset{Job: job, Items: items}, nil
}

func (g *VertexGenerator) generate(ctx context.Context, model *genai.GenerativeModel, job, prompt string, transcript *models.Transcript) (string, error) {
	input := genai.Text(prompt + "\n\nTranscript:\n" + transcript.Text)
	resp, err := model.GenerateContent(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", job, err)
	}

	raw := responseText(resp)
	if raw == "" {
		return "", fmt.Errorf("job %s produced an empty response", job)
	}
	if looksLikeRefusal(raw) {
		return "", fmt.Errorf("job %s response indicates refusal", job)
	}
	return raw, nil
}

// responseText concatenates the text parts of a model response and strips
// surrounding code fences.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}

	out := strings.TrimSpace(b.String())
	for _, prefix := range []string{"```json", "```markdown", "```"} {
		if strings.HasPrefix(out, prefix) {
			out = strings.TrimPrefix(out, prefix)
			break
		}
	}
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

// parseStringArray decodes a JSON array of strings, dropping empty entries.
func parseStringArray(raw string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	cleaned := items[:0]
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("array is empty")
	}
	return cleaned, nil
}

// Sanity check for LLM refusal. A refusing model must fail the job rather
// than persist boilerplate as content.
func looksLikeRefusal(s string) bool {
	refusalPhrases := []string{
		"i am unable to",
		"i cannot fulfill",
		"i cannot answer",
		"i cannot provide",
		"as a large language model",
	}
	lower := strings.ToLower(s)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
