package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Transcriber Model Prompts ---
const TranscriberSystemPrompt = "You are a professional audio transcription engine. Your task is to transcribe spoken audio into text with maximum accuracy. You must output your response as a single valid JSON object."
const TranscriberUserPrompt = `Transcribe the provided audio file.

Return a single JSON object with exactly these keys:
- "text": the full transcript as one string, with natural punctuation and paragraph breaks.
- "language": the BCP-47 code of the dominant spoken language (e.g. "en-US").
- "durationSeconds": the approximate length of the audio in seconds, as a number.

Do not include any text before or after the JSON object. Do not summarize, correct, or editorialize the speech; transcribe what is actually said, including filler words only when they carry meaning.`

const TranscriberDiarizedUserPrompt = `Transcribe the provided audio file with speaker diarization.

Return a single JSON object with exactly these keys:
- "text": the full transcript as one string, with natural punctuation and paragraph breaks.
- "language": the BCP-47 code of the dominant spoken language (e.g. "en-US").
- "durationSeconds": the approximate length of the audio in seconds, as a number.
- "segments": a JSON array of objects, one per continuous span of speech, each with "startSeconds" (number), "endSeconds" (number), "speaker" (a stable label such as "Speaker 1"), and "text" (string).

Keep speaker labels consistent across the whole file. Do not include any text before or after the JSON object.`

// --- Generation Job Prompts ---
const GeneratorSystemPrompt = "You are a content repurposing assistant for podcasters and video creators. You turn a raw episode transcript into polished derivative content. Follow the output format instructions for each task exactly."

const SummaryUserPrompt = `Write a concise summary of the following episode transcript. Aim for two to four paragraphs that capture the main topics, the key arguments, and any conclusions or calls to action. Write in plain prose, no markdown headers, no bullet points. Return ONLY the summary text.`

const SocialPostsUserPrompt = `Write three short social media posts promoting the episode in the following transcript. Each post must stand alone, hook the reader in the first sentence, and stay under 280 characters. Vary the angle across the three posts. Return ONLY a JSON array of three strings.`

const TitlesUserPrompt = `Suggest five compelling titles for the episode in the following transcript. Titles must be specific to the content, under 70 characters, and free of clickbait superlatives. Return ONLY a JSON array of five strings.`

const HashtagsUserPrompt = `Suggest ten hashtags for promoting the episode in the following transcript. Mix broad-reach and niche tags. Each entry must start with '#' and contain no spaces. Return ONLY a JSON array of ten strings.`

const KeyMomentsUserPrompt = `Identify the five most notable moments in the following episode transcript: surprising claims, strong quotes, turning points in the conversation. Describe each moment in one sentence. Return ONLY a JSON array of five strings, ordered by where they occur in the episode.`

const YouTubeTimestampsUserPrompt = `Produce a YouTube chapter list for the episode in the following transcript. Each entry must have the form "MM:SS Title" (or "H:MM:SS Title" past one hour), starting with "00:00". Derive timings from the flow and any timing hints in the transcript; keep chapter titles under 50 characters. Return ONLY a JSON array of strings, one per chapter, in chronological order.`

// VertexClient holds all pre-configured generative models for the pipeline.
type VertexClient struct {
	// TranscriberModel transcribes audio and must return structured JSON.
	TranscriberModel *genai.GenerativeModel
	// ProseModel produces free-form text (the summary job).
	ProseModel *genai.GenerativeModel
	// ListModel produces JSON arrays of strings (titles, hashtags, ...).
	ListModel  *genai.GenerativeModel
	baseClient *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	transcriberModel := baseClient.GenerativeModel("gemini-1.5-pro")
	transcriberModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TranscriberSystemPrompt)},
	}
	transcriberModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0), // transcription must be deterministic
	}

	proseModel := baseClient.GenerativeModel("gemini-1.5-pro")
	proseModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(GeneratorSystemPrompt)},
	}

	listModel := baseClient.GenerativeModel("gemini-1.5-pro")
	listModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(GeneratorSystemPrompt)},
	}
	listModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output so list-shaped jobs always parse.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.4),
	}

	return &VertexClient{
		TranscriberModel: transcriberModel,
		ProseModel:       proseModel,
		ListModel:        listModel,
		baseClient:       baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
