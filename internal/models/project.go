package models

import "time"

// ProjectStatus is the overall lifecycle status of a project document.
type ProjectStatus string

const (
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// StepStatus tracks one pipeline stage (transcription, content generation).
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// JobStatuses holds the per-stage flags stored under jobStatuses on the
// project document.
type JobStatuses struct {
	Transcription     StepStatus `firestore:"transcription,omitempty" json:"transcription,omitempty"`
	ContentGeneration StepStatus `firestore:"contentGeneration,omitempty" json:"contentGeneration,omitempty"`
}

// Project is the Firestore record for one uploaded audio file. The workflow
// only ever merges fields into it; the uploader owns creation, plan and
// fileUrl.
type Project struct {
	FileURL             string                     `firestore:"fileUrl,omitempty"`
	Plan                string                     `firestore:"plan,omitempty"`
	Status              ProjectStatus              `firestore:"status,omitempty"`
	JobStatuses         JobStatuses                `firestore:"jobStatuses,omitempty"`
	Transcript          *Transcript                `firestore:"transcript,omitempty"`
	GeneratedContent    map[string]*GeneratedAsset `firestore:"generatedContent,omitempty"`
	JobErrors           map[string]string          `firestore:"jobErrors,omitempty"`
	WorkflowError       *WorkflowError             `firestore:"workflowError,omitempty"`
	ProcessingStartedAt time.Time                  `firestore:"processingStartedAt,omitempty"`
	CreatedAt           time.Time                  `firestore:"createdAt,omitempty"`
	UpdatedAt           time.Time                  `firestore:"updatedAt,omitempty"`
}

// Transcript is the transcription result bound into the run after the
// transcription stage completes.
type Transcript struct {
	Text            string              `firestore:"text,omitempty" json:"text"`
	Language        string              `firestore:"language,omitempty" json:"language,omitempty"`
	DurationSeconds float64             `firestore:"durationSeconds,omitempty" json:"durationSeconds,omitempty"`
	Segments        []TranscriptSegment `firestore:"segments,omitempty" json:"segments,omitempty"`
}

// TranscriptSegment is one diarized span of the transcript. Segments are only
// populated for plans whose transcription depth includes diarization.
type TranscriptSegment struct {
	StartSeconds float64 `firestore:"startSeconds" json:"startSeconds"`
	EndSeconds   float64 `firestore:"endSeconds" json:"endSeconds"`
	Speaker      string  `firestore:"speaker,omitempty" json:"speaker,omitempty"`
	Text         string  `firestore:"text" json:"text"`
}

// GeneratedAsset is the output of one content-generation job. Prose jobs fill
// Text; list-shaped jobs (titles, hashtags, ...) fill Items.
type GeneratedAsset struct {
	Job   string   `firestore:"job" json:"job"`
	Text  string   `firestore:"text,omitempty" json:"text,omitempty"`
	Items []string `firestore:"items,omitempty" json:"items,omitempty"`
}

// WorkflowError is the terminal failure record written by the workflow's
// top-level failure handler.
type WorkflowError struct {
	Message    string    `firestore:"message"`
	Step       string    `firestore:"step"`
	StatusCode int       `firestore:"statusCode,omitempty"`
	Diagnostic string    `firestore:"diagnostic,omitempty"`
	OccurredAt time.Time `firestore:"occurredAt"`
}
