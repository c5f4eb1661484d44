package progress

import "github.com/podgen/contentflow/internal/models"

// Defaults applied when the consumer passes zero values.
const (
	DefaultEstimateSeconds = 120
	DefaultCapPercent      = 80

	// placeholderPercent is shown before the first stage reports running.
	placeholderPercent = 10
	// freezeCeiling is the highest percent displayed once a failure is
	// recorded, so a failed run never appears finished.
	freezeCeiling = 95
)

// Status labels surfaced to the UI alongside the percent.
const (
	LabelProcessing   = "Processing your upload"
	LabelTranscribing = "Transcribing audio"
	LabelGenerating   = "Generating content"
	LabelComplete     = "Complete"
	LabelFailed       = "Processing failed"
)

// Input is everything the estimator needs for one computation. It is read
// from the project document by the caller; the estimator itself keeps no
// state between calls.
type Input struct {
	TranscriptionStatus models.StepStatus
	GenerationStatus    models.StepStatus

	// SettledGenerationSteps counts generation jobs that reached a terminal
	// outcome (fulfilled or failed); TotalGenerationSteps is the plan's job
	// count.
	SettledGenerationSteps int
	TotalGenerationSteps   int

	ElapsedSeconds float64
	// EstimateSeconds is a conservative duration estimate for the
	// transcription phase. CapPercent bounds the raw time ratio so phase one
	// never shows as finished before transcription actually completes.
	EstimateSeconds float64
	CapPercent      float64

	// Failed marks the run as failed independent of the per-stage flags
	// (e.g. the project document's terminal status).
	Failed bool
	// CurrentPercent is the last percent the caller displayed, used only by
	// the failure-freeze rule.
	CurrentPercent int
}

// Snapshot is the derived, user-facing progress value. It is recomputed on
// demand and never persisted by the engine.
type Snapshot struct {
	Percent int    `json:"percent"`
	Label   string `json:"label"`
}

// Estimate maps raw execution state to a 0-100 percent and a status label.
//
// The scale is split in two: [0,50] tracks transcription by elapsed time
// against a conservative estimate, [50,100] tracks generation by settled
// step count. CurrentPercent, the last percent the caller displayed, acts as
// a floor so the display never regresses across phase boundaries (the
// placeholder shown before transcription starts can exceed the early
// time-based value); a recorded failure freezes the display below 100.
func Estimate(in Input) Snapshot {
	base := basePercent(in)

	if in.Failed || in.TranscriptionStatus == models.StepFailed || in.GenerationStatus == models.StepFailed {
		p := base
		if in.CurrentPercent > 0 && in.CurrentPercent < p {
			p = in.CurrentPercent
		}
		if p > freezeCeiling {
			p = freezeCeiling
		}
		return Snapshot{Percent: p, Label: LabelFailed}
	}

	if base >= 100 {
		return Snapshot{Percent: 100, Label: LabelComplete}
	}

	percent := base
	if in.CurrentPercent > percent {
		percent = in.CurrentPercent
		if percent > 99 {
			percent = 99
		}
	}

	switch {
	case in.TranscriptionStatus == models.StepCompleted:
		return Snapshot{Percent: percent, Label: LabelGenerating}
	case in.TranscriptionStatus == models.StepRunning:
		return Snapshot{Percent: percent, Label: LabelTranscribing}
	default:
		return Snapshot{Percent: percent, Label: LabelProcessing}
	}
}

func basePercent(in Input) int {
	estimate := in.EstimateSeconds
	if estimate <= 0 {
		estimate = DefaultEstimateSeconds
	}
	ceiling := in.CapPercent
	if ceiling <= 0 || ceiling >= 100 {
		ceiling = DefaultCapPercent
	}

	switch {
	case in.TranscriptionStatus == models.StepCompleted &&
		in.TotalGenerationSteps > 0 &&
		in.SettledGenerationSteps >= in.TotalGenerationSteps:
		return 100

	case in.TranscriptionStatus == models.StepCompleted:
		if in.TotalGenerationSteps <= 0 {
			return 50
		}
		done := in.SettledGenerationSteps
		if done > in.TotalGenerationSteps {
			done = in.TotalGenerationSteps
		}
		return 50 + int(float64(done)/float64(in.TotalGenerationSteps)*50)

	case in.TranscriptionStatus == models.StepRunning:
		raw := in.ElapsedSeconds / estimate * 100
		if raw > ceiling {
			raw = ceiling
		}
		if raw < 0 {
			raw = 0
		}
		p := int(raw / ceiling * 50)
		if p > 50 {
			p = 50
		}
		return p

	default:
		return placeholderPercent
	}
}
