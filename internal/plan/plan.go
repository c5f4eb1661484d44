package plan

// Tier is the billing plan controlling which generation jobs run.
type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierUltra Tier = "ultra"
)

// Generation job names. Each name is unique within a run and doubles as the
// key under generatedContent / jobErrors on the project document.
const (
	JobSummary           = "summary"
	JobSocialPosts       = "socialPosts"
	JobTitles            = "titles"
	JobHashtags          = "hashtags"
	JobKeyMoments        = "keyMoments"
	JobYouTubeTimestamps = "youtubeTimestamps"
)

// ParseTier maps a raw plan value to a Tier. Unknown or empty values fail
// closed to the most restrictive tier rather than erroring.
func ParseTier(raw string) Tier {
	switch Tier(raw) {
	case TierPro:
		return TierPro
	case TierUltra:
		return TierUltra
	default:
		return TierFree
	}
}

// SelectJobs returns the ordered set of generation jobs a tier is entitled
// to. Higher tiers strictly extend lower ones, so every tier includes
// summary.
func SelectJobs(t Tier) []string {
	jobs := []string{JobSummary}
	if t == TierPro || t == TierUltra {
		jobs = append(jobs, JobSocialPosts, JobTitles, JobHashtags)
	}
	if t == TierUltra {
		jobs = append(jobs, JobKeyMoments, JobYouTubeTimestamps)
	}
	return jobs
}
