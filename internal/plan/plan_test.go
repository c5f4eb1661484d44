package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		raw  string
		want Tier
	}{
		{"free", TierFree},
		{"pro", TierPro},
		{"ultra", TierUltra},
		{"", TierFree},
		{"enterprise", TierFree},
		{"PRO", TierFree}, // plan values are case sensitive; anything else fails closed
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTier(tt.raw), "raw=%q", tt.raw)
	}
}

func TestSelectJobsPerTier(t *testing.T) {
	assert.Equal(t, []string{JobSummary}, SelectJobs(TierFree))
	assert.Equal(t, []string{JobSummary, JobSocialPosts, JobTitles, JobHashtags}, SelectJobs(TierPro))
	assert.Equal(t,
		[]string{JobSummary, JobSocialPosts, JobTitles, JobHashtags, JobKeyMoments, JobYouTubeTimestamps},
		SelectJobs(TierUltra))
}

func TestSelectJobsMonotonic(t *testing.T) {
	tiers := []Tier{TierFree, TierPro, TierUltra}
	for i := 1; i < len(tiers); i++ {
		lower := SelectJobs(tiers[i-1])
		higher := toSet(SelectJobs(tiers[i]))
		for _, job := range lower {
			require.Contains(t, higher, job, "every %s job must also be selected for %s", tiers[i-1], tiers[i])
		}
	}
	for _, tier := range tiers {
		assert.Contains(t, SelectJobs(tier), JobSummary)
	}
}

func TestSelectJobsUniqueNames(t *testing.T) {
	jobs := SelectJobs(TierUltra)
	assert.Len(t, toSet(jobs), len(jobs))
}

func toSet(jobs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		set[j] = struct{}{}
	}
	return set
}
