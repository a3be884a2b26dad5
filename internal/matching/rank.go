package matching

import (
	"sort"

	"github.com/spigell/smartmatch/internal/profile"
)

// Ranked is a candidate with its score against a job.
type Ranked struct {
	Candidate *profile.Candidate `json:"candidate"`
	Score     float64            `json:"score"`
	Reasons   Reasons            `json:"reasons"`
}

// Rank scores every candidate against the job, drops those below minScore and
// returns the rest ordered by score, best first. Ties keep the input order.
// A non-positive limit means no limit.
func Rank(j *profile.Job, candidates []*profile.Candidate, minScore float64, limit int) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		score, reasons := Score(c, j)
		if score < minScore {
			continue
		}
		ranked = append(ranked, Ranked{Candidate: c, Score: score, Reasons: reasons})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
