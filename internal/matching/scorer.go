// Package matching scores candidates against job postings.
//
// Scoring starts from 100 and runs a fixed, ordered list of rules. Each rule
// either subtracts a penalty and records a gap, records a strength, or does
// nothing when it has no data to compare. The final score is clamped to [0, 100].
package matching

import (
	"math"

	"github.com/spigell/smartmatch/internal/insights"
	"github.com/spigell/smartmatch/internal/profile"
)

const (
	baseScore = 100.0
	minScore  = 0.0
)

// Reasons lists gaps and strengths in rule evaluation order.
type Reasons struct {
	Gaps      []string `json:"gaps"`
	Strengths []string `json:"strengths"`
}

// Result is the outcome of matching one candidate with one job.
type Result struct {
	Score    float64         `json:"score"`
	Reasons  Reasons         `json:"reasons"`
	Insights insights.Bundle `json:"insights"`
}

// Score runs every rule against the pair and returns the clamped score.
// Nil inputs are treated as empty records.
func Score(c *profile.Candidate, j *profile.Job) (float64, Reasons) {
	if c == nil {
		c = &profile.Candidate{}
	}
	if j == nil {
		j = &profile.Job{}
	}

	score := baseScore
	reasons := Reasons{Gaps: []string{}, Strengths: []string{}}

	for _, rule := range rules {
		outcome, ok := rule.Evaluate(c, j)
		if !ok {
			continue
		}

		score -= outcome.Penalty
		switch outcome.Bucket {
		case BucketGap:
			reasons.Gaps = append(reasons.Gaps, outcome.Note)
		case BucketStrength:
			reasons.Strengths = append(reasons.Strengths, outcome.Note)
		}
	}

	return clamp(score), reasons
}

// Match scores the pair and derives insights from the gaps and free-text fields.
func Match(c *profile.Candidate, j *profile.Job) Result {
	score, reasons := Score(c, j)

	var resumeText, description string
	if c != nil {
		resumeText = c.ResumeText
	}
	if j != nil {
		description = j.Description
	}

	return Result{
		Score:    score,
		Reasons:  reasons,
		Insights: insights.Generate(reasons.Gaps, resumeText, description),
	}
}

func clamp(score float64) float64 {
	return math.Max(minScore, math.Min(baseScore, score))
}
