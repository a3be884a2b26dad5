// Package ai holds the optional language model review of a match.
// A review is advisory text only and never changes the score.
package ai

import (
	"context"

	"github.com/spigell/smartmatch/internal/matching"
	"github.com/spigell/smartmatch/internal/profile"
)

// Review is a short narrative on top of a scored match.
type Review struct {
	Summary string   `json:"summary"`
	Tips    []string `json:"tips"`
	Model   string   `json:"model,omitempty"`
	Raw     string   `json:"-"`
}

type Reviewer interface {
	Review(ctx context.Context, c *profile.Candidate, j *profile.Job, result matching.Result) (*Review, error)
}
