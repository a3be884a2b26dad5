// Package storage persists candidates, jobs and match results.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/smartmatch/internal/insights"
	"github.com/spigell/smartmatch/internal/matching"
	"github.com/spigell/smartmatch/internal/profile"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("not found")

// Match is a persisted scoring result.
type Match struct {
	ID          int64            `json:"id"`
	CandidateID int64            `json:"candidate_id"`
	JobID       int64            `json:"job_id"`
	Score       float64          `json:"score"`
	Reasons     matching.Reasons `json:"reasons"`
	Insights    insights.Bundle  `json:"insights"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Store is the persistence surface used by the API and the importers.
type Store interface {
	CreateCandidate(ctx context.Context, c *profile.Candidate) error
	// CreateCandidates stores all of batch or none of it.
	CreateCandidates(ctx context.Context, batch []*profile.Candidate) error
	GetCandidate(ctx context.Context, id int64) (*profile.Candidate, error)
	// ListCandidates returns all candidates, newest first.
	ListCandidates(ctx context.Context) ([]*profile.Candidate, error)
	SearchCandidates(ctx context.Context, q, city string) ([]*profile.Candidate, error)
	UpdateResume(ctx context.Context, candidateID int64, text string) error
	CandidateExists(ctx context.Context, fingerprint string) (bool, error)

	CreateJob(ctx context.Context, j *profile.Job) error
	GetJob(ctx context.Context, id int64) (*profile.Job, error)
	// ListJobs returns all jobs, newest first.
	ListJobs(ctx context.Context) ([]*profile.Job, error)
	SearchJobs(ctx context.Context, q, city string) ([]*profile.Job, error)

	SaveMatch(ctx context.Context, m *Match) error
	ListMatches(ctx context.Context, jobID int64) ([]Match, error)

	Close() error
}
