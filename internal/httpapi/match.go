package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/ai"
	"github.com/spigell/smartmatch/internal/events"
	"github.com/spigell/smartmatch/internal/insights"
	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/matching"
	"github.com/spigell/smartmatch/internal/profile"
	"github.com/spigell/smartmatch/internal/storage"
)

// MatchOut is the response of a single match request.
type MatchOut struct {
	MatchID   int64              `json:"match_id"`
	Candidate *profile.Candidate `json:"candidate"`
	Job       *profile.Job       `json:"job"`
	Score     float64            `json:"score"`
	Reasons   matching.Reasons   `json:"reasons"`
	Insights  insights.Bundle    `json:"insights"`
	AIReview  *ai.Review         `json:"ai_review,omitempty"`
}

func (h *handler) match(c *gin.Context) {
	ctx := c.Request.Context()

	jobID, err := pathID(c, "job_id")
	if err != nil {
		writeError(c, err, detailPairNotFound)
		return
	}
	candidateID, err := pathID(c, "candidate_id")
	if err != nil {
		writeError(c, err, detailPairNotFound)
		return
	}

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		writeError(c, err, detailPairNotFound)
		return
	}
	cand, err := h.store.GetCandidate(ctx, candidateID)
	if err != nil {
		writeError(c, err, detailPairNotFound)
		return
	}

	result := matching.Match(cand, job)
	log := requestLogger(c).With(logger.MatchFields(candidateID, jobID, result.Score)...)

	record := &storage.Match{
		CandidateID: candidateID,
		JobID:       jobID,
		Score:       result.Score,
		Reasons:     result.Reasons,
		Insights:    result.Insights,
	}
	if err := h.store.SaveMatch(ctx, record); err != nil {
		writeError(c, err, detailPairNotFound)
		return
	}

	err = h.events.Publish(ctx, events.MatchEvent{
		MatchID:     record.ID,
		CandidateID: candidateID,
		JobID:       jobID,
		Score:       result.Score,
		Gaps:        result.Reasons.Gaps,
		CreatedAt:   record.CreatedAt,
	})
	if err != nil {
		log.Warn("match event not published", zap.Error(err))
	}

	out := MatchOut{
		MatchID:   record.ID,
		Candidate: cand,
		Job:       job,
		Score:     result.Score,
		Reasons:   result.Reasons,
		Insights:  result.Insights,
		AIReview:  h.review(ctx, log, cand, job, result),
	}

	log.Info("match scored", zap.Int("gaps", len(result.Reasons.Gaps)))
	c.JSON(http.StatusOK, out)
}

// review asks the optional reviewer for a narrative. Failures only drop it.
func (h *handler) review(ctx context.Context, log *zap.Logger, c *profile.Candidate, j *profile.Job, result matching.Result) *ai.Review {
	if h.reviewer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.ReviewTimeout)
	defer cancel()

	review, err := h.reviewer.Review(ctx, c, j, result)
	if err != nil {
		log.Warn("ai review failed", zap.Error(err))
		return nil
	}
	return review
}

func (h *handler) rules(c *gin.Context) {
	c.JSON(http.StatusOK, matching.Describe())
}
