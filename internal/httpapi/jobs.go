package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/matching"
	"github.com/spigell/smartmatch/internal/profile"
)

func (h *handler) createJob(c *gin.Context) {
	var job profile.Job
	if err := h.bindJSON(c, &job); err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}
	job.ID = 0

	if err := h.store.CreateJob(c.Request.Context(), &job); err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}

	requestLogger(c).Info("job created", zap.Int64(logger.FieldJobID, job.ID))
	c.JSON(http.StatusOK, &job)
}

func (h *handler) listJobs(c *gin.Context) {
	jobs, err := h.store.ListJobs(c.Request.Context())
	if err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *handler) getJob(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}

	job, err := h.store.GetJob(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}
	c.JSON(http.StatusOK, job)
}

// rankCandidates scores every stored candidate against the job.
// Query: min_score (default 0) and limit (default 0, no limit).
func (h *handler) rankCandidates(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}

	minScore := 0.0
	if v := c.Query("min_score"); v != "" {
		minScore, err = strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(c, invalid("min_score must be a number"), detailJobNotFound)
			return
		}
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(c, invalid("limit must be a non-negative integer"), detailJobNotFound)
			return
		}
	}

	job, err := h.store.GetJob(ctx, id)
	if err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}

	candidates, err := h.store.ListCandidates(ctx)
	if err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}

	ranked := matching.Rank(job, candidates, minScore, limit)
	requestLogger(c).Debug("ranking computed",
		zap.Int64(logger.FieldJobID, id),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(ranked)),
	)
	c.JSON(http.StatusOK, ranked)
}

func (h *handler) listMatches(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}

	if _, err := h.store.GetJob(ctx, id); err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}

	matches, err := h.store.ListMatches(ctx, id)
	if err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}
	c.JSON(http.StatusOK, matches)
}
