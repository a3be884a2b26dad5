package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *handler) searchCandidates(c *gin.Context) {
	q, city := searchQuery(c)
	candidates, err := h.store.SearchCandidates(c.Request.Context(), q, city)
	if err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

func (h *handler) searchJobs(c *gin.Context) {
	q, city := searchQuery(c)
	jobs, err := h.store.SearchJobs(c.Request.Context(), q, city)
	if err != nil {
		writeError(c, err, detailJobNotFound)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func searchQuery(c *gin.Context) (string, string) {
	return strings.TrimSpace(c.Query("q")), strings.TrimSpace(c.Query("city"))
}
