package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/importer"
	"github.com/spigell/smartmatch/internal/resumetext"
	"github.com/spigell/smartmatch/internal/storage"
	"github.com/spigell/smartmatch/internal/validation"
)

const (
	detailCandidateNotFound = "Candidate not found"
	detailJobNotFound       = "Job not found"
	detailPairNotFound      = "Job or Candidate not found"
)

type fieldError struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

// badRequest marks malformed input that is not a validation failure.
type badRequest struct {
	status int
	msg    string
}

func (e *badRequest) Error() string { return e.msg }

func invalid(msg string) error {
	return &badRequest{status: http.StatusUnprocessableEntity, msg: msg}
}

func malformed(msg string) error {
	return &badRequest{status: http.StatusBadRequest, msg: msg}
}

// pathID parses an integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, invalid(name + " must be an integer")
	}
	return id, nil
}

// writeError maps err to a status code and a {"detail": ...} body.
// notFound is the detail used for storage.ErrNotFound.
func writeError(c *gin.Context, err error, notFound string) {
	_ = c.Error(err)

	var (
		vErr *validation.Error
		bErr *badRequest
	)

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": fieldErrors(vErr)})
	case errors.As(err, &bErr):
		c.JSON(bErr.status, gin.H{"detail": bErr.msg})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": notFound})
	case errors.Is(err, importer.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
	case errors.Is(err, resumetext.ErrUnsupported):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"detail": err.Error()})
	default:
		requestLogger(c).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}

func fieldErrors(e *validation.Error) []fieldError {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]fieldError, 0, len(names))
	for _, name := range names {
		out = append(out, fieldError{Loc: []string{"body", name}, Msg: e.Fields[name]})
	}
	return out
}
