package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/profile"
	"github.com/spigell/smartmatch/internal/resumetext"
)

// multipartOverhead leaves room for boundaries and part headers.
const multipartOverhead = 1 << 20

var errTooLarge = &badRequest{status: http.StatusRequestEntityTooLarge, msg: "file is too large"}

type resumeOut struct {
	*profile.Candidate
	ResumeObjectKey string `json:"resume_object_key,omitempty"`
}

// bindJSON decodes the body into dst and validates it.
func (h *handler) bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return invalid(fmt.Sprintf("%s: expected %s", typeErr.Field, typeErr.Type))
		}
		return malformed("invalid JSON body")
	}
	return h.validator.Struct(dst)
}

func (h *handler) createCandidate(c *gin.Context) {
	var cand profile.Candidate
	if err := h.bindJSON(c, &cand); err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}
	cand.ID = 0

	if err := h.store.CreateCandidate(c.Request.Context(), &cand); err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}

	requestLogger(c).Info("candidate created", zap.Int64(logger.FieldCandidateID, cand.ID))
	c.JSON(http.StatusOK, &cand)
}

func (h *handler) listCandidates(c *gin.Context) {
	candidates, err := h.store.ListCandidates(c.Request.Context())
	if err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

func (h *handler) getCandidate(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}

	cand, err := h.store.GetCandidate(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}
	c.JSON(http.StatusOK, cand)
}

// uploadResume extracts text from a multipart "file" field, archives the
// original and replaces the candidate's resume text.
func (h *handler) uploadResume(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}

	cand, err := h.store.GetCandidate(ctx, id)
	if err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}

	filename, contentType, data, err := h.readUpload(c)
	if err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}

	mime := resumetext.DetectMIME(filename, contentType)
	text, err := resumetext.Extract(mime, data)
	if err != nil {
		if !errors.Is(err, resumetext.ErrUnsupported) {
			err = invalid(fmt.Sprintf("could not extract resume text: %v", err))
		}
		writeError(c, err, detailCandidateNotFound)
		return
	}

	log := requestLogger(c).With(zap.Int64(logger.FieldCandidateID, id))

	key, err := h.archive.Put(ctx, id, filename, mime, data)
	if err != nil {
		log.Warn("resume archive failed", zap.Error(err))
	}

	if err := h.store.UpdateResume(ctx, id, text); err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}
	cand.ResumeText = text

	log.Info("resume uploaded",
		zap.String("mime", mime),
		zap.Int("bytes", len(data)),
		zap.Int("characters", len([]rune(text))),
	)
	c.JSON(http.StatusOK, resumeOut{Candidate: cand, ResumeObjectKey: key})
}

// readUpload reads the multipart "file" field up to the configured size.
// The request body is capped before parsing so oversized uploads never
// reach temporary files.
func (h *handler) readUpload(c *gin.Context) (string, string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", nil, errTooLarge
		}
		return "", "", nil, invalid("file is required")
	}
	if fh.Size > h.opts.MaxUploadBytes {
		return "", "", nil, errTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", "", nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.opts.MaxUploadBytes+1))
	if err != nil {
		return "", "", nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > h.opts.MaxUploadBytes {
		return "", "", nil, errTooLarge
	}

	return fh.Filename, fh.Header.Get("Content-Type"), data, nil
}
