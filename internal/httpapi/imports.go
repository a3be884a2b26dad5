package httpapi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spigell/smartmatch/internal/importer"
)

// importCSV stores candidates from a multipart "file" CSV upload and answers
// with the created records. Skipped duplicates are counted in X-Import-Skipped.
func (h *handler) importCSV(c *gin.Context) {
	_, _, data, err := h.readUpload(c)
	if err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}

	result, err := h.importer.ImportCSV(c.Request.Context(), bytes.NewReader(data))
	if err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}
	writeImport(c, result)
}

// importJSON stores candidates posted as a JSON array by a job board source.
func (h *handler) importJSON(c *gin.Context) {
	source, err := importer.ParseSource(c.Param("source"))
	if err != nil || source == importer.SourceCSV {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
		return
	}

	var items []map[string]any
	if err := c.ShouldBindJSON(&items); err != nil {
		writeError(c, invalid("body must be a JSON array of objects"), detailCandidateNotFound)
		return
	}

	result, err := h.importer.ImportJSON(c.Request.Context(), source, items)
	if err != nil {
		writeError(c, err, detailCandidateNotFound)
		return
	}
	writeImport(c, result)
}

func writeImport(c *gin.Context, result *importer.Result) {
	c.Header(headerSkipped, strconv.Itoa(result.Skipped))
	c.JSON(http.StatusOK, result.Created)
}
