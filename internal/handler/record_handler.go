package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mailparser/internal/export"
)

// RecordHandler serves the persisted extraction log.
type RecordHandler struct {
	repo export.Lister
	log  zerolog.Logger
}

// NewRecordHandler creates a new RecordHandler over any record store that can page.
func NewRecordHandler(repo export.Lister, logger zerolog.Logger) *RecordHandler {
	return &RecordHandler{repo: repo, log: logger}
}

// List handles GET /records
func (h *RecordHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)

	records, total, err := h.repo.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	RespondPaginated(c, records, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Export handles GET /records/export?format=csv|xlsx
func (h *RecordHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	records, err := export.Collect(c.Request.Context(), h.repo)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	var buf bytes.Buffer
	if err := format.Write(&buf, records); err != nil {
		HandleError(c, h.log, err)
		return
	}

	filename := export.BuildFilename("extractions", string(format))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// parsePagination extracts offset and limit from query params with defaults.
func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
