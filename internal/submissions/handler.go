package submissions

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-pipeline/internal/shared/server/middleware"
	"resume-pipeline/internal/shared/server/respond"
	"resume-pipeline/internal/shared/storage/object"
)

// multipart overhead allowed on top of the file limit
const formOverheadBytes = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches submission routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/submissions", h.submit)
	rg.GET("/submissions", h.list)
	rg.GET("/submissions/:id", h.get)
	rg.GET("/submissions/:id/status", h.status)
	rg.GET("/submissions/:id/pdf", h.pdf)
	rg.GET("/submissions/:id/original", h.original)
	rg.DELETE("/submissions/:id", h.delete)
}

func (h *Handler) submit(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.maxUploadBytes()+formOverheadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, err)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.Svc.maxUploadBytes()+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	id, err := h.Svc.Submit(c.Request.Context(), userID, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("submissionId", id)
	c.Set("statusTransition", "->"+string(StageQueued))
	respond.Accepted(c, submitResponse{ID: id, ParsingStatus: StageQueued})
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit := queryInt(c, "limit", defaultListLimit)
	offset := queryInt(c, "offset", 0)

	items, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]summaryResponse, 0, len(items))
	for _, s := range items {
		resp = append(resp, toSummaryResponse(s))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	sub, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("submissionId", sub.ID)
	respond.OK(c, toDetailResponse(sub))
}

func (h *Handler) status(c *gin.Context) {
	st, err := h.Svc.Status(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("submissionId", st.ID)
	if st.State == StateProcessing {
		respond.SetRetryAfter(c, st.RetryAfter)
	}
	respond.OK(c, toStatusResponse(st))
}

func (h *Handler) pdf(c *gin.Context) {
	id := c.Param("id")
	pdf, err := h.Svc.Artifact(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("submissionId", id)
	respond.File(c, "application/pdf", "inline", "resume-"+id+".pdf", pdf)
}

func (h *Handler) original(c *gin.Context) {
	sub, rc, err := h.Svc.OpenOriginal(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer rc.Close()

	c.Set("submissionId", sub.ID)
	c.Header("Content-Type", sub.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", object.HeaderSafeName(sub.FileName)))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("submissionId", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		validation *ValidationError
		notReady   *NotReadyError
		failed     *FailedError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &validation):
		respond.Error(c, http.StatusBadRequest, "validation_error", validation.Message, nil)
	case errors.As(err, &tooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "File size exceeds maximum limit", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "submission not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "submission belongs to another user", nil)
	case errors.As(err, &notReady):
		secs := respond.SetRetryAfter(c, notReady.RetryAfter)
		respond.Error(c, http.StatusConflict, "NOT_READY", notReady.Error(), gin.H{
			"parsingStatus":     notReady.Stage,
			"retryAfterSeconds": secs,
		})
	case errors.As(err, &failed):
		respond.Error(c, http.StatusUnprocessableEntity, "PROCESSING_FAILED", failed.Reason, nil)
	case errors.Is(err, ErrDispatch):
		respond.Error(c, http.StatusServiceUnavailable, "dispatch_failed", "failed to schedule processing", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}
