package pdfs

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nits830/pdf-mechanic/internal/llm"
	"github.com/nits830/pdf-mechanic/internal/shared/server/middleware"
	"github.com/nits830/pdf-mechanic/internal/shared/server/respond"
)

// Handler exposes the PDF lifecycle over HTTP.
type Handler struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// RegisterRoutes registers the authenticated PDF routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.POST("/extract", h.extract)
	rg.POST("/summarize", h.summarize)
	rg.GET("/my-pdfs", h.list)
	rg.GET("/:id", h.download)
	rg.GET("/:id/text", h.text)
	rg.POST("/:id/extract", h.reextract)
	rg.DELETE("/:id", h.remove)
}

type documentResponse struct {
	ID              string `json:"id"`
	FileName        string `json:"fileName"`
	SizeBytes       int64  `json:"fileSize"`
	ExtractionState string `json:"extractionState"`
	FailureReason   string `json:"failureReason,omitempty"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func toDocumentResponse(d Document) documentResponse {
	return documentResponse{
		ID:              d.ID,
		FileName:        d.FileName,
		SizeBytes:       d.SizeBytes,
		ExtractionState: d.ExtractionState,
		FailureReason:   d.FailureReason,
		CreatedAt:       d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       d.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// upload accepts a multipart PDF, stores it, and returns 201 with the
// document still pending; extraction completes in the background.
func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	fileName, contentType, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	doc, err := h.Service.Upload(ctx, userID, fileName, contentType, data)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, toDocumentResponse(doc))
}

// extract is the synchronous pipeline: the response carries the extracted
// text, plus a summary when ?summary=<style> is present.
func (h *Handler) extract(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	fileName, contentType, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	doc, summary, err := h.Service.ExtractAndSummarize(c.Request.Context(), userID, fileName, contentType, data, c.Query("summary"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	payload := gin.H{
		"id":       doc.ID,
		"filename": doc.FileName,
		"fileSize": doc.SizeBytes,
		"text":     doc.ExtractedText,
	}
	if summary != "" {
		payload["summary"] = summary
	}
	respond.OK(c, payload)
}

type summarizeRequest struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

// summarize runs the stateless summarization passthrough.
func (h *Handler) summarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	summary, err := h.Service.SummarizeText(c.Request.Context(), req.Text, req.Style)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"summary": summary})
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	docs, err := h.Service.List(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	respond.OK(c, gin.H{"pdfs": out})
}

// download streams the stored binary back to its owner.
func (h *Handler) download(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	body, doc, err := h.Service.OpenBinary(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", mimePDF)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	if doc.SizeBytes > 0 {
		c.Header("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		// Headers already sent; nothing more to do than note it.
		_ = c.Error(err)
	}
}

// text is the polling endpoint: 200 once completed, 202 while pending,
// 500 when the attempt failed. Polls are throttled per user and document.
func (h *Handler) text(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	if ok, retryAfter := h.Service.AllowPoll(userID, documentID); !ok {
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}

	doc, err := h.Service.GetStatus(c.Request.Context(), documentID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	switch doc.ExtractionState {
	case StateCompleted:
		respond.OK(c, gin.H{"id": doc.ID, "status": StateCompleted, "text": doc.ExtractedText})
	case StateFailed:
		respond.Error(c, http.StatusInternalServerError, "extraction_failed", doc.FailureReason, gin.H{"id": doc.ID, "status": StateFailed})
	default:
		respond.JSON(c, http.StatusAccepted, gin.H{"id": doc.ID, "status": StatePending})
	}
}

// reextract re-runs extraction against the stored binary.
func (h *Handler) reextract(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	doc, err := h.Service.Reextract(ctx, c.Param("id"), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"id": doc.ID, "status": StatePending})
}

func (h *Handler) remove(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Service.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"deleted": true})
}

// readUpload pulls the "file" part out of the multipart form. On failure it
// writes the error response and returns ok=false.
func (h *Handler) readUpload(c *gin.Context) (fileName, contentType string, data []byte, ok bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return "", "", nil, false
	}
	if max := h.Service.maxUploadBytes(); fh.Size > max {
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds size limit", gin.H{"maxBytes": max})
		return "", "", nil, false
	}

	data, err = readAllPart(fh)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read uploaded file", nil)
		return "", "", nil, false
	}
	return fh.Filename, fh.Header.Get("Content-Type"), data, true
}

func readAllPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeError maps service errors onto the HTTP error envelope.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error(), nil)
	case errors.Is(err, ErrInvalidUpload), errors.Is(err, llm.ErrUnknownStyle):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "pdf not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "you do not own this pdf", nil)
	case errors.Is(err, ErrExtractionInFlight):
		respond.Error(c, http.StatusConflict, "conflict", "extraction already in progress", nil)
	case errors.Is(err, ErrExtractionFailed):
		respond.Error(c, http.StatusInternalServerError, "extraction_failed", err.Error(), nil)
	case errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "llm_unavailable", "summarization is not configured", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}
