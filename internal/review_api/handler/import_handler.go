package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/review_api/service"
	"github.com/rentroll-payment-ledger/internal/source"
)

// ImportHandler previews an uploaded export as a dry run
type ImportHandler struct {
	previewService service.PreviewService
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewImportHandler(logger *slog.Logger, previewService service.PreviewService, maxUploadBytes int64) *ImportHandler {
	return &ImportHandler{
		previewService: previewService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Preview expects a multipart form with "provider" and "file" and answers
// with the summary a real import would produce. Nothing is written.
func (h *ImportHandler) Preview(c *gin.Context) {
	tooLarge := fmt.Sprintf("Export exceeds %d bytes", h.maxUploadBytes)
	if c.Request.ContentLength > h.maxUploadBytes {
		RespondTooLarge(c, tooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondTooLarge(c, tooLarge)
			return
		}
		RespondBadRequest(c, "Missing export file")
		return
	}

	provider := c.PostForm("provider")
	if provider == "" {
		RespondBadRequest(c, "Missing provider")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded export", "file", fileHeader.Filename, "error", err)
		RespondInternalError(c)
		return
	}
	defer file.Close()

	summary, err := h.previewService.Preview(c.Request.Context(), provider, fileHeader.Filename, file)
	if err != nil {
		var unknown payment.ErrUnknownMethod
		switch {
		case errors.As(err, &unknown):
			RespondBadRequest(c, "Unknown provider: "+provider)
		case errors.Is(err, source.ErrHeaderNotFound):
			RespondUnprocessable(c, "File is not a recognizable "+provider+" export")
		default:
			h.logger.Error("Failed to preview export", "provider", provider, "file", fileHeader.Filename, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, summary)
}
