package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/rentroll-payment-ledger/internal/review_api/service"
)

type AuditHandler struct {
	auditService service.AuditService
	logger       *slog.Logger
}

func NewAuditHandler(logger *slog.Logger, auditService service.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// ListEvents returns the newest archived events for a tenant
func (h *AuditHandler) ListEvents(c *gin.Context) {
	tenantID, ok := tenantParam(c, h.logger)
	if !ok {
		return
	}

	var query AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid limit: "+err.Error())
		return
	}

	events, err := h.auditService.ListEvents(c.Request.Context(), tenantID, query.Limit)
	if err != nil {
		if errors.Is(err, service.ErrArchiveUnavailable) {
			RespondServiceUnavailable(c, "Audit archive is not available")
			return
		}
		h.logger.Error("Failed to list audit events", "tenant_id", tenantID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	resp := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, mapEventToResponse(e))
	}
	RespondOK(c, resp)
}
