package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentroll-payment-ledger/internal/domain/tenant"
	"github.com/rentroll-payment-ledger/internal/review_api/service"
)

// LedgerHandler serves tenant ledgers and on-demand balance repair
type LedgerHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

func NewLedgerHandler(logger *slog.Logger, ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// GetLedger returns one page of a tenant's ledger with the current balance
func (h *LedgerHandler) GetLedger(c *gin.Context) {
	tenantID, ok := tenantParam(c, h.logger)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	page, err := h.ledgerService.GetLedger(c.Request.Context(), tenantID, params.Page, params.PerPage)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound{}) {
			RespondNotFound(c, "Tenant not found")
			return
		}
		h.logger.Error("Failed to get ledger", "tenant_id", tenantID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondPage(c, mapLedgerToResponse(page), params.Page, params.PerPage, page.Total)
}

// Recompute rewrites every running balance of the tenant from the entry amounts
func (h *LedgerHandler) Recompute(c *gin.Context) {
	tenantID, ok := tenantParam(c, h.logger)
	if !ok {
		return
	}

	result, err := h.ledgerService.Recompute(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound{}) {
			RespondNotFound(c, "Tenant not found")
			return
		}
		h.logger.Error("Failed to recompute ledger", "tenant_id", tenantID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapRecomputeToResponse(result))
}

func tenantParam(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Warn("Invalid tenant ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	return id, true
}
