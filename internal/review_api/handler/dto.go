package handler

import (
	"encoding/json"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/audit"
	"github.com/rentroll-payment-ledger/internal/domain/ledger"
	ingestion "github.com/rentroll-payment-ledger/internal/ingestion/service"
	"github.com/rentroll-payment-ledger/internal/review_api/service"
)

// PaginationParams are the ledger page query parameters
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=25" binding:"min=1,max=200"`
}

type AuditQuery struct {
	Limit int `form:"limit,default=50" binding:"min=1,max=500"`
}

// EntryResponse renders money as fixed two-decimal strings
type EntryResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Period      string `json:"period"`
	Balance     string `json:"balance"`
	PaymentID   string `json:"payment_id,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type LedgerResponse struct {
	TenantID   string          `json:"tenant_id"`
	TenantName string          `json:"tenant_name"`
	Balance    string          `json:"balance"`
	Entries    []EntryResponse `json:"entries"`
}

type RecomputeResponse struct {
	TenantID string `json:"tenant_id"`
	Entries  int    `json:"entries"`
	Updated  int    `json:"updated"`
	Balance  string `json:"balance"`
}

type AuditEventResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	TenantID   string          `json:"tenant_id,omitempty"`
	PropertyID string          `json:"property_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  string          `json:"created_at"`
}

func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:          e.ID.String(),
		Type:        string(e.Type),
		Amount:      e.Amount.StringFixed(2),
		Period:      e.Period,
		Balance:     e.Balance.StringFixed(2),
		Description: e.Description,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339Nano),
	}
	if e.PaymentID != nil {
		resp.PaymentID = e.PaymentID.String()
	}
	return resp
}

func mapLedgerToResponse(page *service.LedgerPage) LedgerResponse {
	entries := make([]EntryResponse, 0, len(page.Entries))
	for _, e := range page.Entries {
		entries = append(entries, mapEntryToResponse(e))
	}
	return LedgerResponse{
		TenantID:   page.Tenant.ID.String(),
		TenantName: page.Tenant.FullName(),
		Balance:    page.Balance.StringFixed(2),
		Entries:    entries,
	}
}

func mapRecomputeToResponse(r *ingestion.RecomputeResult) RecomputeResponse {
	return RecomputeResponse{
		TenantID: r.TenantID.String(),
		Entries:  r.Entries,
		Updated:  r.Updated,
		Balance:  r.Balance.StringFixed(2),
	}
}

func mapEventToResponse(e *audit.Event) AuditEventResponse {
	resp := AuditEventResponse{
		ID:        e.ID.String(),
		Type:      string(e.Type),
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.TenantID != nil {
		resp.TenantID = e.TenantID.String()
	}
	if e.PropertyID != nil {
		resp.PropertyID = e.PropertyID.String()
	}
	return resp
}
