package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rentroll-payment-ledger/internal/domain/audit"
)

// ErrArchiveUnavailable is returned when no event archive is configured
var ErrArchiveUnavailable = errors.New("audit archive is not configured")

type auditService struct {
	archive audit.ArchiveRepository
}

func NewAuditService(archive audit.ArchiveRepository) AuditService {
	return &auditService{archive: archive}
}

func (s *auditService) ListEvents(ctx context.Context, tenantID uuid.UUID, limit int) ([]*audit.Event, error) {
	if s.archive == nil {
		return nil, ErrArchiveUnavailable
	}
	events, err := s.archive.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}
