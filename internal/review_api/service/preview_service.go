package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	ingestion "github.com/rentroll-payment-ledger/internal/ingestion/service"
	"github.com/rentroll-payment-ledger/internal/source"
)

// Importer is the slice of the ingestion import service a preview needs
type Importer interface {
	Import(ctx context.Context, parser source.ExportParser, inputs []ingestion.ExportInput, dryRun bool) (*ingestion.Summary, error)
}

type previewService struct {
	importer Importer
	loc      *time.Location
	logger   *slog.Logger
}

func NewPreviewService(logger *slog.Logger, importer Importer, loc *time.Location) PreviewService {
	return &previewService{
		importer: importer,
		loc:      loc,
		logger:   logger,
	}
}

// Preview always runs dry. Unknown providers fail with payment.ErrUnknownMethod
// and unreadable exports with the parser's error.
func (s *previewService) Preview(ctx context.Context, provider, filename string, r io.Reader) (*ingestion.Summary, error) {
	method, err := payment.ParseMethod(provider)
	if err != nil {
		return nil, err
	}

	parser, err := source.NewExportParser(method, s.loc)
	if err != nil {
		return nil, err
	}

	summary, err := s.importer.Import(ctx, parser, []ingestion.ExportInput{{Path: filename, Reader: r}}, true)
	if err != nil {
		s.logger.Warn("Preview failed", "provider", method, "file", filename, "error", err)
		return nil, err
	}
	return summary, nil
}
