package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentroll-payment-ledger/internal/domain/audit"
	ingestion "github.com/rentroll-payment-ledger/internal/ingestion/service"
	"github.com/rentroll-payment-ledger/internal/review_api/middleware"
	"github.com/rentroll-payment-ledger/internal/review_api/service"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	return r
}

// decodeData unmarshals the envelope and then its data field into out
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) *Response {
	t.Helper()
	var envelope Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	if out != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return &envelope
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetLedger(ctx context.Context, tenantID uuid.UUID, page, perPage int) (*service.LedgerPage, error) {
	args := m.Called(ctx, tenantID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LedgerPage), args.Error(1)
}

func (m *MockLedgerService) Recompute(ctx context.Context, tenantID uuid.UUID) (*ingestion.RecomputeResult, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingestion.RecomputeResult), args.Error(1)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) ListEvents(ctx context.Context, tenantID uuid.UUID, limit int) ([]*audit.Event, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Event), args.Error(1)
}

type MockPreviewService struct {
	mock.Mock
}

func (m *MockPreviewService) Preview(ctx context.Context, provider, filename string, r io.Reader) (*ingestion.Summary, error) {
	args := m.Called(ctx, provider, filename, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingestion.Summary), args.Error(1)
}
