package handler

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	ingestion "github.com/rentroll-payment-ledger/internal/ingestion/service"
	"github.com/rentroll-payment-ledger/internal/source"
)

func multipartBody(t *testing.T, provider, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if provider != "" {
		require.NoError(t, w.WriteField("provider", provider))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestImportHandler_Preview(t *testing.T) {
	export := []byte("Date,Description,Amount\n03/05/2024,Zelle payment from MARIA LOPEZ,900.00\n")

	summary := ingestion.NewSummary(true)
	summary.Total = 1
	summary.Parsed = 1
	summary.Created = 1

	tests := []struct {
		name           string
		provider       string
		filename       string
		content        []byte
		maxBytes       int64
		setupMocks     func(svc *MockPreviewService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:     "dry-run summary",
			provider: "zelle",
			filename: "chase.csv",
			content:  export,
			setupMocks: func(svc *MockPreviewService) {
				svc.On("Preview", mock.Anything, "zelle", "chase.csv", mock.Anything).Return(summary, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing file",
			provider:       "zelle",
			setupMocks:     func(svc *MockPreviewService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "missing provider",
			filename:       "chase.csv",
			content:        export,
			setupMocks:     func(svc *MockPreviewService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:     "unknown provider",
			provider: "applepay",
			filename: "x.csv",
			content:  export,
			setupMocks: func(svc *MockPreviewService) {
				svc.On("Preview", mock.Anything, "applepay", "x.csv", mock.Anything).
					Return(nil, payment.ErrUnknownMethod{Value: "applepay"}).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:     "not an export",
			provider: "venmo",
			filename: "notes.txt",
			content:  []byte("hello"),
			setupMocks: func(svc *MockPreviewService) {
				svc.On("Preview", mock.Anything, "venmo", "notes.txt", mock.Anything).
					Return(nil, fmt.Errorf("failed to parse VENMO export notes.txt: %w", source.ErrHeaderNotFound)).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "UNPROCESSABLE_ENTITY",
		},
		{
			name:     "snapshot failure",
			provider: "venmo",
			filename: "june.csv",
			content:  export,
			setupMocks: func(svc *MockPreviewService) {
				svc.On("Preview", mock.Anything, "venmo", "june.csv", mock.Anything).Return(nil, errors.New("db error")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_SERVER_ERROR",
		},
		{
			name:           "upload too large",
			provider:       "venmo",
			filename:       "huge.csv",
			content:        bytes.Repeat([]byte("x"), 4096),
			maxBytes:       1024,
			setupMocks:     func(svc *MockPreviewService) {},
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedCode:   "PAYLOAD_TOO_LARGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPreviewService)
			tt.setupMocks(svc)

			maxBytes := tt.maxBytes
			if maxBytes == 0 {
				maxBytes = 1 << 20
			}
			router := setupTestRouter()
			router.POST("/imports/preview", NewImportHandler(newTestLogger(), svc, maxBytes).Preview)

			body, contentType := multipartBody(t, tt.provider, tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/imports/preview", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedCode != "" {
				envelope := decodeData(t, rr, nil)
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.expectedCode, envelope.Error.Code)
			} else {
				var got map[string]interface{}
				decodeData(t, rr, &got)
				assert.Equal(t, true, got["dry_run"])
				assert.Equal(t, float64(1), got["created"])
			}
			svc.AssertExpectations(t)
		})
	}
}
