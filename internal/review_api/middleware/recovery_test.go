package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("PanicBecomes500", func(t *testing.T) {
		var logBuffer bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logBuffer, nil))

		router := gin.New()
		router.Use(CorrelationID())
		router.Use(Recovery(logger))
		router.POST("/api/v1/imports/preview", func(c *gin.Context) {
			panic("parser exploded")
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/preview", nil)
		req.Header.Set(CorrelationIDHeader, "corr-9")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		errorField, ok := body["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", errorField["code"])
		assert.Equal(t, "corr-9", body["correlation_id"])

		out := logBuffer.String()
		assert.Contains(t, out, `"msg":"Panic recovered"`)
		assert.Contains(t, out, `"error":"parser exploded"`)
		assert.Contains(t, out, `"stack":`)
		assert.Contains(t, out, `"correlation_id":"corr-9"`)
	})

	t.Run("NoPanicNoLog", func(t *testing.T) {
		var logBuffer bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logBuffer, nil))

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/health", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, logBuffer.String())
	})
}
