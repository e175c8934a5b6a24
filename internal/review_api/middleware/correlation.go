package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Headers a reviewer's client or the fronting proxy may set
const (
	CorrelationIDHeader = "X-Correlation-ID"
	RequestIDHeader     = "X-Request-ID"
	CorrelationIDKey    = "correlation_id"

	maxCorrelationIDLength = 128
)

// CorrelationID stamps every review request (ledger pages, recomputes, import
// previews) with the id that ties its access log line to its error body.
// Oversized ids from the client are replaced.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := firstNonEmpty(c.GetHeader(CorrelationIDHeader), c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > maxCorrelationIDLength {
			id = uuid.New().String()
		}

		c.Set(CorrelationIDKey, id)
		c.Header(CorrelationIDHeader, id)
		c.Next()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetCorrelationID is empty outside the CorrelationID middleware
func GetCorrelationID(c *gin.Context) string {
	id, _ := c.Get(CorrelationIDKey)
	s, _ := id.(string)
	return s
}
