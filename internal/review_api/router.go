package review_api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rentroll-payment-ledger/internal/review_api/handler"
	"github.com/rentroll-payment-ledger/internal/review_api/middleware"
)

const healthTimeout = 2 * time.Second

// setupRouter configures routes and middleware
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	ledgerHandler *handler.LedgerHandler,
	auditHandler *handler.AuditHandler,
	importHandler *handler.ImportHandler,
	checks map[string]HealthCheck,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		tenants := v1.Group("/tenants/:id")
		{
			tenants.GET("/ledger", ledgerHandler.GetLedger)
			tenants.POST("/ledger/recompute", ledgerHandler.Recompute)
			tenants.GET("/audit-events", auditHandler.ListEvents)
		}

		v1.POST("/imports/preview", importHandler.Preview)
	}

	r.GET("/health", health(checks))
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// health answers 503 when any dependency check fails
func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "components": components, "timestamp": time.Now().UTC()})
	}
}
