package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/civic-contracts-ledger/internal/api/handler"
	"github.com/civic-contracts-ledger/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	reconciliationHandler *handler.ReconciliationHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints, all scoped to the calling organization
	v1 := r.Group("/api/v1")
	v1.Use(middleware.OrganizationID())
	{
		// Account ingestion and lookup
		accounts := v1.Group("/accounts")
		{
			accounts.POST("/import", accountHandler.Import)
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.GET("/:id/transactions", accountHandler.ListTransactions)
		}

		// Reconciliation workflow
		accountabilities := v1.Group("/accountabilities")
		{
			accountabilities.GET("/:id/reconciliation", reconciliationHandler.Preview)
			accountabilities.POST("/:id/reconciliation", reconciliationHandler.Commit)
		}

		entries := v1.Group("/entries")
		{
			entries.DELETE("/:id/reconciliation", reconciliationHandler.Unreconcile)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
