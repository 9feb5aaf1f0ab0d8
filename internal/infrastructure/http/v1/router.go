// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/phompasit/finance-sub002/internal/domain/counterparty"
	"github.com/phompasit/finance-sub002/internal/domain/obligation"
	"github.com/phompasit/finance-sub002/internal/infrastructure/http/v1/handlers"
	"github.com/phompasit/finance-sub002/internal/infrastructure/http/v1/middleware"
	"github.com/phompasit/finance-sub002/internal/infrastructure/storage/postgres"
	"github.com/phompasit/finance-sub002/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// ObligationService drives the obligation ledger endpoints
	ObligationService *obligation.Service

	// CounterpartyService drives the counterparty catalog endpoints
	CounterpartyService *counterparty.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(middleware.UserContext())
	{
		baseHandler := handlers.NewBaseHandler()

		obligationHandler := handlers.NewObligationHandler(baseHandler, cfg.ObligationService)
		obligationHandler.RegisterRoutes(v1.Group("/obligations"))

		counterpartyHandler := handlers.NewCounterpartyHandler(baseHandler, cfg.CounterpartyService)
		counterpartyHandler.RegisterRoutes(v1.Group("/counterparties"))
	}

	return router
}
