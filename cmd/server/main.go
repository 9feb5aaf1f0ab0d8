// Package main is the entry point for the obligation ledger API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/phompasit/finance-sub002/internal/domain/counterparty"
	"github.com/phompasit/finance-sub002/internal/domain/obligation"
	v1 "github.com/phompasit/finance-sub002/internal/infrastructure/http/v1"
	"github.com/phompasit/finance-sub002/internal/infrastructure/storage/postgres"
	"github.com/phompasit/finance-sub002/internal/infrastructure/storage/postgres/counterparty_repo"
	"github.com/phompasit/finance-sub002/internal/infrastructure/storage/postgres/obligation_repo"
	"github.com/phompasit/finance-sub002/pkg/logger"
)

func main() {
	// Load .env if present; real env vars take precedence.
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting obligation ledger server")

	// --- Database connection ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Audit trail ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// --- Repositories and services ---
	obligationRepo := obligation_repo.NewObligationRepo(txManager)
	obligationService := obligation.NewService(obligationRepo, txManager, postgres.NewObligationAuditTrail(auditService))

	counterpartyRepo := counterparty_repo.NewCounterpartyRepo(txManager)
	counterpartyService := counterparty.NewService(counterpartyRepo, txManager)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:                pool,
		Logger:              log,
		ObligationService:   obligationService,
		CounterpartyService: counterpartyService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
