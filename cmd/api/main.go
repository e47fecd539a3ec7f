package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/civic-contracts-ledger/internal/api"
	"github.com/civic-contracts-ledger/internal/api/handler"
	"github.com/civic-contracts-ledger/internal/config"
	"github.com/civic-contracts-ledger/internal/data/postgres"
	"github.com/civic-contracts-ledger/internal/ingest"
	"github.com/civic-contracts-ledger/internal/logger"
	"github.com/civic-contracts-ledger/internal/outbox_poller"
	"github.com/civic-contracts-ledger/internal/platform/messaging/producers"
	"github.com/civic-contracts-ledger/internal/platform/persistence"
	"github.com/civic-contracts-ledger/internal/reconcile"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting reconciliation API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for reconciliation events
	eventProducer, err := producers.NewReconciliationEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	statementRepo := postgres.NewStatementRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	contractRepo := postgres.NewContractRepository(log, postgresDB)
	entryRepo := postgres.NewEntryRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// Initialize services
	ingestor := ingest.NewIngestor(log, postgresDB, accountRepo, statementRepo, transactionRepo, contractRepo)
	reconcileService := reconcile.NewService(log, postgresDB, entryRepo, transactionRepo, contractRepo, outboxRepo)

	// Initialize handlers and REST server
	accountHandler := handler.NewAccountHandler(log, ingestor, accountRepo, transactionRepo, cfg.Upload.MaxBytes)
	reconciliationHandler := handler.NewReconciliationHandler(log, reconcileService)

	server := api.NewServer(log, cfg, accountHandler, reconciliationHandler)
	log.Info("REST server initialized")

	// Initialize outbox poller publishing committed reconciliation events
	eventPublisher := outbox_poller.NewEventPublisher(outboxRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, eventPublisher, log)

	// Create error channel for server errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context, stopping the poller
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Wait for the poller to finish its current batch
	wg.Wait()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
