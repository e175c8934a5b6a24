package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rentroll-payment-ledger/internal/config"
	"github.com/rentroll-payment-ledger/internal/data/mongo"
	"github.com/rentroll-payment-ledger/internal/data/postgres"
	"github.com/rentroll-payment-ledger/internal/ingestion/components"
	"github.com/rentroll-payment-ledger/internal/ingestion/consumer"
	"github.com/rentroll-payment-ledger/internal/ingestion/outbox_poller"
	"github.com/rentroll-payment-ledger/internal/logger"
	"github.com/rentroll-payment-ledger/internal/matcher"
	"github.com/rentroll-payment-ledger/internal/platform/messaging/consumers"
	"github.com/rentroll-payment-ledger/internal/platform/messaging/producers"
	"github.com/rentroll-payment-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("email_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Email Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	overrides, err := matcher.LoadOverrides(cfg.Ingestion.OverridesPath)
	if err != nil {
		log.Error("Failed to load sender overrides", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	auditArchive := mongo.NewAuditRepository(log, mongoDB.Database())
	if err := auditArchive.EnsureIndexes(appCtx); err != nil {
		log.Warn("Failed to ensure audit archive indexes", "error", err)
	}

	repos := components.Repositories{
		Tenants:  postgres.NewTenantRepository(log, postgresDB),
		Payments: postgres.NewPaymentRepository(log, postgresDB),
		Ledger:   postgres.NewLedgerRepository(log, postgresDB),
		Outbox:   postgres.NewOutboxRepository(log, postgresDB),
	}

	ingestion, err := components.CreateIngestion(postgresDB, repos, overrides, log, cfg)
	if err != nil {
		log.Error("Failed to create ingestion pipeline", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// nil when no DLQ topic is configured; the handler then drops instead of parking
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	auditProducer, err := producers.NewAuditEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize audit Kafka producer", "error", err)
		os.Exit(1)
	}

	emailEventHandler := consumer.NewEmailEventHandler(
		log.With("component", "email_event_handler"),
		ingestion.Email,
		dlqProducer.Publisher(),
	)

	auditPublisher := outbox_poller.NewAuditPublisher(
		repos.Outbox,
		auditProducer,
		auditArchive,
		log.With("component", "audit_publisher"),
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		repos.Outbox,
		auditPublisher,
		log.With("component", "outbox_poller"),
	)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.EmailTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, emailEventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	case <-kafkaConsumer.Done():
		log.Error("Kafka consumer stopped unexpectedly")
		serviceErr = fmt.Errorf("kafka consumer stopped")
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	log.Info("Shutting down parse pool", "running_workers", ingestion.ParsePool.Running())
	ingestion.Shutdown()

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}
	if err = auditProducer.Close(); err != nil {
		log.Error("Error closing audit Kafka producer", "error", err)
	}
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Email Processor shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Email Processor shutdown completed successfully")
}
