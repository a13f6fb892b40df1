package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/savings-fund-ledger/internal/config"
	"github.com/savings-fund-ledger/internal/data/memory"
	"github.com/savings-fund-ledger/internal/data/mongo"
	"github.com/savings-fund-ledger/internal/data/postgres"
	"github.com/savings-fund-ledger/internal/domain/ledger"
	ledgerservice "github.com/savings-fund-ledger/internal/ledger/service"
	"github.com/savings-fund-ledger/internal/logger"
	"github.com/savings-fund-ledger/internal/ops"
	"github.com/savings-fund-ledger/internal/platform/messaging/consumers"
	"github.com/savings-fund-ledger/internal/platform/messaging/producers"
	"github.com/savings-fund-ledger/internal/platform/persistence"
	"github.com/savings-fund-ledger/internal/platform/scheduler"
	"github.com/savings-fund-ledger/internal/processor/components"
	"github.com/savings-fund-ledger/internal/processor/consumer"
	"github.com/savings-fund-ledger/internal/processor/outbox_poller"
	"github.com/savings-fund-ledger/internal/savingsfund"
	"github.com/savings-fund-ledger/internal/savingsfund/jobs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ledger processor: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_processor")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(cfg)
	log.Info("Starting Ledger Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"fund", cfg.Fund.Code,
		"storage", cfg.Storage.Driver,
	)

	// Ledger storage
	store, closeStore, err := openStore(appCtx, log, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	payments := store.Payments()

	// Audit journal
	mongoDB, err := persistence.NewMongoDB(appCtx, log, cfg.Application.Name, &cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoDB.Timeout)
		defer cancel()
		if err := mongoDB.Close(closeCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}()

	journal := mongo.NewJournalRepository(log, mongoDB.Journal())
	if err := journal.EnsureIndexes(appCtx); err != nil {
		return fmt.Errorf("failed to ensure journal indexes: %w", err)
	}

	// Ledger services
	parties := ledgerservice.NewPartyService(log, store)
	accounts := ledgerservice.NewAccountService(log, store, parties)
	transactions := ledgerservice.NewTransactionService(log, store)
	fund := savingsfund.NewLedger(log.With("component", "savings_fund"), accounts, transactions, cfg.Fund.Code)

	// Messaging
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		return fmt.Errorf("failed to initialize DLQ producer: %w", err)
	}
	defer closeWith(log, "DLQ producer", dlqProducer.Close)

	domainEvents, err := producers.NewDomainEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		return fmt.Errorf("failed to initialize domain event producer: %w", err)
	}
	defer closeWith(log, "domain event producer", domainEvents.Close)

	processingService, shutdownPool := components.CreateProcessingService(fund, transactions, dlqProducer, log, cfg)
	handler := consumer.NewLedgerEventHandler(log, processingService, dlqProducer)
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)

	// Outbox to journal
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		store.Outbox(),
		outbox_poller.NewJournalPublisher(store.Outbox(), journal, log),
		log.With("component", "outbox_poller"),
	)

	// Batch jobs
	sched := scheduler.New(log)
	if cfg.Jobs.Enabled {
		reservation := jobs.NewPaymentReservationJob(log, payments, fund, domainEvents)
		if err := sched.AddJob(cfg.Jobs.PaymentReservationSchedule, reservation); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", reservation.Name(), err)
		}
		paymentReturn := jobs.NewPaymentReturnJob(log, payments, fund, domainEvents)
		if err := sched.AddJob(cfg.Jobs.PaymentReturnSchedule, paymentReturn); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", paymentReturn.Name(), err)
		}
	}

	opsServer := ops.NewServer(log, cfg, map[string]ops.Check{
		"storage": store.Ping,
		"journal": mongoDB.Ping,
	})

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, handler.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to ledger events: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	go func() {
		if err := opsServer.Start(); err != nil {
			errChan <- err
		}
	}()

	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case sig := <-quit:
		log.Info("Shutdown signal received", "signal", sig.String())
	case serviceErr = <-errChan:
		log.Error("Service error occurred", "error", serviceErr)
	}

	log.Info("Starting graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := opsServer.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping ops server", "error", err)
	}
	sched.Stop()
	cancelAppCtx()

	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	shutdownPool()

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
		log.Info("All services stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if serviceErr != nil {
		return serviceErr
	}
	log.Info("Ledger Processor shutdown completed successfully")
	return nil
}

// openStore returns the ledger store for the configured driver. Payments live in the same
// store so their status changes commit with the postings.
func openStore(ctx context.Context, log *slog.Logger, cfg *config.Config) (ledger.Store, func(), error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Warn("Using in-memory ledger storage; postings are lost on exit")
		return memory.NewStore(), func() {}, nil
	}

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return postgres.NewStore(log, postgresDB.Pool()), postgresDB.Close, nil
}

func closeWith(log *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Error("Error closing "+name, "error", err)
	}
}

