package components

import (
	"log/slog"

	"github.com/savings-fund-ledger/internal/config"
	ledgerservice "github.com/savings-fund-ledger/internal/ledger/service"
	"github.com/savings-fund-ledger/internal/platform/messaging/producers"
	"github.com/savings-fund-ledger/internal/processor/service"
)

// CreateProcessingService wires the event pipeline and runs it on a worker pool. The returned
// shutdown func releases the pool.
func CreateProcessingService(
	fund FundLedger,
	transactions ledgerservice.TransactionService,
	dlq producers.DeadLetterPublisher,
	logger *slog.Logger,
	cfg *config.Config,
) (service.ProcessingService, func()) {
	validator := NewEventValidator(transactions, logger)
	dispatcher := NewEventDispatcher(fund, logger)
	failureRecorder := NewFailureRecorder(dlq, logger)

	baseService := service.NewProcessingService(
		validator,
		dispatcher,
		failureRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService, func() {}
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService, workerPoolService.Shutdown
}
