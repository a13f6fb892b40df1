package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/savings-fund-ledger/internal/domain/event"
)

// ErrWorkerPanic is returned when processing an event panicked inside a worker
var ErrWorkerPanic = errors.New("ledger event worker panicked")

// WorkerPoolProcessingService bounds how many ledger events are posted concurrently
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

type antsLogger struct {
	logger *slog.Logger
}

func (l antsLogger) Printf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size, ants.WithLogger(antsLogger{logger: logger}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessEvent runs the event on a pooled worker and waits for its outcome.
// If ctx ends first the worker keeps running and ctx.Err() is returned.
func (s *WorkerPoolProcessingService) ProcessEvent(ctx context.Context, e *event.LedgerEvent) error {
	logger := s.logger.With("event_id", e.EventID.String(), "event_type", string(e.EventType))
	if e.CorrelationID != "" {
		logger = logger.With("correlation_id", e.CorrelationID)
	}

	eventCopy := *e
	done := make(chan error, 1)

	submitErr := s.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Ledger event worker panicked", "panic", r)
				done <- fmt.Errorf("%w: %v", ErrWorkerPanic, r)
			}
		}()
		done <- s.baseService.ProcessEvent(ctx, &eventCopy)
	})
	if submitErr != nil {
		logger.Error("Failed to submit ledger event to worker pool", "error", submitErr)
		return fmt.Errorf("failed to submit ledger event: %w", submitErr)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Warn("Stopped waiting for ledger event", "error", ctx.Err())
		return ctx.Err()
	}
}

// Shutdown releases the pool; queued submissions fail afterwards
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
