package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/savings-fund-ledger/internal/domain/event"
	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/savingsfund"
)

type ProcessingServiceImpl struct {
	validator       EventValidator
	dispatcher      EventDispatcher
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	validator EventValidator,
	dispatcher EventDispatcher,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		validator:       validator,
		dispatcher:      dispatcher,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessEvent posts one ledger event. Events that can never succeed are recorded as failures
// and acknowledged; any other error is returned so the event is redelivered.
func (s *ProcessingServiceImpl) ProcessEvent(ctx context.Context, e *event.LedgerEvent) error {
	logger := s.logger
	if e.CorrelationID != "" {
		logger = s.logger.With("correlation_id", e.CorrelationID)
	}

	logger.Info("Processing ledger event", "event_id", e.EventID.String(), "event_type", string(e.EventType))

	// 1. Validate the event
	if err := s.validator.Validate(ctx, e); err != nil {
		logger.Error("Ledger event validation failed", "event_id", e.EventID.String(), "error", err)
		s.recordFailure(ctx, logger, e, err)
		return nil
	}

	// 2. Check idempotency
	skip, err := s.validator.CheckIdempotency(ctx, e)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	// 3. Post to the ledger
	tx, err := s.dispatcher.Dispatch(ctx, e)
	if err != nil {
		if IsPermanent(err) {
			logger.Warn("Ledger event rejected", "event_id", e.EventID.String(), "error", err)
			s.recordFailure(ctx, logger, e, err)
			return nil
		}
		logger.Error("Failed to post ledger event", "event_id", e.EventID.String(), "error", err)
		return err
	}

	logger.Info("Ledger event posted",
		"event_id", e.EventID.String(),
		"transaction_id", tx.ID.String(),
		"transaction_type", string(tx.Type))
	return nil
}

func (s *ProcessingServiceImpl) recordFailure(ctx context.Context, logger *slog.Logger, e *event.LedgerEvent, cause error) {
	if recordErr := s.failureRecorder.RecordFailure(ctx, e, cause.Error()); recordErr != nil {
		logger.Error("Failed to record ledger event failure", "event_id", e.EventID.String(), "error", recordErr)
	}
}

// IsPermanent reports whether retrying the event can never succeed: broken invariants and
// invalid input stay broken.
func IsPermanent(err error) bool {
	return errors.Is(err, ledger.ErrInvariantViolation) ||
		errors.Is(err, ledger.ErrNilAccount) ||
		errors.Is(err, savingsfund.ErrInvalidAmount) ||
		errors.Is(err, savingsfund.ErrUnsupportedType) ||
		errors.Is(err, event.ErrInvalidEvent)
}
