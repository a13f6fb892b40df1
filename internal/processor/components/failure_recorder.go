package components

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/savings-fund-ledger/internal/domain/event"
	"github.com/savings-fund-ledger/internal/platform/messaging/producers"
	"github.com/savings-fund-ledger/internal/processor/service"
)

// FailureRecorderImpl parks rejected events on the dead letter topic. Nothing is written to the
// ledger for them.
type FailureRecorderImpl struct {
	dlq    producers.DeadLetterPublisher
	logger *slog.Logger
}

func NewFailureRecorder(dlq producers.DeadLetterPublisher, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		dlq:    dlq,
		logger: logger,
	}
}

// RecordFailure publishes the event with the reason it was rejected
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, e *event.LedgerEvent, failureReason string) error {
	logger := r.logger
	if e.CorrelationID != "" {
		logger = r.logger.With("correlation_id", e.CorrelationID)
	}

	logger.Info("Recording rejected ledger event", "event_id", e.EventID.String(), "reason", failureReason)

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal rejected event %s: %w", e.EventID.String(), err)
	}

	if err := r.dlq.PublishToDLQ(ctx, e.EventID.String(), value, failureReason); err != nil {
		logger.Error("Failed to publish rejected ledger event", "event_id", e.EventID.String(), "error", err)
		return err
	}
	return nil
}
