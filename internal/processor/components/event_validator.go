package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/savings-fund-ledger/internal/domain/event"
	ledgerservice "github.com/savings-fund-ledger/internal/ledger/service"
	"github.com/savings-fund-ledger/internal/processor/service"
)

type EventValidatorImpl struct {
	transactions ledgerservice.TransactionService
	logger       *slog.Logger
}

func NewEventValidator(transactions ledgerservice.TransactionService, logger *slog.Logger) service.EventValidator {
	return &EventValidatorImpl{
		transactions: transactions,
		logger:       logger,
	}
}

// Validate checks the event carries what its type needs
func (v *EventValidatorImpl) Validate(_ context.Context, e *event.LedgerEvent) error {
	return e.Validate()
}

// CheckIdempotency reports whether a transaction of the event's type already references the event id
func (v *EventValidatorImpl) CheckIdempotency(ctx context.Context, e *event.LedgerEvent) (bool, error) {
	logger := v.logger
	if e.CorrelationID != "" {
		logger = v.logger.With("correlation_id", e.CorrelationID)
	}

	transactionType, ok := e.TransactionType()
	if !ok {
		return false, fmt.Errorf("%w: unknown event type %q", event.ErrInvalidEvent, e.EventType)
	}

	exists, err := v.transactions.ExistsByExternalReferenceAndTransactionType(ctx, e.EventID, transactionType)
	if err != nil {
		logger.Error("Failed to check ledger for idempotency", "event_id", e.EventID.String(), "error", err)
		return false, fmt.Errorf("idempotency check failed for event %s: %w", e.EventID.String(), err)
	}

	if exists {
		logger.Info("Ledger event already posted (idempotency)",
			"event_id", e.EventID.String(),
			"transaction_type", string(transactionType))
	}
	return exists, nil
}
