package service

import (
	"context"

	"github.com/savings-fund-ledger/internal/domain/event"
	"github.com/savings-fund-ledger/internal/domain/ledger"
)

// ProcessingService defines the interface for processing ledger events.
type ProcessingService interface {
	ProcessEvent(ctx context.Context, e *event.LedgerEvent) error
}

// EventValidator validates ledger events before processing
type EventValidator interface {
	Validate(ctx context.Context, e *event.LedgerEvent) error
	CheckIdempotency(ctx context.Context, e *event.LedgerEvent) (bool, error)
}

// EventDispatcher posts the event to the savings fund ledger
type EventDispatcher interface {
	Dispatch(ctx context.Context, e *event.LedgerEvent) (*ledger.Transaction, error)
}

// FailureRecorder handles recording events that can never be processed
type FailureRecorder interface {
	RecordFailure(ctx context.Context, e *event.LedgerEvent, failureReason string) error
}
