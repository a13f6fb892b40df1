// Package jobs holds the scheduled payment batch jobs. Each payment is processed on its own;
// a failed item is logged and left out of the published totals.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/domain/payment"
)

// Domain event types published after a batch run
const (
	EventPaymentsReserved = "PAYMENTS_RESERVED"
	EventPaymentsReturned = "PAYMENTS_RETURNED"
)

// EventPublisher publishes a batch summary event
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// BatchEvent summarizes the successfully processed payments of one run
type BatchEvent struct {
	EventID     uuid.UUID       `json:"event_id"`
	EventType   string          `json:"event_type"`
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// PaymentsReservedEvent is published by the reservation job
type PaymentsReservedEvent struct {
	BatchEvent
}

// PaymentsReturnedEvent is published by the return job
type PaymentsReturnedEvent struct {
	BatchEvent
}

func newBatchEvent(eventType string, count int, total decimal.Decimal) BatchEvent {
	return BatchEvent{
		EventID:     uuid.New(),
		EventType:   eventType,
		Count:       count,
		TotalAmount: total,
		OccurredAt:  time.Now().UTC(),
	}
}

// PaymentLedger is the part of the savings fund ledger the jobs post to. Each call commits
// the posting and the payment's status change together and fails with
// payment.ErrStatusChanged when another run got to the payment first.
type PaymentLedger interface {
	ReserveReceivedPayment(ctx context.Context, p *payment.Payment) (*ledger.Transaction, error)
	SendBackPayment(ctx context.Context, p *payment.Payment) (*ledger.Transaction, error)
}

// Result is the outcome of one job run
type Result struct {
	Processed   int
	Failed      int
	Skipped     int
	TotalAmount decimal.Decimal
}
