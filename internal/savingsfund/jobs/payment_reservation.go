package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/payment"
)

// PaymentReservationJob reserves the cash of every received, attributed payment for subscription
type PaymentReservationJob struct {
	payments  payment.Repository
	ledger    PaymentLedger
	publisher EventPublisher
	logger    *slog.Logger
}

func NewPaymentReservationJob(logger *slog.Logger, payments payment.Repository, ledger PaymentLedger, publisher EventPublisher) *PaymentReservationJob {
	return &PaymentReservationJob{
		payments:  payments,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
	}
}

func (j *PaymentReservationJob) Name() string {
	return "payment_reservation"
}

// Run implements scheduler.Job
func (j *PaymentReservationJob) Run(ctx context.Context) error {
	_, err := j.Process(ctx)
	return err
}

// Process reserves the received payments one by one and publishes a PaymentsReservedEvent
// for the ones that succeeded.
func (j *PaymentReservationJob) Process(ctx context.Context) (*Result, error) {
	received, err := j.payments.FindByStatus(ctx, payment.StatusReceived)
	if err != nil {
		return nil, fmt.Errorf("failed to load received payments: %w", err)
	}

	result := &Result{TotalAmount: decimal.Zero}
	for _, p := range received {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !p.IsAttributed() {
			result.Skipped++
			continue
		}

		if _, err := j.ledger.ReserveReceivedPayment(ctx, p); err != nil {
			result.Failed++
			j.logger.Error("Failed to reserve payment",
				"payment_id", p.ID.String(),
				"external_id", p.ExternalID.String(),
				"error", err)
			continue
		}
		result.Processed++
		result.TotalAmount = result.TotalAmount.Add(p.Amount)
	}

	event := PaymentsReservedEvent{newBatchEvent(EventPaymentsReserved, result.Processed, result.TotalAmount)}
	if err := j.publisher.Publish(ctx, event.EventID.String(), event); err != nil {
		return result, fmt.Errorf("failed to publish %s: %w", EventPaymentsReserved, err)
	}

	j.logger.Info("Payment reservation finished",
		"processed", result.Processed,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"total_amount", result.TotalAmount.String())
	return result, nil
}
