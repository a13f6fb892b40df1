package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/payment"
)

// PaymentReturnJob sends back payments marked TO_BE_RETURNED. Attributed payments are taken
// out of the user's cash, or out of the reserved cash when they were reserved first;
// unattributed ones bounce back from the unreconciled receipts.
type PaymentReturnJob struct {
	payments  payment.Repository
	ledger    PaymentLedger
	publisher EventPublisher
	logger    *slog.Logger
}

func NewPaymentReturnJob(logger *slog.Logger, payments payment.Repository, ledger PaymentLedger, publisher EventPublisher) *PaymentReturnJob {
	return &PaymentReturnJob{
		payments:  payments,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
	}
}

func (j *PaymentReturnJob) Name() string {
	return "payment_return"
}

// Run implements scheduler.Job
func (j *PaymentReturnJob) Run(ctx context.Context) error {
	_, err := j.Process(ctx)
	return err
}

func (j *PaymentReturnJob) Process(ctx context.Context) (*Result, error) {
	pending, err := j.payments.FindByStatus(ctx, payment.StatusToBeReturned)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments to return: %w", err)
	}

	result := &Result{TotalAmount: decimal.Zero}
	for _, p := range pending {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if _, err := j.ledger.SendBackPayment(ctx, p); err != nil {
			result.Failed++
			j.logger.Error("Failed to return payment",
				"payment_id", p.ID.String(),
				"external_id", p.ExternalID.String(),
				"error", err)
			continue
		}
		result.Processed++
		result.TotalAmount = result.TotalAmount.Add(p.Amount)
	}

	event := PaymentsReturnedEvent{newBatchEvent(EventPaymentsReturned, result.Processed, result.TotalAmount)}
	if err := j.publisher.Publish(ctx, event.EventID.String(), event); err != nil {
		return result, fmt.Errorf("failed to publish %s: %w", EventPaymentsReturned, err)
	}

	j.logger.Info("Payment return finished",
		"processed", result.Processed,
		"failed", result.Failed,
		"total_amount", result.TotalAmount.String())
	return result, nil
}
