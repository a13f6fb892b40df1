package payment

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists payments for the batch jobs
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByStatus returns payments in the given status, oldest first
	FindByStatus(ctx context.Context, status Status) ([]*Payment, error)
	// UpdateStatus moves a payment from one status to another and records from as its
	// previous status. It returns ErrStatusChanged when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
}

// ErrPaymentNotFound indicates missing payment
type ErrPaymentNotFound struct {
	PaymentID uuid.UUID
}

func (e ErrPaymentNotFound) Error() string {
	return "payment not found: " + e.PaymentID.String()
}
