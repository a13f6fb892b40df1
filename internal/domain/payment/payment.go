// Package payment models incoming savings fund payments as seen by the ledger batch jobs.
package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the processing state of an incoming payment
type Status string

const (
	StatusReceived     Status = "RECEIVED"
	StatusReserved     Status = "RESERVED"
	StatusIssued       Status = "ISSUED"
	StatusToBeReturned Status = "TO_BE_RETURNED"
	StatusReturned     Status = "RETURNED"
)

var (
	ErrInvalidTransition = errors.New("invalid payment status transition")
	ErrStatusChanged     = errors.New("payment status changed concurrently")
)

var transitions = map[Status][]Status{
	StatusReceived:     {StatusReserved, StatusToBeReturned},
	StatusReserved:     {StatusIssued, StatusToBeReturned},
	StatusToBeReturned: {StatusReturned},
}

// Payment is one bank payment into the savings fund. ExternalID is the bank-side identifier
// and doubles as the ledger external reference of every posting made for the payment.
// PreviousStatus is the status the payment left on its last change; it tells the return job
// whether the money still sits in the user's cash or was already reserved.
type Payment struct {
	ID              uuid.UUID       `json:"id"`
	ExternalID      uuid.UUID       `json:"external_id"`
	UserID          *int64          `json:"user_id,omitempty"`
	PersonalCode    string          `json:"personal_code,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Status          Status          `json:"status"`
	PreviousStatus  Status          `json:"previous_status,omitempty"`
	Description     string          `json:"description,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StatusChangedAt time.Time       `json:"status_changed_at"`
}

// NewPayment creates a payment in RECEIVED status
func NewPayment(externalID uuid.UUID, userID *int64, personalCode string, amount decimal.Decimal, description string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:              uuid.New(),
		ExternalID:      externalID,
		UserID:          userID,
		PersonalCode:    personalCode,
		Amount:          amount,
		Status:          StatusReceived,
		Description:     description,
		CreatedAt:       now,
		StatusChangedAt: now,
	}
}

// IsAttributed reports whether the payment has been matched to a fund member
func (p *Payment) IsAttributed() bool {
	return p.PersonalCode != ""
}

// CanTransitionTo reports whether moving from the current status to next is allowed
func (p *Payment) CanTransitionTo(next Status) bool {
	for _, s := range transitions[p.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the payment to next or returns ErrInvalidTransition
func (p *Payment) TransitionTo(next Status) error {
	if !p.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	p.PreviousStatus = p.Status
	p.Status = next
	p.StatusChangedAt = time.Now().UTC()
	return nil
}
