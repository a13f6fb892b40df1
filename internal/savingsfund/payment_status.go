package savingsfund

import (
	"context"
	"errors"
	"fmt"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/domain/payment"
)

// ErrUnattributedPayment is returned when a user posting is requested for a payment without an owner
var ErrUnattributedPayment = errors.New("payment is not attributed to a user")

// UserOf returns the ledger user a payment is attributed to
func UserOf(p *payment.Payment) User {
	user := User{PersonalCode: p.PersonalCode}
	if p.UserID != nil {
		user.ID = *p.UserID
	}
	return user
}

// moveStatus is the status compare-and-set committed with a payment's posting. When the
// payment is no longer in from, payment.ErrStatusChanged rolls the posting back.
func moveStatus(p *payment.Payment, from, to payment.Status) func(ctx context.Context, tx ledger.Store) error {
	return func(ctx context.Context, tx ledger.Store) error {
		return tx.Payments().UpdateStatus(ctx, p.ID, from, to)
	}
}

// ReserveReceivedPayment reserves a RECEIVED payment for subscription and marks it RESERVED
// in the same storage transaction
func (l *Ledger) ReserveReceivedPayment(ctx context.Context, p *payment.Payment) (*ledger.Transaction, error) {
	if !p.IsAttributed() {
		return nil, fmt.Errorf("%w: %s", ErrUnattributedPayment, p.ID)
	}
	user := UserOf(p)
	posting := l.newPosting(OperationPaymentReserved, ledger.TransactionTypeTransfer, p.ExternalID, &user).
		together(moveStatus(p, payment.StatusReceived, payment.StatusReserved))
	return l.reserve(ctx, posting, user, p.Amount)
}

// SendBackPayment returns a TO_BE_RETURNED payment to its payer and marks it RETURNED in the
// same storage transaction. The money leaves from wherever the payment's postings put it:
// the unreconciled receipts when it was never attributed, the reserved cash when it was
// reserved before being sent back, the user's cash otherwise.
func (l *Ledger) SendBackPayment(ctx context.Context, p *payment.Payment) (*ledger.Transaction, error) {
	returned := moveStatus(p, payment.StatusToBeReturned, payment.StatusReturned)

	if !p.IsAttributed() {
		posting := l.newPosting(OperationPaymentBounceBack, ledger.TransactionTypeTransfer, p.ExternalID, nil).
			together(returned)
		return l.bounceBack(ctx, posting, p.Amount)
	}

	user := UserOf(p)
	from := UserCash
	if p.PreviousStatus == payment.StatusReserved {
		from = UserCashReserved
	}
	posting := l.newPosting(OperationPaymentReturned, ledger.TransactionTypeTransfer, p.ExternalID, &user).
		with("returnedFrom", string(from)).
		together(returned)
	return l.payBack(ctx, posting, user, from, p.Amount)
}
