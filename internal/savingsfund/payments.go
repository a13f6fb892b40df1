package savingsfund

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
)

// RecordPaymentReceived books an attributed bank payment into the user's cash
func (l *Ledger) RecordPaymentReceived(ctx context.Context, user User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	if err := requirePositive("payment amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	cash := r.user(user, UserCash)
	clearing := r.system(IncomingPaymentsClearing)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, l.newPosting(OperationPaymentReceived, ledger.TransactionTypeTransfer, externalReference, &user),
		entry(cash, amount.Neg()),
		entry(clearing, amount),
	)
}

// RecordUnattributedPayment parks a bank payment whose owner is unknown
func (l *Ledger) RecordUnattributedPayment(ctx context.Context, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	if err := requirePositive("payment amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	unreconciled := r.system(UnreconciledBankReceipts)
	clearing := r.system(IncomingPaymentsClearing)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, l.newPosting(OperationUnattributedPayment, ledger.TransactionTypeTransfer, externalReference, nil),
		entry(unreconciled, amount.Neg()),
		entry(clearing, amount),
	)
}

// RecordLateAttribution moves a previously unattributed payment to the identified user
func (l *Ledger) RecordLateAttribution(ctx context.Context, user User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	if err := requirePositive("payment amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	unreconciled := r.system(UnreconciledBankReceipts)
	cash := r.user(user, UserCash)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, l.newPosting(OperationLateAttribution, ledger.TransactionTypeTransfer, externalReference, &user),
		entry(unreconciled, amount),
		entry(cash, amount.Neg()),
	)
}

// RecordBounceBack reverses an unattributed payment that is sent back to the payer
func (l *Ledger) RecordBounceBack(ctx context.Context, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	return l.bounceBack(ctx, l.newPosting(OperationPaymentBounceBack, ledger.TransactionTypeTransfer, externalReference, nil), amount)
}

func (l *Ledger) bounceBack(ctx context.Context, p *posting, amount decimal.Decimal) (*ledger.Transaction, error) {
	if err := requirePositive("payment amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	unreconciled := r.system(UnreconciledBankReceipts)
	clearing := r.system(IncomingPaymentsClearing)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, p,
		entry(unreconciled, amount),
		entry(clearing, amount.Neg()),
	)
}

// ReservePaymentForSubscription earmarks received cash for buying fund units
func (l *Ledger) ReservePaymentForSubscription(ctx context.Context, user User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	return l.reserve(ctx, l.newPosting(OperationPaymentReserved, ledger.TransactionTypeTransfer, externalReference, &user), user, amount)
}

// ReservePaymentForCancellation earmarks received cash for paying it back
func (l *Ledger) ReservePaymentForCancellation(ctx context.Context, user User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	return l.reserve(ctx, l.newPosting(OperationPaymentCancelRequested, ledger.TransactionTypeTransfer, externalReference, &user), user, amount)
}

func (l *Ledger) reserve(ctx context.Context, p *posting, user User, amount decimal.Decimal) (*ledger.Transaction, error) {
	if err := requirePositive("reserved amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	cash := r.user(user, UserCash)
	reserved := r.user(user, UserCashReserved)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, p,
		entry(cash, amount),
		entry(reserved, amount.Neg()),
	)
}

// CancelPaymentReservation posts the exact inverse of a reservation
func (l *Ledger) CancelPaymentReservation(ctx context.Context, user User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	if err := requirePositive("reserved amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	cash := r.user(user, UserCash)
	reserved := r.user(user, UserCashReserved)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, l.newPosting(OperationReservationCancelled, ledger.TransactionTypeTransfer, externalReference, &user),
		entry(cash, amount.Neg()),
		entry(reserved, amount),
	)
}

// ReturnPayment posts the exact inverse of a received payment
func (l *Ledger) ReturnPayment(ctx context.Context, user User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	return l.payBack(ctx, l.newPosting(OperationPaymentReturned, ledger.TransactionTypeTransfer, externalReference, &user), user, UserCash, amount)
}

// RecordPaymentCancelled pays cash reserved for cancellation back out of the bank account
func (l *Ledger) RecordPaymentCancelled(ctx context.Context, user User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	return l.payBack(ctx, l.newPosting(OperationPaymentCancelled, ledger.TransactionTypeTransfer, externalReference, &user), user, UserCashReserved, amount)
}

// payBack sends amount from one of the user's cash accounts back through the incoming clearing
func (l *Ledger) payBack(ctx context.Context, p *posting, user User, from UserAccount, amount decimal.Decimal) (*ledger.Transaction, error) {
	if err := requirePositive("payment amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	source := r.user(user, from)
	clearing := r.system(IncomingPaymentsClearing)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, p,
		entry(source, amount),
		entry(clearing, amount.Neg()),
	)
}
