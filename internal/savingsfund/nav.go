package savingsfund

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
)

// RecordFeeAccrual accrues a daily fund fee against NAV equity
func (l *Ledger) RecordFeeAccrual(ctx context.Context, feeType FeeType, amount decimal.Decimal, accrualDate time.Time, externalReference uuid.UUID) (*ledger.Transaction, error) {
	accrualAccount, ok := feeType.accrualAccount()
	if !ok {
		return nil, fmt.Errorf("%w: fee type %s", ErrUnsupportedType, feeType)
	}
	if err := requirePositive("fee amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	equity := r.system(NavEquity)
	accrual := r.system(accrualAccount)
	if r.err != nil {
		return nil, r.err
	}

	p := l.newPosting(OperationFeeAccrual, ledger.TransactionTypeFeeAccrual, externalReference, nil).
		on(accrualDate).
		with("feeType", string(feeType)).
		with("accrualDate", accrualDate.Format(metadataDateLayout))
	return l.record(ctx, p,
		entry(equity, amount),
		entry(accrual, amount.Neg()),
	)
}

// RecordFeeSettlement pays accrued fees out of the fund's cash position
func (l *Ledger) RecordFeeSettlement(ctx context.Context, feeType FeeType, amount decimal.Decimal, settlementDate time.Time, externalReference uuid.UUID) (*ledger.Transaction, error) {
	accrualAccount, ok := feeType.accrualAccount()
	if !ok {
		return nil, fmt.Errorf("%w: fee type %s", ErrUnsupportedType, feeType)
	}
	if err := requirePositive("fee amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	accrual := r.system(accrualAccount)
	cash := r.system(CashPosition)
	if r.err != nil {
		return nil, r.err
	}

	p := l.newPosting(OperationFeeSettlement, ledger.TransactionTypeFeeSettlement, externalReference, nil).
		on(settlementDate).
		with("feeType", string(feeType)).
		with("reportDate", settlementDate.Format(metadataDateLayout))
	return l.record(ctx, p,
		entry(accrual, amount),
		entry(cash, amount.Neg()),
	)
}

// RecordPositionUpdate books the change of a NAV position reported for reportDate. The delta is
// signed; its counterpart is NAV equity, or the units equity account for security units.
func (l *Ledger) RecordPositionUpdate(ctx context.Context, position SystemAccount, delta decimal.Decimal, reportDate time.Time, externalReference uuid.UUID) (*ledger.Transaction, error) {
	counterpart, ok := positionCounterparts[position]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a NAV position account", ErrUnsupportedType, position)
	}
	if delta.IsZero() {
		return nil, fmt.Errorf("%w: position delta is zero", ErrInvalidAmount)
	}
	r := l.resolver(ctx)
	positionAccount := r.system(position)
	equity := r.system(counterpart)
	if r.err != nil {
		return nil, r.err
	}

	p := l.newPosting(OperationPositionUpdate, ledger.TransactionTypePositionUpdate, externalReference, nil).
		on(reportDate).
		with("position", string(position)).
		with("reportDate", reportDate.Format(metadataDateLayout))
	return l.record(ctx, p,
		entry(positionAccount, delta),
		entry(equity, delta.Neg()),
	)
}

// RecordBankAdjustment books a non-customer bank statement line. The amount is signed as on the
// statement: fees are negative, interest positive.
func (l *Ledger) RecordBankAdjustment(ctx context.Context, adjustmentType BankAdjustmentType, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	account, ok := adjustmentType.account()
	if !ok {
		return nil, fmt.Errorf("%w: bank adjustment type %s", ErrUnsupportedType, adjustmentType)
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: adjustment amount is zero", ErrInvalidAmount)
	}
	r := l.resolver(ctx)
	adjustment := r.system(account)
	clearing := r.system(IncomingPaymentsClearing)
	if r.err != nil {
		return nil, r.err
	}

	p := l.newPosting(OperationBankAdjustment, ledger.TransactionTypeAdjustment, externalReference, nil).
		with("adjustmentType", string(adjustmentType))
	return l.record(ctx, p,
		entry(adjustment, amount.Neg()),
		entry(clearing, amount),
	)
}
