package savingsfund

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
)

// IssueFundUnitsFromReserved converts reserved cash into fund units at the given NAV
func (l *Ledger) IssueFundUnitsFromReserved(ctx context.Context, user User, cashAmount, fundUnits, navPerUnit decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	if err := requirePositive("cash amount", cashAmount); err != nil {
		return nil, err
	}
	if err := requirePositive("fund units", fundUnits); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	reserved := r.user(user, UserCashReserved)
	subscriptions := r.user(user, UserSubscriptions)
	units := r.user(user, UserFundUnits)
	outstanding := r.system(FundUnitsOutstanding)
	if r.err != nil {
		return nil, r.err
	}

	p := l.newPosting(OperationFundUnitsIssued, ledger.TransactionTypeSubscription, externalReference, &user).
		with("navPerUnit", navPerUnit.String())
	return l.record(ctx, p,
		entry(reserved, cashAmount),
		entry(subscriptions, cashAmount.Neg()),
		entry(units, fundUnits),
		entry(outstanding, fundUnits.Neg()),
	)
}

// TransferToFundAccount moves subscription cash from the incoming clearing account to the fund
func (l *Ledger) TransferToFundAccount(ctx context.Context, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	if err := requirePositive("transfer amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	clearing := r.system(IncomingPaymentsClearing)
	investment := r.system(FundInvestmentCashClearing)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, l.newPosting(OperationFundTransfer, ledger.TransactionTypeTransfer, externalReference, nil),
		entry(clearing, amount.Neg()),
		entry(investment, amount),
	)
}

// ReserveFundUnitsForRedemption locks units the user asked to redeem
func (l *Ledger) ReserveFundUnitsForRedemption(ctx context.Context, user User, fundUnits decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	if err := requirePositive("fund units", fundUnits); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	units := r.user(user, UserFundUnits)
	reserved := r.user(user, UserFundUnitsReserved)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, l.newPosting(OperationFundUnitsReserved, ledger.TransactionTypeRedemption, externalReference, &user),
		entry(units, fundUnits.Neg()),
		entry(reserved, fundUnits),
	)
}

// RedeemFundUnitsFromReserved cancels reserved units and owes the user their cash value
func (l *Ledger) RedeemFundUnitsFromReserved(ctx context.Context, user User, fundUnits, cashAmount, navPerUnit decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	if err := requirePositive("fund units", fundUnits); err != nil {
		return nil, err
	}
	if err := requirePositive("cash amount", cashAmount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	reserved := r.user(user, UserFundUnitsReserved)
	outstanding := r.system(FundUnitsOutstanding)
	redemptions := r.user(user, UserRedemptions)
	cashRedemption := r.user(user, UserCashRedemption)
	if r.err != nil {
		return nil, r.err
	}

	p := l.newPosting(OperationFundUnitsRedeemed, ledger.TransactionTypeRedemption, externalReference, &user).
		with("navPerUnit", navPerUnit.String())
	return l.record(ctx, p,
		entry(reserved, fundUnits.Neg()),
		entry(outstanding, fundUnits),
		entry(redemptions, cashAmount),
		entry(cashRedemption, cashAmount.Neg()),
	)
}

// TransferFromFundAccount moves redemption cash from the fund to the payouts clearing account
func (l *Ledger) TransferFromFundAccount(ctx context.Context, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	if err := requirePositive("transfer amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	investment := r.system(FundInvestmentCashClearing)
	payouts := r.system(PayoutsCashClearing)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, l.newPosting(OperationRedemptionTransfer, ledger.TransactionTypeTransfer, externalReference, nil),
		entry(investment, amount.Neg()),
		entry(payouts, amount),
	)
}

// RecordRedemptionPayout pays the user's redemption cash out of the payouts clearing account.
// The user's CASH_REDEMPTION is their redemption payable; the fund-level REDEMPTION_PAYABLE is
// a NAV position and is left to position updates.
func (l *Ledger) RecordRedemptionPayout(ctx context.Context, user User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error) {
	if err := requirePositive("payout amount", amount); err != nil {
		return nil, err
	}
	r := l.resolver(ctx)
	payouts := r.system(PayoutsCashClearing)
	cashRedemption := r.user(user, UserCashRedemption)
	if r.err != nil {
		return nil, r.err
	}

	return l.record(ctx, l.newPosting(OperationRedemptionPayout, ledger.TransactionTypeTransfer, externalReference, &user),
		entry(payouts, amount.Neg()),
		entry(cashRedemption, amount),
	)
}
