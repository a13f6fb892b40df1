package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/event"
	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/processor/service"
	"github.com/savings-fund-ledger/internal/savingsfund"
)

// FundLedger is the part of the savings fund ledger events are posted through
type FundLedger interface {
	RecordPaymentReceived(ctx context.Context, user savingsfund.User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	RecordUnattributedPayment(ctx context.Context, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	RecordLateAttribution(ctx context.Context, user savingsfund.User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	RecordBounceBack(ctx context.Context, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	ReservePaymentForCancellation(ctx context.Context, user savingsfund.User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	CancelPaymentReservation(ctx context.Context, user savingsfund.User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	RecordPaymentCancelled(ctx context.Context, user savingsfund.User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	IssueFundUnitsFromReserved(ctx context.Context, user savingsfund.User, cashAmount, fundUnits, navPerUnit decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	TransferToFundAccount(ctx context.Context, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	ReserveFundUnitsForRedemption(ctx context.Context, user savingsfund.User, fundUnits decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	RedeemFundUnitsFromReserved(ctx context.Context, user savingsfund.User, fundUnits, cashAmount, navPerUnit decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	TransferFromFundAccount(ctx context.Context, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	RecordRedemptionPayout(ctx context.Context, user savingsfund.User, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
	RecordFeeAccrual(ctx context.Context, feeType savingsfund.FeeType, amount decimal.Decimal, accrualDate time.Time, externalReference uuid.UUID) (*ledger.Transaction, error)
	RecordFeeSettlement(ctx context.Context, feeType savingsfund.FeeType, amount decimal.Decimal, settlementDate time.Time, externalReference uuid.UUID) (*ledger.Transaction, error)
	RecordPositionUpdate(ctx context.Context, position savingsfund.SystemAccount, delta decimal.Decimal, reportDate time.Time, externalReference uuid.UUID) (*ledger.Transaction, error)
	RecordBankAdjustment(ctx context.Context, adjustmentType savingsfund.BankAdjustmentType, amount decimal.Decimal, externalReference uuid.UUID) (*ledger.Transaction, error)
}

var _ FundLedger = (*savingsfund.Ledger)(nil)

type EventDispatcherImpl struct {
	fund   FundLedger
	logger *slog.Logger
}

func NewEventDispatcher(fund FundLedger, logger *slog.Logger) service.EventDispatcher {
	return &EventDispatcherImpl{
		fund:   fund,
		logger: logger,
	}
}

// Dispatch posts the event through the matching fund ledger operation. The event id is the
// external reference of the resulting transaction.
func (d *EventDispatcherImpl) Dispatch(ctx context.Context, e *event.LedgerEvent) (*ledger.Transaction, error) {
	ref := e.EventID
	user := savingsfund.User{ID: e.UserID, PersonalCode: e.PersonalCode}

	switch e.EventType {
	case event.TypePaymentReceived:
		return d.fund.RecordPaymentReceived(ctx, user, e.Amount, ref)
	case event.TypeUnattributedPayment:
		return d.fund.RecordUnattributedPayment(ctx, e.Amount, ref)
	case event.TypeLateAttribution:
		return d.fund.RecordLateAttribution(ctx, user, e.Amount, ref)
	case event.TypePaymentBounceBack:
		return d.fund.RecordBounceBack(ctx, e.Amount, ref)
	case event.TypePaymentCancellationRequested:
		return d.fund.ReservePaymentForCancellation(ctx, user, e.Amount, ref)
	case event.TypePaymentReservationCancelled:
		return d.fund.CancelPaymentReservation(ctx, user, e.Amount, ref)
	case event.TypePaymentCancelled:
		return d.fund.RecordPaymentCancelled(ctx, user, e.Amount, ref)
	case event.TypeFundUnitsIssued:
		return d.fund.IssueFundUnitsFromReserved(ctx, user, e.Amount, e.FundUnits, e.NavPerUnit, ref)
	case event.TypeFundTransfer:
		return d.fund.TransferToFundAccount(ctx, e.Amount, ref)
	case event.TypeRedemptionRequested:
		return d.fund.ReserveFundUnitsForRedemption(ctx, user, e.FundUnits, ref)
	case event.TypeFundUnitsRedeemed:
		return d.fund.RedeemFundUnitsFromReserved(ctx, user, e.FundUnits, e.Amount, e.NavPerUnit, ref)
	case event.TypeRedemptionTransfer:
		return d.fund.TransferFromFundAccount(ctx, e.Amount, ref)
	case event.TypeRedemptionPayout:
		return d.fund.RecordRedemptionPayout(ctx, user, e.Amount, ref)
	case event.TypeFeeAccrual:
		return d.fund.RecordFeeAccrual(ctx, savingsfund.FeeType(e.FeeType), e.Amount, e.Date(), ref)
	case event.TypeFeeSettlement:
		return d.fund.RecordFeeSettlement(ctx, savingsfund.FeeType(e.FeeType), e.Amount, e.Date(), ref)
	case event.TypePositionUpdate:
		return d.fund.RecordPositionUpdate(ctx, savingsfund.SystemAccount(e.Position), e.Amount, e.Date(), ref)
	case event.TypeBankAdjustment:
		return d.fund.RecordBankAdjustment(ctx, savingsfund.BankAdjustmentType(e.AdjustmentType), e.Amount, ref)
	}

	d.logger.Warn("No ledger operation for event type", "event_id", e.EventID.String(), "event_type", string(e.EventType))
	return nil, fmt.Errorf("%w: unknown event type %q", event.ErrInvalidEvent, e.EventType)
}
