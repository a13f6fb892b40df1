// Package event defines the ledger events collaborators publish to the ledger events topic.
package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
)

// Type is the business event a LedgerEvent carries
type Type string

const (
	TypePaymentReceived              Type = "PAYMENT_RECEIVED"
	TypeUnattributedPayment          Type = "UNATTRIBUTED_PAYMENT"
	TypeLateAttribution              Type = "LATE_ATTRIBUTION"
	TypePaymentBounceBack            Type = "PAYMENT_BOUNCE_BACK"
	TypePaymentCancellationRequested Type = "PAYMENT_CANCELLATION_REQUESTED"
	TypePaymentReservationCancelled  Type = "PAYMENT_RESERVATION_CANCELLED"
	TypePaymentCancelled             Type = "PAYMENT_CANCELLED"
	TypeFundUnitsIssued              Type = "FUND_UNITS_ISSUED"
	TypeFundTransfer                 Type = "FUND_TRANSFER"
	TypeRedemptionRequested          Type = "REDEMPTION_REQUESTED"
	TypeFundUnitsRedeemed            Type = "FUND_UNITS_REDEEMED"
	TypeRedemptionTransfer           Type = "REDEMPTION_TRANSFER"
	TypeRedemptionPayout             Type = "REDEMPTION_PAYOUT"
	TypeFeeAccrual                   Type = "FEE_ACCRUAL"
	TypeFeeSettlement                Type = "FEE_SETTLEMENT"
	TypePositionUpdate               Type = "POSITION_UPDATE"
	TypeBankAdjustment               Type = "BANK_ADJUSTMENT"
)

var transactionTypes = map[Type]ledger.TransactionType{
	TypePaymentReceived:              ledger.TransactionTypeTransfer,
	TypeUnattributedPayment:          ledger.TransactionTypeTransfer,
	TypeLateAttribution:              ledger.TransactionTypeTransfer,
	TypePaymentBounceBack:            ledger.TransactionTypeTransfer,
	TypePaymentCancellationRequested: ledger.TransactionTypeTransfer,
	TypePaymentReservationCancelled:  ledger.TransactionTypeTransfer,
	TypePaymentCancelled:             ledger.TransactionTypeTransfer,
	TypeFundUnitsIssued:              ledger.TransactionTypeSubscription,
	TypeFundTransfer:                 ledger.TransactionTypeTransfer,
	TypeRedemptionRequested:          ledger.TransactionTypeRedemption,
	TypeFundUnitsRedeemed:            ledger.TransactionTypeRedemption,
	TypeRedemptionTransfer:           ledger.TransactionTypeTransfer,
	TypeRedemptionPayout:             ledger.TransactionTypeTransfer,
	TypeFeeAccrual:                   ledger.TransactionTypeFeeAccrual,
	TypeFeeSettlement:                ledger.TransactionTypeFeeSettlement,
	TypePositionUpdate:               ledger.TransactionTypePositionUpdate,
	TypeBankAdjustment:               ledger.TransactionTypeAdjustment,
}

// userEvents need the customer's identity
var userEvents = map[Type]bool{
	TypePaymentReceived:              true,
	TypeLateAttribution:              true,
	TypePaymentCancellationRequested: true,
	TypePaymentReservationCancelled:  true,
	TypePaymentCancelled:             true,
	TypeFundUnitsIssued:              true,
	TypeRedemptionRequested:          true,
	TypeFundUnitsRedeemed:            true,
	TypeRedemptionPayout:             true,
}

// ErrInvalidEvent marks events that can never be processed
var ErrInvalidEvent = errors.New("invalid ledger event")

// LedgerEvent is a business event with already-validated plain values. EventID becomes the
// external reference of the posted transaction.
type LedgerEvent struct {
	EventID        uuid.UUID       `json:"event_id"`
	EventType      Type            `json:"event_type"`
	CorrelationID  string          `json:"correlation_id,omitempty"`
	UserID         int64           `json:"user_id,omitempty"`
	PersonalCode   string          `json:"personal_code,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	FundUnits      decimal.Decimal `json:"fund_units"`
	NavPerUnit     decimal.Decimal `json:"nav_per_unit"`
	FeeType        string          `json:"fee_type,omitempty"`
	Position       string          `json:"position,omitempty"`
	AdjustmentType string          `json:"adjustment_type,omitempty"`
	ReportDate     *time.Time      `json:"report_date,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// TransactionType returns the ledger transaction type the event posts, which scopes its
// idempotency key
func (e *LedgerEvent) TransactionType() (ledger.TransactionType, bool) {
	t, ok := transactionTypes[e.EventType]
	return t, ok
}

// NeedsUser reports whether the event posts to a customer's accounts
func (e *LedgerEvent) NeedsUser() bool {
	return userEvents[e.EventType]
}

// Date is the report date when present, otherwise the time the event occurred
func (e *LedgerEvent) Date() time.Time {
	if e.ReportDate != nil {
		return *e.ReportDate
	}
	return e.OccurredAt
}

// Validate checks the fields the event type requires
func (e *LedgerEvent) Validate() error {
	if e.EventID == uuid.Nil {
		return fmt.Errorf("%w: missing event id", ErrInvalidEvent)
	}
	if _, ok := e.TransactionType(); !ok {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, e.EventType)
	}
	if e.NeedsUser() && e.PersonalCode == "" {
		return fmt.Errorf("%w: %s requires a personal code", ErrInvalidEvent, e.EventType)
	}

	switch e.EventType {
	case TypeFundUnitsIssued, TypeFundUnitsRedeemed:
		if !e.FundUnits.IsPositive() || !e.Amount.IsPositive() || !e.NavPerUnit.IsPositive() {
			return fmt.Errorf("%w: %s requires positive amount, fund units and NAV", ErrInvalidEvent, e.EventType)
		}
	case TypeRedemptionRequested:
		if !e.FundUnits.IsPositive() {
			return fmt.Errorf("%w: %s requires positive fund units", ErrInvalidEvent, e.EventType)
		}
	case TypePositionUpdate:
		if e.Position == "" || e.ReportDate == nil {
			return fmt.Errorf("%w: %s requires position and report date", ErrInvalidEvent, e.EventType)
		}
		if e.Amount.IsZero() {
			return fmt.Errorf("%w: %s requires a non-zero delta", ErrInvalidEvent, e.EventType)
		}
	case TypeBankAdjustment:
		if e.AdjustmentType == "" || e.Amount.IsZero() {
			return fmt.Errorf("%w: %s requires adjustment type and non-zero amount", ErrInvalidEvent, e.EventType)
		}
	case TypeFeeAccrual, TypeFeeSettlement:
		if e.FeeType == "" || e.ReportDate == nil || !e.Amount.IsPositive() {
			return fmt.Errorf("%w: %s requires fee type, report date and positive amount", ErrInvalidEvent, e.EventType)
		}
	default:
		if !e.Amount.IsPositive() {
			return fmt.Errorf("%w: %s requires a positive amount", ErrInvalidEvent, e.EventType)
		}
	}
	return nil
}
