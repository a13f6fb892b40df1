// Package savingsfund maps the savings fund's business events onto balanced ledger transactions
// over a fixed chart of system and per-user accounts.
package savingsfund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/ledger/service"
)

// Operation types written to transaction metadata
const (
	OperationPaymentReceived        = "PAYMENT_RECEIVED"
	OperationUnattributedPayment    = "UNATTRIBUTED_PAYMENT"
	OperationLateAttribution        = "LATE_ATTRIBUTION"
	OperationPaymentBounceBack      = "PAYMENT_BOUNCE_BACK"
	OperationPaymentReserved        = "PAYMENT_RESERVED"
	OperationPaymentCancelRequested = "PAYMENT_CANCEL_REQUESTED"
	OperationReservationCancelled   = "PAYMENT_RESERVATION_CANCELLED"
	OperationPaymentReturned        = "PAYMENT_RETURNED"
	OperationPaymentCancelled       = "PAYMENT_CANCELLED"
	OperationFundUnitsIssued        = "FUND_UNITS_ISSUED"
	OperationFundTransfer           = "FUND_TRANSFER"
	OperationFundUnitsReserved      = "FUND_UNITS_RESERVED"
	OperationFundUnitsRedeemed      = "FUND_UNITS_REDEEMED"
	OperationRedemptionTransfer     = "REDEMPTION_TRANSFER"
	OperationRedemptionPayout       = "REDEMPTION_PAYOUT"
	OperationFeeAccrual             = "FEE_ACCRUAL"
	OperationFeeSettlement          = "FEE_SETTLEMENT"
	OperationPositionUpdate         = "POSITION_UPDATE"
	OperationBankAdjustment         = "BANK_ADJUSTMENT"
)

const metadataDateLayout = "2006-01-02"

var (
	// ErrInvalidAmount is returned for amounts that must be positive but are not
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrUnsupportedType is returned for fee, position or adjustment codes outside the chart
	ErrUnsupportedType = errors.New("unsupported type")
)

// User identifies the customer behind a ledger operation. The personal code owns the ledger party.
type User struct {
	ID           int64
	PersonalCode string
}

// Ledger records the fund's business events. Each method posts exactly one balanced transaction.
type Ledger struct {
	accounts     service.AccountService
	transactions service.TransactionService
	fund         string
	logger       *slog.Logger
	now          func() time.Time
}

// NewLedger creates the savings fund ledger for the fund identified by fundCode
func NewLedger(logger *slog.Logger, accounts service.AccountService, transactions service.TransactionService, fundCode string) *Ledger {
	return &Ledger{
		accounts:     accounts,
		transactions: transactions,
		fund:         fundCode,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// HasLedgerEntry reports whether any transaction already references the external id
func (l *Ledger) HasLedgerEntry(ctx context.Context, externalReference uuid.UUID) (bool, error) {
	return l.transactions.ExistsByExternalReference(ctx, externalReference)
}

// HasLedgerEntryOfType narrows HasLedgerEntry to one transaction type
func (l *Ledger) HasLedgerEntryOfType(ctx context.Context, externalReference uuid.UUID, transactionType ledger.TransactionType) (bool, error) {
	return l.transactions.ExistsByExternalReferenceAndTransactionType(ctx, externalReference, transactionType)
}

// posting describes one transaction before its accounts are resolved
type posting struct {
	operation         string
	transactionType   ledger.TransactionType
	date              time.Time
	externalReference uuid.UUID
	user              *User
	metadata          map[string]any
	apply             func(ctx context.Context, tx ledger.Store) error
}

func (l *Ledger) newPosting(operation string, transactionType ledger.TransactionType, externalReference uuid.UUID, user *User) *posting {
	return &posting{
		operation:         operation,
		transactionType:   transactionType,
		date:              l.now(),
		externalReference: externalReference,
		user:              user,
		metadata:          map[string]any{},
	}
}

func (p *posting) with(key string, value any) *posting {
	p.metadata[key] = value
	return p
}

func (p *posting) on(date time.Time) *posting {
	p.date = date
	return p
}

// together commits fn in the same storage transaction as the posting
func (p *posting) together(fn func(ctx context.Context, tx ledger.Store) error) *posting {
	p.apply = fn
	return p
}

// record posts the entries with the standard metadata keys
func (l *Ledger) record(ctx context.Context, p *posting, entries ...service.EntryRequest) (*ledger.Transaction, error) {
	metadata := p.metadata
	metadata["operationType"] = p.operation
	metadata["fund"] = l.fund
	if p.externalReference != uuid.Nil {
		metadata["externalReference"] = p.externalReference.String()
	}
	if p.user != nil {
		metadata["userId"] = strconv.FormatInt(p.user.ID, 10)
		metadata["personalCode"] = p.user.PersonalCode
	}

	var ref *uuid.UUID
	if p.externalReference != uuid.Nil {
		r := p.externalReference
		ref = &r
	}

	tx, err := l.transactions.CreateTransaction(ctx, service.CreateTransactionRequest{
		Type:              p.transactionType,
		TransactionDate:   p.date,
		Metadata:          metadata,
		ExternalReference: ref,
		Entries:           entries,
		Apply:             p.apply,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", p.operation, err)
	}
	return tx, nil
}

// resolver looks up chart accounts, remembering the first failure so a whole
// operation can resolve its accounts before checking once
type resolver struct {
	ctx      context.Context
	accounts service.AccountService
	err      error
}

func (l *Ledger) resolver(ctx context.Context) *resolver {
	return &resolver{ctx: ctx, accounts: l.accounts}
}

func (r *resolver) system(a SystemAccount) *ledger.Account {
	if r.err != nil {
		return nil
	}
	account, err := r.accounts.GetSystemAccount(r.ctx, a.Spec())
	if err != nil {
		r.err = fmt.Errorf("failed to resolve system account %s: %w", a, err)
	}
	return account
}

func (r *resolver) user(u User, a UserAccount) *ledger.Account {
	if r.err != nil {
		return nil
	}
	account, err := r.accounts.GetUserAccount(r.ctx, u.PersonalCode, a.Spec())
	if err != nil {
		r.err = fmt.Errorf("failed to resolve %s account of user %d: %w", a, u.ID, err)
	}
	return account
}

func entry(account *ledger.Account, amount decimal.Decimal) service.EntryRequest {
	return service.EntryRequest{Account: account, Amount: amount}
}

func requirePositive(name string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidAmount, name, amount.String())
	}
	return nil
}

// UserBalances are the balances of a customer's chart accounts
type UserBalances struct {
	Cash              decimal.Decimal
	CashReserved      decimal.Decimal
	CashRedemption    decimal.Decimal
	FundUnits         decimal.Decimal
	FundUnitsReserved decimal.Decimal
	Subscriptions     decimal.Decimal
	Redemptions       decimal.Decimal
}

// UserBalances reads every chart account of the user. Accounts the user never used read as
// zero; nothing is created.
func (l *Ledger) UserBalances(ctx context.Context, user User) (*UserBalances, error) {
	balances := &UserBalances{}
	targets := []struct {
		account UserAccount
		dest    *decimal.Decimal
	}{
		{UserCash, &balances.Cash},
		{UserCashReserved, &balances.CashReserved},
		{UserCashRedemption, &balances.CashRedemption},
		{UserFundUnits, &balances.FundUnits},
		{UserFundUnitsReserved, &balances.FundUnitsReserved},
		{UserSubscriptions, &balances.Subscriptions},
		{UserRedemptions, &balances.Redemptions},
	}

	for _, target := range targets {
		account, err := l.accounts.FindUserAccount(ctx, user.PersonalCode, target.account.Spec())
		if err != nil {
			return nil, fmt.Errorf("failed to find %s account of user %d: %w", target.account, user.ID, err)
		}
		balance, err := l.balanceOf(ctx, account)
		if err != nil {
			return nil, err
		}
		*target.dest = balance
	}
	return balances, nil
}

// SystemAccountBalance reads the balance of one system account, zero if it was never used
func (l *Ledger) SystemAccountBalance(ctx context.Context, a SystemAccount) (decimal.Decimal, error) {
	account, err := l.accounts.FindSystemAccount(ctx, a.Spec())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to find system account %s: %w", a, err)
	}
	return l.balanceOf(ctx, account)
}

func (l *Ledger) balanceOf(ctx context.Context, account *ledger.Account) (decimal.Decimal, error) {
	if account == nil {
		return decimal.Zero, nil
	}
	return l.accounts.GetBalance(ctx, account.ID)
}
