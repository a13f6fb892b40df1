package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/domain/outbox"
	"github.com/savings-fund-ledger/internal/domain/payment"
)

var unitsSpec = AccountSpec{Name: "FUND_UNITS", AccountType: ledger.AccountTypeLiability, AssetType: ledger.AssetTypeFundUnit}

func TestTransactionServiceImpl_CreateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store, accounts, svc := newMemoryServices()
		cash, err := accounts.GetUserAccount(ctx, "38812121215", cashSpec)
		require.NoError(t, err)
		clearing, err := accounts.GetSystemAccount(ctx, clearingSpec)
		require.NoError(t, err)
		ref := uuid.New()

		tx, err := svc.CreateTransaction(ctx, CreateTransactionRequest{
			Type:              ledger.TransactionTypeTransfer,
			TransactionDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Metadata:          map[string]any{"operationType": "PAYMENT_RECEIVED"},
			ExternalReference: &ref,
			Entries: []EntryRequest{
				{Account: cash, Amount: decimal.RequireFromString("-100.0000")},
				{Account: clearing, Amount: decimal.RequireFromString("100")},
			},
		})

		require.NoError(t, err)
		require.Len(t, tx.Entries, 2)
		assert.True(t, tx.Entries[0].Amount.Equal(decimal.NewFromInt(-100)))
		assert.Equal(t, int32(-2), tx.Entries[0].Amount.Exponent())

		stored, err := svc.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Entries, 2)

		message, err := store.Outbox().GetByTransactionID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, outbox.EventTransactionPosted, message.EventType)
		assert.Equal(t, outbox.StatusPending, message.Status)
	})

	t.Run("Unbalanced", func(t *testing.T) {
		_, accounts, svc := newMemoryServices()
		cash, err := accounts.GetUserAccount(ctx, "38812121215", cashSpec)
		require.NoError(t, err)
		clearing, err := accounts.GetSystemAccount(ctx, clearingSpec)
		require.NoError(t, err)
		ref := uuid.New()

		_, err = svc.CreateTransaction(ctx, CreateTransactionRequest{
			Type:              ledger.TransactionTypeTransfer,
			ExternalReference: &ref,
			Entries: []EntryRequest{
				{Account: cash, Amount: decimal.RequireFromString("-100")},
				{Account: clearing, Amount: decimal.RequireFromString("99.99")},
			},
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrInvariantViolation)
		assert.Contains(t, err.Error(), "does not balance")
		assert.Contains(t, err.Error(), "-0.01")

		exists, err := svc.ExistsByExternalReference(ctx, ref)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("SingleEntry", func(t *testing.T) {
		_, accounts, svc := newMemoryServices()
		clearing, err := accounts.GetSystemAccount(ctx, clearingSpec)
		require.NoError(t, err)

		_, err = svc.CreateTransaction(ctx, CreateTransactionRequest{
			Type:    ledger.TransactionTypeAdjustment,
			Entries: []EntryRequest{{Account: clearing, Amount: decimal.Zero}},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 2 entries")
	})

	t.Run("TooManyDecimals", func(t *testing.T) {
		_, accounts, svc := newMemoryServices()
		units, err := accounts.GetUserAccount(ctx, "38812121215", unitsSpec)
		require.NoError(t, err)
		outstanding, err := accounts.GetSystemAccount(ctx, AccountSpec{
			Name: "FUND_UNITS_OUTSTANDING", AccountType: ledger.AccountTypeLiability, AssetType: ledger.AssetTypeFundUnit,
		})
		require.NoError(t, err)

		_, err = svc.CreateTransaction(ctx, CreateTransactionRequest{
			Type: ledger.TransactionTypeSubscription,
			Entries: []EntryRequest{
				{Account: units, Amount: decimal.RequireFromString("10.123456")},
				{Account: outstanding, Amount: decimal.RequireFromString("-10.123456")},
			},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "decimal places")
	})

	t.Run("MixedAssetsBalancePerAsset", func(t *testing.T) {
		_, accounts, svc := newMemoryServices()
		cash, err := accounts.GetUserAccount(ctx, "38812121215", cashSpec)
		require.NoError(t, err)
		units, err := accounts.GetUserAccount(ctx, "38812121215", unitsSpec)
		require.NoError(t, err)

		_, err = svc.CreateTransaction(ctx, CreateTransactionRequest{
			Type: ledger.TransactionTypeSubscription,
			Entries: []EntryRequest{
				{Account: cash, Amount: decimal.RequireFromString("10")},
				{Account: units, Amount: decimal.RequireFromString("-10")},
			},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "EUR entries sum to 10")
		assert.Contains(t, err.Error(), "FUND_UNIT entries sum to -10")
	})
}

func TestTransactionServiceImpl_CreateTransactionApply(t *testing.T) {
	ctx := context.Background()

	newRequest := func(cash, clearing *ledger.Account, ref uuid.UUID, apply func(context.Context, ledger.Store) error) CreateTransactionRequest {
		return CreateTransactionRequest{
			Type:              ledger.TransactionTypeTransfer,
			ExternalReference: &ref,
			Entries: []EntryRequest{
				{Account: cash, Amount: decimal.RequireFromString("-40")},
				{Account: clearing, Amount: decimal.RequireFromString("40")},
			},
			Apply: apply,
		}
	}

	t.Run("CommitsWithPostings", func(t *testing.T) {
		store, accounts, svc := newMemoryServices()
		cash, err := accounts.GetUserAccount(ctx, "38812121215", cashSpec)
		require.NoError(t, err)
		clearing, err := accounts.GetSystemAccount(ctx, clearingSpec)
		require.NoError(t, err)
		p := payment.NewPayment(uuid.New(), nil, "38812121215", decimal.NewFromInt(40), "")
		require.NoError(t, store.Payments().Create(ctx, p))

		_, err = svc.CreateTransaction(ctx, newRequest(cash, clearing, p.ExternalID, func(ctx context.Context, tx ledger.Store) error {
			return tx.Payments().UpdateStatus(ctx, p.ID, payment.StatusReceived, payment.StatusReserved)
		}))
		require.NoError(t, err)

		stored, err := store.Payments().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusReserved, stored.Status)
	})

	t.Run("FailureRollsBackPostings", func(t *testing.T) {
		store, accounts, svc := newMemoryServices()
		cash, err := accounts.GetUserAccount(ctx, "38812121215", cashSpec)
		require.NoError(t, err)
		clearing, err := accounts.GetSystemAccount(ctx, clearingSpec)
		require.NoError(t, err)
		p := payment.NewPayment(uuid.New(), nil, "38812121215", decimal.NewFromInt(40), "")
		p.Status = payment.StatusReserved
		require.NoError(t, store.Payments().Create(ctx, p))

		_, err = svc.CreateTransaction(ctx, newRequest(cash, clearing, p.ExternalID, func(ctx context.Context, tx ledger.Store) error {
			return tx.Payments().UpdateStatus(ctx, p.ID, payment.StatusReceived, payment.StatusReserved)
		}))
		require.ErrorIs(t, err, payment.ErrStatusChanged)

		exists, err := svc.ExistsByExternalReference(ctx, p.ExternalID)
		require.NoError(t, err)
		assert.False(t, exists)
		balance, err := accounts.GetBalance(ctx, cash.ID)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})
}

func TestTransactionServiceImpl_IdempotencyKeyScopedByType(t *testing.T) {
	ctx := context.Background()
	_, accounts, svc := newMemoryServices()
	cash, err := accounts.GetUserAccount(ctx, "38812121215", cashSpec)
	require.NoError(t, err)
	clearing, err := accounts.GetSystemAccount(ctx, clearingSpec)
	require.NoError(t, err)
	ref := uuid.New()

	exists, err := svc.ExistsByExternalReferenceAndTransactionType(ctx, ref, ledger.TransactionTypeTransfer)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.CreateTransaction(ctx, CreateTransactionRequest{
		Type:              ledger.TransactionTypeTransfer,
		ExternalReference: &ref,
		Entries: []EntryRequest{
			{Account: cash, Amount: decimal.RequireFromString("-5")},
			{Account: clearing, Amount: decimal.RequireFromString("5")},
		},
	})
	require.NoError(t, err)

	exists, err = svc.ExistsByExternalReferenceAndTransactionType(ctx, ref, ledger.TransactionTypeTransfer)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.ExistsByExternalReferenceAndTransactionType(ctx, ref, ledger.TransactionTypeAdjustment)
	require.NoError(t, err)
	assert.False(t, exists)

	// the same external id may back a transaction of another type
	_, err = svc.CreateTransaction(ctx, CreateTransactionRequest{
		Type:              ledger.TransactionTypeAdjustment,
		ExternalReference: &ref,
		Entries: []EntryRequest{
			{Account: cash, Amount: decimal.RequireFromString("5")},
			{Account: clearing, Amount: decimal.RequireFromString("-5")},
		},
	})
	require.NoError(t, err)
}
