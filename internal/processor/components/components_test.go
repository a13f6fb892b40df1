package components

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/savings-fund-ledger/internal/config"
	"github.com/savings-fund-ledger/internal/data/memory"
	"github.com/savings-fund-ledger/internal/domain/event"
	"github.com/savings-fund-ledger/internal/domain/ledger"
	ledgerservice "github.com/savings-fund-ledger/internal/ledger/service"
	"github.com/savings-fund-ledger/internal/processor/service"
	"github.com/savings-fund-ledger/internal/savingsfund"
)

// MockDeadLetterPublisher mocks producers.DeadLetterPublisher
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type testStack struct {
	store        *memory.Store
	transactions ledgerservice.TransactionService
	fund         *savingsfund.Ledger
}

func newTestStack() *testStack {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	accounts := ledgerservice.NewAccountService(logger, store, ledgerservice.NewPartyService(logger, store))
	transactions := ledgerservice.NewTransactionService(logger, store)
	return &testStack{
		store:        store,
		transactions: transactions,
		fund:         savingsfund.NewLedger(logger, accounts, transactions, "EE3600109435"),
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func reportDate() *time.Time {
	d := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestEventDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	dispatcher := NewEventDispatcher(stack.fund, newLogger())

	base := func(eventType event.Type, amount string) *event.LedgerEvent {
		return &event.LedgerEvent{
			EventID:      uuid.New(),
			EventType:    eventType,
			UserID:       42,
			PersonalCode: "38812121215",
			Amount:       decimal.RequireFromString(amount),
			OccurredAt:   time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		}
	}

	tests := []struct {
		name              string
		event             func() *event.LedgerEvent
		expectedType      ledger.TransactionType
		expectedOperation string
	}{
		{"payment received", func() *event.LedgerEvent { return base(event.TypePaymentReceived, "100") }, ledger.TransactionTypeTransfer, savingsfund.OperationPaymentReceived},
		{"unattributed payment", func() *event.LedgerEvent { return base(event.TypeUnattributedPayment, "20") }, ledger.TransactionTypeTransfer, savingsfund.OperationUnattributedPayment},
		{"late attribution", func() *event.LedgerEvent { return base(event.TypeLateAttribution, "20") }, ledger.TransactionTypeTransfer, savingsfund.OperationLateAttribution},
		{"bounce back", func() *event.LedgerEvent { return base(event.TypePaymentBounceBack, "5") }, ledger.TransactionTypeTransfer, savingsfund.OperationPaymentBounceBack},
		{"cancellation requested", func() *event.LedgerEvent { return base(event.TypePaymentCancellationRequested, "10") }, ledger.TransactionTypeTransfer, savingsfund.OperationPaymentCancelRequested},
		{"reservation cancelled", func() *event.LedgerEvent { return base(event.TypePaymentReservationCancelled, "10") }, ledger.TransactionTypeTransfer, savingsfund.OperationReservationCancelled},
		{"payment cancelled", func() *event.LedgerEvent { return base(event.TypePaymentCancelled, "10") }, ledger.TransactionTypeTransfer, savingsfund.OperationPaymentCancelled},
		{"fund units issued", func() *event.LedgerEvent {
			e := base(event.TypeFundUnitsIssued, "81.00")
			e.FundUnits = decimal.RequireFromString("1.00000")
			e.NavPerUnit = decimal.RequireFromString("81.0000")
			return e
		}, ledger.TransactionTypeSubscription, savingsfund.OperationFundUnitsIssued},
		{"fund transfer", func() *event.LedgerEvent { return base(event.TypeFundTransfer, "81") }, ledger.TransactionTypeTransfer, savingsfund.OperationFundTransfer},
		{"redemption requested", func() *event.LedgerEvent {
			e := base(event.TypeRedemptionRequested, "0")
			e.FundUnits = decimal.RequireFromString("0.5")
			return e
		}, ledger.TransactionTypeRedemption, savingsfund.OperationFundUnitsReserved},
		{"fund units redeemed", func() *event.LedgerEvent {
			e := base(event.TypeFundUnitsRedeemed, "40.50")
			e.FundUnits = decimal.RequireFromString("0.5")
			e.NavPerUnit = decimal.RequireFromString("81")
			return e
		}, ledger.TransactionTypeRedemption, savingsfund.OperationFundUnitsRedeemed},
		{"redemption transfer", func() *event.LedgerEvent { return base(event.TypeRedemptionTransfer, "40.50") }, ledger.TransactionTypeTransfer, savingsfund.OperationRedemptionTransfer},
		{"redemption payout", func() *event.LedgerEvent { return base(event.TypeRedemptionPayout, "40.50") }, ledger.TransactionTypeTransfer, savingsfund.OperationRedemptionPayout},
		{"fee accrual", func() *event.LedgerEvent {
			e := base(event.TypeFeeAccrual, "1.23")
			e.FeeType = string(savingsfund.FeeManagement)
			e.ReportDate = reportDate()
			return e
		}, ledger.TransactionTypeFeeAccrual, savingsfund.OperationFeeAccrual},
		{"fee settlement", func() *event.LedgerEvent {
			e := base(event.TypeFeeSettlement, "1.23")
			e.FeeType = string(savingsfund.FeeDepot)
			e.ReportDate = reportDate()
			return e
		}, ledger.TransactionTypeFeeSettlement, savingsfund.OperationFeeSettlement},
		{"position update", func() *event.LedgerEvent {
			e := base(event.TypePositionUpdate, "-250.10")
			e.Position = string(savingsfund.SecuritiesValue)
			e.ReportDate = reportDate()
			return e
		}, ledger.TransactionTypePositionUpdate, savingsfund.OperationPositionUpdate},
		{"bank adjustment", func() *event.LedgerEvent {
			e := base(event.TypeBankAdjustment, "-0.50")
			e.AdjustmentType = string(savingsfund.BankAdjustmentFee)
			return e
		}, ledger.TransactionTypeAdjustment, savingsfund.OperationBankAdjustment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.event()
			require.NoError(t, e.Validate())

			tx, err := dispatcher.Dispatch(ctx, e)
			require.NoError(t, err)
			require.NotNil(t, tx)
			assert.Equal(t, tt.expectedType, tx.Type)
			assert.Equal(t, tt.expectedOperation, tx.MetadataString("operationType"))
			require.NotNil(t, tx.ExternalReference)
			assert.Equal(t, e.EventID, *tx.ExternalReference)
		})
	}

	t.Run("report date drives the transaction date", func(t *testing.T) {
		e := base(event.TypeFeeAccrual, "2")
		e.FeeType = string(savingsfund.FeeManagement)
		e.ReportDate = reportDate()

		tx, err := dispatcher.Dispatch(ctx, e)
		require.NoError(t, err)
		assert.True(t, reportDate().Equal(tx.TransactionDate))
	})

	t.Run("unknown event type", func(t *testing.T) {
		_, err := dispatcher.Dispatch(ctx, base(event.Type("DIVIDEND"), "1"))
		assert.ErrorIs(t, err, event.ErrInvalidEvent)
	})
}

func TestEventValidator_CheckIdempotency(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	validator := NewEventValidator(stack.transactions, newLogger())

	paymentID := uuid.New()
	e := &event.LedgerEvent{
		EventID:      paymentID,
		EventType:    event.TypePaymentReceived,
		PersonalCode: "38812121215",
		Amount:       decimal.NewFromInt(100),
	}

	skip, err := validator.CheckIdempotency(ctx, e)
	require.NoError(t, err)
	assert.False(t, skip)

	_, err = stack.fund.RecordPaymentReceived(ctx, savingsfund.User{ID: 42, PersonalCode: "38812121215"}, e.Amount, paymentID)
	require.NoError(t, err)

	skip, err = validator.CheckIdempotency(ctx, e)
	require.NoError(t, err)
	assert.True(t, skip)

	// same reference, different transaction type
	issued := *e
	issued.EventType = event.TypeFundUnitsIssued
	skip, err = validator.CheckIdempotency(ctx, &issued)
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestFailureRecorder_RecordFailure(t *testing.T) {
	ctx := context.Background()
	e := &event.LedgerEvent{
		EventID:       uuid.New(),
		EventType:     event.TypeFeeAccrual,
		CorrelationID: "corr-7",
		Amount:        decimal.RequireFromString("1.5"),
	}

	t.Run("publishes event with reason", func(t *testing.T) {
		dlq := new(MockDeadLetterPublisher)
		recorder := NewFailureRecorder(dlq, newLogger())

		dlq.On("PublishToDLQ", ctx, e.EventID.String(), mock.MatchedBy(func(value []byte) bool {
			var decoded event.LedgerEvent
			if err := json.Unmarshal(value, &decoded); err != nil {
				return false
			}
			return decoded.EventID == e.EventID && decoded.Amount.Equal(e.Amount)
		}), "bad fee").Return(nil).Once()

		require.NoError(t, recorder.RecordFailure(ctx, e, "bad fee"))
		dlq.AssertExpectations(t)
	})

	t.Run("returns publisher error", func(t *testing.T) {
		dlq := new(MockDeadLetterPublisher)
		recorder := NewFailureRecorder(dlq, newLogger())
		dlq.On("PublishToDLQ", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

		assert.Error(t, recorder.RecordFailure(ctx, e, "bad fee"))
	})
}

func TestCreateProcessingService(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	dlq := new(MockDeadLetterPublisher)
	cfg := &config.Config{WorkerPool: config.WorkerPoolConfig{Size: 4}}

	processing, shutdown := CreateProcessingService(stack.fund, stack.transactions, dlq, newLogger(), cfg)
	defer shutdown()

	_, ok := processing.(*service.WorkerPoolProcessingService)
	assert.True(t, ok)

	e := &event.LedgerEvent{
		EventID:      uuid.New(),
		EventType:    event.TypePaymentReceived,
		UserID:       42,
		PersonalCode: "38812121215",
		Amount:       decimal.RequireFromString("25.00"),
		OccurredAt:   time.Now().UTC(),
	}

	require.NoError(t, processing.ProcessEvent(ctx, e))
	// redelivery is a no-op
	require.NoError(t, processing.ProcessEvent(ctx, e))

	posted, err := stack.transactions.ExistsByExternalReferenceAndTransactionType(ctx, e.EventID, ledger.TransactionTypeTransfer)
	require.NoError(t, err)
	assert.True(t, posted)

	// precision violation goes to the dead letter topic and is acknowledged
	bad := *e
	bad.EventID = uuid.New()
	bad.Amount = decimal.RequireFromString("0.001")
	dlq.On("PublishToDLQ", ctx, bad.EventID.String(), mock.Anything, mock.MatchedBy(func(reason string) bool {
		return strings.Contains(reason, "decimal places")
	})).Return(nil).Once()

	require.NoError(t, processing.ProcessEvent(ctx, &bad))
	dlq.AssertExpectations(t)
}
