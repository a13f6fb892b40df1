package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/domain/outbox"
	"github.com/savings-fund-ledger/internal/domain/payment"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPartyRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := NewPartyRepository(newTestLogger(), mock)

	party := ledger.NewParty(ledger.PartyTypeUser, "38812121215", nil)
	query := regexp.QuoteMeta(`INSERT INTO ledger_party (id, party_type, owner_id, details, created_at)`)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(party.ID, party.Type, party.OwnerID, []byte(`{}`), party.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, party))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateOwner", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(party.ID, party.Type, party.OwnerID, []byte(`{}`), party.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ledger_party_type_owner_key"})

		err := repo.Create(ctx, party)
		assert.ErrorIs(t, err, ledger.ErrDuplicateParty)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mock.ExpectExec(query).
			WithArgs(party.ID, party.Type, party.OwnerID, []byte(`{}`), party.CreatedAt).
			WillReturnError(dbErr)

		err := repo.Create(ctx, party)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ledger.ErrDuplicateParty)
		assert.Contains(t, err.Error(), "failed to create party")
	})
}

func TestPartyRepository_FindByOwner(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := NewPartyRepository(newTestLogger(), mock)
	query := `FROM ledger_party WHERE party_type = \$1 AND owner_id = \$2`

	t.Run("Found", func(t *testing.T) {
		id := uuid.New()
		now := time.Now().UTC()
		rows := pgxmock.NewRows([]string{"id", "party_type", "owner_id", "details", "created_at"}).
			AddRow(id, ledger.PartyTypeUser, "38812121215", []byte(`{"userId":7}`), now)
		mock.ExpectQuery(query).WithArgs(ledger.PartyTypeUser, "38812121215").WillReturnRows(rows)

		party, err := repo.FindByOwner(ctx, ledger.PartyTypeUser, "38812121215")
		require.NoError(t, err)
		require.NotNil(t, party)
		assert.Equal(t, id, party.ID)
		assert.Equal(t, float64(7), party.Details["userId"])
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(ledger.PartyTypeUser, "00000000000").
			WillReturnRows(pgxmock.NewRows([]string{"id", "party_type", "owner_id", "details", "created_at"}))

		party, err := repo.FindByOwner(ctx, ledger.PartyTypeUser, "00000000000")
		assert.NoError(t, err)
		assert.Nil(t, party)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := NewAccountRepository(newTestLogger(), mock)

	owner := ledger.NewParty(ledger.PartyTypeUser, "38812121215", nil)
	account := ledger.NewUserAccount(owner, "CASH", ledger.AccountTypeLiability, ledger.AssetTypeEUR)
	query := regexp.QuoteMeta(`INSERT INTO ledger_account`)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(account.ID, account.Name, account.Purpose, account.AccountType, account.AssetType, account.OwnerID, account.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, account))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("LostCreationRace", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(account.ID, account.Name, account.Purpose, account.AccountType, account.AssetType, account.OwnerID, account.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ledger_account_user_name_idx"})

		err := repo.Create(ctx, account)
		assert.ErrorIs(t, err, ledger.ErrDuplicateAccount)
	})

	t.Run("MismatchedLoadedEntries", func(t *testing.T) {
		bad := ledger.NewSystemAccount("NAV_EQUITY", ledger.AccountTypeLiability, ledger.AssetTypeEUR)
		bad.Entries = []*ledger.Entry{{AssetType: ledger.AssetTypeFundUnit}}

		err := repo.Create(ctx, bad)
		assert.ErrorIs(t, err, ledger.ErrInvariantViolation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := NewAccountRepository(newTestLogger(), mock)
	columns := []string{"id", "name", "purpose", "account_type", "asset_type", "owner_id", "created_at"}

	t.Run("FindSystemAccount", func(t *testing.T) {
		id := uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(`purpose = 'SYSTEM_ACCOUNT' AND name = \$1`).
			WithArgs("NAV_EQUITY", ledger.AccountTypeLiability, ledger.AssetTypeEUR).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow(id, "NAV_EQUITY", ledger.AccountPurposeSystem, ledger.AccountTypeLiability, ledger.AssetTypeEUR, nil, now))

		account, err := repo.FindSystemAccount(ctx, "NAV_EQUITY", ledger.AccountTypeLiability, ledger.AssetTypeEUR)
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, id, account.ID)
		assert.True(t, account.IsSystem())
		assert.Nil(t, account.OwnerID)
	})

	t.Run("FindUserAccountMissing", func(t *testing.T) {
		ownerID := uuid.New()
		mock.ExpectQuery(`purpose = 'USER_ACCOUNT' AND owner_id = \$1 AND name = \$2`).
			WithArgs(ownerID, "CASH").
			WillReturnRows(pgxmock.NewRows(columns))

		account, err := repo.FindUserAccount(ctx, ownerID, "CASH")
		assert.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("GetByIDMissing", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(`FROM ledger_account WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(columns))

		_, err := repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound{AccountID: id})
	})

	t.Run("Balance", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(amount), 0)::text FROM ledger_entry WHERE account_id = $1`)).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow("-1000.00"))

		balance, err := repo.Balance(ctx, id)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("-1000")))
	})

	t.Run("CountWithPositiveBalance", func(t *testing.T) {
		mock.ExpectQuery(`HAVING SUM\(e.amount\) > 0`).
			WithArgs("FUND_UNITS").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

		count, err := repo.CountWithPositiveBalance(ctx, "FUND_UNITS")
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func newBalancedTransaction(t *testing.T) *ledger.Transaction {
	t.Helper()
	owner := ledger.NewParty(ledger.PartyTypeUser, "38812121215", nil)
	cash := ledger.NewUserAccount(owner, "CASH", ledger.AccountTypeLiability, ledger.AssetTypeEUR)
	clearing := ledger.NewSystemAccount("INCOMING_PAYMENTS_CLEARING", ledger.AccountTypeAsset, ledger.AssetTypeEUR)

	ref := uuid.New()
	tx := ledger.NewTransaction(ledger.TransactionTypeTransfer, time.Now().UTC(), &ref, map[string]any{"operationType": "PAYMENT_RECEIVED"})
	_, err := tx.AddEntry(cash, decimal.RequireFromString("-100"))
	require.NoError(t, err)
	_, err = tx.AddEntry(clearing, decimal.RequireFromString("100"))
	require.NoError(t, err)
	return tx
}

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()
	txQuery := regexp.QuoteMeta(`INSERT INTO ledger_transaction`)
	entryQuery := regexp.QuoteMeta(`INSERT INTO ledger_entry`)

	t.Run("InsertsTransactionAndEntries", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewTransactionRepository(newTestLogger(), mock)
		tx := newBalancedTransaction(t)

		mock.ExpectExec(txQuery).
			WithArgs(tx.ID, tx.Type, tx.TransactionDate, tx.ExternalReference, []byte(`{"operationType":"PAYMENT_RECEIVED"}`), tx.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(entryQuery).
			WithArgs(tx.Entries[0].ID, tx.ID, tx.Entries[0].AccountID, "-100.00", ledger.AssetTypeEUR, tx.Entries[0].CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(entryQuery).
			WithArgs(tx.Entries[1].ID, tx.ID, tx.Entries[1].AccountID, "100.00", ledger.AssetTypeEUR, tx.Entries[1].CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, tx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RejectsUnbalancedBeforeAnySQL", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewTransactionRepository(newTestLogger(), mock)
		tx := newBalancedTransaction(t)
		tx.Entries = tx.Entries[:1]

		err := repo.Create(ctx, tx)
		assert.ErrorIs(t, err, ledger.ErrInvariantViolation)
		assert.Contains(t, err.Error(), "at least 2 entries")
		assert.Contains(t, err.Error(), "does not balance")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ForeignKeyOnAssetTypeIsViolation", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewTransactionRepository(newTestLogger(), mock)
		tx := newBalancedTransaction(t)

		mock.ExpectExec(txQuery).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(entryQuery).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "ledger_entry_account_asset_type_fkey"})

		err := repo.Create(ctx, tx)
		var violationErr *ledger.ViolationError
		require.ErrorAs(t, err, &violationErr)
		assert.True(t, violationErr.Has(ledger.ViolationAssetTypeMismatch))
		assert.Contains(t, err.Error(), "does not match")
	})

	t.Run("OtherForeignKeyIsPlainError", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewTransactionRepository(newTestLogger(), mock)
		tx := newBalancedTransaction(t)

		mock.ExpectExec(txQuery).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(entryQuery).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "ledger_entry_transaction_id_fkey"})

		err := repo.Create(ctx, tx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ledger.ErrInvariantViolation)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "ledger_entry_transaction_id_fkey", pgErr.ConstraintName)
	})
}

func TestTransactionRepository_Reads(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := NewTransactionRepository(newTestLogger(), mock)
	entryColumnNames := []string{"id", "transaction_id", "account_id", "amount", "asset_type", "created_at"}

	t.Run("GetByID", func(t *testing.T) {
		id := uuid.New()
		accountID := uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(`FROM ledger_transaction WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"id", "transaction_type", "transaction_date", "external_reference", "metadata", "created_at"}).
				AddRow(id, ledger.TransactionTypeFeeAccrual, now, nil, []byte(`{"fund":"EE3600109435"}`), now))
		mock.ExpectQuery(`FROM ledger_entry WHERE transaction_id = \$1`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(entryColumnNames).
				AddRow(uuid.New(), id, accountID, "-12.5", ledger.AssetTypeEUR, now).
				AddRow(uuid.New(), id, uuid.New(), "12.50", ledger.AssetTypeEUR, now))

		tx, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ledger.TransactionTypeFeeAccrual, tx.Type)
		assert.Nil(t, tx.ExternalReference)
		assert.Equal(t, "EE3600109435", tx.MetadataString("fund"))
		require.Len(t, tx.Entries, 2)
		assert.Equal(t, "-12.50", tx.Entries[0].Amount.StringFixed(2))
		assert.Equal(t, int32(-2), tx.Entries[0].Amount.Exponent())
		assert.NoError(t, ledger.ValidateTransaction(tx))
	})

	t.Run("GetByIDMissing", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(`FROM ledger_transaction WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"id", "transaction_type", "transaction_date", "external_reference", "metadata", "created_at"}))

		_, err := repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, ledger.ErrTransactionNotFound{})
	})

	t.Run("ExistsByExternalReferenceAndType", func(t *testing.T) {
		ref := uuid.New()
		mock.ExpectQuery(`external_reference = \$1 AND transaction_type = \$2`).
			WithArgs(ref, ledger.TransactionTypeTransfer).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsByExternalReferenceAndType(ctx, ref, ledger.TransactionTypeTransfer)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("ExistsByExternalReference", func(t *testing.T) {
		ref := uuid.New()
		mock.ExpectQuery(`WHERE external_reference = \$1\)`).
			WithArgs(ref).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.ExistsByExternalReference(ctx, ref)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := NewOutboxRepository(newTestLogger(), mock)

	t.Run("Create", func(t *testing.T) {
		message, err := outbox.NewMessage(uuid.New(), outbox.EventTransactionPosted, map[string]string{"k": "v"})
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transaction_outbox`)).
			WithArgs(message.TransactionID, message.EventType, []byte(message.Payload), outbox.StatusPending, 0, message.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		require.NoError(t, repo.Create(ctx, message))
		assert.Equal(t, int64(42), message.ID)
	})

	t.Run("GetPending", func(t *testing.T) {
		now := time.Now().UTC()
		txID := uuid.New()
		mock.ExpectQuery(`FROM transaction_outbox WHERE status = \$1`).
			WithArgs(outbox.StatusPending, 10).
			WillReturnRows(pgxmock.NewRows([]string{"id", "transaction_id", "event_type", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
				AddRow(int64(1), txID, outbox.EventTransactionPosted, []byte(`{}`), outbox.StatusPending, 0, now, nil))

		messages, err := repo.GetPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, txID, messages[0].TransactionID)
		assert.Nil(t, messages[0].LastAttemptAt)
	})

	t.Run("UpdateStatusMissing", func(t *testing.T) {
		mock.ExpectExec(`UPDATE transaction_outbox SET status = \$1`).
			WithArgs(outbox.StatusProcessed, pgxmock.AnyArg(), int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 7, outbox.StatusProcessed)
		assert.Equal(t, outbox.ErrMessageNotFound{ID: 7}, err)
	})

	t.Run("IncrementAttempts", func(t *testing.T) {
		mock.ExpectExec(`SET attempts = attempts \+ 1`).
			WithArgs(pgxmock.AnyArg(), int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.IncrementAttempts(ctx, 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := NewPaymentRepository(newTestLogger(), mock)
	columns := []string{"id", "external_id", "user_id", "personal_code", "amount", "status", "previous_status", "description", "created_at", "status_changed_at"}

	t.Run("Create", func(t *testing.T) {
		p := payment.NewPayment(uuid.New(), nil, "38812121215", decimal.RequireFromString("25.5"), "")
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO saving_fund_payment`)).
			WithArgs(p.ID, p.ExternalID, p.UserID, p.PersonalCode, "25.50", payment.StatusReceived, "", p.CreatedAt, p.StatusChangedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, p))
	})

	t.Run("FindByStatus", func(t *testing.T) {
		now := time.Now().UTC()
		userID := int64(7)
		code := "38812121215"
		previous := "RESERVED"
		mock.ExpectQuery(`FROM saving_fund_payment WHERE status = \$1`).
			WithArgs(payment.StatusToBeReturned).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow(uuid.New(), uuid.New(), &userID, &code, "1000.00", payment.StatusToBeReturned, &previous, nil, now, now).
				AddRow(uuid.New(), uuid.New(), nil, nil, "5", payment.StatusToBeReturned, nil, nil, now, now))

		payments, err := repo.FindByStatus(ctx, payment.StatusToBeReturned)
		require.NoError(t, err)
		require.Len(t, payments, 2)
		assert.Equal(t, code, payments[0].PersonalCode)
		assert.Equal(t, int64(7), *payments[0].UserID)
		assert.Equal(t, payment.StatusReserved, payments[0].PreviousStatus)
		assert.Empty(t, payments[1].PreviousStatus)
		assert.False(t, payments[1].IsAttributed())
		assert.Equal(t, "5.00", payments[1].Amount.StringFixed(2))
	})

	t.Run("UpdateStatusRecordsPreviousStatus", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec(`UPDATE saving_fund_payment\s+SET status = \$1, previous_status = \$4`).
			WithArgs(payment.StatusToBeReturned, pgxmock.AnyArg(), id, payment.StatusReserved).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, id, payment.StatusReserved, payment.StatusToBeReturned))
	})

	t.Run("UpdateStatusConflict", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec(`UPDATE saving_fund_payment\s+SET status = \$1`).
			WithArgs(payment.StatusReserved, pgxmock.AnyArg(), id, payment.StatusReceived).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, id, payment.StatusReceived, payment.StatusReserved)
		assert.ErrorIs(t, err, payment.ErrStatusChanged)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
