package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/platform/persistence"
)

const accountColumns = `id, name, purpose, account_type, asset_type, owner_id, created_at`

// AccountRepository implements ledger.AccountRepository for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewAccountRepository(logger *slog.Logger, querier persistence.Querier) *AccountRepository {
	return &AccountRepository{querier: querier, logger: logger}
}

// WithTx returns a repository bound to tx
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	return &AccountRepository{querier: tx, logger: r.logger}
}

// Create inserts the account. The partial unique indexes on (owner_id, name) and on the
// system account key turn a lost creation race into ErrDuplicateAccount.
func (r *AccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	if violations := ledger.ValidateAccountEntryConsistency(account); len(violations) > 0 {
		return ledger.NewViolationError(violations)
	}

	query := `
		INSERT INTO ledger_account (id, name, purpose, account_type, asset_type, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		account.ID,
		account.Name,
		account.Purpose,
		account.AccountType,
		account.AssetType,
		account.OwnerID,
		account.CreatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ledger.ErrDuplicateAccount, account.Name)
		}
		r.logger.Error("Failed to create account", "name", account.Name, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger_account WHERE id = $1`

	account, err := r.scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// FindUserAccount returns nil, nil when the owner has no account with that name
func (r *AccountRepository) FindUserAccount(ctx context.Context, ownerID uuid.UUID, name string) (*ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger_account
		WHERE purpose = 'USER_ACCOUNT' AND owner_id = $1 AND name = $2`

	account, err := r.scanAccount(r.querier.QueryRow(ctx, query, ownerID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find user account", "owner_id", ownerID.String(), "name", name, "error", err)
		return nil, fmt.Errorf("failed to find user account: %w", err)
	}
	return account, nil
}

// FindSystemAccount returns nil, nil when the system account does not exist yet
func (r *AccountRepository) FindSystemAccount(ctx context.Context, name string, accountType ledger.AccountType, assetType ledger.AssetType) (*ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger_account
		WHERE purpose = 'SYSTEM_ACCOUNT' AND name = $1 AND account_type = $2 AND asset_type = $3`

	account, err := r.scanAccount(r.querier.QueryRow(ctx, query, name, accountType, assetType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find system account", "name", name, "error", err)
		return nil, fmt.Errorf("failed to find system account: %w", err)
	}
	return account, nil
}

// Balance sums the account's entries at read time
func (r *AccountRepository) Balance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0)::text FROM ledger_entry WHERE account_id = $1`

	var total string
	if err := r.querier.QueryRow(ctx, query, id).Scan(&total); err != nil {
		r.logger.Error("Failed to sum account balance", "id", id.String(), "error", err)
		return decimal.Decimal{}, fmt.Errorf("failed to get account balance: %w", err)
	}
	return parseAmount(total, "")
}

// CountWithPositiveBalance counts user accounts named name whose entries sum above zero
func (r *AccountRepository) CountWithPositiveBalance(ctx context.Context, name string) (int64, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT a.id
			FROM ledger_account a
			JOIN ledger_entry e ON e.account_id = a.id
			WHERE a.purpose = 'USER_ACCOUNT' AND a.name = $1
			GROUP BY a.id
			HAVING SUM(e.amount) > 0
		) positive_accounts
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, name).Scan(&count); err != nil {
		r.logger.Error("Failed to count accounts with positive balance", "name", name, "error", err)
		return 0, fmt.Errorf("failed to count accounts with positive balance: %w", err)
	}
	return count, nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*ledger.Account, error) {
	var account ledger.Account
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Purpose,
		&account.AccountType,
		&account.AssetType,
		&account.OwnerID,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
