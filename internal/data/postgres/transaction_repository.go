package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/platform/persistence"
)

const entryColumns = `id, transaction_id, account_id, amount::text, asset_type, created_at`

// TransactionRepository implements ledger.TransactionRepository for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewTransactionRepository(logger *slog.Logger, querier persistence.Querier) *TransactionRepository {
	return &TransactionRepository{querier: querier, logger: logger}
}

// WithTx returns a repository bound to tx
func (r *TransactionRepository) WithTx(tx pgx.Tx) *TransactionRepository {
	return &TransactionRepository{querier: tx, logger: r.logger}
}

// Create validates the transaction and inserts it with all of its entries. Callers must run it
// inside a storage transaction; the balance trigger is checked at commit.
func (r *TransactionRepository) Create(ctx context.Context, transaction *ledger.Transaction) error {
	if err := ledger.ValidateTransaction(transaction); err != nil {
		return err
	}

	metadata, err := json.Marshal(transaction.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_transaction (id, transaction_type, transaction_date, external_reference, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.querier.Exec(ctx, query,
		transaction.ID,
		transaction.Type,
		transaction.TransactionDate,
		transaction.ExternalReference,
		metadata,
		transaction.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "transaction_id", transaction.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	entryQuery := `
		INSERT INTO ledger_entry (id, transaction_id, account_id, amount, asset_type, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
	`
	for _, entry := range transaction.Entries {
		_, err := r.querier.Exec(ctx, entryQuery,
			entry.ID,
			transaction.ID,
			entry.AccountID,
			entry.Amount.StringFixed(entry.AssetType.MaxDecimals()),
			entry.AssetType,
			entry.CreatedAt,
		)
		if err != nil {
			if violation := integrityError(err); errors.Is(violation, ledger.ErrInvariantViolation) {
				return violation
			}
			r.logger.Error("Failed to create entry",
				"transaction_id", transaction.ID.String(),
				"account_id", entry.AccountID.String(),
				"error", err,
			)
			return fmt.Errorf("failed to create entry: %w", err)
		}
	}
	return nil
}

// GetByID loads the transaction together with its entries
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `
		SELECT id, transaction_type, transaction_date, external_reference, metadata, created_at
		FROM ledger_transaction
		WHERE id = $1
	`

	var transaction ledger.Transaction
	var metadata []byte
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&transaction.ID,
		&transaction.Type,
		&transaction.TransactionDate,
		&transaction.ExternalReference,
		&metadata,
		&transaction.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	transaction.Metadata = map[string]any{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &transaction.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}

	entries, err := r.FindEntriesByTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	transaction.Entries = entries
	return &transaction, nil
}

func (r *TransactionRepository) FindEntriesByAccount(ctx context.Context, accountID uuid.UUID) ([]*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entry WHERE account_id = $1 ORDER BY created_at, id`
	return r.queryEntries(ctx, query, accountID)
}

func (r *TransactionRepository) FindEntriesByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entry WHERE transaction_id = $1 ORDER BY created_at, id`
	return r.queryEntries(ctx, query, transactionID)
}

func (r *TransactionRepository) ExistsByExternalReference(ctx context.Context, externalReference uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ledger_transaction WHERE external_reference = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, externalReference).Scan(&exists); err != nil {
		r.logger.Error("Failed to check external reference", "external_reference", externalReference.String(), "error", err)
		return false, fmt.Errorf("failed to check external reference: %w", err)
	}
	return exists, nil
}

func (r *TransactionRepository) ExistsByExternalReferenceAndType(ctx context.Context, externalReference uuid.UUID, transactionType ledger.TransactionType) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ledger_transaction WHERE external_reference = $1 AND transaction_type = $2)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, externalReference, transactionType).Scan(&exists); err != nil {
		r.logger.Error("Failed to check external reference",
			"external_reference", externalReference.String(),
			"transaction_type", string(transactionType),
			"error", err,
		)
		return false, fmt.Errorf("failed to check external reference: %w", err)
	}
	return exists, nil
}

func (r *TransactionRepository) queryEntries(ctx context.Context, query string, id uuid.UUID) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to query entries", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		var entry ledger.Entry
		var amount string
		if err := rows.Scan(
			&entry.ID,
			&entry.TransactionID,
			&entry.AccountID,
			&amount,
			&entry.AssetType,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if entry.Amount, err = parseAmount(amount, entry.AssetType); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over entries: %w", err)
	}
	return entries, nil
}
