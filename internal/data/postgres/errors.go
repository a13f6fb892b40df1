// Package postgres implements the ledger and payment repositories on PostgreSQL. Ledger
// invariants are checked in-process before every write and enforced again by the schema.
package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/platform/persistence"
)

const entryAssetTypeConstraint = "ledger_entry_account_asset_type_fkey"

// integrityError converts schema-level invariant failures into ledger violations. A foreign
// key failure other than the entry asset type key is a missing row, not a ledger invariant,
// and is wrapped as a plain error. Other errors are returned unchanged.
func integrityError(err error) error {
	if err == nil || !persistence.IsIntegrityViolation(err) {
		return err
	}

	var pgErr *pgconn.PgError
	errors.As(err, &pgErr)

	if pgErr.Code == "23503" && pgErr.ConstraintName != entryAssetTypeConstraint {
		return fmt.Errorf("referenced row does not exist (%s): %w", pgErr.ConstraintName, err)
	}

	var violation ledger.Violation
	switch {
	case pgErr.Code == "23503":
		violation = ledger.Violation{
			Kind:    ledger.ViolationAssetTypeMismatch,
			Message: "entry asset type does not match account asset type (" + pgErr.ConstraintName + ")",
		}
	case pgErr.Code == "23514":
		violation = ledger.Violation{
			Kind:    ledger.ViolationPrecision,
			Message: "entry amount has more decimal places than its asset type allows (" + pgErr.ConstraintName + ")",
		}
	case strings.Contains(pgErr.Message, "at least"):
		violation = ledger.Violation{Kind: ledger.ViolationTooFewEntries, Message: pgErr.Message}
	default:
		violation = ledger.Violation{Kind: ledger.ViolationUnbalanced, Message: pgErr.Message}
	}
	return ledger.NewViolationError([]ledger.Violation{violation})
}

// parseAmount reads a numeric column selected as text
func parseAmount(text string, assetType ledger.AssetType) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse amount %q: %w", text, err)
	}
	if assetType.IsValid() {
		amount = amount.Round(assetType.MaxDecimals())
	}
	return amount, nil
}
