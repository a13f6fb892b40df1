package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// MinEntriesPerTransaction is the smallest number of entries a transaction may hold
const MinEntriesPerTransaction = 2

// Validate runs every transaction-scoped check and returns the violations found.
// It is run before any I/O and again by the storage layer before commit.
func Validate(t *Transaction) []Violation {
	var violations []Violation
	violations = append(violations, ValidateBalanced(t)...)
	violations = append(violations, ValidateAssetTypeConsistency(t)...)
	violations = append(violations, ValidateAmountPrecision(t)...)
	return violations
}

// ValidateTransaction is Validate folded into an error
func ValidateTransaction(t *Transaction) error {
	if t == nil {
		return ErrNilTransaction
	}
	return NewViolationError(Validate(t))
}

// ValidateBalanced checks that the transaction has enough entries and that each asset type
// sums to exactly zero.
func ValidateBalanced(t *Transaction) []Violation {
	if t == nil {
		return nil
	}

	var violations []Violation
	if len(t.Entries) < MinEntriesPerTransaction {
		violations = append(violations, Violation{
			Kind:    ViolationTooFewEntries,
			Message: fmt.Sprintf("transaction must have at least %d entries, found %d", MinEntriesPerTransaction, len(t.Entries)),
		})
	}

	sums := t.SumByAssetType()
	assetTypes := make([]string, 0, len(sums))
	for assetType := range sums {
		assetTypes = append(assetTypes, string(assetType))
	}
	sort.Strings(assetTypes)

	for _, assetType := range assetTypes {
		sum := sums[AssetType(assetType)]
		if !sum.IsZero() {
			violations = append(violations, Violation{
				Kind:    ViolationUnbalanced,
				Message: fmt.Sprintf("transaction does not balance: %s entries sum to %s, expected a zero balance", assetType, sum.String()),
			})
		}
	}
	return violations
}

// ValidateAssetTypeConsistency checks every entry of the transaction against its account
func ValidateAssetTypeConsistency(t *Transaction) []Violation {
	if t == nil {
		return nil
	}
	var violations []Violation
	for _, e := range t.Entries {
		violations = append(violations, ValidateEntryAccountConsistency(e)...)
	}
	return violations
}

// ValidateEntryAccountConsistency checks a single entry against the account it posts to.
// An entry without a loaded account is left to the storage layer.
func ValidateEntryAccountConsistency(e *Entry) []Violation {
	if e == nil || e.Account == nil {
		return nil
	}
	if e.AssetType != e.Account.AssetType {
		return []Violation{assetTypeViolation(e.AssetType, e.Account.AssetType)}
	}
	return nil
}

// ValidateAccountEntryConsistency checks every loaded entry of an account
func ValidateAccountEntryConsistency(a *Account) []Violation {
	if a == nil {
		return nil
	}
	var violations []Violation
	for _, e := range a.Entries {
		if e != nil && e.AssetType != a.AssetType {
			violations = append(violations, assetTypeViolation(e.AssetType, a.AssetType))
		}
	}
	return violations
}

// ValidateAmountPrecision checks that no entry carries more significant decimals than its asset allows
func ValidateAmountPrecision(t *Transaction) []Violation {
	if t == nil {
		return nil
	}
	var violations []Violation
	for _, e := range t.Entries {
		if e == nil {
			continue
		}
		if SignificantDecimals(e.Amount) > e.AssetType.MaxDecimals() {
			violations = append(violations, precisionViolation(e.Amount, e.AssetType))
		}
	}
	return violations
}

func assetTypeViolation(actual, expected AssetType) Violation {
	return Violation{
		Kind:    ViolationAssetTypeMismatch,
		Message: fmt.Sprintf("entry asset type %s does not match account asset type %s", actual, expected),
	}
}

func precisionViolation(amount decimal.Decimal, assetType AssetType) Violation {
	return Violation{
		Kind: ViolationPrecision,
		Message: fmt.Sprintf("%s has %d decimal places, but %s allows maximum %d decimal places",
			amount.String(), SignificantDecimals(amount), assetType, assetType.MaxDecimals()),
	}
}
