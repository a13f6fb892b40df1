package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one signed posting against an account. Entries are immutable once persisted.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	AssetType     AssetType       `json:"asset_type"`
	CreatedAt     time.Time       `json:"created_at"`

	// Account is set when the entry is built or loaded together with its account. It is not stored.
	Account *Account `json:"-"`
}

// NormalizeAmount rescales amount to the canonical scale of the asset type. Trailing zero
// fractional digits are dropped first; if significant digits remain beyond the asset's maximum
// the amount is rejected rather than rounded.
func NormalizeAmount(amount decimal.Decimal, assetType AssetType) (decimal.Decimal, error) {
	maxDecimals := assetType.MaxDecimals()
	if !amount.Equal(amount.Truncate(maxDecimals)) {
		return decimal.Decimal{}, NewViolationError([]Violation{precisionViolation(amount, assetType)})
	}
	return amount.Round(maxDecimals), nil
}

// SignificantDecimals is the scale of amount after stripping trailing fractional zeros
func SignificantDecimals(amount decimal.Decimal) int32 {
	var places int32
	for !amount.Equal(amount.Truncate(places)) {
		places++
	}
	return places
}
