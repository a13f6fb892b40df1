// Package ledger holds the double-entry ledger model: parties own accounts, transactions group
// entries, and every transaction balances to zero per asset type.
package ledger

// PartyType identifies what kind of owner a ledger party represents
type PartyType string

const (
	PartyTypeUser        PartyType = "USER"
	PartyTypeLegalEntity PartyType = "LEGAL_ENTITY"
)

// AccountPurpose separates customer-owned accounts from bookkeeping accounts
type AccountPurpose string

const (
	AccountPurposeUser   AccountPurpose = "USER_ACCOUNT"
	AccountPurposeSystem AccountPurpose = "SYSTEM_ACCOUNT"
)

// AccountType is the accounting classification of an account
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// AssetType is the unit an account and its entries are denominated in
type AssetType string

const (
	AssetTypeEUR      AssetType = "EUR"
	AssetTypeFundUnit AssetType = "FUND_UNIT"
)

// MaxDecimals returns the number of fractional digits an amount of this asset may carry.
// It is also the canonical storage scale.
func (a AssetType) MaxDecimals() int32 {
	switch a {
	case AssetTypeEUR:
		return 2
	case AssetTypeFundUnit:
		return 5
	default:
		return 0
	}
}

// IsValid reports whether the asset type is one the ledger knows about
func (a AssetType) IsValid() bool {
	return a == AssetTypeEUR || a == AssetTypeFundUnit
}

// TransactionType classifies a ledger transaction. Together with the external reference it
// forms the idempotency key callers use to detect duplicate postings.
type TransactionType string

const (
	TransactionTypeTransfer       TransactionType = "TRANSFER"
	TransactionTypeAdjustment     TransactionType = "ADJUSTMENT"
	TransactionTypePositionUpdate TransactionType = "POSITION_UPDATE"
	TransactionTypeFeeAccrual     TransactionType = "FEE_ACCRUAL"
	TransactionTypeFeeSettlement  TransactionType = "FEE_SETTLEMENT"
	TransactionTypeSubscription   TransactionType = "SUBSCRIPTION"
	TransactionTypeRedemption     TransactionType = "REDEMPTION"
)

// IsValid reports whether the transaction type is known
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypeAdjustment, TransactionTypePositionUpdate,
		TransactionTypeFeeAccrual, TransactionTypeFeeSettlement, TransactionTypeSubscription,
		TransactionTypeRedemption:
		return true
	}
	return false
}
