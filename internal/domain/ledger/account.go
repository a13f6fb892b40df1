package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a ledger account. Its balance is always derived from its entries; Entries is a
// read view loaded from storage, never the authoritative record.
type Account struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Purpose     AccountPurpose `json:"purpose"`
	AccountType AccountType    `json:"account_type"`
	AssetType   AssetType      `json:"asset_type"`
	OwnerID     *uuid.UUID     `json:"owner_id,omitempty"` // nil only for system accounts
	CreatedAt   time.Time      `json:"created_at"`
	Entries     []*Entry       `json:"-"`
}

// NewUserAccount creates an account owned by the given party
func NewUserAccount(owner *Party, name string, accountType AccountType, assetType AssetType) *Account {
	ownerID := owner.ID
	return &Account{
		ID:          uuid.New(),
		Name:        name,
		Purpose:     AccountPurposeUser,
		AccountType: accountType,
		AssetType:   assetType,
		OwnerID:     &ownerID,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewSystemAccount creates an ownerless bookkeeping account
func NewSystemAccount(name string, accountType AccountType, assetType AssetType) *Account {
	return &Account{
		ID:          uuid.New(),
		Name:        name,
		Purpose:     AccountPurposeSystem,
		AccountType: accountType,
		AssetType:   assetType,
		CreatedAt:   time.Now().UTC(),
	}
}

// IsSystem reports whether the account has no individual owner
func (a *Account) IsSystem() bool {
	return a.Purpose == AccountPurposeSystem
}

// Balance sums the loaded entries
func (a *Account) Balance() decimal.Decimal {
	return Balance(a.Entries)
}

// Balance is the left fold of the entries' amounts with addition, seeded with zero
func Balance(entries []*Entry) decimal.Decimal {
	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.Amount)
	}
	return balance
}
