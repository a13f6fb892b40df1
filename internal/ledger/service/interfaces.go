// Package service resolves ledger parties and accounts and records balanced transactions.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
)

// AccountSpec identifies an account of the chart by name and classification
type AccountSpec struct {
	Name        string
	AccountType ledger.AccountType
	AssetType   ledger.AssetType
}

// PartyService defines party resolution
type PartyService interface {
	// GetParty returns the party for the owner, creating it on first use
	GetParty(ctx context.Context, partyType ledger.PartyType, ownerID string) (*ledger.Party, error)
}

// AccountService defines account resolution and balance reads
type AccountService interface {
	// GetUserAccount returns the owner's account for spec, creating the party and account on first use.
	// A concurrent first creation is resolved by re-reading the winner's row.
	GetUserAccount(ctx context.Context, ownerID string, spec AccountSpec) (*ledger.Account, error)

	// GetSystemAccount returns the system account for spec, creating it on first use
	GetSystemAccount(ctx context.Context, spec AccountSpec) (*ledger.Account, error)

	// FindUserAccount is the read-only lookup: nil, nil when the owner or the account does not exist yet
	FindUserAccount(ctx context.Context, ownerID string, spec AccountSpec) (*ledger.Account, error)

	// FindSystemAccount returns nil, nil when the system account does not exist yet
	FindSystemAccount(ctx context.Context, spec AccountSpec) (*ledger.Account, error)

	// CountAccountsWithPositiveBalance counts user accounts of spec holding a balance above zero
	CountAccountsWithPositiveBalance(ctx context.Context, spec AccountSpec) (int64, error)

	// GetBalance sums the account's persisted entries
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)

	// GetAccountWithEntries returns the account with its entries loaded.
	// Returns ErrAccountNotFound if the account doesn't exist
	GetAccountWithEntries(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error)
}

// TransactionService defines transaction recording and idempotency lookups
type TransactionService interface {
	// CreateTransaction builds, validates and persists one balanced transaction together with
	// its outbox message
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*ledger.Transaction, error)

	// ExistsByExternalReferenceAndTransactionType reports whether the idempotency key was already recorded
	ExistsByExternalReferenceAndTransactionType(ctx context.Context, externalReference uuid.UUID, transactionType ledger.TransactionType) (bool, error)

	// ExistsByExternalReference reports whether any transaction references the external id
	ExistsByExternalReference(ctx context.Context, externalReference uuid.UUID) (bool, error)

	// GetTransaction returns the transaction with its entries.
	// Returns ErrTransactionNotFound if the transaction doesn't exist
	GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)
}
