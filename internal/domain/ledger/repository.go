package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/outbox"
	"github.com/savings-fund-ledger/internal/domain/payment"
)

// PartyRepository persists ledger parties
type PartyRepository interface {
	// Create returns ErrDuplicateParty when (type, owner) already exists
	Create(ctx context.Context, party *Party) error
	// FindByOwner returns nil, nil when no party exists
	FindByOwner(ctx context.Context, partyType PartyType, ownerID string) (*Party, error)
}

// AccountRepository persists ledger accounts. Entries are never stored through it.
type AccountRepository interface {
	// Create returns ErrDuplicateAccount when the account's natural key already exists
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// FindUserAccount returns nil, nil when the owner has no account with that name
	FindUserAccount(ctx context.Context, ownerID uuid.UUID, name string) (*Account, error)
	// FindSystemAccount returns nil, nil when no such system account exists
	FindSystemAccount(ctx context.Context, name string, accountType AccountType, assetType AssetType) (*Account, error)
	// Balance sums the account's entries at read time
	Balance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	// CountWithPositiveBalance counts user accounts named name whose balance is above zero
	CountWithPositiveBalance(ctx context.Context, name string) (int64, error)
}

// TransactionRepository persists transactions together with their entries
type TransactionRepository interface {
	// Create validates and stores the transaction and all of its entries atomically
	Create(ctx context.Context, transaction *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	FindEntriesByAccount(ctx context.Context, accountID uuid.UUID) ([]*Entry, error)
	FindEntriesByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*Entry, error)
	ExistsByExternalReference(ctx context.Context, externalReference uuid.UUID) (bool, error)
	ExistsByExternalReferenceAndType(ctx context.Context, externalReference uuid.UUID, transactionType TransactionType) (bool, error)
}

// Store groups the repositories that must change together. InTx runs fn against a Store bound
// to one storage transaction; fn returning an error rolls everything back. Payments live in the
// same store so a payment's status change commits together with its postings.
type Store interface {
	Parties() PartyRepository
	Accounts() AccountRepository
	Transactions() TransactionRepository
	Outbox() outbox.Repository
	Payments() payment.Repository
	InTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}
