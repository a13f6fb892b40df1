package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/domain/outbox"
	"github.com/savings-fund-ledger/internal/domain/payment"
	"github.com/savings-fund-ledger/internal/platform/persistence"
)

// DB is the connection pool the store runs on
type DB interface {
	persistence.TxBeginner
	Ping(ctx context.Context) error
}

// Store implements ledger.Store on PostgreSQL. A store returned inside InTx shares one pgx.Tx
// across all of its repositories.
type Store struct {
	db           DB
	tx           pgx.Tx
	logger       *slog.Logger
	parties      *PartyRepository
	accounts     *AccountRepository
	transactions *TransactionRepository
	outbox       *OutboxRepository
	payments     *PaymentRepository
}

var _ ledger.Store = (*Store)(nil)

func NewStore(logger *slog.Logger, db DB) *Store {
	return &Store{
		db:           db,
		logger:       logger,
		parties:      NewPartyRepository(logger, db),
		accounts:     NewAccountRepository(logger, db),
		transactions: NewTransactionRepository(logger, db),
		outbox:       NewOutboxRepository(logger, db),
		payments:     NewPaymentRepository(logger, db),
	}
}

func (s *Store) Parties() ledger.PartyRepository { return s.parties }
func (s *Store) Accounts() ledger.AccountRepository { return s.accounts }
func (s *Store) Transactions() ledger.TransactionRepository { return s.transactions }
func (s *Store) Outbox() outbox.Repository { return s.outbox }
func (s *Store) Payments() payment.Repository { return s.payments }
func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

// InTx runs fn in one database transaction. Nested calls join the outer transaction.
// Invariant failures raised by the schema at commit are returned as ledger violations.
func (s *Store) InTx(ctx context.Context, fn func(ledger.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	err := persistence.ExecuteTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(s.withTx(tx))
	})
	return integrityError(err)
}

func (s *Store) withTx(tx pgx.Tx) *Store {
	return &Store{
		db:           s.db,
		tx:           tx,
		logger:       s.logger,
		parties:      s.parties.WithTx(tx),
		accounts:     s.accounts.WithTx(tx),
		transactions: s.transactions.WithTx(tx),
		outbox:       s.outbox.WithTx(tx),
		payments:     s.payments.WithTx(tx),
	}
}
