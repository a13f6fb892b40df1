package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/domain/outbox"
)

// EntryRequest is one posting of a transaction being created
type EntryRequest struct {
	Account *ledger.Account
	Amount  decimal.Decimal
}

// CreateTransactionRequest describes a transaction to record
type CreateTransactionRequest struct {
	Type              ledger.TransactionType
	TransactionDate   time.Time
	Metadata          map[string]any
	ExternalReference *uuid.UUID
	Entries           []EntryRequest
	// Apply runs first inside the storage transaction that writes the postings. An error
	// from Apply rolls the whole transaction back and nothing is posted.
	Apply func(ctx context.Context, tx ledger.Store) error
}

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	store  ledger.Store
	logger *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(logger *slog.Logger, store ledger.Store) TransactionService {
	return &TransactionServiceImpl{
		store:  store,
		logger: logger,
	}
}

// CreateTransaction rejects invalid transactions before touching storage. The transaction, its
// entries and the outbox message commit together or not at all.
func (s *TransactionServiceImpl) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*ledger.Transaction, error) {
	transaction := ledger.NewTransaction(req.Type, req.TransactionDate, req.ExternalReference, req.Metadata)
	for _, e := range req.Entries {
		if _, err := transaction.AddEntry(e.Account, e.Amount); err != nil {
			s.logger.Warn("Rejected ledger entry",
				"transaction_type", string(req.Type),
				"amount", e.Amount.String(),
				"error", err)
			return nil, err
		}
	}

	if err := ledger.ValidateTransaction(transaction); err != nil {
		s.logger.Warn("Rejected ledger transaction",
			"transaction_type", string(req.Type),
			"error", err)
		return nil, err
	}

	message, err := outbox.NewMessage(transaction.ID, outbox.EventTransactionPosted, transaction)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx ledger.Store) error {
		if req.Apply != nil {
			if err := req.Apply(ctx, tx); err != nil {
				return err
			}
		}
		if err := tx.Transactions().Create(ctx, transaction); err != nil {
			return err
		}
		return tx.Outbox().Create(ctx, message)
	})
	if err != nil {
		s.logger.Error("Failed to record ledger transaction",
			"transaction_id", transaction.ID.String(),
			"transaction_type", string(req.Type),
			"error", err)
		return nil, err
	}

	s.logger.Info("Ledger transaction recorded",
		"transaction_id", transaction.ID.String(),
		"transaction_type", string(req.Type),
		"operation_type", transaction.MetadataString("operationType"),
		"entries", len(transaction.Entries))
	return transaction, nil
}

func (s *TransactionServiceImpl) ExistsByExternalReferenceAndTransactionType(ctx context.Context, externalReference uuid.UUID, transactionType ledger.TransactionType) (bool, error) {
	return s.store.Transactions().ExistsByExternalReferenceAndType(ctx, externalReference, transactionType)
}

func (s *TransactionServiceImpl) ExistsByExternalReference(ctx context.Context, externalReference uuid.UUID) (bool, error) {
	return s.store.Transactions().ExistsByExternalReference(ctx, externalReference)
}

func (s *TransactionServiceImpl) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return s.store.Transactions().GetByID(ctx, id)
}
