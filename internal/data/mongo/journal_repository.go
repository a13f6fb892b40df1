// Package mongo keeps the audit journal: a read-optimized copy of every posted ledger
// transaction, written by the outbox poller after the ledger commit.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/savings-fund-ledger/internal/domain/ledger"
)

// JournalEntry is one posting inside a journal document
type JournalEntry struct {
	EntryID   string               `bson:"entry_id"`
	AccountID string               `bson:"account_id"`
	AssetType string               `bson:"asset_type"`
	Amount    primitive.Decimal128 `bson:"amount"`
}

// JournalDocument is the journal projection of a ledger transaction
type JournalDocument struct {
	TransactionID     string         `bson:"transaction_id"`
	TransactionType   string         `bson:"transaction_type"`
	TransactionDate   time.Time      `bson:"transaction_date"`
	ExternalReference string         `bson:"external_reference,omitempty"`
	OperationType     string         `bson:"operation_type,omitempty"`
	Metadata          map[string]any `bson:"metadata,omitempty"`
	Entries           []JournalEntry `bson:"entries"`
	AccountIDs        []string       `bson:"account_ids"`
	CreatedAt         time.Time      `bson:"created_at"`
	JournaledAt       time.Time      `bson:"journaled_at"`
}

// NewJournalDocument projects a ledger transaction into its journal form
func NewJournalDocument(t *ledger.Transaction) (*JournalDocument, error) {
	doc := &JournalDocument{
		TransactionID:   t.ID.String(),
		TransactionType: string(t.Type),
		TransactionDate: t.TransactionDate.UTC(),
		OperationType:   t.MetadataString("operationType"),
		Metadata:        t.Metadata,
		CreatedAt:       t.CreatedAt.UTC(),
		JournaledAt:     time.Now().UTC(),
	}
	if t.ExternalReference != nil {
		doc.ExternalReference = t.ExternalReference.String()
	}

	seen := make(map[string]bool)
	for _, e := range t.Entries {
		amount, err := primitive.ParseDecimal128(e.Amount.StringFixed(e.AssetType.MaxDecimals()))
		if err != nil {
			return nil, fmt.Errorf("failed to convert amount %s: %w", e.Amount, err)
		}
		accountID := e.AccountID.String()
		doc.Entries = append(doc.Entries, JournalEntry{
			EntryID:   e.ID.String(),
			AccountID: accountID,
			AssetType: string(e.AssetType),
			Amount:    amount,
		})
		if !seen[accountID] {
			seen[accountID] = true
			doc.AccountIDs = append(doc.AccountIDs, accountID)
		}
	}
	return doc, nil
}

// JournalRepository writes and reads the audit journal collection
type JournalRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

func NewJournalRepository(logger *slog.Logger, collection *mongo.Collection) *JournalRepository {
	return &JournalRepository{
		collection: collection,
		logger:     logger,
	}
}

// EnsureIndexes creates the unique transaction index and the lookup indexes
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "external_reference", Value: 1}}},
		{Keys: bson.D{{Key: "account_ids", Value: 1}, {Key: "transaction_date", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create journal indexes: %w", err)
	}
	return nil
}

// Record upserts the transaction's journal document. Replaying the same transaction leaves
// the existing document untouched.
func (r *JournalRepository) Record(ctx context.Context, t *ledger.Transaction) error {
	doc, err := NewJournalDocument(t)
	if err != nil {
		return err
	}

	filter := bson.M{"transaction_id": doc.TransactionID}
	update := bson.M{"$setOnInsert": doc}
	_, err = r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		r.logger.Error("Failed to record journal document",
			"transaction_id", doc.TransactionID,
			"error", err)
		return fmt.Errorf("failed to record journal document: %w", err)
	}
	return nil
}

// GetByTransactionID returns ledger.ErrTransactionNotFound when the transaction was not journaled yet
func (r *JournalRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*JournalDocument, error) {
	var doc JournalDocument
	err := r.collection.FindOne(ctx, bson.M{"transaction_id": transactionID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrTransactionNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get journal document",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal document: %w", err)
	}
	return &doc, nil
}

// FindByAccount pages through an account's journal, newest first
func (r *JournalRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*JournalDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "transaction_date", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"account_ids": accountID.String()}, opts)
	if err != nil {
		r.logger.Error("Failed to query journal", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*JournalDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode journal documents: %w", err)
	}
	return docs, nil
}
