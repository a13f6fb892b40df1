package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is an atomic, balanced group of entries. It is never edited after it is
// persisted; corrections are new offsetting transactions.
type Transaction struct {
	ID                uuid.UUID       `json:"id"`
	Type              TransactionType `json:"transaction_type"`
	TransactionDate   time.Time       `json:"transaction_date"`
	ExternalReference *uuid.UUID      `json:"external_reference,omitempty"`
	Metadata          map[string]any  `json:"metadata"`
	Entries           []*Entry        `json:"entries"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewTransaction creates an empty transaction; entries are attached with AddEntry
func NewTransaction(transactionType TransactionType, transactionDate time.Time, externalReference *uuid.UUID, metadata map[string]any) *Transaction {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Transaction{
		ID:                uuid.New(),
		Type:              transactionType,
		TransactionDate:   transactionDate,
		ExternalReference: externalReference,
		Metadata:          metadata,
		CreatedAt:         time.Now().UTC(),
	}
}

// AddEntry posts amount against account. The entry takes its asset type from the account and
// its amount is normalized to the asset's canonical scale. The entry is appended to both the
// transaction and the account view.
func (t *Transaction) AddEntry(account *Account, amount decimal.Decimal) (*Entry, error) {
	if account == nil {
		return nil, ErrNilAccount
	}

	normalized, err := NormalizeAmount(amount, account.AssetType)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:            uuid.New(),
		TransactionID: t.ID,
		AccountID:     account.ID,
		Amount:        normalized,
		AssetType:     account.AssetType,
		CreatedAt:     t.CreatedAt,
		Account:       account,
	}

	t.Entries = append(t.Entries, entry)
	account.Entries = append(account.Entries, entry)
	return entry, nil
}

// SumByAssetType returns the entry total for every asset type present
func (t *Transaction) SumByAssetType() map[AssetType]decimal.Decimal {
	sums := make(map[AssetType]decimal.Decimal)
	for _, e := range t.Entries {
		sums[e.AssetType] = sums[e.AssetType].Add(e.Amount)
	}
	return sums
}

// MetadataString returns a metadata value as a string, or "" when missing
func (t *Transaction) MetadataString(key string) string {
	v, ok := t.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
