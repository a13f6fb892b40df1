package memory

import (
	"github.com/google/uuid"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/domain/outbox"
	"github.com/savings-fund-ledger/internal/domain/payment"
)

type partyKey struct {
	partyType ledger.PartyType
	ownerID   string
}

type userAccountKey struct {
	ownerID uuid.UUID
	name    string
}

type systemAccountKey struct {
	name        string
	accountType ledger.AccountType
	assetType   ledger.AssetType
}

// state is everything the store holds. It is cloned before a write transaction and restored
// when the transaction fails.
type state struct {
	parties        map[partyKey]*ledger.Party
	accounts       map[uuid.UUID]*ledger.Account
	userAccounts   map[userAccountKey]uuid.UUID
	systemAccounts map[systemAccountKey]uuid.UUID
	transactions   map[uuid.UUID]*ledger.Transaction
	entries        []*ledger.Entry
	outbox         []*outbox.Message
	nextOutboxID   int64
	payments       map[uuid.UUID]*payment.Payment
}

func newState() *state {
	return &state{
		parties:        make(map[partyKey]*ledger.Party),
		accounts:       make(map[uuid.UUID]*ledger.Account),
		userAccounts:   make(map[userAccountKey]uuid.UUID),
		systemAccounts: make(map[systemAccountKey]uuid.UUID),
		transactions:   make(map[uuid.UUID]*ledger.Transaction),
		payments:       make(map[uuid.UUID]*payment.Payment),
	}
}

// clone copies the indexes; stored rows are never mutated in place except outbox messages,
// which are copied too. Payments are replaced on every status change.
func (s *state) clone() *state {
	c := &state{
		parties:        make(map[partyKey]*ledger.Party, len(s.parties)),
		accounts:       make(map[uuid.UUID]*ledger.Account, len(s.accounts)),
		userAccounts:   make(map[userAccountKey]uuid.UUID, len(s.userAccounts)),
		systemAccounts: make(map[systemAccountKey]uuid.UUID, len(s.systemAccounts)),
		transactions:   make(map[uuid.UUID]*ledger.Transaction, len(s.transactions)),
		entries:        append([]*ledger.Entry(nil), s.entries...),
		outbox:         make([]*outbox.Message, len(s.outbox)),
		nextOutboxID:   s.nextOutboxID,
		payments:       make(map[uuid.UUID]*payment.Payment, len(s.payments)),
	}
	for k, v := range s.parties {
		c.parties[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.userAccounts {
		c.userAccounts[k] = v
	}
	for k, v := range s.systemAccounts {
		c.systemAccounts[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for i, m := range s.outbox {
		copied := *m
		c.outbox[i] = &copied
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

func copyParty(p *ledger.Party) *ledger.Party {
	c := *p
	if p.Details != nil {
		c.Details = make(map[string]any, len(p.Details))
		for k, v := range p.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// copyAccount drops the loaded entry view; entries are stored separately
func copyAccount(a *ledger.Account) *ledger.Account {
	c := *a
	c.Entries = nil
	if a.OwnerID != nil {
		ownerID := *a.OwnerID
		c.OwnerID = &ownerID
	}
	return &c
}

func copyEntry(e *ledger.Entry) *ledger.Entry {
	c := *e
	c.Account = nil
	return &c
}

func copyTransaction(t *ledger.Transaction) *ledger.Transaction {
	c := *t
	c.Entries = nil
	c.Metadata = make(map[string]any, len(t.Metadata))
	for k, v := range t.Metadata {
		c.Metadata[k] = v
	}
	if t.ExternalReference != nil {
		ref := *t.ExternalReference
		c.ExternalReference = &ref
	}
	return &c
}
