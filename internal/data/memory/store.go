// Package memory is an in-process implementation of the ledger store and payment repository.
// It enforces the same uniqueness and invariant rules as the PostgreSQL schema and backs
// tests and the memory storage driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/domain/outbox"
	"github.com/savings-fund-ledger/internal/domain/payment"
)

// Store implements ledger.Store. Single operations take the lock for their own duration;
// InTx holds the write lock for the whole unit of work and restores a snapshot on error.
type Store struct {
	mu    sync.RWMutex
	state *state
}

var _ ledger.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) Parties() ledger.PartyRepository {
	return &partyRepository{store: s}
}

func (s *Store) Accounts() ledger.AccountRepository {
	return &accountRepository{store: s}
}

func (s *Store) Transactions() ledger.TransactionRepository {
	return &transactionRepository{store: s}
}

func (s *Store) Outbox() outbox.Repository {
	return &outboxRepository{store: s}
}

func (s *Store) Payments() payment.Repository {
	return &paymentRepository{store: s}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// InTx runs fn against a view that shares this store's locked state
func (s *Store) InTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&txView{state: s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) read(fn func(*state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *Store) write(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// txView is the ledger.Store handed to InTx callbacks. The caller already holds the lock.
type txView struct {
	state *state
}

func (v *txView) Parties() ledger.PartyRepository {
	return &partyRepository{store: v}
}

func (v *txView) Accounts() ledger.AccountRepository {
	return &accountRepository{store: v}
}

func (v *txView) Transactions() ledger.TransactionRepository {
	return &transactionRepository{store: v}
}

func (v *txView) Outbox() outbox.Repository {
	return &outboxRepository{store: v}
}

func (v *txView) Payments() payment.Repository {
	return &paymentRepository{store: v}
}

func (v *txView) Ping(context.Context) error {
	return nil
}

func (v *txView) InTx(_ context.Context, fn func(ledger.Store) error) error {
	return fn(v)
}

func (v *txView) read(fn func(*state) error) error {
	return fn(v.state)
}

func (v *txView) write(fn func(*state) error) error {
	return fn(v.state)
}

type accessor interface {
	read(fn func(*state) error) error
	write(fn func(*state) error) error
}

type partyRepository struct {
	store accessor
}

func (r *partyRepository) Create(_ context.Context, party *ledger.Party) error {
	return r.store.write(func(st *state) error {
		key := partyKey{partyType: party.Type, ownerID: party.OwnerID}
		if _, exists := st.parties[key]; exists {
			return fmt.Errorf("%w: %s/%s", ledger.ErrDuplicateParty, party.Type, party.OwnerID)
		}
		st.parties[key] = copyParty(party)
		return nil
	})
}

func (r *partyRepository) FindByOwner(_ context.Context, partyType ledger.PartyType, ownerID string) (*ledger.Party, error) {
	var found *ledger.Party
	err := r.store.read(func(st *state) error {
		if p, ok := st.parties[partyKey{partyType: partyType, ownerID: ownerID}]; ok {
			found = copyParty(p)
		}
		return nil
	})
	return found, err
}

type accountRepository struct {
	store accessor
}

func (r *accountRepository) Create(_ context.Context, account *ledger.Account) error {
	if violations := ledger.ValidateAccountEntryConsistency(account); len(violations) > 0 {
		return ledger.NewViolationError(violations)
	}

	return r.store.write(func(st *state) error {
		if _, exists := st.accounts[account.ID]; exists {
			return fmt.Errorf("%w: %s", ledger.ErrDuplicateAccount, account.ID)
		}

		if account.IsSystem() {
			key := systemAccountKey{name: account.Name, accountType: account.AccountType, assetType: account.AssetType}
			if _, exists := st.systemAccounts[key]; exists {
				return fmt.Errorf("%w: %s", ledger.ErrDuplicateAccount, account.Name)
			}
			st.systemAccounts[key] = account.ID
		} else {
			if account.OwnerID == nil {
				return fmt.Errorf("user account %s has no owner", account.Name)
			}
			key := userAccountKey{ownerID: *account.OwnerID, name: account.Name}
			if _, exists := st.userAccounts[key]; exists {
				return fmt.Errorf("%w: %s", ledger.ErrDuplicateAccount, account.Name)
			}
			st.userAccounts[key] = account.ID
		}

		st.accounts[account.ID] = copyAccount(account)
		return nil
	})
}

func (r *accountRepository) GetByID(_ context.Context, id uuid.UUID) (*ledger.Account, error) {
	var found *ledger.Account
	err := r.store.read(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return ledger.ErrAccountNotFound{AccountID: id}
		}
		found = copyAccount(a)
		return nil
	})
	return found, err
}

func (r *accountRepository) FindUserAccount(_ context.Context, ownerID uuid.UUID, name string) (*ledger.Account, error) {
	var found *ledger.Account
	err := r.store.read(func(st *state) error {
		if id, ok := st.userAccounts[userAccountKey{ownerID: ownerID, name: name}]; ok {
			found = copyAccount(st.accounts[id])
		}
		return nil
	})
	return found, err
}

func (r *accountRepository) FindSystemAccount(_ context.Context, name string, accountType ledger.AccountType, assetType ledger.AssetType) (*ledger.Account, error) {
	var found *ledger.Account
	err := r.store.read(func(st *state) error {
		key := systemAccountKey{name: name, accountType: accountType, assetType: assetType}
		if id, ok := st.systemAccounts[key]; ok {
			found = copyAccount(st.accounts[id])
		}
		return nil
	})
	return found, err
}

func (r *accountRepository) Balance(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := r.store.read(func(st *state) error {
		for _, e := range st.entries {
			if e.AccountID == id {
				balance = balance.Add(e.Amount)
			}
		}
		return nil
	})
	return balance, err
}

func (r *accountRepository) CountWithPositiveBalance(_ context.Context, name string) (int64, error) {
	var count int64
	err := r.store.read(func(st *state) error {
		balances := make(map[uuid.UUID]decimal.Decimal)
		for _, e := range st.entries {
			a := st.accounts[e.AccountID]
			if a.IsSystem() || a.Name != name {
				continue
			}
			balances[e.AccountID] = balances[e.AccountID].Add(e.Amount)
		}
		for _, b := range balances {
			if b.IsPositive() {
				count++
			}
		}
		return nil
	})
	return count, err
}

type transactionRepository struct {
	store accessor
}

// Create applies the same checks as the schema: entries must reference existing accounts of
// the same asset type, and the transaction must pass every validator.
func (r *transactionRepository) Create(_ context.Context, transaction *ledger.Transaction) error {
	if err := ledger.ValidateTransaction(transaction); err != nil {
		return err
	}

	return r.store.write(func(st *state) error {
		if _, exists := st.transactions[transaction.ID]; exists {
			return fmt.Errorf("transaction %s already exists", transaction.ID)
		}

		var violations []ledger.Violation
		for _, e := range transaction.Entries {
			account, ok := st.accounts[e.AccountID]
			if !ok {
				return ledger.ErrAccountNotFound{AccountID: e.AccountID}
			}
			violations = append(violations, ledger.ValidateEntryAccountConsistency(&ledger.Entry{
				AssetType: e.AssetType,
				Account:   account,
			})...)
		}
		if err := ledger.NewViolationError(violations); err != nil {
			return err
		}

		st.transactions[transaction.ID] = copyTransaction(transaction)
		for _, e := range transaction.Entries {
			st.entries = append(st.entries, copyEntry(e))
		}
		return nil
	})
}

func (r *transactionRepository) GetByID(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var found *ledger.Transaction
	err := r.store.read(func(st *state) error {
		t, ok := st.transactions[id]
		if !ok {
			return ledger.ErrTransactionNotFound{TransactionID: id}
		}
		found = copyTransaction(t)
		found.Entries = filterEntries(st.entries, func(e *ledger.Entry) bool { return e.TransactionID == id })
		return nil
	})
	return found, err
}

func (r *transactionRepository) FindEntriesByAccount(_ context.Context, accountID uuid.UUID) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	err := r.store.read(func(st *state) error {
		entries = filterEntries(st.entries, func(e *ledger.Entry) bool { return e.AccountID == accountID })
		return nil
	})
	return entries, err
}

func (r *transactionRepository) FindEntriesByTransaction(_ context.Context, transactionID uuid.UUID) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	err := r.store.read(func(st *state) error {
		entries = filterEntries(st.entries, func(e *ledger.Entry) bool { return e.TransactionID == transactionID })
		return nil
	})
	return entries, err
}

func (r *transactionRepository) ExistsByExternalReference(_ context.Context, externalReference uuid.UUID) (bool, error) {
	return r.exists(func(t *ledger.Transaction) bool {
		return t.ExternalReference != nil && *t.ExternalReference == externalReference
	})
}

func (r *transactionRepository) ExistsByExternalReferenceAndType(_ context.Context, externalReference uuid.UUID, transactionType ledger.TransactionType) (bool, error) {
	return r.exists(func(t *ledger.Transaction) bool {
		return t.ExternalReference != nil && *t.ExternalReference == externalReference && t.Type == transactionType
	})
}

func (r *transactionRepository) exists(match func(*ledger.Transaction) bool) (bool, error) {
	var found bool
	err := r.store.read(func(st *state) error {
		for _, t := range st.transactions {
			if match(t) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// filterEntries returns copies in insertion order, which is creation order
func filterEntries(entries []*ledger.Entry, keep func(*ledger.Entry) bool) []*ledger.Entry {
	var result []*ledger.Entry
	for _, e := range entries {
		if keep(e) {
			result = append(result, copyEntry(e))
		}
	}
	return result
}

type outboxRepository struct {
	store accessor
}

func (r *outboxRepository) Create(_ context.Context, message *outbox.Message) error {
	return r.store.write(func(st *state) error {
		st.nextOutboxID++
		message.ID = st.nextOutboxID
		copied := *message
		st.outbox = append(st.outbox, &copied)
		return nil
	})
}

func (r *outboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	var messages []*outbox.Message
	err := r.store.read(func(st *state) error {
		for _, m := range st.outbox {
			if m.Status != outbox.StatusPending {
				continue
			}
			copied := *m
			messages = append(messages, &copied)
		}
		return nil
	})
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].CreatedAt.Before(messages[j].CreatedAt) })
	if len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, err
}

func (r *outboxRepository) UpdateStatus(_ context.Context, id int64, status outbox.Status) error {
	return r.update(id, func(m *outbox.Message) {
		switch status {
		case outbox.StatusProcessed:
			m.MarkAsProcessed()
		case outbox.StatusFailedToPublish:
			m.MarkAsFailed()
		default:
			m.Status = status
		}
	})
}

func (r *outboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	return r.update(id, func(m *outbox.Message) { m.IncrementAttempts() })
}

func (r *outboxRepository) GetByTransactionID(_ context.Context, transactionID uuid.UUID) (*outbox.Message, error) {
	var found *outbox.Message
	err := r.store.read(func(st *state) error {
		for _, m := range st.outbox {
			if m.TransactionID == transactionID {
				copied := *m
				found = &copied
				return nil
			}
		}
		return outbox.ErrMessageNotFound{}
	})
	return found, err
}

func (r *outboxRepository) update(id int64, fn func(*outbox.Message)) error {
	return r.store.write(func(st *state) error {
		for _, m := range st.outbox {
			if m.ID == id {
				fn(m)
				return nil
			}
		}
		return outbox.ErrMessageNotFound{ID: id}
	})
}
