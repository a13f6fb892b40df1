package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savings-fund-ledger/internal/domain/ledger"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	store   ledger.Store
	parties PartyService
	logger  *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(logger *slog.Logger, store ledger.Store, parties PartyService) AccountService {
	return &AccountServiceImpl{
		store:   store,
		parties: parties,
		logger:  logger,
	}
}

func (s *AccountServiceImpl) GetUserAccount(ctx context.Context, ownerID string, spec AccountSpec) (*ledger.Account, error) {
	party, err := s.parties.GetParty(ctx, ledger.PartyTypeUser, ownerID)
	if err != nil {
		return nil, err
	}

	accounts := s.store.Accounts()
	return FindOrCreate(ctx,
		func(ctx context.Context) (*ledger.Account, error) {
			return accounts.FindUserAccount(ctx, party.ID, spec.Name)
		},
		func(ctx context.Context) (*ledger.Account, error) {
			account := ledger.NewUserAccount(party, spec.Name, spec.AccountType, spec.AssetType)
			if err := accounts.Create(ctx, account); err != nil {
				return nil, err
			}
			s.logger.Info("User account created",
				"account_id", account.ID.String(),
				"party_id", party.ID.String(),
				"name", spec.Name)
			return account, nil
		},
		s.isDuplicate(spec),
	)
}

func (s *AccountServiceImpl) GetSystemAccount(ctx context.Context, spec AccountSpec) (*ledger.Account, error) {
	accounts := s.store.Accounts()
	return FindOrCreate(ctx,
		func(ctx context.Context) (*ledger.Account, error) {
			return accounts.FindSystemAccount(ctx, spec.Name, spec.AccountType, spec.AssetType)
		},
		func(ctx context.Context) (*ledger.Account, error) {
			account := ledger.NewSystemAccount(spec.Name, spec.AccountType, spec.AssetType)
			if err := accounts.Create(ctx, account); err != nil {
				return nil, err
			}
			s.logger.Info("System account created",
				"account_id", account.ID.String(),
				"name", spec.Name)
			return account, nil
		},
		s.isDuplicate(spec),
	)
}

func (s *AccountServiceImpl) FindUserAccount(ctx context.Context, ownerID string, spec AccountSpec) (*ledger.Account, error) {
	party, err := s.store.Parties().FindByOwner(ctx, ledger.PartyTypeUser, ownerID)
	if err != nil || party == nil {
		return nil, err
	}
	return s.store.Accounts().FindUserAccount(ctx, party.ID, spec.Name)
}

func (s *AccountServiceImpl) FindSystemAccount(ctx context.Context, spec AccountSpec) (*ledger.Account, error) {
	return s.store.Accounts().FindSystemAccount(ctx, spec.Name, spec.AccountType, spec.AssetType)
}

func (s *AccountServiceImpl) isDuplicate(spec AccountSpec) func(error) bool {
	return func(err error) bool {
		if errors.Is(err, ledger.ErrDuplicateAccount) {
			s.logger.Debug("Account created concurrently, re-reading", "name", spec.Name)
			return true
		}
		return false
	}
}

func (s *AccountServiceImpl) CountAccountsWithPositiveBalance(ctx context.Context, spec AccountSpec) (int64, error) {
	return s.store.Accounts().CountWithPositiveBalance(ctx, spec.Name)
}

func (s *AccountServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return s.store.Accounts().Balance(ctx, accountID)
}

func (s *AccountServiceImpl) GetAccountWithEntries(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error) {
	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.Transactions().FindEntriesByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error("Failed to load account entries", "account_id", accountID.String(), "error", err)
		return nil, err
	}
	for _, e := range entries {
		e.Account = account
	}
	account.Entries = entries

	if err := ledger.NewViolationError(ledger.ValidateAccountEntryConsistency(account)); err != nil {
		return nil, err
	}
	return account, nil
}
