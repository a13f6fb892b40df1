package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/savings-fund-ledger/internal/domain/ledger"
)

// PartyServiceImpl implements the PartyService interface
type PartyServiceImpl struct {
	store  ledger.Store
	logger *slog.Logger
}

// NewPartyService creates a new party service
func NewPartyService(logger *slog.Logger, store ledger.Store) PartyService {
	return &PartyServiceImpl{
		store:  store,
		logger: logger,
	}
}

// GetParty finds or lazily creates the party of an owner
func (s *PartyServiceImpl) GetParty(ctx context.Context, partyType ledger.PartyType, ownerID string) (*ledger.Party, error) {
	parties := s.store.Parties()
	return FindOrCreate(ctx,
		func(ctx context.Context) (*ledger.Party, error) {
			return parties.FindByOwner(ctx, partyType, ownerID)
		},
		func(ctx context.Context) (*ledger.Party, error) {
			party := ledger.NewParty(partyType, ownerID, nil)
			if err := parties.Create(ctx, party); err != nil {
				return nil, err
			}
			s.logger.Info("Ledger party created",
				"party_id", party.ID.String(),
				"party_type", string(partyType))
			return party, nil
		},
		func(err error) bool {
			if errors.Is(err, ledger.ErrDuplicateParty) {
				s.logger.Debug("Party created concurrently, re-reading", "party_type", string(partyType))
				return true
			}
			return false
		},
	)
}
