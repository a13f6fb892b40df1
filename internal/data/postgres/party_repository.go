package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/platform/persistence"
)

// PartyRepository implements ledger.PartyRepository for PostgreSQL
type PartyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewPartyRepository(logger *slog.Logger, querier persistence.Querier) *PartyRepository {
	return &PartyRepository{querier: querier, logger: logger}
}

// WithTx returns a repository bound to tx
func (r *PartyRepository) WithTx(tx pgx.Tx) *PartyRepository {
	return &PartyRepository{querier: tx, logger: r.logger}
}

// Create inserts the party. A concurrent insert of the same (type, owner) yields ErrDuplicateParty.
func (r *PartyRepository) Create(ctx context.Context, party *ledger.Party) error {
	query := `
		INSERT INTO ledger_party (id, party_type, owner_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	details := party.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal party details: %w", err)
	}

	_, err = r.querier.Exec(ctx, query, party.ID, party.Type, party.OwnerID, detailsJSON, party.CreatedAt)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s/%s", ledger.ErrDuplicateParty, party.Type, party.OwnerID)
		}
		r.logger.Error("Failed to create party", "owner_id", party.OwnerID, "error", err)
		return fmt.Errorf("failed to create party: %w", err)
	}
	return nil
}

// FindByOwner returns nil, nil when the owner has no party yet
func (r *PartyRepository) FindByOwner(ctx context.Context, partyType ledger.PartyType, ownerID string) (*ledger.Party, error) {
	query := `
		SELECT id, party_type, owner_id, details, created_at
		FROM ledger_party
		WHERE party_type = $1 AND owner_id = $2
	`

	var party ledger.Party
	var details []byte
	err := r.querier.QueryRow(ctx, query, partyType, ownerID).Scan(
		&party.ID,
		&party.Type,
		&party.OwnerID,
		&details,
		&party.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find party", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to find party: %w", err)
	}

	if len(details) > 0 {
		if err := json.Unmarshal(details, &party.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal party details: %w", err)
		}
	}
	return &party, nil
}
