package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Party is the identity that owns user accounts. A party is unique per (Type, OwnerID) and is
// created lazily the first time its owner touches the ledger.
type Party struct {
	ID        uuid.UUID      `json:"id"`
	Type      PartyType      `json:"type"`
	OwnerID   string         `json:"owner_id"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewParty creates a party for the given owner identity
func NewParty(partyType PartyType, ownerID string, details map[string]any) *Party {
	return &Party{
		ID:        uuid.New(),
		Type:      partyType,
		OwnerID:   ownerID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}
