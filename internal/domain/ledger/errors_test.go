package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestViolationError(t *testing.T) {
	assert.NoError(t, NewViolationError(nil))

	err := NewViolationError([]Violation{
		{Kind: ViolationTooFewEntries, Message: "transaction must have at least 2 entries, found 1"},
		{Kind: ViolationUnbalanced, Message: "transaction does not balance"},
	})
	assert.EqualError(t, err, "ledger invariant violation: transaction must have at least 2 entries, found 1; transaction does not balance")
	assert.ErrorIs(t, fmt.Errorf("failed to create transaction: %w", err), ErrInvariantViolation)
}

func TestNotFoundErrors(t *testing.T) {
	id := uuid.New()

	err := fmt.Errorf("lookup: %w", ErrAccountNotFound{AccountID: id})
	assert.True(t, errors.Is(err, ErrAccountNotFound{}))
	assert.True(t, errors.Is(err, ErrAccountNotFound{AccountID: id}))
	assert.False(t, errors.Is(err, ErrAccountNotFound{AccountID: uuid.New()}))

	txErr := ErrTransactionNotFound{TransactionID: id}
	assert.True(t, errors.Is(txErr, ErrTransactionNotFound{}))
	assert.Contains(t, txErr.Error(), id.String())

	partyErr := ErrPartyNotFound{PartyType: PartyTypeUser, OwnerID: "38812121215"}
	assert.Equal(t, "ledger party not found: USER/38812121215", partyErr.Error())
}
