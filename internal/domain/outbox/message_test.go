package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Amount        string    `json:"amount"`
}

func TestNewMessage(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		txID := uuid.New()
		payload := testPayload{TransactionID: txID, Amount: "100.00"}

		beforeCreation := time.Now()
		msg, err := NewMessage(txID, EventTransactionPosted, payload)
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, msg)

		assert.Equal(t, txID, msg.TransactionID)
		assert.Equal(t, EventTransactionPosted, msg.EventType)
		assert.Equal(t, StatusPending, msg.Status)
		assert.Equal(t, 0, msg.Attempts)
		assert.Nil(t, msg.LastAttemptAt)
		assert.WithinDuration(t, beforeCreation, msg.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)

		var decoded testPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, payload, decoded)
	})

	t.Run("UnmarshalablePayload", func(t *testing.T) {
		msg, err := NewMessage(uuid.New(), EventTransactionPosted, make(chan int))
		assert.Error(t, err)
		assert.Nil(t, msg)
	})
}

func TestMessage_IncrementAttempts(t *testing.T) {
	initialTime := time.Now().Add(-time.Hour)
	msg := &Message{Attempts: 1, LastAttemptAt: &initialTime}

	msg.IncrementAttempts()

	assert.Equal(t, 2, msg.Attempts)
	require.NotNil(t, msg.LastAttemptAt)
	assert.True(t, msg.LastAttemptAt.After(initialTime))
}

func TestMessage_StatusTransitions(t *testing.T) {
	t.Run("MarkAsProcessed", func(t *testing.T) {
		msg := &Message{Status: StatusPending}
		msg.MarkAsProcessed()
		assert.Equal(t, StatusProcessed, msg.Status)
		assert.NotNil(t, msg.LastAttemptAt)
	})

	t.Run("MarkAsFailed", func(t *testing.T) {
		msg := &Message{Status: StatusPending}
		msg.MarkAsFailed()
		assert.Equal(t, StatusFailedToPublish, msg.Status)
		assert.NotNil(t, msg.LastAttemptAt)
	})
}

func TestMessage_Decode(t *testing.T) {
	txID := uuid.New()
	msg := &Message{Payload: json.RawMessage(`{"transaction_id":"` + txID.String() + `","amount":"5.00"}`)}

	var decoded testPayload
	require.NoError(t, msg.Decode(&decoded))
	assert.Equal(t, txID, decoded.TransactionID)
	assert.Equal(t, "5.00", decoded.Amount)
}
