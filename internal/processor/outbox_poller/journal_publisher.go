package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/domain/outbox"
)

// Journal is the audit journal posted transactions are copied to
type Journal interface {
	// Record stores the transaction; recording the same transaction twice is not an error
	Record(ctx context.Context, t *ledger.Transaction) error
}

// JournalPublisher delivers one outbox message to the journal
type JournalPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// ErrUndecodablePayload marks outbox messages that can never be delivered
type ErrUndecodablePayload struct {
	MessageID int64
	Err       error
}

func (e ErrUndecodablePayload) Error() string {
	return fmt.Sprintf("outbox message %d has an undecodable payload: %v", e.MessageID, e.Err)
}

func (e ErrUndecodablePayload) Unwrap() error {
	return e.Err
}

type JournalPublisherImpl struct {
	outboxRepo outbox.Repository
	journal    Journal
	logger     *slog.Logger
}

func NewJournalPublisher(outboxRepo outbox.Repository, journal Journal, logger *slog.Logger) JournalPublisher {
	return &JournalPublisherImpl{
		outboxRepo: outboxRepo,
		journal:    journal,
		logger:     logger,
	}
}

// Publish records the posted transaction in the journal and marks the message processed
func (p *JournalPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	if message.EventType != outbox.EventTransactionPosted {
		p.logger.Warn("Skipping outbox message of unknown event type", "outbox_id", message.ID, "event_type", message.EventType)
		return p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed)
	}

	var tx ledger.Transaction
	if err := message.Decode(&tx); err != nil {
		return ErrUndecodablePayload{MessageID: message.ID, Err: err}
	}

	if err := p.journal.Record(ctx, &tx); err != nil {
		return fmt.Errorf("failed to journal transaction %s: %w", tx.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		return fmt.Errorf("transaction %s journaled, but failed to mark outbox %d as PROCESSED: %w", tx.ID, message.ID, err)
	}

	p.logger.Debug("Journaled ledger transaction", "outbox_id", message.ID, "transaction_id", tx.ID.String())
	return nil
}
