package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/savings-fund-ledger/internal/domain/event"
	"github.com/savings-fund-ledger/internal/platform/messaging/producers"
	"github.com/savings-fund-ledger/internal/processor/service"
)

// LedgerEventHandler decodes ledger events from Kafka and hands them to the processing service
type LedgerEventHandler struct {
	processingService service.ProcessingService
	dlq               producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewLedgerEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	dlq producers.DeadLetterPublisher,
) *LedgerEventHandler {
	return &LedgerEventHandler{
		processingService: processingService,
		dlq:               dlq,
		logger:            logger,
	}
}

// HandleMessage returns nil when the offset may be committed. Undecodable messages are parked on
// the dead letter topic; if that fails too the error is returned so the message is redelivered.
func (h *LedgerEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var e event.LedgerEvent
	if err := json.Unmarshal(value, &e); err != nil {
		h.logger.Error("Failed to unmarshal ledger event", "error", err, "message_key", string(key))

		reason := fmt.Sprintf("undecodable ledger event: %s", err.Error())
		if dlqErr := h.dlq.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to publish undecodable message to DLQ",
				"dlq_error", dlqErr,
				"original_error", err,
				"message_key", string(key),
			)
			return fmt.Errorf("failed to unmarshal message value: %w", err)
		}
		return nil
	}

	logger := h.logger
	if e.CorrelationID != "" {
		logger = h.logger.With("correlation_id", e.CorrelationID)
	}

	if err := h.processingService.ProcessEvent(ctx, &e); err != nil {
		logger.Error("Failed to process ledger event",
			"event_id", e.EventID.String(),
			"event_type", string(e.EventType),
			"error", err,
		)
		return fmt.Errorf("processing ledger event %s failed: %w", e.EventID.String(), err)
	}
	return nil
}
