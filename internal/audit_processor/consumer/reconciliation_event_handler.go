package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/civic-contracts-ledger/internal/audit_processor/service"
	"github.com/civic-contracts-ledger/internal/domain/shared"
	"github.com/civic-contracts-ledger/internal/platform/messaging/producers"
)

// ReconciliationEventHandler handles incoming reconciliation events from Kafka
type ReconciliationEventHandler struct {
	recordingService service.RecordingService
	producer         producers.DeadLetterPublisher
	logger           *slog.Logger
}

// NewReconciliationEventHandler creates a new handler
func NewReconciliationEventHandler(
	logger *slog.Logger,
	recordingService service.RecordingService,
	producer producers.DeadLetterPublisher,
) *ReconciliationEventHandler {
	return &ReconciliationEventHandler{
		recordingService: recordingService,
		producer:         producer,
		logger:           logger,
	}
}

// HandleMessage processes Kafka messages
func (h *ReconciliationEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.ReconciliationEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal reconciliation event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received reconciliation event for recording",
		"event_id", event.EventID.String(),
		"entry_id", event.EntryID.String(),
		"action", string(event.Action),
	)

	if err := h.recordingService.RecordEvent(ctx, &event); err != nil {
		logger.Error("Failed to record reconciliation event",
			"event_id", event.EventID.String(),
			"entry_id", event.EntryID.String(),
			"error", err,
		)
		return fmt.Errorf("recording reconciliation event %s failed: %w", event.EventID.String(), err)
	}

	logger.Info("Successfully recorded reconciliation event", "event_id", event.EventID.String())
	return nil // Success, commit offset
}
