// Package outbox_poller drains pending reconciliation events from the
// transactional outbox and publishes them to Kafka.
package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/civic-contracts-ledger/internal/domain/outbox"
	"github.com/civic-contracts-ledger/internal/domain/shared"
	"github.com/civic-contracts-ledger/internal/platform/messaging/producers"
)

// EventPublisher publishes outbox messages to the reconciliation topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent publishes one outbox message to Kafka and marks it processed.
// The event id is the message key, so replays of the same outbox row are
// deduplicated downstream.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal reconciliation event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message", "outbox_id", message.ID, "event_id", message.EventID)

	if err := p.producer.Publish(ctx, message.EventID.String(), event); err != nil {
		logger.Error("Failed to publish reconciliation event", "outbox_id", message.ID, "event_id", message.EventID, "error", err)
		return fmt.Errorf("failed to publish reconciliation event %s: %w", message.EventID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", message.EventID, "error", err,
		)
		return fmt.Errorf("event %s published, but failed to mark outbox %d as PROCESSED: %w", message.EventID, message.ID, err)
	}

	logger.Info("Outbox message successfully published and marked as PROCESSED", "outbox_id", message.ID, "event_id", message.EventID)
	return nil
}
