package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/civic-contracts-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// ReconciliationEventProducer publishes reconciliation events drained from
// the outbox to the reconciliation topic.
type ReconciliationEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewReconciliationEventProducer creates the outbox poller's producer and
// ensures the topic exists
func NewReconciliationEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ReconciliationEventProducer, error) {
	if cfg.ReconciliationTopic == "" {
		return nil, fmt.Errorf("kafka reconciliation topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for reconciliation producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.ReconciliationTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure reconciliation topic %s exists: %w", cfg.ReconciliationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.ReconciliationTopic,
		Balancer: &kafka.LeastBytes{},
		// Synchronous all-replica acks: an event reported as published must
		// not be lost, otherwise the outbox row is deleted without a reader.
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write reconciliation events", "topic", cfg.ReconciliationTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote reconciliation events", "topic", cfg.ReconciliationTopic, "count", len(messages))
			}
		},
	}

	return &ReconciliationEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ReconciliationTopic,
	}, nil
}

func (p *ReconciliationEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal reconciliation event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish reconciliation event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish reconciliation event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published reconciliation event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *ReconciliationEventProducer) Close() error {
	p.logger.Info("Closing reconciliation event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
