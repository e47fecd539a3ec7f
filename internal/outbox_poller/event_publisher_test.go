package outbox_poller

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/civic-contracts-ledger/internal/domain/outbox"
	"github.com/civic-contracts-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMessagePublisher mocks producers.MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestEventPublisher_PublishEvent(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("success", func(t *testing.T) {
		outboxRepo := &MockOutboxRepo{}
		producer := &MockMessagePublisher{}
		publisher := NewEventPublisher(outboxRepo, producer, logger)

		msg := pendingMessage(t, 0)
		event, err := msg.GetEvent()
		require.NoError(t, err)

		producer.On("Publish", ctx, msg.EventID.String(), event).Return(nil)
		outboxRepo.On("UpdateStatus", ctx, msg.ID, shared.OutboxStatusProcessed).Return(nil)

		err = publisher.PublishEvent(ctx, msg)
		require.NoError(t, err)
		producer.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("malformed payload marks message failed", func(t *testing.T) {
		outboxRepo := &MockOutboxRepo{}
		producer := &MockMessagePublisher{}
		publisher := NewEventPublisher(outboxRepo, producer, logger)

		msg := &outbox.Message{
			ID:        7,
			EventID:   uuid.New(),
			EntryID:   uuid.New(),
			Payload:   []byte("not-json"),
			Status:    shared.OutboxStatusPending,
			CreatedAt: time.Now(),
		}
		outboxRepo.On("UpdateStatus", ctx, msg.ID, shared.OutboxStatusFailedToPublish).Return(nil)

		err := publisher.PublishEvent(ctx, msg)
		assert.Error(t, err)
		producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("publish failure leaves message pending", func(t *testing.T) {
		outboxRepo := &MockOutboxRepo{}
		producer := &MockMessagePublisher{}
		publisher := NewEventPublisher(outboxRepo, producer, logger)

		msg := pendingMessage(t, 0)
		kafkaErr := errors.New("kafka down")
		producer.On("Publish", ctx, msg.EventID.String(), mock.Anything).Return(kafkaErr)

		err := publisher.PublishEvent(ctx, msg)
		assert.ErrorIs(t, err, kafkaErr)
		outboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("status update failure is reported", func(t *testing.T) {
		outboxRepo := &MockOutboxRepo{}
		producer := &MockMessagePublisher{}
		publisher := NewEventPublisher(outboxRepo, producer, logger)

		msg := pendingMessage(t, 0)
		updateErr := errors.New("db down")
		producer.On("Publish", ctx, msg.EventID.String(), mock.Anything).Return(nil)
		outboxRepo.On("UpdateStatus", ctx, msg.ID, shared.OutboxStatusProcessed).Return(updateErr)

		err := publisher.PublishEvent(ctx, msg)
		assert.ErrorIs(t, err, updateErr)
	})
}
