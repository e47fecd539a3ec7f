package outbox

import (
	"testing"
	"time"

	"github.com/civic-contracts-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent() *shared.ReconciliationEvent {
	return &shared.ReconciliationEvent{
		EventID:        uuid.New(),
		Action:         shared.ActionCommitted,
		OrganizationID: uuid.New(),
		EntryID:        uuid.New(),
		TransactionIDs: []uuid.UUID{uuid.New(), uuid.New()},
		OccurredAt:     time.Now().UTC(),
	}
}

func TestNewMessage(t *testing.T) {
	event := newTestEvent()

	msg, err := NewMessage(event)
	require.NoError(t, err)

	assert.Equal(t, event.EventID, msg.EventID)
	assert.Equal(t, event.EntryID, msg.EntryID)
	assert.Equal(t, shared.OutboxStatusPending, msg.Status)
	assert.Zero(t, msg.Attempts)
	assert.Nil(t, msg.LastAttemptAt)

	decoded, err := msg.GetEvent()
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, event.Action, decoded.Action)
	assert.Equal(t, event.TransactionIDs, decoded.TransactionIDs)
}

func TestMessage_StateTransitions(t *testing.T) {
	msg, err := NewMessage(newTestEvent())
	require.NoError(t, err)

	msg.IncrementAttempts()
	assert.Equal(t, 1, msg.Attempts)
	assert.NotNil(t, msg.LastAttemptAt)

	msg.MarkAsProcessed()
	assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)

	msg.MarkAsFailed()
	assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)
}

func TestMessage_GetEvent_InvalidPayload(t *testing.T) {
	msg := &Message{Payload: []byte("not json")}
	_, err := msg.GetEvent()
	assert.Error(t, err)
}
