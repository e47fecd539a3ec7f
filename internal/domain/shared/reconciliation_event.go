package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventAction defines the reconciliation state transitions published downstream
type EventAction string

const (
	ActionCommitted EventAction = "reconciliation.committed"
	ActionReversed  EventAction = "reconciliation.reversed"
)

// ReconciliationEvent is the Kafka message emitted after a reconciliation
// commit or reversal. It is written to the outbox in the same database
// transaction as the state change and consumed by the audit processor.
type ReconciliationEvent struct {
	EventID         uuid.UUID   `json:"event_id"`
	Action          EventAction `json:"action"`
	OrganizationID  uuid.UUID   `json:"organization_id"`
	EntryID         uuid.UUID   `json:"entry_id"`
	RelatedEntryIDs []uuid.UUID `json:"related_entry_ids,omitempty"`
	TransactionIDs  []uuid.UUID `json:"transaction_ids,omitempty"`
	Liquidation     *time.Time  `json:"liquidation,omitempty"`
	CorrelationID   string      `json:"correlation_id,omitempty"`
	OccurredAt      time.Time   `json:"occurred_at"`
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
