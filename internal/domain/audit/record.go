// Package audit defines the immutable trail of reconciliation actions kept
// for municipal oversight. Records are written by the audit processor from
// consumed reconciliation events.
package audit

import (
	"context"
	"time"

	"github.com/civic-contracts-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Record is one audit trail document: a reconciliation action as it was
// published, with ingestion metadata.
type Record struct {
	EventID         uuid.UUID          `bson:"event_id" json:"event_id"`
	Action          shared.EventAction `bson:"action" json:"action"`
	OrganizationID  uuid.UUID          `bson:"organization_id" json:"organization_id"`
	EntryID         uuid.UUID          `bson:"entry_id" json:"entry_id"`
	RelatedEntryIDs []uuid.UUID        `bson:"related_entry_ids,omitempty" json:"related_entry_ids,omitempty"`
	TransactionIDs  []uuid.UUID        `bson:"transaction_ids,omitempty" json:"transaction_ids,omitempty"`
	Liquidation     *time.Time         `bson:"liquidation,omitempty" json:"liquidation,omitempty"`
	CorrelationID   string             `bson:"correlation_id,omitempty" json:"correlation_id,omitempty"`
	OccurredAt      time.Time          `bson:"occurred_at" json:"occurred_at"`
	RecordedAt      time.Time          `bson:"recorded_at" json:"recorded_at"`
}

// NewRecord builds an audit record from a consumed reconciliation event
func NewRecord(event *shared.ReconciliationEvent) *Record {
	return &Record{
		EventID:         event.EventID,
		Action:          event.Action,
		OrganizationID:  event.OrganizationID,
		EntryID:         event.EntryID,
		RelatedEntryIDs: event.RelatedEntryIDs,
		TransactionIDs:  event.TransactionIDs,
		Liquidation:     event.Liquidation,
		CorrelationID:   event.CorrelationID,
		OccurredAt:      event.OccurredAt,
		RecordedAt:      time.Now().UTC(),
	}
}

// Repository persists audit records. Writes are idempotent on event id so a
// redelivered Kafka message never produces a second document.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*Record, error)
	ListByEntryID(ctx context.Context, orgID, entryID uuid.UUID, limit, offset int) ([]*Record, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Record, error)
}

// ErrRecordNotFound indicates missing audit record
type ErrRecordNotFound struct {
	EventID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "audit record not found: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}

// ErrDuplicateRecord indicates an event that was already recorded
type ErrDuplicateRecord struct {
	EventID uuid.UUID
}

func (e ErrDuplicateRecord) Error() string {
	return "audit record already exists: " + e.EventID.String()
}
