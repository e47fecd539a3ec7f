// Package mongo provides the MongoDB implementation of the audit trail
// repository.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civic-contracts-ledger/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "reconciliation_audit"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new audit record after checking for duplicates.
// Returns ErrDuplicateRecord if the event was already recorded, which lets
// the consumer treat Kafka redeliveries as a no-op.
func (r *AuditRepository) Create(ctx context.Context, record *audit.Record) error {
	collection := r.db.Collection(AuditCollectionName)

	existing, err := r.GetByEventID(ctx, record.EventID)
	if err != nil && !errors.Is(err, audit.ErrRecordNotFound{}) {
		r.logger.Error("Failed to check for existing audit record",
			"event_id", record.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing audit record: %w", err)
	}

	if existing != nil {
		return audit.ErrDuplicateRecord{EventID: record.EventID}
	}

	_, err = collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to create audit record",
			"event_id", record.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to create audit record: %w", err)
	}

	return nil
}

// GetByEventID retrieves an audit record by its event ID.
// Returns ErrRecordNotFound if no record exists for the given event.
func (r *AuditRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"event_id": eventID}
	var record audit.Record
	err := collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, audit.ErrRecordNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get audit record",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}

	return &record, nil
}

// ListByEntryID retrieves the audit history of one ledger entry.
// Results are sorted by occurrence time in descending order (newest first).
func (r *AuditRepository) ListByEntryID(ctx context.Context, orgID, entryID uuid.UUID, limit, offset int) ([]*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"organization_id": orgID, "entry_id": entryID}
	opts := options.Find().
		SetSort(bson.M{"occurred_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	return r.find(ctx, collection, filter, opts)
}

// ListByOrganization retrieves an organization's audit trail, newest first
func (r *AuditRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"organization_id": orgID}
	opts := options.Find().
		SetSort(bson.M{"occurred_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	return r.find(ctx, collection, filter, opts)
}

func (r *AuditRepository) find(ctx context.Context, collection *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]*audit.Record, error) {
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit records", "error", err)
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode audit records", "error", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}
