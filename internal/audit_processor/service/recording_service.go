package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civic-contracts-ledger/internal/domain/audit"
	"github.com/civic-contracts-ledger/internal/domain/shared"
)

// AuditRecordingService implements the RecordingService interface
type AuditRecordingService struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

// NewAuditRecordingService creates a new audit recording service
func NewAuditRecordingService(logger *slog.Logger, auditRepo audit.Repository) *AuditRecordingService {
	return &AuditRecordingService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// RecordEvent writes one reconciliation event to the audit trail. A
// redelivered event is detected by its id and treated as already recorded.
func (s *AuditRecordingService) RecordEvent(ctx context.Context, event *shared.ReconciliationEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	record := audit.NewRecord(event)
	if err := s.auditRepo.Create(ctx, record); err != nil {
		if errors.Is(err, audit.ErrDuplicateRecord{EventID: event.EventID}) {
			logger.Info("Reconciliation event already recorded, skipping",
				"event_id", event.EventID.String(),
			)
			return nil
		}
		logger.Error("Failed to record reconciliation event",
			"event_id", event.EventID.String(),
			"entry_id", event.EntryID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to record reconciliation event %s: %w", event.EventID, err)
	}

	logger.Info("Recorded reconciliation event",
		"event_id", event.EventID.String(),
		"action", string(event.Action),
		"entry_id", event.EntryID.String(),
	)
	return nil
}
