// Package service records consumed reconciliation events as audit trail
// documents, fanning the writes out over a worker pool.
package service

import (
	"context"

	"github.com/civic-contracts-ledger/internal/domain/shared"
)

// RecordingService defines the interface for recording reconciliation events.
type RecordingService interface {
	RecordEvent(ctx context.Context, event *shared.ReconciliationEvent) error
}
