package reconcile

import (
	"context"
	"time"

	"github.com/civic-contracts-ledger/internal/domain/entry"
	"github.com/civic-contracts-ledger/internal/domain/outbox"
	"github.com/civic-contracts-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Unreconcile atomically reverses a committed reconciliation: the entry's
// reconciliation fields are cleared, its transaction links removed and a
// reversal event stored in the outbox. The freed transactions become
// available to future matching runs.
func (s *Service) Unreconcile(ctx context.Context, orgID, entryID uuid.UUID, correlationID string) error {
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		entries := s.entries.WithTx(tx)
		outboxRepo := s.outbox.WithTx(tx)

		e, err := entries.GetByID(ctx, orgID, entryID)
		if err != nil {
			return err
		}
		if !e.Conciled {
			return entry.ErrNotConciled{EntryID: e.ID}
		}

		accountability, err := entries.GetAccountability(ctx, orgID, e.AccountabilityID)
		if err != nil {
			return err
		}
		if !accountability.Editable() {
			return entry.ErrClosedPeriod{AccountabilityID: accountability.ID}
		}

		// Capture the linked transactions before unlinking so the event
		// records which ones were released.
		linkedIDs, err := entries.ListLinks(ctx, e.ID)
		if err != nil {
			return err
		}

		if err := entries.ClearConciled(ctx, e.ID); err != nil {
			return err
		}
		if err := entries.Unlink(ctx, e.ID); err != nil {
			return err
		}

		event := &shared.ReconciliationEvent{
			EventID:        uuid.New(),
			Action:         shared.ActionReversed,
			OrganizationID: orgID,
			EntryID:        e.ID,
			TransactionIDs: linkedIDs,
			CorrelationID:  correlationID,
			OccurredAt:     time.Now(),
		}
		message, err := outbox.NewMessage(event)
		if err != nil {
			return err
		}
		return outboxRepo.Create(ctx, message)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Reconciliation reversed", "entry_id", entryID.String())
	return nil
}
