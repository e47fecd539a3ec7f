package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/civic-contracts-ledger/internal/domain/account"
	"github.com/civic-contracts-ledger/internal/domain/entry"
	"github.com/civic-contracts-ledger/internal/domain/outbox"
	"github.com/civic-contracts-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNoTransactions indicates a commit request without any transaction to link
var ErrNoTransactions = errors.New("at least one transaction is required")

// CommitInput describes one confirmed reconciliation: the entry, the
// transactions that paid it, optional sibling entries covered by the same
// payment, and optional proof documents.
type CommitInput struct {
	EntryID         uuid.UUID
	TransactionIDs  []uuid.UUID
	RelatedEntryIDs []uuid.UUID
	Proofs          []entry.Proof
	CorrelationID   string
}

// CommitResult reports the committed entry and the next unreconciled
// candidate of the same period, nil when the period is fully reconciled.
type CommitResult struct {
	Entry       *entry.Entry
	Liquidation time.Time
	Next        *entry.Entry
}

// Commit atomically marks the entry (and any related entries) as reconciled,
// links the given transactions and stores the reconciliation event in the
// outbox. The liquidation date is the posting date of the earliest linked
// transaction. All mutations happen in one database transaction; a failure
// anywhere leaves the period untouched.
func (s *Service) Commit(ctx context.Context, orgID uuid.UUID, input CommitInput) (*CommitResult, error) {
	if len(input.TransactionIDs) == 0 {
		return nil, ErrNoTransactions
	}

	var committed *entry.Entry
	var accountabilityID uuid.UUID
	var liquidation time.Time

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		entries := s.entries.WithTx(tx)
		transactions := s.transactions.WithTx(tx)
		outboxRepo := s.outbox.WithTx(tx)

		e, err := entries.GetByID(ctx, orgID, input.EntryID)
		if err != nil {
			return err
		}
		if e.Conciled {
			return entry.ErrAlreadyConciled{EntryID: e.ID}
		}

		accountability, err := entries.GetAccountability(ctx, orgID, e.AccountabilityID)
		if err != nil {
			return err
		}
		if !accountability.Editable() {
			return entry.ErrClosedPeriod{AccountabilityID: accountability.ID}
		}

		editablePeriods := map[uuid.UUID]bool{accountability.ID: true}
		entryIDs := []uuid.UUID{e.ID}
		for _, relatedID := range input.RelatedEntryIDs {
			related, err := entries.GetByID(ctx, orgID, relatedID)
			if err != nil {
				return err
			}
			if related.Conciled {
				return entry.ErrAlreadyConciled{EntryID: related.ID}
			}
			if !editablePeriods[related.AccountabilityID] {
				relatedPeriod, err := entries.GetAccountability(ctx, orgID, related.AccountabilityID)
				if err != nil {
					return err
				}
				if !relatedPeriod.Editable() {
					return entry.ErrClosedPeriod{AccountabilityID: relatedPeriod.ID}
				}
				editablePeriods[relatedPeriod.ID] = true
			}
			entryIDs = append(entryIDs, related.ID)
		}

		locked, err := transactions.LockForLink(ctx, orgID, input.TransactionIDs)
		if err != nil {
			return err
		}

		now := time.Now()
		liquidation = earliestPostedAt(locked)
		if err := entries.MarkConciled(ctx, entryIDs, now, liquidation); err != nil {
			return err
		}

		for _, entryID := range entryIDs {
			if err := entries.ReplaceLinks(ctx, entryID, input.TransactionIDs); err != nil {
				return err
			}
		}

		if len(input.Proofs) > 0 {
			if err := entries.AttachProofs(ctx, entryIDs, input.Proofs); err != nil {
				return err
			}
		}

		event := &shared.ReconciliationEvent{
			EventID:         uuid.New(),
			Action:          shared.ActionCommitted,
			OrganizationID:  orgID,
			EntryID:         e.ID,
			RelatedEntryIDs: input.RelatedEntryIDs,
			TransactionIDs:  input.TransactionIDs,
			Liquidation:     &liquidation,
			CorrelationID:   input.CorrelationID,
			OccurredAt:      now,
		}
		message, err := outbox.NewMessage(event)
		if err != nil {
			return err
		}
		if err := outboxRepo.Create(ctx, message); err != nil {
			return err
		}

		committed = e
		accountabilityID = accountability.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reconciliation committed",
		"entry_id", committed.ID.String(),
		"transactions", len(input.TransactionIDs),
		"liquidation", liquidation.Format(time.DateOnly),
	)

	next, err := s.entries.NextUnreconciled(ctx, orgID, accountabilityID)
	if err != nil {
		// The commit itself succeeded, so only log the lookup failure.
		s.logger.Error("Failed to load next unreconciled entry", "error", err)
		next = nil
	}

	return &CommitResult{Entry: committed, Liquidation: liquidation, Next: next}, nil
}

// earliestPostedAt returns the oldest posting date among the linked
// transactions, which becomes the entry's liquidation date.
func earliestPostedAt(transactions []*account.Transaction) time.Time {
	earliest := transactions[0].PostedAt
	for _, t := range transactions[1:] {
		if t.PostedAt.Before(earliest) {
			earliest = t.PostedAt
		}
	}
	return earliest
}
