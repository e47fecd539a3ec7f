package entry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines ledger entry persistence operations.
// All queries are scoped to an organization and see only non-deleted rows.
type Repository interface {
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*Entry, error)
	GetAccountability(ctx context.Context, orgID, id uuid.UUID) (*Accountability, error)

	// ListUnreconciled returns the accountability's unreconciled entries
	// ordered by descending value, the order the match engine consumes.
	ListUnreconciled(ctx context.Context, orgID, accountabilityID uuid.UUID) ([]*Entry, error)

	// NextUnreconciled returns the next candidate for the "reconcile next"
	// workflow: lowest value first, then identification. Nil when none remain.
	NextUnreconciled(ctx context.Context, orgID, accountabilityID uuid.UUID) (*Entry, error)

	// MarkConciled sets conciled, conciled_at, paid and liquidation on every
	// given entry in one statement.
	MarkConciled(ctx context.Context, ids []uuid.UUID, conciledAt, liquidation time.Time) error

	// ClearConciled resets the four reconciliation fields of a single entry.
	ClearConciled(ctx context.Context, id uuid.UUID) error

	// ReplaceLinks drops the entry's transaction links and writes the given
	// set, keeping at most one link per (entry, transaction) pair.
	ReplaceLinks(ctx context.Context, entryID uuid.UUID, transactionIDs []uuid.UUID) error

	// Unlink removes every transaction link of the entry.
	Unlink(ctx context.Context, entryID uuid.UUID) error

	// ListLinks returns the ids of transactions linked to the entry.
	ListLinks(ctx context.Context, entryID uuid.UUID) ([]uuid.UUID, error)

	// AttachProofs stores the same proof files for every given entry.
	AttachProofs(ctx context.Context, entryIDs []uuid.UUID, proofs []Proof) error

	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrAccountabilityNotFound indicates missing accountability period
type ErrAccountabilityNotFound struct {
	AccountabilityID uuid.UUID
}

func (e ErrAccountabilityNotFound) Error() string {
	return "accountability not found: " + e.AccountabilityID.String()
}

// ErrAlreadyConciled indicates a commit against an entry that is already reconciled
type ErrAlreadyConciled struct {
	EntryID uuid.UUID
}

func (e ErrAlreadyConciled) Error() string {
	return "entry is already reconciled: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrAlreadyConciled
func (e ErrAlreadyConciled) Is(target error) bool {
	t, ok := target.(ErrAlreadyConciled)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrNotConciled indicates a reversal against an entry that is not reconciled
type ErrNotConciled struct {
	EntryID uuid.UUID
}

func (e ErrNotConciled) Error() string {
	return "entry is not reconciled: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrNotConciled
func (e ErrNotConciled) Is(target error) bool {
	t, ok := target.(ErrNotConciled)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrClosedPeriod indicates the owning accountability no longer accepts changes
type ErrClosedPeriod struct {
	AccountabilityID uuid.UUID
}

func (e ErrClosedPeriod) Error() string {
	return "accountability period is not editable: " + e.AccountabilityID.String()
}

// Is implements the errors.Is interface for ErrClosedPeriod
func (e ErrClosedPeriod) Is(target error) bool {
	t, ok := target.(ErrClosedPeriod)
	if !ok {
		return false
	}
	if t.AccountabilityID == uuid.Nil {
		return true
	}
	return e.AccountabilityID == t.AccountabilityID
}
