package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/civic-contracts-ledger/internal/domain/entry"
	"github.com/civic-contracts-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EntryRepository implements the entry.Repository interface for PostgreSQL
type EntryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewEntryRepository creates a new PostgreSQL ledger entry repository
func NewEntryRepository(logger *slog.Logger, db *persistence.PostgresDB) entry.Repository {
	return &EntryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *EntryRepository) WithTx(tx pgx.Tx) entry.Repository {
	return &EntryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const entryColumns = `id, organization_id, accountability_id, kind, value, identification, payee_name,
		paid, conciled, conciled_at, liquidation, created_at, deleted_at`

// GetByID retrieves a non-deleted ledger entry
func (r *EntryRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entry.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entry.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return e, nil
}

// GetAccountability retrieves the reporting period an entry belongs to
func (r *EntryRepository) GetAccountability(ctx context.Context, orgID, id uuid.UUID) (*entry.Accountability, error) {
	query := `
		SELECT id, organization_id, contract_id, month, year, status
		FROM accountabilities
		WHERE id = $1 AND organization_id = $2
	`

	var a entry.Accountability
	err := r.querier.QueryRow(ctx, query, id, orgID).Scan(
		&a.ID,
		&a.OrganizationID,
		&a.ContractID,
		&a.Month,
		&a.Year,
		&a.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entry.ErrAccountabilityNotFound{AccountabilityID: id}
		}
		r.logger.Error("Failed to get accountability", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get accountability: %w", err)
	}

	return &a, nil
}

// ListUnreconciled retrieves the period's unreconciled expense entries ordered
// by descending value, the order the match engine consumes them in.
func (r *EntryRepository) ListUnreconciled(ctx context.Context, orgID, accountabilityID uuid.UUID) ([]*entry.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE organization_id = $1 AND accountability_id = $2
		  AND kind = $3 AND conciled = FALSE AND deleted_at IS NULL
		ORDER BY value DESC, identification
	`

	rows, err := r.querier.Query(ctx, query, orgID, accountabilityID, entry.KindExpense)
	if err != nil {
		r.logger.Error("Failed to list unreconciled entries", "accountability_id", accountabilityID.String(), "error", err)
		return nil, fmt.Errorf("failed to list unreconciled entries: %w", err)
	}
	defer rows.Close()

	var entries []*entry.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

// NextUnreconciled retrieves the next candidate for manual reconciliation:
// lowest value first, ties broken by identification. Nil when none remain.
func (r *EntryRepository) NextUnreconciled(ctx context.Context, orgID, accountabilityID uuid.UUID) (*entry.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE organization_id = $1 AND accountability_id = $2
		  AND kind = $3 AND conciled = FALSE AND deleted_at IS NULL
		ORDER BY value, identification
		LIMIT 1
	`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, orgID, accountabilityID, entry.KindExpense))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Nothing left to reconcile
		}
		r.logger.Error("Failed to get next unreconciled entry", "error", err)
		return nil, fmt.Errorf("failed to get next unreconciled entry: %w", err)
	}

	return e, nil
}

// MarkConciled flags every given entry as reconciled and paid, stamping the
// reconciliation time and the liquidation date in one statement.
func (r *EntryRepository) MarkConciled(ctx context.Context, ids []uuid.UUID, conciledAt, liquidation time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE ledger_entries
		SET conciled = TRUE, paid = TRUE, conciled_at = $2, liquidation = $3
		WHERE id = ANY($1) AND deleted_at IS NULL
	`

	tag, err := r.querier.Exec(ctx, query, ids, conciledAt, liquidation)
	if err != nil {
		r.logger.Error("Failed to mark entries reconciled", "error", err)
		return fmt.Errorf("failed to mark entries reconciled: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return entry.ErrEntryNotFound{}
	}

	return nil
}

// ClearConciled resets the reconciliation fields of a single entry
func (r *EntryRepository) ClearConciled(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE ledger_entries
		SET conciled = FALSE, paid = FALSE, conciled_at = NULL, liquidation = NULL
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to clear reconciliation", "id", id.String(), "error", err)
		return fmt.Errorf("failed to clear reconciliation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entry.ErrEntryNotFound{EntryID: id}
	}

	return nil
}

// ReplaceLinks drops the entry's transaction links and writes the given set
func (r *EntryRepository) ReplaceLinks(ctx context.Context, entryID uuid.UUID, transactionIDs []uuid.UUID) error {
	deleteQuery := `DELETE FROM entry_transactions WHERE entry_id = $1`
	if _, err := r.querier.Exec(ctx, deleteQuery, entryID); err != nil {
		r.logger.Error("Failed to drop transaction links", "entry_id", entryID.String(), "error", err)
		return fmt.Errorf("failed to drop transaction links: %w", err)
	}

	insertQuery := `
		INSERT INTO entry_transactions (entry_id, transaction_id)
		VALUES ($1, $2)
		ON CONFLICT (entry_id, transaction_id) DO NOTHING
	`
	for _, txID := range transactionIDs {
		if _, err := r.querier.Exec(ctx, insertQuery, entryID, txID); err != nil {
			r.logger.Error("Failed to link transaction", "entry_id", entryID.String(), "transaction_id", txID.String(), "error", err)
			return fmt.Errorf("failed to link transaction: %w", err)
		}
	}

	return nil
}

// Unlink removes every transaction link of the entry
func (r *EntryRepository) Unlink(ctx context.Context, entryID uuid.UUID) error {
	query := `DELETE FROM entry_transactions WHERE entry_id = $1`
	if _, err := r.querier.Exec(ctx, query, entryID); err != nil {
		r.logger.Error("Failed to unlink transactions", "entry_id", entryID.String(), "error", err)
		return fmt.Errorf("failed to unlink transactions: %w", err)
	}

	return nil
}

// ListLinks retrieves the ids of transactions linked to the entry
func (r *EntryRepository) ListLinks(ctx context.Context, entryID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT transaction_id FROM entry_transactions WHERE entry_id = $1 ORDER BY transaction_id`

	rows, err := r.querier.Query(ctx, query, entryID)
	if err != nil {
		r.logger.Error("Failed to list transaction links", "entry_id", entryID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transaction links: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction link: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction links: %w", err)
	}

	return ids, nil
}

// AttachProofs stores the same proof files for every given entry
func (r *EntryRepository) AttachProofs(ctx context.Context, entryIDs []uuid.UUID, proofs []entry.Proof) error {
	if len(entryIDs) == 0 || len(proofs) == 0 {
		return nil
	}

	query := `INSERT INTO entry_proofs (id, entry_id, file_name, file_url, created_at) VALUES ($1, $2, $3, $4, $5)`
	now := time.Now()
	for _, entryID := range entryIDs {
		for _, proof := range proofs {
			if _, err := r.querier.Exec(ctx, query, uuid.New(), entryID, proof.FileName, proof.FileURL, now); err != nil {
				r.logger.Error("Failed to attach proof", "entry_id", entryID.String(), "error", err)
				return fmt.Errorf("failed to attach proof: %w", err)
			}
		}
	}

	return nil
}

func scanEntry(row pgx.Row) (*entry.Entry, error) {
	var e entry.Entry
	err := row.Scan(
		&e.ID,
		&e.OrganizationID,
		&e.AccountabilityID,
		&e.Kind,
		&e.Value,
		&e.Identification,
		&e.PayeeName,
		&e.Paid,
		&e.Conciled,
		&e.ConciledAt,
		&e.Liquidation,
		&e.CreatedAt,
		&e.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
