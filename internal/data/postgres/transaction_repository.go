package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/civic-contracts-ledger/internal/domain/account"
	"github.com/civic-contracts-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// TransactionRepository implements the account.TransactionRepository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL bank transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) account.TransactionRepository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *TransactionRepository) WithTx(tx pgx.Tx) account.TransactionRepository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateBatch stores all parsed transactions of a statement in one round trip.
// A unique index on (account_id, external_id) rejects replays of the same FITID.
func (r *TransactionRepository) CreateBatch(ctx context.Context, transactions []*account.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO transactions (id, account_id, kind, posted_at, amount, external_id, name, memo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, t := range transactions {
		batch.Queue(query,
			t.ID,
			t.AccountID,
			t.Kind,
			t.PostedAt,
			t.Amount,
			t.ExternalID,
			t.Name,
			t.Memo,
			t.CreatedAt,
		)
	}

	results := r.querier.SendBatch(ctx, batch)
	defer results.Close()

	for i, t := range transactions {
		if _, err := results.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
				externalID := ""
				if t.ExternalID != nil {
					externalID = *t.ExternalID
				}
				return account.ErrDuplicateTransaction{ExternalID: externalID}
			}
			r.logger.Error("Failed to insert transaction batch", "index", i, "error", err)
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a non-deleted transaction belonging to the organization's account
func (r *TransactionRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*account.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.kind, t.posted_at, t.amount, t.external_id, t.name, t.memo, t.created_at, t.deleted_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1 AND a.organization_id = $2 AND t.deleted_at IS NULL
	`

	var t account.Transaction
	err := r.querier.QueryRow(ctx, query, id, orgID).Scan(
		&t.ID,
		&t.AccountID,
		&t.Kind,
		&t.PostedAt,
		&t.Amount,
		&t.ExternalID,
		&t.Name,
		&t.Memo,
		&t.CreatedAt,
		&t.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &t, nil
}

// ListByAccountID retrieves a page of an account's transactions, newest first
func (r *TransactionRepository) ListByAccountID(ctx context.Context, orgID, accountID uuid.UUID, limit, offset int) ([]*account.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.kind, t.posted_at, t.amount, t.external_id, t.name, t.memo, t.created_at, t.deleted_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.account_id = $1 AND a.organization_id = $2 AND t.deleted_at IS NULL
		ORDER BY t.posted_at DESC, t.id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.querier.Query(ctx, query, accountID, orgID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// CountByAccountID returns the number of active transactions on an account
func (r *TransactionRepository) CountByAccountID(ctx context.Context, orgID, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.account_id = $1 AND a.organization_id = $2 AND t.deleted_at IS NULL
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// ListAvailable retrieves the debit transactions inside the period window that
// are not yet linked to any ledger entry. These are the candidates the match
// engine pairs against unreconciled entries.
func (r *TransactionRepository) ListAvailable(ctx context.Context, orgID uuid.UUID, accountIDs []uuid.UUID, from, to time.Time) ([]*account.Transaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT t.id, t.account_id, t.kind, t.posted_at, t.amount, t.external_id, t.name, t.memo, t.created_at, t.deleted_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.organization_id = $1
		  AND t.account_id = ANY($2)
		  AND t.posted_at >= $3 AND t.posted_at < $4
		  AND t.amount < 0
		  AND t.deleted_at IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM entry_transactions et WHERE et.transaction_id = t.id
		  )
		ORDER BY t.posted_at, t.id
	`

	rows, err := r.querier.Query(ctx, query, orgID, accountIDs, from, to)
	if err != nil {
		r.logger.Error("Failed to list available transactions", "error", err)
		return nil, fmt.Errorf("failed to list available transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// LockForLink acquires row locks on the given transactions so concurrent
// reconciliations cannot claim the same rows. Returns the locked rows.
func (r *TransactionRepository) LockForLink(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*account.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT t.id, t.account_id, t.kind, t.posted_at, t.amount, t.external_id, t.name, t.memo, t.created_at, t.deleted_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = ANY($1) AND a.organization_id = $2 AND t.deleted_at IS NULL
		ORDER BY t.id
		FOR UPDATE OF t
	`

	rows, err := r.querier.Query(ctx, query, ids, orgID)
	if err != nil {
		r.logger.Error("Failed to lock transactions", "error", err)
		return nil, fmt.Errorf("failed to lock transactions: %w", err)
	}
	defer rows.Close()

	locked, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(locked) != len(ids) {
		return nil, account.ErrTransactionNotFound{TransactionID: missingID(ids, locked)}
	}

	return locked, nil
}

func scanTransactions(rows pgx.Rows) ([]*account.Transaction, error) {
	var transactions []*account.Transaction
	for rows.Next() {
		var t account.Transaction
		err := rows.Scan(
			&t.ID,
			&t.AccountID,
			&t.Kind,
			&t.PostedAt,
			&t.Amount,
			&t.ExternalID,
			&t.Name,
			&t.Memo,
			&t.CreatedAt,
			&t.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return transactions, nil
}

func missingID(requested []uuid.UUID, found []*account.Transaction) uuid.UUID {
	present := make(map[uuid.UUID]bool, len(found))
	for _, t := range found {
		present[t.ID] = true
	}
	for _, id := range requested {
		if !present[id] {
			return id
		}
	}
	return uuid.Nil
}
