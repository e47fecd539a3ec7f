// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the reconciliation engine.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civic-contracts-ledger/internal/domain/account"
	"github.com/civic-contracts-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account in the database. The partial unique index on the
// natural key rejects a second active account with the same identity.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, organization_id, bank_name, bank_id, branch, number, type, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.OrganizationID,
		acc.BankName,
		acc.BankID,
		acc.Branch,
		acc.Number,
		acc.Type,
		acc.Balance,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return account.ErrDuplicateAccount{Key: acc.Key()}
		}
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, organization_id, bank_name, bank_id, branch, number, type, balance, created_at, updated_at, deleted_at
		FROM accounts
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id, orgID).Scan(
		&acc.ID,
		&acc.OrganizationID,
		&acc.BankName,
		&acc.BankID,
		&acc.Branch,
		&acc.Number,
		&acc.Type,
		&acc.Balance,
		&acc.CreatedAt,
		&acc.UpdatedAt,
		&acc.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// FindByKey retrieves the active account matching the natural key.
// Returns nil, nil when no account with that identity exists.
func (r *AccountRepository) FindByKey(ctx context.Context, orgID uuid.UUID, key account.Key) (*account.Account, error) {
	query := `
		SELECT id, organization_id, bank_name, bank_id, branch, number, type, balance, created_at, updated_at, deleted_at
		FROM accounts
		WHERE organization_id = $1 AND bank_name = $2 AND bank_id = $3 AND branch = $4 AND number = $5 AND type = $6
		  AND deleted_at IS NULL
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, orgID, key.BankName, key.BankID, key.Branch, key.Number, key.Type).Scan(
		&acc.ID,
		&acc.OrganizationID,
		&acc.BankName,
		&acc.BankID,
		&acc.Branch,
		&acc.Number,
		&acc.Type,
		&acc.Balance,
		&acc.CreatedAt,
		&acc.UpdatedAt,
		&acc.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No active account with this identity
		}
		r.logger.Error("Failed to find account by key", "number", key.Number, "error", err)
		return nil, fmt.Errorf("failed to find account by key: %w", err)
	}

	return &acc, nil
}

// StatementRepository implements the account.StatementRepository interface for PostgreSQL
type StatementRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewStatementRepository creates a new PostgreSQL statement repository
func NewStatementRepository(logger *slog.Logger, db *persistence.PostgresDB) account.StatementRepository {
	return &StatementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *StatementRepository) WithTx(tx pgx.Tx) account.StatementRepository {
	return &StatementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores the opening balance snapshot recorded at ingestion
func (r *StatementRepository) Create(ctx context.Context, stmt *account.Statement) error {
	query := `
		INSERT INTO statements (id, account_id, opening_date, closing_date, opening_balance, closing_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		stmt.ID,
		stmt.AccountID,
		stmt.OpeningDate,
		stmt.ClosingDate,
		stmt.OpeningBalance,
		stmt.ClosingBalance,
		stmt.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create statement", "account_id", stmt.AccountID.String(), "error", err)
		return fmt.Errorf("failed to create statement: %w", err)
	}

	return nil
}

// GetByAccountID retrieves an account's statements, newest period first
func (r *StatementRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]*account.Statement, error) {
	query := `
		SELECT id, account_id, opening_date, closing_date, opening_balance, closing_balance, created_at
		FROM statements
		WHERE account_id = $1
		ORDER BY closing_date DESC
	`

	rows, err := r.querier.Query(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to get statements", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get statements: %w", err)
	}
	defer rows.Close()

	var statements []*account.Statement
	for rows.Next() {
		var stmt account.Statement
		err := rows.Scan(
			&stmt.ID,
			&stmt.AccountID,
			&stmt.OpeningDate,
			&stmt.ClosingDate,
			&stmt.OpeningBalance,
			&stmt.ClosingBalance,
			&stmt.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan statement", "error", err)
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		statements = append(statements, &stmt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over statements: %w", err)
	}

	return statements, nil
}
