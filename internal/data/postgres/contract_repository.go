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
)

// ContractRepository implements the account.ContractRepository interface for PostgreSQL
type ContractRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewContractRepository creates a new PostgreSQL contract repository
func NewContractRepository(logger *slog.Logger, db *persistence.PostgresDB) account.ContractRepository {
	return &ContractRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *ContractRepository) WithTx(tx pgx.Tx) account.ContractRepository {
	return &ContractRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByID retrieves a contract with its two bank account slots
func (r *ContractRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*account.Contract, error) {
	query := `
		SELECT id, organization_id, checking_account_id, investing_account_id
		FROM contracts
		WHERE id = $1 AND organization_id = $2
	`

	var c account.Contract
	err := r.querier.QueryRow(ctx, query, id, orgID).Scan(
		&c.ID,
		&c.OrganizationID,
		&c.CheckingAccountID,
		&c.InvestingAccountID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrContractNotFound{ContractID: id}
		}
		r.logger.Error("Failed to get contract", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	return &c, nil
}

// AssignAccount fills the contract's checking or investing slot
func (r *ContractRepository) AssignAccount(ctx context.Context, orgID, contractID uuid.UUID, accountType account.Type, accountID uuid.UUID) error {
	var column string
	switch accountType {
	case account.TypeChecking:
		column = "checking_account_id"
	case account.TypeInvesting:
		column = "investing_account_id"
	default:
		return account.ErrInvalidAccountType
	}

	query := fmt.Sprintf(`UPDATE contracts SET %s = $1 WHERE id = $2 AND organization_id = $3`, column)
	tag, err := r.querier.Exec(ctx, query, accountID, contractID, orgID)
	if err != nil {
		r.logger.Error("Failed to assign account to contract", "contract_id", contractID.String(), "error", err)
		return fmt.Errorf("failed to assign account to contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return account.ErrContractNotFound{ContractID: contractID}
	}

	return nil
}
