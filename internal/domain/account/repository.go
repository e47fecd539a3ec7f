package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations.
// All queries are scoped to an organization and see only non-deleted rows.
type Repository interface {
	Create(ctx context.Context, acc *Account) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*Account, error)

	// FindByKey retrieves the active account matching the natural key.
	// Returns nil, nil when no such account exists.
	FindByKey(ctx context.Context, orgID uuid.UUID, key Key) (*Account, error)

	WithTx(tx pgx.Tx) Repository
}

// StatementRepository persists the opening balance snapshot created at ingestion
type StatementRepository interface {
	Create(ctx context.Context, stmt *Statement) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]*Statement, error)
	WithTx(tx pgx.Tx) StatementRepository
}

// TransactionRepository defines bank transaction persistence operations
type TransactionRepository interface {
	CreateBatch(ctx context.Context, transactions []*Transaction) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*Transaction, error)
	ListByAccountID(ctx context.Context, orgID, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByAccountID(ctx context.Context, orgID, accountID uuid.UUID) (int64, error)

	// ListAvailable returns active debit transactions of the given accounts,
	// posted within [from, to), that are not linked to any ledger entry.
	ListAvailable(ctx context.Context, orgID uuid.UUID, accountIDs []uuid.UUID, from, to time.Time) ([]*Transaction, error)

	// LockForLink loads the given transactions with row locks so that two
	// concurrent commits cannot both claim the same transaction.
	LockForLink(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*Transaction, error)

	WithTx(tx pgx.Tx) TransactionRepository
}

// ContractRepository manages the contract's two bank account slots
type ContractRepository interface {
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*Contract, error)

	// AssignAccount fills the contract's checking or investing slot.
	// Returns ErrInvalidAccountType for any other account type.
	AssignAccount(ctx context.Context, orgID, contractID uuid.UUID, accountType Type, accountID uuid.UUID) error

	WithTx(tx pgx.Tx) ContractRepository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// ErrDuplicateAccount indicates an attempt to ingest the same physical
// account a second time
type ErrDuplicateAccount struct {
	Key Key
}

func (e ErrDuplicateAccount) Error() string {
	return "account already exists: " + e.Key.BankName + "/" + e.Key.Number + "/" + string(e.Key.Type)
}

// Is implements the errors.Is interface for ErrDuplicateAccount
func (e ErrDuplicateAccount) Is(target error) bool {
	t, ok := target.(ErrDuplicateAccount)
	if !ok {
		return false
	}
	// An empty target key matches any ErrDuplicateAccount
	if t.Key == (Key{}) {
		return true
	}
	return e.Key == t.Key
}

// ErrTransactionNotFound indicates a missing or already claimed transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// ErrDuplicateTransaction indicates external id uniqueness violation
type ErrDuplicateTransaction struct {
	ExternalID string
}

func (e ErrDuplicateTransaction) Error() string {
	return "transaction already imported: " + e.ExternalID
}

// ErrContractNotFound indicates missing contract
type ErrContractNotFound struct {
	ContractID uuid.UUID
}

func (e ErrContractNotFound) Error() string {
	return "contract not found: " + e.ContractID.String()
}
