// Package ingest turns parsed bank export documents into persisted accounts,
// statements and transactions, and attaches the new account to its contract.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/civic-contracts-ledger/internal/domain/account"
	"github.com/civic-contracts-ledger/internal/ofx"
	"github.com/civic-contracts-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Ingestor imports a parsed statement as a new bank account. Each physical
// account is imported exactly once; a second upload of the same account is
// rejected as a duplicate.
type Ingestor struct {
	logger       *slog.Logger
	db           persistence.TxRunner
	accounts     account.Repository
	statements   account.StatementRepository
	transactions account.TransactionRepository
	contracts    account.ContractRepository
}

// NewIngestor creates a new account ingestor
func NewIngestor(
	logger *slog.Logger,
	db persistence.TxRunner,
	accounts account.Repository,
	statements account.StatementRepository,
	transactions account.TransactionRepository,
	contracts account.ContractRepository,
) *Ingestor {
	return &Ingestor{
		logger:       logger,
		db:           db,
		accounts:     accounts,
		statements:   statements,
		transactions: transactions,
		contracts:    contracts,
	}
}

// Input carries one upload: the contract receiving the account, which of the
// contract's two slots it fills, and the parsed document.
type Input struct {
	ContractID  uuid.UUID
	AccountType account.Type
	Statement   *ofx.Statement
}

// Result reports the created account and how many transactions came with it
type Result struct {
	Account          *account.Account
	TransactionCount int
}

// Ingest persists the parsed statement atomically: the account, its opening
// balance snapshot, every transaction and the contract slot assignment all
// commit together or not at all.
func (i *Ingestor) Ingest(ctx context.Context, orgID uuid.UUID, input Input) (*Result, error) {
	if !input.AccountType.Valid() {
		return nil, account.ErrInvalidAccountType
	}

	key := account.Key{
		BankName: input.Statement.BankName,
		BankID:   input.Statement.BankID,
		Branch:   input.Statement.BranchID,
		Number:   input.Statement.AccountID,
		Type:     input.AccountType,
	}

	existing, err := i.accounts.FindByKey(ctx, orgID, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, account.ErrDuplicateAccount{Key: key}
	}

	if _, err := i.contracts.GetByID(ctx, orgID, input.ContractID); err != nil {
		return nil, err
	}

	acc, err := account.NewAccount(orgID, key, input.Statement.Balance)
	if err != nil {
		return nil, err
	}

	transactions := buildTransactions(acc.ID, input.Statement.Transactions)

	err = i.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := i.accounts.WithTx(tx).Create(ctx, acc); err != nil {
			return err
		}

		stmt := &account.Statement{
			ID:             uuid.New(),
			AccountID:      acc.ID,
			OpeningDate:    input.Statement.PeriodStart,
			ClosingDate:    input.Statement.PeriodEnd,
			OpeningBalance: input.Statement.Balance,
			ClosingBalance: input.Statement.Balance,
			CreatedAt:      time.Now(),
		}
		if err := i.statements.WithTx(tx).Create(ctx, stmt); err != nil {
			return err
		}

		if err := i.transactions.WithTx(tx).CreateBatch(ctx, transactions); err != nil {
			return err
		}

		return i.contracts.WithTx(tx).AssignAccount(ctx, orgID, input.ContractID, input.AccountType, acc.ID)
	})
	if err != nil {
		return nil, err
	}

	i.logger.Info("Account ingested",
		"account_id", acc.ID.String(),
		"contract_id", input.ContractID.String(),
		"type", string(input.AccountType),
		"transactions", len(transactions),
	)

	return &Result{Account: acc, TransactionCount: len(transactions)}, nil
}

// buildTransactions converts parsed movement records into persistable
// transactions owned by the new account
func buildTransactions(accountID uuid.UUID, parsed []ofx.Transaction) []*account.Transaction {
	now := time.Now()
	transactions := make([]*account.Transaction, 0, len(parsed))
	for _, p := range parsed {
		var externalID *string
		if p.ID != "" {
			id := p.ID
			externalID = &id
		}
		transactions = append(transactions, &account.Transaction{
			ID:         uuid.New(),
			AccountID:  accountID,
			Kind:       account.ParseTransactionKind(p.Type),
			PostedAt:   p.PostedAt,
			Amount:     p.Amount,
			ExternalID: externalID,
			Name:       p.Name,
			Memo:       p.Memo,
			CreatedAt:  now,
		})
	}
	return transactions
}
