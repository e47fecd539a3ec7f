package reconcile

import (
	"context"
	"log/slog"

	"github.com/civic-contracts-ledger/internal/domain/account"
	"github.com/civic-contracts-ledger/internal/domain/entry"
	"github.com/civic-contracts-ledger/internal/domain/outbox"
	"github.com/civic-contracts-ledger/internal/platform/persistence"
	"github.com/google/uuid"
)

// Service orchestrates the reconciliation workflow: previewing proposed
// matches, committing them and reversing committed ones.
type Service struct {
	logger       *slog.Logger
	db           persistence.TxRunner
	entries      entry.Repository
	transactions account.TransactionRepository
	contracts    account.ContractRepository
	outbox       outbox.Repository
}

// NewService creates a new reconciliation service
func NewService(
	logger *slog.Logger,
	db persistence.TxRunner,
	entries entry.Repository,
	transactions account.TransactionRepository,
	contracts account.ContractRepository,
	outboxRepo outbox.Repository,
) *Service {
	return &Service{
		logger:       logger,
		db:           db,
		entries:      entries,
		transactions: transactions,
		contracts:    contracts,
		outbox:       outboxRepo,
	}
}

// Preview is one matching run over an accountability period: the period's
// unreconciled entries paired against the contract accounts' unclaimed debit
// transactions. Nothing is persisted; the caller reviews the proposal and
// commits pairs one by one.
type Preview struct {
	Accountability *entry.Accountability
	Pairs          []Pair
}

// Preview runs the match engine for the given accountability period
func (s *Service) Preview(ctx context.Context, orgID, accountabilityID uuid.UUID) (*Preview, error) {
	accountability, err := s.entries.GetAccountability(ctx, orgID, accountabilityID)
	if err != nil {
		return nil, err
	}

	contract, err := s.contracts.GetByID(ctx, orgID, accountability.ContractID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries.ListUnreconciled(ctx, orgID, accountabilityID)
	if err != nil {
		return nil, err
	}

	var transactions []*account.Transaction
	if accountIDs := contract.AccountIDs(); len(accountIDs) > 0 {
		from, to := accountability.Period()
		transactions, err = s.transactions.ListAvailable(ctx, orgID, accountIDs, from, to)
		if err != nil {
			return nil, err
		}
	}

	pairs := Match(entries, transactions)

	s.logger.Info("Reconciliation preview computed",
		"accountability_id", accountabilityID.String(),
		"entries", len(entries),
		"transactions", len(transactions),
		"matched", countMatched(pairs),
	)

	return &Preview{Accountability: accountability, Pairs: pairs}, nil
}

func countMatched(pairs []Pair) int {
	n := 0
	for _, p := range pairs {
		if p.Matched {
			n++
		}
	}
	return n
}
