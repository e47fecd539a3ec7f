package reconcile

import (
	"context"
	"time"

	"github.com/civic-contracts-ledger/internal/domain/account"
	"github.com/civic-contracts-ledger/internal/domain/entry"
	"github.com/civic-contracts-ledger/internal/domain/outbox"
	"github.com/civic-contracts-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// fakeTxRunner runs the transactional closure directly, without a database.
// The nil pgx.Tx is fine because the mocked repositories return themselves
// from WithTx.
type fakeTxRunner struct {
	beginErr error
}

func (f *fakeTxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	return fn(nil)
}

type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entry.Entry, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entry.Entry), args.Error(1)
}

func (m *MockEntryRepository) GetAccountability(ctx context.Context, orgID, id uuid.UUID) (*entry.Accountability, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entry.Accountability), args.Error(1)
}

func (m *MockEntryRepository) ListUnreconciled(ctx context.Context, orgID, accountabilityID uuid.UUID) ([]*entry.Entry, error) {
	args := m.Called(ctx, orgID, accountabilityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entry.Entry), args.Error(1)
}

func (m *MockEntryRepository) NextUnreconciled(ctx context.Context, orgID, accountabilityID uuid.UUID) (*entry.Entry, error) {
	args := m.Called(ctx, orgID, accountabilityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entry.Entry), args.Error(1)
}

func (m *MockEntryRepository) MarkConciled(ctx context.Context, ids []uuid.UUID, conciledAt, liquidation time.Time) error {
	args := m.Called(ctx, ids, conciledAt, liquidation)
	return args.Error(0)
}

func (m *MockEntryRepository) ClearConciled(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEntryRepository) ReplaceLinks(ctx context.Context, entryID uuid.UUID, transactionIDs []uuid.UUID) error {
	args := m.Called(ctx, entryID, transactionIDs)
	return args.Error(0)
}

func (m *MockEntryRepository) Unlink(ctx context.Context, entryID uuid.UUID) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

func (m *MockEntryRepository) ListLinks(ctx context.Context, entryID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockEntryRepository) AttachProofs(ctx context.Context, entryIDs []uuid.UUID, proofs []entry.Proof) error {
	args := m.Called(ctx, entryIDs, proofs)
	return args.Error(0)
}

func (m *MockEntryRepository) WithTx(tx pgx.Tx) entry.Repository {
	m.Called(tx)
	return m
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateBatch(ctx context.Context, transactions []*account.Transaction) error {
	args := m.Called(ctx, transactions)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*account.Transaction, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByAccountID(ctx context.Context, orgID, accountID uuid.UUID, limit, offset int) ([]*account.Transaction, error) {
	args := m.Called(ctx, orgID, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByAccountID(ctx context.Context, orgID, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, orgID, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) ListAvailable(ctx context.Context, orgID uuid.UUID, accountIDs []uuid.UUID, from, to time.Time) ([]*account.Transaction, error) {
	args := m.Called(ctx, orgID, accountIDs, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) LockForLink(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*account.Transaction, error) {
	args := m.Called(ctx, orgID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) WithTx(tx pgx.Tx) account.TransactionRepository {
	m.Called(tx)
	return m
}

type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*account.Contract, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Contract), args.Error(1)
}

func (m *MockContractRepository) AssignAccount(ctx context.Context, orgID, contractID uuid.UUID, accountType account.Type, accountID uuid.UUID) error {
	args := m.Called(ctx, orgID, contractID, accountType, accountID)
	return args.Error(0)
}

func (m *MockContractRepository) WithTx(tx pgx.Tx) account.ContractRepository {
	m.Called(tx)
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
}
