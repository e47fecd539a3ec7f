package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAccountType = errors.New("account type must be CHECKING or INVESTING")
	ErrEmptyBankName      = errors.New("bank name cannot be empty")
	ErrEmptyNumber        = errors.New("account number cannot be empty")
)

// Type distinguishes the two bank account slots a contract may hold
type Type string

const (
	TypeChecking  Type = "CHECKING"
	TypeInvesting Type = "INVESTING"
)

// Valid reports whether t is a supported account type
func (t Type) Valid() bool {
	return t == TypeChecking || t == TypeInvesting
}

// Account represents a bank account imported from a bank export file.
// It is created exactly once by ingestion and afterwards only soft-deleted.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	BankName       string          `json:"bank_name"`
	BankID         string          `json:"bank_id"`
	Branch         string          `json:"branch"`
	Number         string          `json:"number"`
	Type           Type            `json:"type"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
}

// Key is the natural identity of a physical bank account within an organization.
// Two non-deleted accounts must never share the same key.
type Key struct {
	BankName string
	BankID   string
	Branch   string
	Number   string
	Type     Type
}

// NewAccount creates a new account with the given parameters
func NewAccount(orgID uuid.UUID, key Key, balance decimal.Decimal) (*Account, error) {
	if !key.Type.Valid() {
		return nil, ErrInvalidAccountType
	}
	if key.BankName == "" {
		return nil, ErrEmptyBankName
	}
	if key.Number == "" {
		return nil, ErrEmptyNumber
	}

	now := time.Now()
	return &Account{
		ID:             uuid.New(),
		OrganizationID: orgID,
		BankName:       key.BankName,
		BankID:         key.BankID,
		Branch:         key.Branch,
		Number:         key.Number,
		Type:           key.Type,
		Balance:        balance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Key returns the account's natural identity
func (a *Account) Key() Key {
	return Key{
		BankName: a.BankName,
		BankID:   a.BankID,
		Branch:   a.Branch,
		Number:   a.Number,
		Type:     a.Type,
	}
}

// IsActive reports whether the account has not been soft-deleted
func (a *Account) IsActive() bool {
	return a.DeletedAt == nil
}

// Statement is the balance snapshot recorded when an account is ingested
type Statement struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	OpeningDate    time.Time       `json:"opening_date"`
	ClosingDate    time.Time       `json:"closing_date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Contract owns at most one checking and one investing account slot
type Contract struct {
	ID                 uuid.UUID  `json:"id"`
	OrganizationID     uuid.UUID  `json:"organization_id"`
	CheckingAccountID  *uuid.UUID `json:"checking_account_id,omitempty"`
	InvestingAccountID *uuid.UUID `json:"investing_account_id,omitempty"`
}

// AccountIDs returns the contract's linked bank account ids, skipping empty slots
func (c *Contract) AccountIDs() []uuid.UUID {
	var ids []uuid.UUID
	if c.CheckingAccountID != nil {
		ids = append(ids, *c.CheckingAccountID)
	}
	if c.InvestingAccountID != nil {
		ids = append(ids, *c.InvestingAccountID)
	}
	return ids
}
