package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind classifies a bank transaction, mirroring the kinds carried
// by bank export files. Unknown kinds are mapped to KindOther at ingestion.
type TransactionKind string

const (
	KindCredit      TransactionKind = "CREDIT"
	KindDebit       TransactionKind = "DEBIT"
	KindInterest    TransactionKind = "INT"
	KindDividend    TransactionKind = "DIV"
	KindFee         TransactionKind = "FEE"
	KindServiceFee  TransactionKind = "SRVCHG"
	KindDeposit     TransactionKind = "DEP"
	KindATM         TransactionKind = "ATM"
	KindPointOfSale TransactionKind = "POS"
	KindTransfer    TransactionKind = "XFER"
	KindCheck       TransactionKind = "CHECK"
	KindPayment     TransactionKind = "PAYMENT"
	KindCash        TransactionKind = "CASH"
	KindDirectDep   TransactionKind = "DIRECTDEP"
	KindDirectDebit TransactionKind = "DIRECTDEBIT"
	KindRepeatPmt   TransactionKind = "REPEATPMT"
	KindOther       TransactionKind = "OTHER"
)

// ParseTransactionKind maps a raw bank export transaction type onto a kind,
// defaulting to KindOther for anything unrecognized
func ParseTransactionKind(raw string) TransactionKind {
	switch TransactionKind(raw) {
	case KindCredit, KindDebit, KindInterest, KindDividend, KindFee,
		KindServiceFee, KindDeposit, KindATM, KindPointOfSale, KindTransfer,
		KindCheck, KindPayment, KindCash, KindDirectDep, KindDirectDebit,
		KindRepeatPmt:
		return TransactionKind(raw)
	default:
		return KindOther
	}
}

// Transaction is a single bank movement belonging to exactly one account.
// Negative amounts are debits. ExternalID is the bank-assigned identifier
// and, when present, is unique among non-deleted transactions so the same
// movement can never be imported twice.
type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	AccountID  uuid.UUID       `json:"account_id"`
	Kind       TransactionKind `json:"kind"`
	PostedAt   time.Time       `json:"posted_at"`
	Amount     decimal.Decimal `json:"amount"`
	ExternalID *string         `json:"external_id,omitempty"`
	Name       string          `json:"name"`
	Memo       string          `json:"memo,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
}

// IsDebit reports whether the transaction took money out of the account
func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// IsActive reports whether the transaction has not been soft-deleted
func (t *Transaction) IsActive() bool {
	return t.DeletedAt == nil
}
