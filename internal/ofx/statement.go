// Package ofx parses SGML bank export documents into canonical in-memory
// statements. Parsing is a pure function of the input bytes: no side effects
// and no persistence.
package ofx

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Statement is the canonical representation of one bank export document:
// the account identity, its ledger balance, the covered period and the
// ordered list of transactions.
type Statement struct {
	BankName     string
	BankID       string
	BranchID     string
	AccountID    string
	Balance      decimal.Decimal
	BalanceDate  time.Time
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Transactions []Transaction
}

// Transaction is a single movement record from the export's transaction list
type Transaction struct {
	Type     string
	PostedAt time.Time
	Amount   decimal.Decimal
	ID       string // bank-assigned external id (FITID)
	CheckNum string
	Name     string
	Memo     string
}

// ParseError reports a malformed or structurally incomplete document
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ofx: %s: %v", e.Reason, e.Err)
	}
	return "ofx: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
