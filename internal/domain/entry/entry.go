package entry

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind distinguishes expenses from revenues
type Kind string

const (
	KindExpense Kind = "EXPENSE"
	KindRevenue Kind = "REVENUE"
)

// AccountabilityStatus defines the lifecycle of a reporting period.
// Only periods on execution accept reconciliation changes.
type AccountabilityStatus string

const (
	StatusOnExecution AccountabilityStatus = "ON_EXECUTION"
	StatusUnderReview AccountabilityStatus = "UNDER_REVIEW"
	StatusClosed      AccountabilityStatus = "CLOSED"
)

// Accountability is a monthly reporting period for a contract
type Accountability struct {
	ID             uuid.UUID            `json:"id"`
	OrganizationID uuid.UUID            `json:"organization_id"`
	ContractID     uuid.UUID            `json:"contract_id"`
	Month          time.Month           `json:"month"`
	Year           int                  `json:"year"`
	Status         AccountabilityStatus `json:"status"`
}

// Editable reports whether the period still accepts reconciliation changes
func (a *Accountability) Editable() bool {
	return a.Status == StatusOnExecution
}

// Period returns the half-open [from, to) window covered by the accountability
func (a *Accountability) Period() (time.Time, time.Time) {
	from := time.Date(a.Year, a.Month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// Entry is an expense or revenue recorded against an accountability period.
// Upstream workflows create entries; reconciliation only mutates the four
// fields Paid, Conciled, ConciledAt and Liquidation.
type Entry struct {
	ID               uuid.UUID       `json:"id"`
	OrganizationID   uuid.UUID       `json:"organization_id"`
	AccountabilityID uuid.UUID       `json:"accountability_id"`
	Kind             Kind            `json:"kind"`
	Value            decimal.Decimal `json:"value"`
	Identification   string          `json:"identification"`
	PayeeName        string          `json:"payee_name"`
	Paid             bool            `json:"paid"`
	Conciled         bool            `json:"conciled"`
	ConciledAt       *time.Time      `json:"conciled_at,omitempty"`
	Liquidation      *time.Time      `json:"liquidation,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
}

// IsActive reports whether the entry has not been soft-deleted
func (e *Entry) IsActive() bool {
	return e.DeletedAt == nil
}

// Proof is a document attached to an entry as evidence of payment
type Proof struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}
