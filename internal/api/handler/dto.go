package handler

// ImportAccountRequest represents the multipart form fields of a statement upload
type ImportAccountRequest struct {
	ContractID  string `form:"contract_id" binding:"required,uuid"`
	AccountType string `form:"account_type" binding:"required,oneof=CHECKING INVESTING"`
}

// AccountResponse represents a bank account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	BankName  string `json:"bank_name"`
	BankID    string `json:"bank_id"`
	Branch    string `json:"branch,omitempty"`
	Number    string `json:"number"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ImportResultResponse reports a completed statement ingestion
type ImportResultResponse struct {
	Account          AccountResponse `json:"account"`
	TransactionCount int             `json:"transaction_count"`
}

// TransactionResponse represents a bank transaction in API responses
type TransactionResponse struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	Kind       string `json:"kind"`
	PostedAt   string `json:"posted_at"`
	Amount     string `json:"amount"`
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name"`
	Memo       string `json:"memo,omitempty"`
}

// TransactionListResponse represents a list of transactions in API responses
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID               string `json:"id"`
	AccountabilityID string `json:"accountability_id"`
	Kind             string `json:"kind"`
	Value            string `json:"value"`
	Identification   string `json:"identification"`
	PayeeName        string `json:"payee_name"`
	Paid             bool   `json:"paid"`
	Conciled         bool   `json:"conciled"`
	ConciledAt       string `json:"conciled_at,omitempty"`
	Liquidation      string `json:"liquidation,omitempty"`
}

// AccountabilityResponse represents an accountability period in API responses
type AccountabilityResponse struct {
	ID         string `json:"id"`
	ContractID string `json:"contract_id"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	Status     string `json:"status"`
}

// PreviewPairResponse is one row of a reconciliation preview. Transaction is
// null when no unambiguous candidate survived.
type PreviewPairResponse struct {
	Entry       EntryResponse        `json:"entry"`
	Transaction *TransactionResponse `json:"transaction"`
	Matched     bool                 `json:"matched"`
}

// PreviewResponse represents a full matching run over an accountability period
type PreviewResponse struct {
	Accountability AccountabilityResponse `json:"accountability"`
	Pairs          []PreviewPairResponse  `json:"pairs"`
}

// ProofRequest represents one proof document attached to a commit
type ProofRequest struct {
	FileName string `json:"file_name" binding:"required"`
	FileURL  string `json:"file_url" binding:"required"`
}

// CommitReconciliationRequest represents a confirmed reconciliation
type CommitReconciliationRequest struct {
	EntryID         string         `json:"entry_id" binding:"required,uuid"`
	TransactionIDs  []string       `json:"transaction_ids" binding:"required,min=1,dive,uuid"`
	RelatedEntryIDs []string       `json:"related_entry_ids,omitempty" binding:"omitempty,dive,uuid"`
	Proofs          []ProofRequest `json:"proofs,omitempty" binding:"omitempty,dive"`
}

// CommitReconciliationResponse reports a committed reconciliation and the
// next unreconciled candidate of the same period
type CommitReconciliationResponse struct {
	Entry       EntryResponse  `json:"entry"`
	Liquidation string         `json:"liquidation"`
	Next        *EntryResponse `json:"next"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
