package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/civic-contracts-ledger/internal/api/middleware"
	"github.com/civic-contracts-ledger/internal/domain/account"
	"github.com/civic-contracts-ledger/internal/ingest"
	"github.com/civic-contracts-ledger/internal/ofx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IngestService persists a parsed bank statement as a new account
type IngestService interface {
	Ingest(ctx context.Context, orgID uuid.UUID, input ingest.Input) (*ingest.Result, error)
}

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	ingestor       IngestService
	accounts       account.Repository
	transactions   account.TransactionRepository
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(
	logger *slog.Logger,
	ingestor IngestService,
	accounts account.Repository,
	transactions account.TransactionRepository,
	maxUploadBytes int64,
) *AccountHandler {
	return &AccountHandler{
		ingestor:       ingestor,
		accounts:       accounts,
		transactions:   transactions,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Import handles a bank export upload: the exported file arrives as a
// multipart form together with the contract receiving the account and the
// slot it fills. The size cap is enforced before any parsing happens.
func (h *AccountHandler) Import(c *gin.Context) {
	orgID := middleware.GetOrganizationID(c)

	if c.Request.ContentLength > h.maxUploadBytes {
		RespondPayloadTooLarge(c, "Uploaded file exceeds the size limit")
		return
	}

	var req ImportAccountRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Error("Invalid import form", "error", err)
		RespondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	contractID, err := uuid.Parse(req.ContractID)
	if err != nil {
		RespondBadRequest(c, "Invalid contract ID")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.logger.Error("Missing statement file", "error", err)
		RespondBadRequest(c, "A statement file is required")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		RespondPayloadTooLarge(c, "Uploaded file exceeds the size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "error", err)
		RespondInternalError(c)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.logger.Error("Failed to read uploaded file", "error", err)
		RespondInternalError(c)
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		RespondPayloadTooLarge(c, "Uploaded file exceeds the size limit")
		return
	}

	statement, err := ofx.Parse(data)
	if err != nil {
		var parseErr *ofx.ParseError
		if errors.As(err, &parseErr) {
			h.logger.Warn("Unparseable bank export", "file", fileHeader.Filename, "error", err)
			RespondUnprocessable(c, "UNPARSEABLE_STATEMENT", parseErr.Error())
			return
		}
		h.logger.Error("Failed to parse bank export", "error", err)
		RespondInternalError(c)
		return
	}

	result, err := h.ingestor.Ingest(c.Request.Context(), orgID, ingest.Input{
		ContractID:  contractID,
		AccountType: account.Type(req.AccountType),
		Statement:   statement,
	})
	if err != nil {
		var contractNotFound account.ErrContractNotFound
		switch {
		case errors.Is(err, account.ErrDuplicateAccount{}):
			h.logger.Warn("Attempt to import an already ingested account",
				"bank", statement.BankName,
				"number", statement.AccountID,
			)
			RespondConflict(c, "DUPLICATE_ACCOUNT", "This bank account was already imported")
		case errors.As(err, &contractNotFound):
			RespondNotFound(c, "Contract not found")
		case errors.Is(err, account.ErrInvalidAccountType):
			RespondBadRequest(c, "Account type must be CHECKING or INVESTING")
		default:
			h.logger.Error("Failed to ingest statement", "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, ImportResultResponse{
		Account:          mapAccountToResponse(result.Account),
		TransactionCount: result.TransactionCount,
	})
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	orgID := middleware.GetOrganizationID(c)

	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accounts.GetByID(c.Request.Context(), orgID, id)
	if err != nil {
		var notFound account.ErrAccountNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// ListTransactions returns the account's transactions, paginated
func (h *AccountHandler) ListTransactions(c *gin.Context) {
	orgID := middleware.GetOrganizationID(c)

	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	total, err := h.transactions.CountByAccountID(c.Request.Context(), orgID, id)
	if err != nil {
		h.logger.Error("Failed to count transactions", "account_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	offset := (params.Page - 1) * params.PerPage
	transactions, err := h.transactions.ListByAccountID(c.Request.Context(), orgID, id, params.PerPage, offset)
	if err != nil {
		h.logger.Error("Failed to list transactions", "account_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	response := TransactionListResponse{Transactions: make([]TransactionResponse, 0, len(transactions))}
	for _, t := range transactions {
		response.Transactions = append(response.Transactions, mapTransactionToResponse(t))
	}

	RespondWithPaginatedData(c, http.StatusOK, response, params.Page, params.PerPage, int(total))
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		BankName:  acc.BankName,
		BankID:    acc.BankID,
		Branch:    acc.Branch,
		Number:    acc.Number,
		Type:      string(acc.Type),
		Balance:   acc.Balance.String(),
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

// mapTransactionToResponse maps a transaction entity to a response DTO
func mapTransactionToResponse(t *account.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:        t.ID.String(),
		AccountID: t.AccountID.String(),
		Kind:      string(t.Kind),
		PostedAt:  t.PostedAt.Format(time.RFC3339),
		Amount:    t.Amount.String(),
		Name:      t.Name,
		Memo:      t.Memo,
	}
	if t.ExternalID != nil {
		response.ExternalID = *t.ExternalID
	}
	return response
}
