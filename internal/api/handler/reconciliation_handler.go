package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/civic-contracts-ledger/internal/api/middleware"
	"github.com/civic-contracts-ledger/internal/domain/account"
	"github.com/civic-contracts-ledger/internal/domain/entry"
	"github.com/civic-contracts-ledger/internal/reconcile"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationService runs the reconciliation workflow over an
// accountability period
type ReconciliationService interface {
	Preview(ctx context.Context, orgID, accountabilityID uuid.UUID) (*reconcile.Preview, error)
	Commit(ctx context.Context, orgID uuid.UUID, input reconcile.CommitInput) (*reconcile.CommitResult, error)
	Unreconcile(ctx context.Context, orgID, entryID uuid.UUID, correlationID string) error
}

// ReconciliationHandler handles HTTP requests for reconciliation operations
type ReconciliationHandler struct {
	service ReconciliationService
	logger  *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, service ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		service: service,
		logger:  logger,
	}
}

// Preview runs the match engine over an accountability period without
// persisting anything. The caller reviews the proposed pairs and commits
// them one by one.
func (h *ReconciliationHandler) Preview(c *gin.Context) {
	orgID := middleware.GetOrganizationID(c)

	idParam := c.Param("id")
	accountabilityID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid accountability ID")
		return
	}

	preview, err := h.service.Preview(c.Request.Context(), orgID, accountabilityID)
	if err != nil {
		var accountabilityNotFound entry.ErrAccountabilityNotFound
		var contractNotFound account.ErrContractNotFound
		switch {
		case errors.As(err, &accountabilityNotFound):
			RespondNotFound(c, "Accountability not found")
		case errors.As(err, &contractNotFound):
			RespondNotFound(c, "Contract not found")
		default:
			h.logger.Error("Failed to compute reconciliation preview", "accountability_id", idParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapPreviewToResponse(preview))
}

// Commit applies one confirmed reconciliation: the entry, the transactions
// that paid it and any sibling entries covered by the same payment
func (h *ReconciliationHandler) Commit(c *gin.Context) {
	orgID := middleware.GetOrganizationID(c)

	if _, err := uuid.Parse(c.Param("id")); err != nil {
		RespondBadRequest(c, "Invalid accountability ID")
		return
	}

	var req CommitReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid commit request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	input, err := mapCommitRequestToInput(req)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	input.CorrelationID = middleware.GetCorrelationID(c)

	result, err := h.service.Commit(c.Request.Context(), orgID, input)
	if err != nil {
		var entryNotFound entry.ErrEntryNotFound
		var transactionNotFound account.ErrTransactionNotFound
		switch {
		case errors.Is(err, reconcile.ErrNoTransactions):
			RespondBadRequest(c, "At least one transaction is required")
		case errors.Is(err, entry.ErrAlreadyConciled{}):
			RespondConflict(c, "ALREADY_RECONCILED", "Entry is already reconciled")
		case errors.Is(err, entry.ErrClosedPeriod{}):
			RespondConflict(c, "CLOSED_PERIOD", "Accountability period no longer accepts changes")
		case errors.As(err, &entryNotFound):
			RespondNotFound(c, "Entry not found")
		case errors.As(err, &transactionNotFound):
			RespondNotFound(c, "Transaction not found or already claimed")
		default:
			h.logger.Error("Failed to commit reconciliation", "entry_id", req.EntryID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	response := CommitReconciliationResponse{
		Entry:       mapEntryToResponse(result.Entry),
		Liquidation: result.Liquidation.Format(time.RFC3339),
	}
	if result.Next != nil {
		next := mapEntryToResponse(result.Next)
		response.Next = &next
	}

	RespondOK(c, response)
}

// Unreconcile reverses a committed reconciliation, releasing the entry's
// transactions back into the available pool
func (h *ReconciliationHandler) Unreconcile(c *gin.Context) {
	orgID := middleware.GetOrganizationID(c)

	idParam := c.Param("id")
	entryID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	if err := h.service.Unreconcile(c.Request.Context(), orgID, entryID, correlationID); err != nil {
		var entryNotFound entry.ErrEntryNotFound
		switch {
		case errors.Is(err, entry.ErrNotConciled{}):
			RespondConflict(c, "NOT_RECONCILED", "Entry is not reconciled")
		case errors.Is(err, entry.ErrClosedPeriod{}):
			RespondConflict(c, "CLOSED_PERIOD", "Accountability period no longer accepts changes")
		case errors.As(err, &entryNotFound):
			RespondNotFound(c, "Entry not found")
		default:
			h.logger.Error("Failed to unreconcile entry", "entry_id", idParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondNoContent(c)
}

func mapCommitRequestToInput(req CommitReconciliationRequest) (reconcile.CommitInput, error) {
	input := reconcile.CommitInput{}

	entryID, err := uuid.Parse(req.EntryID)
	if err != nil {
		return input, errors.New("invalid entry ID")
	}
	input.EntryID = entryID

	for _, raw := range req.TransactionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return input, errors.New("invalid transaction ID: " + raw)
		}
		input.TransactionIDs = append(input.TransactionIDs, id)
	}

	for _, raw := range req.RelatedEntryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return input, errors.New("invalid related entry ID: " + raw)
		}
		input.RelatedEntryIDs = append(input.RelatedEntryIDs, id)
	}

	for _, p := range req.Proofs {
		input.Proofs = append(input.Proofs, entry.Proof{FileName: p.FileName, FileURL: p.FileURL})
	}

	return input, nil
}

// mapEntryToResponse maps a ledger entry entity to a response DTO
func mapEntryToResponse(e *entry.Entry) EntryResponse {
	response := EntryResponse{
		ID:               e.ID.String(),
		AccountabilityID: e.AccountabilityID.String(),
		Kind:             string(e.Kind),
		Value:            e.Value.String(),
		Identification:   e.Identification,
		PayeeName:        e.PayeeName,
		Paid:             e.Paid,
		Conciled:         e.Conciled,
	}
	if e.ConciledAt != nil {
		response.ConciledAt = e.ConciledAt.Format(time.RFC3339)
	}
	if e.Liquidation != nil {
		response.Liquidation = e.Liquidation.Format(time.RFC3339)
	}
	return response
}

func mapPreviewToResponse(preview *reconcile.Preview) PreviewResponse {
	response := PreviewResponse{
		Accountability: AccountabilityResponse{
			ID:         preview.Accountability.ID.String(),
			ContractID: preview.Accountability.ContractID.String(),
			Month:      int(preview.Accountability.Month),
			Year:       preview.Accountability.Year,
			Status:     string(preview.Accountability.Status),
		},
		Pairs: make([]PreviewPairResponse, 0, len(preview.Pairs)),
	}

	for _, pair := range preview.Pairs {
		row := PreviewPairResponse{
			Entry:   mapEntryToResponse(pair.Entry),
			Matched: pair.Matched,
		}
		if pair.Transaction != nil {
			t := mapTransactionToResponse(pair.Transaction)
			row.Transaction = &t
		}
		response.Pairs = append(response.Pairs, row)
	}

	return response
}
