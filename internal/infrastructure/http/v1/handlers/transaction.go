package handlers

import (
	"github.com/gin-gonic/gin"

	"kasbook/internal/domain/finance"
	"kasbook/internal/infrastructure/http/v1/dto"
	"kasbook/internal/infrastructure/storage/postgres"
	"kasbook/pkg/logger"
)

// TransactionHandler serves the financial transaction ledger.
type TransactionHandler struct {
	*BaseHandler
	service *finance.LedgerService
	audit   *postgres.AuditService
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(service *finance.LedgerService, audit *postgres.AuditService) *TransactionHandler {
	return &TransactionHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// auditLog writes an audit entry. Best-effort: audit failures never fail
// the request that already committed.
func (h *TransactionHandler) auditLog(c *gin.Context, t *finance.Transaction, action postgres.AuditAction) {
	ctx := c.Request.Context()
	err := h.audit.LogChange(ctx, "transaction", t.ID, action, map[string]any{
		"code":   t.TransactionCode,
		"status": string(t.Status),
		"amount": t.Amount,
	})
	if err != nil {
		logger.Warn(ctx, "audit write failed", "transaction_id", t.ID, "error", err)
	}
}

// Create handles POST /transactions.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToCreateInput(h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	transaction, err := h.service.CreateTransaction(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.auditLog(c, transaction, postgres.AuditActionCreate)
	h.Created(c, transaction.ID)
}

// Get handles GET /transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	txID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	transaction, err := h.service.GetTransaction(c.Request.Context(), txID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, transaction)
}

// List handles GET /transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	var query dto.TransactionListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	transactions, err := h.service.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: transactions, Count: len(transactions)})
}

// Approve handles POST /transactions/:id/approve.
// Approval is idempotent: re-approving a completed transaction returns
// it unchanged with no second balance effect.
func (h *TransactionHandler) Approve(c *gin.Context) {
	txID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	transaction, err := h.service.Approve(c.Request.Context(), txID, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.auditLog(c, transaction, postgres.AuditActionPost)
	h.OK(c, transaction)
}

// Reject handles POST /transactions/:id/reject.
func (h *TransactionHandler) Reject(c *gin.Context) {
	txID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.RejectTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	transaction, err := h.service.Reject(c.Request.Context(), txID, h.ActorID(c), req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.auditLog(c, transaction, postgres.AuditActionReject)
	h.OK(c, transaction)
}
