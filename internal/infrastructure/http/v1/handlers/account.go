package handlers

import (
	"github.com/gin-gonic/gin"

	"kasbook/internal/domain/finance"
	"kasbook/internal/infrastructure/http/v1/dto"
	"kasbook/internal/infrastructure/storage/postgres"
	"kasbook/pkg/logger"
)

// AccountHandler serves the financial account store.
type AccountHandler struct {
	*BaseHandler
	service *finance.AccountService
	audit   *postgres.AuditService
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(service *finance.AccountService, audit *postgres.AuditService) *AccountHandler {
	return &AccountHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// Create handles POST /accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account, err := req.ToAccount()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.CreateAccount(c.Request.Context(), account); err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	auditErr := h.audit.LogChange(ctx, "account", account.ID, postgres.AuditActionCreate, map[string]any{
		"code": account.AccountCode,
		"type": string(account.AccountType),
	})
	if auditErr != nil {
		logger.Warn(ctx, "audit write failed", "account_id", account.ID, "error", auditErr)
	}

	h.Created(c, account.ID)
}

// Get handles GET /accounts/:id.
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	account, err := h.service.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, account)
}

// List handles GET /accounts.
func (h *AccountHandler) List(c *gin.Context) {
	var query dto.AccountListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	accounts, err := h.service.ListAccounts(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: accounts, Count: len(accounts)})
}

// Deactivate handles POST /accounts/:id/deactivate.
func (h *AccountHandler) Deactivate(c *gin.Context) {
	accountID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), accountID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// CashSummary handles GET /accounts/cash-summary.
func (h *AccountHandler) CashSummary(c *gin.Context) {
	summary, err := h.service.CashSummary(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, summary)
}
