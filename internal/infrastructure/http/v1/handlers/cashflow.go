package handlers

import (
	"github.com/gin-gonic/gin"

	"kasbook/internal/domain/finance"
	"kasbook/internal/infrastructure/http/v1/dto"
)

// CashFlowHandler serves the cash-flow ledger.
type CashFlowHandler struct {
	*BaseHandler
	service *finance.LedgerService
}

// NewCashFlowHandler creates a new cash-flow handler.
func NewCashFlowHandler(service *finance.LedgerService) *CashFlowHandler {
	return &CashFlowHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// List handles GET /cash-flows.
func (h *CashFlowHandler) List(c *gin.Context) {
	var query dto.CashFlowListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	flows, err := h.service.ListCashFlows(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: flows, Count: len(flows)})
}

// Statement handles GET /cash-flows/statement.
func (h *CashFlowHandler) Statement(c *gin.Context) {
	var query dto.StatementQuery
	if !h.BindQuery(c, &query) {
		return
	}

	statement, err := h.service.CashFlowStatement(c.Request.Context(), query.From, query.To)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, statement)
}
