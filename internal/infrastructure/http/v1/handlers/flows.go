package handlers

import (
	"github.com/gin-gonic/gin"

	"kasbook/internal/domain/flows"
	"kasbook/internal/infrastructure/http/v1/dto"
)

// FlowsHandler serves composite business flows that touch both ledgers.
type FlowsHandler struct {
	*BaseHandler
	service *flows.Service
}

// NewFlowsHandler creates a new flows handler.
func NewFlowsHandler(service *flows.Service) *FlowsHandler {
	return &FlowsHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Sale handles POST /flows/sale.
// Stock out and the approved income transaction commit together.
func (h *FlowsHandler) Sale(c *gin.Context) {
	var req dto.SaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToSaleInput(h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.SaleCheckout(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Purchase handles POST /flows/purchase.
func (h *FlowsHandler) Purchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToPurchaseInput(h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.PurchaseReceipt(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Expense handles POST /flows/expense.
func (h *FlowsHandler) Expense(c *gin.Context) {
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToPaymentInput(h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	transaction, err := h.service.ExpensePayment(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, transaction)
}

// Payroll handles POST /flows/payroll.
func (h *FlowsHandler) Payroll(c *gin.Context) {
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToPaymentInput(h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	transaction, err := h.service.PayrollPayment(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, transaction)
}
