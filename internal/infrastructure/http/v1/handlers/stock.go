package handlers

import (
	"github.com/gin-gonic/gin"

	"kasbook/internal/domain/stockledger"
	"kasbook/internal/infrastructure/http/v1/dto"
	"kasbook/internal/infrastructure/storage/postgres"
	"kasbook/pkg/logger"
)

// StockHandler serves the stock ledger.
type StockHandler struct {
	*BaseHandler
	service *stockledger.Service
	audit   *postgres.AuditService
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(service *stockledger.Service, audit *postgres.AuditService) *StockHandler {
	return &StockHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// RecordMovement handles POST /stock/movements.
func (h *StockHandler) RecordMovement(c *gin.Context) {
	var req dto.RecordMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToRecordInput(h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, err := h.service.RecordMovement(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	// Best-effort: audit failures never fail the committed write.
	ctx := c.Request.Context()
	auditErr := h.audit.LogChange(ctx, "stock_movement", movement.ID, postgres.AuditActionCreate, map[string]any{
		"product_id":  movement.ProductID,
		"type":        string(movement.Type),
		"quantity":    movement.Quantity,
		"stock_after": movement.StockAfter,
	})
	if auditErr != nil {
		logger.Warn(ctx, "audit write failed", "movement_id", movement.ID, "error", auditErr)
	}

	h.OK(c, movement)
}

// CurrentStock handles GET /stock/:productId.
func (h *StockHandler) CurrentStock(c *gin.Context) {
	productID, ok := h.ParamID(c, "productId")
	if !ok {
		return
	}

	stock, err := h.service.CurrentStock(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.CurrentStockResponse{
		ProductID: productID.String(),
		Stock:     stock,
	})
}

// MovementHistory handles GET /stock/:productId/movements.
func (h *StockHandler) MovementHistory(c *gin.Context) {
	productID, ok := h.ParamID(c, "productId")
	if !ok {
		return
	}

	var query dto.MovementHistoryQuery
	if !h.BindQuery(c, &query) {
		return
	}

	movements, err := h.service.MovementHistory(c.Request.Context(), productID, query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: movements, Count: len(movements)})
}

// Turnover handles GET /stock/:productId/turnover.
func (h *StockHandler) Turnover(c *gin.Context) {
	productID, ok := h.ParamID(c, "productId")
	if !ok {
		return
	}

	var query dto.TurnoverQuery
	if !h.BindQuery(c, &query) {
		return
	}

	report, err := h.service.TurnoverReport(c.Request.Context(), productID, query.From, query.To)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}
