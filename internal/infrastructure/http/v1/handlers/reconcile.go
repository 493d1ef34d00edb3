package handlers

import (
	"github.com/gin-gonic/gin"

	"kasbook/internal/domain/reconcile"
)

// ReconcileHandler triggers consistency checks over the ledgers.
type ReconcileHandler struct {
	*BaseHandler
	engine *reconcile.Engine
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(engine *reconcile.Engine) *ReconcileHandler {
	return &ReconcileHandler{
		BaseHandler: NewBaseHandler(),
		engine:      engine,
	}
}

// Recalculate handles POST /reconcile/recalculate.
// Recomputes every cached balance from its ledger and repairs drift.
func (h *ReconcileHandler) Recalculate(c *gin.Context) {
	summary, err := h.engine.RecalculateBalances(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, summary)
}
