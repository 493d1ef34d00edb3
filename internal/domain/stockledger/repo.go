package stockledger

import (
	"context"
	"time"

	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
)

// Repository defines persistence for the stock ledger.
// Movements are append-only: there is no update or delete.
type Repository interface {
	// CreateMovement appends one movement row.
	CreateMovement(ctx context.Context, m *StockMovement) error

	// LastMovement returns the most recent movement for a product,
	// ordered by (created_at, id), or nil when the product has none.
	LastMovement(ctx context.Context, productID id.ID) (*StockMovement, error)

	// ListByProduct returns movement history, newest first.
	ListByProduct(ctx context.Context, productID id.ID, filter MovementFilter) ([]StockMovement, error)

	// Turnover sums receipts and issues for a product over a period.
	Turnover(ctx context.Context, productID id.ID, from, to time.Time) (Turnover, error)
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	Type     *MovementType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Turnover summarizes stock in/out totals for a period.
type Turnover struct {
	ProductID    id.ID          `json:"productId"`
	OpeningStock types.Quantity `json:"openingStock"`
	Received     types.Quantity `json:"received"`
	Issued       types.Quantity `json:"issued"`
	ClosingStock types.Quantity `json:"closingStock"`
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
}
