package product

import (
	"context"

	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
)

// Repository defines persistence operations for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error

	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetByIDForUpdate returns the product under a row lock. The stock
	// ledger reads the cached stock this way before writing a movement.
	GetByIDForUpdate(ctx context.Context, productID id.ID) (*Product, error)

	// UpdateStock sets the cached stock field. Only the stock ledger and
	// the reconciliation engine may call this.
	UpdateStock(ctx context.Context, productID id.ID, stock types.Quantity) error

	List(ctx context.Context, activeOnly bool) ([]Product, error)
}
