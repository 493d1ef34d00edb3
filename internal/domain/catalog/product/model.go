// Package product provides the product catalog entry the stock ledger
// hangs off. Catalog CRUD itself is thin; the part that matters here is
// the cached Stock field, which is a derived view of the stock ledger.
package product

import (
	"context"
	"time"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
)

// Product represents a sellable item with a cached stock count.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`

	// UnitPrice is the default sale price.
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// Stock is the cached on-hand quantity. Its correct value is always
	// the stock_after of the product's most recent stock movement; the
	// reconciliation engine repairs any drift.
	Stock types.Quantity `db:"stock" json:"stock"`

	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a new product with zero stock.
func New(sku, name string, unitPrice types.Money) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:        id.New(),
		SKU:       sku,
		Name:      name,
		UnitPrice: unitPrice,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks required fields.
func (p *Product) Validate(ctx context.Context) error {
	if p.SKU == "" {
		return apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	if p.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if p.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").WithDetail("field", "unitPrice")
	}
	return nil
}
