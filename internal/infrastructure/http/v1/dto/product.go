package dto

import (
	"kasbook/internal/domain/catalog/product"
)

// CreateProductRequest registers a catalog product.
type CreateProductRequest struct {
	SKU       string `json:"sku" binding:"required,max=64"`
	Name      string `json:"name" binding:"required,max=255"`
	UnitPrice string `json:"unitPrice" binding:"required,money"`
}

// ToProduct converts the request into a new product.
func (r *CreateProductRequest) ToProduct() (*product.Product, error) {
	price, err := ParseMoney("unitPrice", r.UnitPrice)
	if err != nil {
		return nil, err
	}
	return product.New(r.SKU, r.Name, price), nil
}

// ProductListQuery filters the product list.
type ProductListQuery struct {
	ActiveOnly bool `form:"activeOnly"`
}
