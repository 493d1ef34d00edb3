package dto

import (
	"time"

	"kasbook/internal/core/types"
	"kasbook/internal/domain/flows"
)

// LineRequest is one product line of a sale or purchase.
type LineRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`

	// UnitPrice overrides the catalog price when set.
	UnitPrice string `json:"unitPrice" binding:"omitempty,money"`
}

func (r *LineRequest) toLine() (flows.Line, error) {
	productID, err := ParseID("productId", r.ProductID)
	if err != nil {
		return flows.Line{}, err
	}

	line := flows.Line{
		ProductID: productID,
		Quantity:  types.Quantity(r.Quantity),
	}
	if r.UnitPrice != "" {
		price, err := ParseMoney("unitPrice", r.UnitPrice)
		if err != nil {
			return flows.Line{}, err
		}
		line.UnitPrice = &price
	}
	return line, nil
}

func toLines(reqs []LineRequest) ([]flows.Line, error) {
	lines := make([]flows.Line, 0, len(reqs))
	for _, r := range reqs {
		line, err := r.toLine()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// SaleRequest posts a sale: stock out plus an approved income transaction.
type SaleRequest struct {
	Lines       []LineRequest `json:"lines" binding:"required,min=1,dive"`
	AccountID   string        `json:"accountId" binding:"required,uuid"`
	Description string        `json:"description"`
	Date        *time.Time    `json:"date"`
}

// ToSaleInput converts the request into the domain input.
func (r *SaleRequest) ToSaleInput(actorID string) (flows.SaleInput, error) {
	lines, err := toLines(r.Lines)
	if err != nil {
		return flows.SaleInput{}, err
	}
	accountID, err := ParseID("accountId", r.AccountID)
	if err != nil {
		return flows.SaleInput{}, err
	}

	in := flows.SaleInput{
		Lines:       lines,
		AccountID:   accountID,
		ActorID:     actorID,
		Description: r.Description,
	}
	if r.Date != nil {
		in.Date = *r.Date
	}
	return in, nil
}

// PurchaseRequest posts a purchase: stock in plus an approved expense.
type PurchaseRequest struct {
	Lines       []LineRequest `json:"lines" binding:"required,min=1,dive"`
	AccountID   string        `json:"accountId" binding:"required,uuid"`
	Description string        `json:"description"`
	Date        *time.Time    `json:"date"`
}

// ToPurchaseInput converts the request into the domain input.
func (r *PurchaseRequest) ToPurchaseInput(actorID string) (flows.PurchaseInput, error) {
	lines, err := toLines(r.Lines)
	if err != nil {
		return flows.PurchaseInput{}, err
	}
	accountID, err := ParseID("accountId", r.AccountID)
	if err != nil {
		return flows.PurchaseInput{}, err
	}

	in := flows.PurchaseInput{
		Lines:       lines,
		AccountID:   accountID,
		ActorID:     actorID,
		Description: r.Description,
	}
	if r.Date != nil {
		in.Date = *r.Date
	}
	return in, nil
}

// PaymentRequest posts an approved expense payment from an account.
type PaymentRequest struct {
	FromAccountID string            `json:"fromAccountId" binding:"required,uuid"`
	Amount        string            `json:"amount" binding:"required,money"`
	Category      string            `json:"category" binding:"omitempty,max=64"`
	Reference     *ReferenceRequest `json:"reference"`
	Description   string            `json:"description"`
	Date          *time.Time        `json:"date"`
}

// ToPaymentInput converts the request into the domain input.
func (r *PaymentRequest) ToPaymentInput(actorID string) (flows.PaymentInput, error) {
	fromAccountID, err := ParseID("fromAccountId", r.FromAccountID)
	if err != nil {
		return flows.PaymentInput{}, err
	}
	amount, err := ParseMoney("amount", r.Amount)
	if err != nil {
		return flows.PaymentInput{}, err
	}

	in := flows.PaymentInput{
		FromAccountID: fromAccountID,
		Amount:        amount,
		Category:      r.Category,
		Description:   r.Description,
		ActorID:       actorID,
	}
	if r.Date != nil {
		in.Date = *r.Date
	}

	if r.Reference != nil {
		ref, err := r.Reference.toReference()
		if err != nil {
			return flows.PaymentInput{}, err
		}
		in.Reference = ref
	}

	return in, nil
}
