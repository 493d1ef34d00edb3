package dto

import (
	"time"

	"kasbook/internal/core/entity"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/stockledger"
)

// RecordMovementRequest appends one movement to a product's stock ledger.
type RecordMovementRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Type      string `json:"type" binding:"required,oneof=in out adjustment correction return damage"`

	// Direction is required for adjustment and correction movements.
	Direction string `json:"direction" binding:"omitempty,oneof=increase decrease"`

	Quantity    int64             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   string            `json:"unitPrice" binding:"omitempty,money"`
	Description string            `json:"description"`
	Reference   *ReferenceRequest `json:"reference"`
	Metadata    map[string]string `json:"metadata"`
}

// ReferenceRequest links a ledger entry to a business document.
type ReferenceRequest struct {
	Kind string `json:"kind" binding:"required,oneof=sale purchase payroll expense manual"`
	ID   string `json:"id" binding:"required,uuid"`
}

func (r *ReferenceRequest) toReference() (*entity.Reference, error) {
	refID, err := ParseID("reference.id", r.ID)
	if err != nil {
		return nil, err
	}
	return &entity.Reference{
		Kind: entity.ReferenceKind(r.Kind),
		ID:   refID,
	}, nil
}

// ToRecordInput converts the request into the domain input.
func (r *RecordMovementRequest) ToRecordInput(actorID string) (stockledger.RecordInput, error) {
	productID, err := ParseID("productId", r.ProductID)
	if err != nil {
		return stockledger.RecordInput{}, err
	}

	in := stockledger.RecordInput{
		ProductID:   productID,
		Type:        stockledger.MovementType(r.Type),
		Direction:   stockledger.Direction(r.Direction),
		Quantity:    types.Quantity(r.Quantity),
		Description: r.Description,
		ActorID:     actorID,
		Metadata:    r.Metadata,
	}

	if r.UnitPrice != "" {
		price, err := ParseMoney("unitPrice", r.UnitPrice)
		if err != nil {
			return stockledger.RecordInput{}, err
		}
		in.UnitPrice = &price
	}

	if r.Reference != nil {
		ref, err := r.Reference.toReference()
		if err != nil {
			return stockledger.RecordInput{}, err
		}
		in.Reference = ref
	}

	return in, nil
}

// MovementHistoryQuery filters a product's movement history.
type MovementHistoryQuery struct {
	Type     string     `form:"type" binding:"omitempty,oneof=in out adjustment correction return damage"`
	FromDate *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"toDate" time_format:"2006-01-02"`
	Limit    int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into the domain filter.
func (q *MovementHistoryQuery) ToFilter() stockledger.MovementFilter {
	f := stockledger.MovementFilter{
		FromDate: q.FromDate,
		ToDate:   q.ToDate,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Type != "" {
		t := stockledger.MovementType(q.Type)
		f.Type = &t
	}
	return f
}

// TurnoverQuery bounds a turnover report period.
type TurnoverQuery struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02"`
}

// CurrentStockResponse reports a product's cached on-hand quantity.
type CurrentStockResponse struct {
	ProductID string `json:"productId"`
	Stock     int64  `json:"stock"`
}
