// Package stockledger provides the append-only inventory movement log.
// A product's current stock is always the stock_after of its most recent
// movement; the Product.Stock field is a cache over this ledger.
package stockledger

import (
	"time"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/entity"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
)

// MovementType classifies an inventory change.
type MovementType string

const (
	TypeIn         MovementType = "in"
	TypeOut        MovementType = "out"
	TypeAdjustment MovementType = "adjustment"
	TypeCorrection MovementType = "correction"
	TypeReturn     MovementType = "return"
	TypeDamage     MovementType = "damage"
)

// Direction is the sign of a movement. Quantities in the ledger are
// always unsigned; the direction carries the sign. For in/return/out/damage
// the direction is implied by the type; adjustment and correction must
// state it explicitly.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// StockMovement is one immutable entry in the stock ledger.
// Never updated or deleted once written.
type StockMovement struct {
	ID        id.ID          `db:"id" json:"id"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Type      MovementType   `db:"movement_type" json:"type"`
	Direction Direction      `db:"direction" json:"direction"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`

	// Snapshot of the product's stock around this write.
	// Invariant: StockAfter = StockBefore + SignedQuantity().
	StockBefore types.Quantity `db:"stock_before" json:"stockBefore"`
	StockAfter  types.Quantity `db:"stock_after" json:"stockAfter"`

	UnitPrice   *types.Money      `db:"unit_price" json:"unitPrice,omitempty"`
	Reference   *entity.Reference `db:"-" json:"reference,omitempty"`
	Metadata    map[string]string `db:"metadata" json:"metadata,omitempty"`
	Description string            `db:"description" json:"description"`
	ActorID     string            `db:"actor_id" json:"actorId"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
}

// SignedQuantity returns the quantity with its direction applied.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.Direction == DirectionDecrease {
		return -m.Quantity
	}
	return m.Quantity
}

// DirectionForType returns the implied direction for a movement type, or
// false when the type needs an explicit direction.
func DirectionForType(t MovementType) (Direction, bool) {
	switch t {
	case TypeIn, TypeReturn:
		return DirectionIncrease, true
	case TypeOut, TypeDamage:
		return DirectionDecrease, true
	default:
		return "", false
	}
}

// ValidType reports whether t is a known movement type.
func ValidType(t MovementType) bool {
	switch t {
	case TypeIn, TypeOut, TypeAdjustment, TypeCorrection, TypeReturn, TypeDamage:
		return true
	}
	return false
}

// RecordInput carries the parameters of one movement write.
type RecordInput struct {
	ProductID id.ID
	Type      MovementType

	// Direction is required for adjustment and correction, ignored (and
	// overridden by the type's implied direction) otherwise.
	Direction Direction

	// Quantity is always a positive count.
	Quantity types.Quantity

	Description string
	ActorID     string
	Reference   *entity.Reference
	UnitPrice   *types.Money
	Metadata    map[string]string
}

// Validate checks the input and resolves the effective direction.
func (in *RecordInput) Validate() (Direction, error) {
	if id.IsNil(in.ProductID) {
		return "", apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if !ValidType(in.Type) {
		return "", apperror.NewValidation("unknown movement type").WithDetail("type", string(in.Type))
	}
	if in.Quantity <= 0 {
		return "", apperror.NewValidation("quantity must be positive").WithDetail("quantity", in.Quantity)
	}
	if in.ActorID == "" {
		return "", apperror.NewValidation("actor is required").WithDetail("field", "actorId")
	}
	if in.Reference != nil && !entity.ValidReferenceKind(in.Reference.Kind) {
		return "", apperror.NewValidation("unknown reference kind").WithDetail("kind", string(in.Reference.Kind))
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return "", apperror.NewValidation("unit price cannot be negative").WithDetail("field", "unitPrice")
	}

	dir, implied := DirectionForType(in.Type)
	if implied {
		return dir, nil
	}

	switch in.Direction {
	case DirectionIncrease, DirectionDecrease:
		return in.Direction, nil
	default:
		return "", apperror.NewValidation("direction is required for adjustment and correction movements").
			WithDetail("type", string(in.Type))
	}
}
