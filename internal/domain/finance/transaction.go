package finance

import (
	"context"
	"time"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/entity"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
)

// TransactionType classifies a monetary movement.
type TransactionType string

const (
	TxIncome     TransactionType = "income"
	TxExpense    TransactionType = "expense"
	TxTransfer   TransactionType = "transfer"
	TxAdjustment TransactionType = "adjustment"
)

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TxIncome, TxExpense, TxTransfer, TxAdjustment:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a transaction.
//
// State machine: pending → completed (posting) or pending → rejected.
// Both completed and rejected are terminal; completed never regresses.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusRejected  TransactionStatus = "rejected"
)

// Transaction is one entry in the financial ledger. The business fact is
// immutable; only the lifecycle status (and its approval fields) change.
type Transaction struct {
	ID              id.ID           `db:"id" json:"id"`
	TransactionCode string          `db:"transaction_code" json:"transactionCode"`
	TransactionType TransactionType `db:"transaction_type" json:"transactionType"`
	Category        string          `db:"category" json:"category"`
	Subcategory     string          `db:"subcategory" json:"subcategory,omitempty"`

	// Amount is always positive; the from/to accounts carry the sign.
	Amount types.Money `db:"amount" json:"amount"`

	FromAccountID *id.ID `db:"from_account_id" json:"fromAccountId,omitempty"`
	ToAccountID   *id.ID `db:"to_account_id" json:"toAccountId,omitempty"`

	Reference   *entity.Reference `db:"-" json:"reference,omitempty"`
	Description string            `db:"description" json:"description"`

	Status         TransactionStatus `db:"status" json:"status"`
	CreatedBy      string            `db:"created_by" json:"createdBy"`
	ApprovedBy     *string           `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt     *time.Time        `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedReason *string           `db:"rejected_reason" json:"rejectedReason,omitempty"`

	TransactionDate time.Time `db:"transaction_date" json:"transactionDate"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks the transaction's business fields.
func (t *Transaction) Validate(ctx context.Context) error {
	if !ValidTransactionType(t.TransactionType) {
		return apperror.NewValidation("unknown transaction type").
			WithDetail("transactionType", string(t.TransactionType))
	}
	if !t.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("amount", t.Amount.String())
	}
	if t.Category == "" {
		return apperror.NewValidation("category is required").WithDetail("field", "category")
	}
	if t.CreatedBy == "" {
		return apperror.NewValidation("creator is required").WithDetail("field", "createdBy")
	}
	if t.Reference != nil && !entity.ValidReferenceKind(t.Reference.Kind) {
		return apperror.NewValidation("unknown reference kind").
			WithDetail("kind", string(t.Reference.Kind))
	}

	switch t.TransactionType {
	case TxIncome:
		if t.ToAccountID == nil {
			return apperror.NewValidation("income requires a destination account").
				WithDetail("field", "toAccountId")
		}
	case TxExpense:
		if t.FromAccountID == nil {
			return apperror.NewValidation("expense requires a source account").
				WithDetail("field", "fromAccountId")
		}
	case TxTransfer:
		if t.FromAccountID == nil || t.ToAccountID == nil {
			return apperror.NewValidation("transfer requires both accounts")
		}
		if *t.FromAccountID == *t.ToAccountID {
			return apperror.NewValidation("transfer accounts must differ")
		}
	case TxAdjustment:
		if t.FromAccountID == nil && t.ToAccountID == nil {
			return apperror.NewValidation("adjustment requires at least one account")
		}
	}

	return nil
}

// PrimaryAccountID is the account the cash-flow entry is recorded on:
// the source when money leaves, otherwise the destination.
func (t *Transaction) PrimaryAccountID() id.ID {
	if t.FromAccountID != nil {
		return *t.FromAccountID
	}
	return *t.ToAccountID
}

// FlowDirection derives whether money left (outflow) or entered (inflow)
// the primary account.
func (t *Transaction) FlowDirection() FlowDirection {
	if t.FromAccountID != nil {
		return FlowOutflow
	}
	return FlowInflow
}

// MarkCompleted applies the pending → completed transition.
func (t *Transaction) MarkCompleted(approverID string, at time.Time) error {
	if t.Status != StatusPending {
		return apperror.NewInvalidStateTransition("transaction", string(t.Status), string(StatusCompleted)).
			WithDetail("transaction_id", t.ID.String())
	}
	t.Status = StatusCompleted
	t.ApprovedBy = &approverID
	t.ApprovedAt = &at
	t.UpdatedAt = at
	return nil
}

// MarkRejected applies the pending → rejected transition. Reason required.
func (t *Transaction) MarkRejected(approverID, reason string, at time.Time) error {
	if reason == "" {
		return apperror.NewValidation("rejection reason is required").WithDetail("field", "reason")
	}
	if t.Status != StatusPending {
		return apperror.NewInvalidStateTransition("transaction", string(t.Status), string(StatusRejected)).
			WithDetail("transaction_id", t.ID.String())
	}
	t.Status = StatusRejected
	t.ApprovedBy = &approverID
	t.RejectedReason = &reason
	t.UpdatedAt = at
	return nil
}
