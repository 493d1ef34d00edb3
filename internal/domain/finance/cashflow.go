package finance

import (
	"time"

	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
)

// FlowType buckets a cash movement for the cash-flow statement.
type FlowType string

const (
	FlowOperating FlowType = "operating"
	FlowInvesting FlowType = "investing"
	FlowFinancing FlowType = "financing"
)

// FlowDirection is the sign of a cash-flow entry.
type FlowDirection string

const (
	FlowInflow  FlowDirection = "inflow"
	FlowOutflow FlowDirection = "outflow"
)

// CashFlow is one append-only entry in the cash-flow ledger, derived
// from a completed transaction. Exactly one flow exists per posted
// transaction; its presence is the idempotence guard for approval.
type CashFlow struct {
	ID        id.ID         `db:"id" json:"id"`
	FlowDate  time.Time     `db:"flow_date" json:"flowDate"`
	FlowType  FlowType      `db:"flow_type" json:"flowType"`
	Direction FlowDirection `db:"direction" json:"direction"`
	Category  string        `db:"category" json:"category"`
	Amount    types.Money   `db:"amount" json:"amount"`

	AccountID     id.ID `db:"account_id" json:"accountId"`
	TransactionID id.ID `db:"transaction_id" json:"transactionId"`

	// RunningBalance is the primary account's balance immediately after
	// this flow, enabling point-in-time audit without replay.
	RunningBalance types.Money `db:"running_balance" json:"runningBalance"`

	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// SignedAmount returns the amount with the direction applied.
func (f *CashFlow) SignedAmount() types.Money {
	if f.Direction == FlowOutflow {
		return f.Amount.Neg()
	}
	return f.Amount
}

// FlowStatement aggregates flows per type over a period.
type FlowStatement struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	OperatingIn  types.Money `json:"operatingIn"`
	OperatingOut types.Money `json:"operatingOut"`
	InvestingIn  types.Money `json:"investingIn"`
	InvestingOut types.Money `json:"investingOut"`
	FinancingIn  types.Money `json:"financingIn"`
	FinancingOut types.Money `json:"financingOut"`

	NetChange types.Money `json:"netChange"`
}
