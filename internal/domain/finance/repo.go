package finance

import (
	"context"
	"time"

	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
)

// AccountRepository defines persistence for financial accounts.
type AccountRepository interface {
	Create(ctx context.Context, a *Account) error

	GetByID(ctx context.Context, accountID id.ID) (*Account, error)

	// GetByIDForUpdate returns the account under a row lock. Posting
	// locks both accounts of a transaction this way, ordered by id.
	GetByIDForUpdate(ctx context.Context, accountID id.ID) (*Account, error)

	List(ctx context.Context, filter AccountFilter) ([]Account, error)

	// UpdateBalance sets the cached balance. Only posting and the
	// reconciliation engine may call this.
	UpdateBalance(ctx context.Context, accountID id.ID, balance types.Money) error

	SetActive(ctx context.Context, accountID id.ID, active bool) error
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	Types      []AccountType
	ActiveOnly bool
}

// TransactionRepository defines persistence for the transaction ledger.
type TransactionRepository interface {
	Create(ctx context.Context, t *Transaction) error

	GetByID(ctx context.Context, txID id.ID) (*Transaction, error)

	// GetByIDForUpdate locks the transaction row so concurrent approvals
	// of the same transaction serialize.
	GetByIDForUpdate(ctx context.Context, txID id.ID) (*Transaction, error)

	// UpdateStatus persists a lifecycle transition with its approval fields.
	UpdateStatus(ctx context.Context, t *Transaction) error

	List(ctx context.Context, filter TransactionFilter) ([]Transaction, error)

	// ListCompletedOrdered streams all completed transactions ordered by
	// (transaction_date, id) for the reconciliation fold.
	ListCompletedOrdered(ctx context.Context) ([]Transaction, error)
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	Status    *TransactionStatus
	Type      *TransactionType
	AccountID *id.ID
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}

// CashFlowRepository defines persistence for the cash-flow ledger.
type CashFlowRepository interface {
	Create(ctx context.Context, f *CashFlow) error

	// GetByTransactionID returns the flow posted for a transaction, or
	// nil when none exists. This is the approval idempotence check.
	GetByTransactionID(ctx context.Context, txID id.ID) (*CashFlow, error)

	List(ctx context.Context, filter CashFlowFilter) ([]CashFlow, error)

	// ListByAccountOrdered returns an account's flows ordered by
	// (flow_date, id) for running-balance verification and repair.
	ListByAccountOrdered(ctx context.Context, accountID id.ID) ([]CashFlow, error)

	// UpdateRunningBalance repairs a stored running-balance snapshot.
	UpdateRunningBalance(ctx context.Context, flowID id.ID, balance types.Money) error

	// Statement aggregates flows per type over a period.
	Statement(ctx context.Context, from, to time.Time) (FlowStatement, error)
}

// CashFlowFilter narrows flow listings.
type CashFlowFilter struct {
	AccountID *id.ID
	FlowType  *FlowType
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}

// CategoryRepository is the validated category lookup table.
type CategoryRepository interface {
	GetByCode(ctx context.Context, code string) (*Category, error)
	List(ctx context.Context) ([]Category, error)
}
