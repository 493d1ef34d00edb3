package dto

import (
	"time"

	"kasbook/internal/domain/finance"
)

// --- Accounts ---

// CreateAccountRequest opens a financial account.
type CreateAccountRequest struct {
	Name           string `json:"name" binding:"required,max=255"`
	AccountType    string `json:"accountType" binding:"required,oneof=cash bank receivable payable equity revenue expense asset liability"`
	Category       string `json:"category" binding:"omitempty,max=64"`
	OpeningBalance string `json:"openingBalance" binding:"omitempty,money"`
}

// ToAccount converts the request into a new account.
func (r *CreateAccountRequest) ToAccount() (*finance.Account, error) {
	opening, err := ParseMoney("openingBalance", orZero(r.OpeningBalance))
	if err != nil {
		return nil, err
	}
	return finance.NewAccount(r.Name, finance.AccountType(r.AccountType), r.Category, opening), nil
}

// AccountListQuery filters the account list.
type AccountListQuery struct {
	Types      []string `form:"types" binding:"omitempty,dive,oneof=cash bank receivable payable equity revenue expense asset liability"`
	ActiveOnly bool     `form:"activeOnly"`
}

// ToFilter converts the query into the domain filter.
func (q *AccountListQuery) ToFilter() finance.AccountFilter {
	f := finance.AccountFilter{ActiveOnly: q.ActiveOnly}
	for _, t := range q.Types {
		f.Types = append(f.Types, finance.AccountType(t))
	}
	return f
}

// --- Transactions ---

// CreateTransactionRequest writes a pending transaction.
type CreateTransactionRequest struct {
	Type          string            `json:"type" binding:"required,oneof=income expense transfer adjustment"`
	Category      string            `json:"category" binding:"required,max=64"`
	Subcategory   string            `json:"subcategory" binding:"omitempty,max=64"`
	Amount        string            `json:"amount" binding:"required,money"`
	FromAccountID string            `json:"fromAccountId" binding:"omitempty,uuid"`
	ToAccountID   string            `json:"toAccountId" binding:"omitempty,uuid"`
	Reference     *ReferenceRequest `json:"reference"`
	Description   string            `json:"description"`
	Date          *time.Time        `json:"date"`
}

// ToCreateInput converts the request into the domain input.
func (r *CreateTransactionRequest) ToCreateInput(actorID string) (finance.CreateInput, error) {
	amount, err := ParseMoney("amount", r.Amount)
	if err != nil {
		return finance.CreateInput{}, err
	}

	from, err := ParseOptionalID("fromAccountId", r.FromAccountID)
	if err != nil {
		return finance.CreateInput{}, err
	}
	to, err := ParseOptionalID("toAccountId", r.ToAccountID)
	if err != nil {
		return finance.CreateInput{}, err
	}

	in := finance.CreateInput{
		Type:          finance.TransactionType(r.Type),
		Category:      r.Category,
		Subcategory:   r.Subcategory,
		Amount:        amount,
		FromAccountID: from,
		ToAccountID:   to,
		Description:   r.Description,
		CreatedBy:     actorID,
	}
	if r.Date != nil {
		in.Date = *r.Date
	}

	if r.Reference != nil {
		ref, err := r.Reference.toReference()
		if err != nil {
			return finance.CreateInput{}, err
		}
		in.Reference = ref
	}

	return in, nil
}

// RejectTransactionRequest rejects a pending transaction.
type RejectTransactionRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// TransactionListQuery filters the transaction ledger.
type TransactionListQuery struct {
	Status    string     `form:"status" binding:"omitempty,oneof=pending completed rejected"`
	Type      string     `form:"type" binding:"omitempty,oneof=income expense transfer adjustment"`
	AccountID string     `form:"accountId" binding:"omitempty,uuid"`
	FromDate  *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate    *time.Time `form:"toDate" time_format:"2006-01-02"`
	Limit     int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset    int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into the domain filter.
func (q *TransactionListQuery) ToFilter() (finance.TransactionFilter, error) {
	f := finance.TransactionFilter{
		FromDate: q.FromDate,
		ToDate:   q.ToDate,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Status != "" {
		s := finance.TransactionStatus(q.Status)
		f.Status = &s
	}
	if q.Type != "" {
		t := finance.TransactionType(q.Type)
		f.Type = &t
	}
	accountID, err := ParseOptionalID("accountId", q.AccountID)
	if err != nil {
		return finance.TransactionFilter{}, err
	}
	f.AccountID = accountID
	return f, nil
}

// --- Cash flows ---

// CashFlowListQuery filters the cash-flow ledger.
type CashFlowListQuery struct {
	AccountID string     `form:"accountId" binding:"omitempty,uuid"`
	FlowType  string     `form:"flowType" binding:"omitempty,oneof=operating investing financing"`
	FromDate  *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate    *time.Time `form:"toDate" time_format:"2006-01-02"`
	Limit     int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset    int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into the domain filter.
func (q *CashFlowListQuery) ToFilter() (finance.CashFlowFilter, error) {
	f := finance.CashFlowFilter{
		FromDate: q.FromDate,
		ToDate:   q.ToDate,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.FlowType != "" {
		t := finance.FlowType(q.FlowType)
		f.FlowType = &t
	}
	accountID, err := ParseOptionalID("accountId", q.AccountID)
	if err != nil {
		return finance.CashFlowFilter{}, err
	}
	f.AccountID = accountID
	return f, nil
}

// StatementQuery bounds a cash-flow statement period.
type StatementQuery struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02"`
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
