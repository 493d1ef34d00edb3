// Package finance provides the monetary side of the ledger engine:
// named accounts with cached balances, the append-only transaction
// ledger with its approval state machine, and the derived cash-flow log.
package finance

import (
	"context"
	"time"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
)

// AccountType classifies a financial account.
type AccountType string

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountReceivable AccountType = "receivable"
	AccountPayable    AccountType = "payable"
	AccountEquity     AccountType = "equity"
	AccountRevenue    AccountType = "revenue"
	AccountExpense    AccountType = "expense"
	AccountAsset      AccountType = "asset"
	AccountLiability  AccountType = "liability"
)

// accountCodePrefixes maps account types to their code prefixes.
// Codes are generated as {PREFIX}-{NNNNN}.
var accountCodePrefixes = map[AccountType]string{
	AccountCash:       "CASH",
	AccountBank:       "BANK",
	AccountReceivable: "RCVB",
	AccountPayable:    "PYBL",
	AccountEquity:     "EQTY",
	AccountRevenue:    "RVNU",
	AccountExpense:    "EXPS",
	AccountAsset:      "ASST",
	AccountLiability:  "LBLT",
}

// CodePrefix returns the account-code prefix for a type.
func (t AccountType) CodePrefix() string {
	return accountCodePrefixes[t]
}

// ValidAccountType reports whether t is a known account type.
func ValidAccountType(t AccountType) bool {
	_, ok := accountCodePrefixes[t]
	return ok
}

// IsCashLike reports whether the account counts toward the cash summary.
func (t AccountType) IsCashLike() bool {
	return t == AccountCash || t == AccountBank
}

// Account is a named monetary account with a cached balance.
//
// Invariant: CurrentBalance equals OpeningBalance plus the sum of all
// completed transactions crediting the account, minus those debiting it.
// The reconciliation engine repairs any drift from that fold.
type Account struct {
	ID          id.ID       `db:"id" json:"id"`
	AccountCode string      `db:"account_code" json:"accountCode"`
	AccountType AccountType `db:"account_type" json:"accountType"`
	Name        string      `db:"name" json:"name"`
	Category    string      `db:"category" json:"category,omitempty"`

	OpeningBalance types.Money `db:"opening_balance" json:"openingBalance"`
	CurrentBalance types.Money `db:"current_balance" json:"currentBalance"`

	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewAccount creates an account with current balance seeded from the
// opening balance. The code is assigned by the service.
func NewAccount(name string, accountType AccountType, category string, openingBalance types.Money) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:             id.New(),
		AccountType:    accountType,
		Name:           name,
		Category:       category,
		OpeningBalance: openingBalance,
		CurrentBalance: openingBalance,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate checks account fields.
func (a *Account) Validate(ctx context.Context) error {
	if a.Name == "" {
		return apperror.NewValidation("account name is required").WithDetail("field", "name")
	}
	if !ValidAccountType(a.AccountType) {
		return apperror.NewValidation("unknown account type").WithDetail("accountType", string(a.AccountType))
	}
	return nil
}

// BalanceDirection selects the sign of a balance adjustment.
type BalanceDirection string

const (
	BalanceAdd      BalanceDirection = "add"
	BalanceSubtract BalanceDirection = "subtract"
)

// CashSummary aggregates balances across cash-like accounts.
type CashSummary struct {
	TotalBalance types.Money `json:"totalBalance"`
	AccountCount int         `json:"accountCount"`
	AsOf         time.Time   `json:"asOf"`
}
