package finance

import (
	"context"
	"fmt"
	"time"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
	"kasbook/internal/core/tx"
	"kasbook/internal/core/types"
	"kasbook/pkg/logger"
	"kasbook/pkg/numerator"
)

// AccountService provides operations on financial accounts.
type AccountService struct {
	accounts  AccountRepository
	numerator numerator.Generator
	txManager tx.Manager
}

// NewAccountService creates a new account service.
func NewAccountService(accounts AccountRepository, gen numerator.Generator, txManager tx.Manager) *AccountService {
	return &AccountService{
		accounts:  accounts,
		numerator: gen,
		txManager: txManager,
	}
}

// CreateAccount registers a new account with a generated code scoped by
// type (e.g. CASH-00001) and current balance seeded from the opening one.
func (s *AccountService) CreateAccount(ctx context.Context, a *Account) error {
	if err := a.Validate(ctx); err != nil {
		return err
	}

	if a.AccountCode == "" {
		cfg := numerator.DefaultConfig(a.AccountType.CodePrefix())
		code, err := s.numerator.NextCode(ctx, cfg, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate account code: %w", err)
		}
		a.AccountCode = code
	}

	if err := s.accounts.Create(ctx, a); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	logger.Info(ctx, "account created",
		"account_id", a.ID,
		"code", a.AccountCode,
		"type", a.AccountType,
		"opening_balance", a.OpeningBalance,
	)
	return nil
}

// GetAccount retrieves an account by id.
func (s *AccountService) GetAccount(ctx context.Context, accountID id.ID) (*Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

// ListAccounts returns accounts matching the filter.
func (s *AccountService) ListAccounts(ctx context.Context, filter AccountFilter) ([]Account, error) {
	return s.accounts.List(ctx, filter)
}

// Deactivate marks an account inactive. Inactive accounts keep their
// history and remain reconcilable; they only stop accepting new postings.
func (s *AccountService) Deactivate(ctx context.Context, accountID id.ID) error {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !a.IsActive {
		return nil
	}
	return s.accounts.SetActive(ctx, accountID, false)
}

// CashSummary sums current balances across active cash and bank accounts.
// Pure read over cached balances; no ledger replay.
func (s *AccountService) CashSummary(ctx context.Context) (*CashSummary, error) {
	accounts, err := s.accounts.List(ctx, AccountFilter{
		Types:      []AccountType{AccountCash, AccountBank},
		ActiveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list cash accounts: %w", err)
	}

	total := types.ZeroMoney()
	for _, a := range accounts {
		total = total.Add(a.CurrentBalance)
	}

	return &CashSummary{
		TotalBalance: total,
		AccountCount: len(accounts),
		AsOf:         time.Now().UTC(),
	}, nil
}

// applyBalanceChange adjusts a locked account's cached balance. Callers
// must hold the row lock; only posting and reconciliation go through here.
func applyBalanceChange(ctx context.Context, repo AccountRepository, a *Account, amount types.Money, direction BalanceDirection) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("adjustment amount must be positive").
			WithDetail("amount", amount.String())
	}

	switch direction {
	case BalanceAdd:
		a.CurrentBalance = a.CurrentBalance.Add(amount)
	case BalanceSubtract:
		a.CurrentBalance = a.CurrentBalance.Sub(amount)
	default:
		return apperror.NewValidation("unknown balance direction").
			WithDetail("direction", string(direction))
	}

	if err := repo.UpdateBalance(ctx, a.ID, a.CurrentBalance); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}
