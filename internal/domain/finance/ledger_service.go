package finance

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/entity"
	"kasbook/internal/core/id"
	"kasbook/internal/core/tx"
	"kasbook/internal/core/types"
	"kasbook/pkg/logger"
	"kasbook/pkg/numerator"
)

// LedgerService owns the transaction ledger and its posting path: the
// only code allowed to move account balances in response to business
// activity. Balance effects happen exactly once per transaction, at the
// pending → completed transition.
type LedgerService struct {
	transactions TransactionRepository
	accounts     AccountRepository
	cashflows    CashFlowRepository
	categories   CategoryRepository
	numerator    numerator.Generator
	txManager    tx.Manager
}

// NewLedgerService creates a new transaction ledger service.
func NewLedgerService(
	transactions TransactionRepository,
	accounts AccountRepository,
	cashflows CashFlowRepository,
	categories CategoryRepository,
	gen numerator.Generator,
	txManager tx.Manager,
) *LedgerService {
	return &LedgerService{
		transactions: transactions,
		accounts:     accounts,
		cashflows:    cashflows,
		categories:   categories,
		numerator:    gen,
		txManager:    txManager,
	}
}

// CreateInput carries the parameters of a new ledger transaction.
type CreateInput struct {
	Type          TransactionType
	Category      string
	Subcategory   string
	Amount        types.Money
	FromAccountID *id.ID
	ToAccountID   *id.ID
	Reference     *entity.Reference
	Description   string
	CreatedBy     string
	Date          time.Time
}

// CreateTransaction allocates a code and writes a pending transaction.
// No balance effect until approval.
func (s *LedgerService) CreateTransaction(ctx context.Context, in CreateInput) (*Transaction, error) {
	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	t := &Transaction{
		ID:              id.New(),
		TransactionType: in.Type,
		Category:        in.Category,
		Subcategory:     in.Subcategory,
		Amount:          in.Amount,
		FromAccountID:   in.FromAccountID,
		ToAccountID:     in.ToAccountID,
		Reference:       in.Reference,
		Description:     in.Description,
		Status:          StatusPending,
		CreatedBy:       in.CreatedBy,
		TransactionDate: date,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := t.Validate(ctx); err != nil {
		return nil, err
	}

	// Category must exist in the lookup table; the table is seeded, not
	// hard-coded, so new categories need no code change.
	if _, err := s.categories.GetByCode(ctx, t.Category); err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewValidation("unknown transaction category").
				WithDetail("category", t.Category)
		}
		return nil, err
	}

	// Referenced accounts must exist and accept postings.
	for _, accID := range []*id.ID{t.FromAccountID, t.ToAccountID} {
		if accID == nil {
			continue
		}
		a, err := s.accounts.GetByID(ctx, *accID)
		if err != nil {
			return nil, err
		}
		if !a.IsActive {
			return nil, apperror.NewValidation("account is inactive").
				WithDetail("account_id", a.ID.String())
		}
	}

	cfg := numerator.Config{Prefix: "TRX", Reset: numerator.ResetDay, PadWidth: 4}
	code, err := s.numerator.NextCode(ctx, cfg, nil, date)
	if err != nil {
		return nil, fmt.Errorf("generate transaction code: %w", err)
	}
	t.TransactionCode = code

	if err := s.transactions.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	logger.Info(ctx, "transaction created",
		"transaction_id", t.ID,
		"code", t.TransactionCode,
		"type", t.TransactionType,
		"amount", t.Amount,
	)
	return t, nil
}

// Approve posts a pending transaction: marks it completed, applies the
// balance effects to both accounts, and appends the cash-flow entry in
// one atomic unit of work.
//
// Idempotent: if a cash-flow row already references the transaction, the
// posting already happened and Approve returns the stored transaction
// without touching balances again.
func (s *LedgerService) Approve(ctx context.Context, txID id.ID, approverID string) (*Transaction, error) {
	if approverID == "" {
		return nil, apperror.NewValidation("approver is required").WithDetail("field", "approverId")
	}

	var result *Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.transactions.GetByIDForUpdate(ctx, txID)
		if err != nil {
			return err
		}

		// Idempotence guard: one cash-flow row per posted transaction.
		existing, err := s.cashflows.GetByTransactionID(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("check existing flow: %w", err)
		}
		if existing != nil {
			logger.Info(ctx, "transaction already posted, approve is a no-op",
				"transaction_id", t.ID, "flow_id", existing.ID)
			result = t
			return nil
		}

		now := time.Now().UTC()
		if err := t.MarkCompleted(approverID, now); err != nil {
			return err
		}

		from, to, err := s.lockAccounts(ctx, t)
		if err != nil {
			return err
		}

		if from != nil {
			if err := applyBalanceChange(ctx, s.accounts, from, t.Amount, BalanceSubtract); err != nil {
				return err
			}
		}
		if to != nil {
			if err := applyBalanceChange(ctx, s.accounts, to, t.Amount, BalanceAdd); err != nil {
				return err
			}
		}

		primary := from
		if primary == nil {
			primary = to
		}

		cat, err := s.categories.GetByCode(ctx, t.Category)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}

		flow := &CashFlow{
			ID:             id.New(),
			FlowDate:       t.TransactionDate,
			FlowType:       FlowTypeFor(cat, t.TransactionType),
			Direction:      t.FlowDirection(),
			Category:       t.Category,
			Amount:         t.Amount,
			AccountID:      primary.ID,
			TransactionID:  t.ID,
			RunningBalance: primary.CurrentBalance,
			Description:    t.Description,
			CreatedAt:      now,
		}
		if err := s.cashflows.Create(ctx, flow); err != nil {
			return fmt.Errorf("create cash flow: %w", err)
		}

		if err := s.transactions.UpdateStatus(ctx, t); err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}

		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transaction approved",
		"transaction_id", result.ID,
		"code", result.TransactionCode,
		"approved_by", approverID,
	)
	return result, nil
}

// Reject applies pending → rejected. Terminal, no balance effect.
func (s *LedgerService) Reject(ctx context.Context, txID id.ID, approverID, reason string) (*Transaction, error) {
	if approverID == "" {
		return nil, apperror.NewValidation("approver is required").WithDetail("field", "approverId")
	}

	var result *Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.transactions.GetByIDForUpdate(ctx, txID)
		if err != nil {
			return err
		}

		if err := t.MarkRejected(approverID, reason, time.Now().UTC()); err != nil {
			return err
		}

		if err := s.transactions.UpdateStatus(ctx, t); err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}

		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transaction rejected",
		"transaction_id", result.ID,
		"rejected_by", approverID,
		"reason", reason,
	)
	return result, nil
}

// GetTransaction retrieves a transaction by id.
func (s *LedgerService) GetTransaction(ctx context.Context, txID id.ID) (*Transaction, error) {
	return s.transactions.GetByID(ctx, txID)
}

// ListTransactions returns transactions matching the filter.
func (s *LedgerService) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.transactions.List(ctx, filter)
}

// ListCashFlows returns cash-flow entries matching the filter.
func (s *LedgerService) ListCashFlows(ctx context.Context, filter CashFlowFilter) ([]CashFlow, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.cashflows.List(ctx, filter)
}

// CashFlowStatement aggregates flows per type over a period.
func (s *LedgerService) CashFlowStatement(ctx context.Context, from, to time.Time) (FlowStatement, error) {
	if !to.After(from) {
		return FlowStatement{}, apperror.NewValidation("period end must be after start")
	}
	return s.cashflows.Statement(ctx, from, to)
}

// lockAccounts acquires row locks on the transaction's accounts in
// ascending id order so concurrent postings cannot deadlock.
func (s *LedgerService) lockAccounts(ctx context.Context, t *Transaction) (from, to *Account, err error) {
	type target struct {
		accID id.ID
		dst   **Account
	}
	var targets []target
	if t.FromAccountID != nil {
		targets = append(targets, target{*t.FromAccountID, &from})
	}
	if t.ToAccountID != nil {
		targets = append(targets, target{*t.ToAccountID, &to})
	}

	if len(targets) == 2 && bytes.Compare(targets[0].accID[:], targets[1].accID[:]) > 0 {
		targets[0], targets[1] = targets[1], targets[0]
	}

	for _, tg := range targets {
		a, lockErr := s.accounts.GetByIDForUpdate(ctx, tg.accID)
		if lockErr != nil {
			return nil, nil, lockErr
		}
		*tg.dst = a
	}
	return from, to, nil
}
