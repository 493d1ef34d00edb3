// Package reconcile provides the consistency engine that recomputes
// every derived balance from the ledgers and repairs drift. The engine
// is the source of truth: stored values are overwritten with the fold
// result, never the other way around.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
	"kasbook/internal/core/tx"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/catalog/product"
	"kasbook/internal/domain/finance"
	"kasbook/internal/domain/stockledger"
	"kasbook/pkg/logger"
)

// Discrepancy records one mismatch between a stored derived value and
// the value recomputed from the ledger.
type Discrepancy struct {
	Entity   string `json:"entity"`
	ID       id.ID  `json:"id"`
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Stored   string `json:"stored"`
}

// Summary is the result of one reconciliation run.
type Summary struct {
	AccountsChecked  int `json:"accountsChecked"`
	AccountsRepaired int `json:"accountsRepaired"`
	ProductsChecked  int `json:"productsChecked"`
	ProductsRepaired int `json:"productsRepaired"`
	FlowsChecked     int `json:"flowsChecked"`
	FlowsRepaired    int `json:"flowsRepaired"`

	// SkippedEntries counts ledger rows referencing missing accounts.
	// They are logged and excluded from the fold, never fatal.
	SkippedEntries int `json:"skippedEntries"`

	// CashBalance is the recomputed cash+bank total.
	CashBalance types.Money `json:"cashBalance"`

	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Engine recomputes derived balances from the ledgers.
type Engine struct {
	accounts     finance.AccountRepository
	transactions finance.TransactionRepository
	cashflows    finance.CashFlowRepository
	products     product.Repository
	movements    stockledger.Repository
	txManager    tx.SnapshotManager
}

// NewEngine creates a reconciliation engine.
func NewEngine(
	accounts finance.AccountRepository,
	transactions finance.TransactionRepository,
	cashflows finance.CashFlowRepository,
	products product.Repository,
	movements stockledger.Repository,
	txManager tx.SnapshotManager,
) *Engine {
	return &Engine{
		accounts:     accounts,
		transactions: transactions,
		cashflows:    cashflows,
		products:     products,
		movements:    movements,
		txManager:    txManager,
	}
}

// RecalculateBalances recomputes every account balance, product stock
// cache, and cash-flow running balance from the ledgers, repairing any
// drift. Runs under a repeatable-read snapshot so concurrent approvals
// cannot corrupt the fold. Idempotent: a second run with no intervening
// writes finds nothing left to repair.
func (e *Engine) RecalculateBalances(ctx context.Context) (*Summary, error) {
	summary := &Summary{StartedAt: time.Now().UTC()}

	err := e.txManager.RunInSnapshot(ctx, func(ctx context.Context) error {
		accounts, err := e.accounts.List(ctx, finance.AccountFilter{})
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}

		transactions, err := e.transactions.ListCompletedOrdered(ctx)
		if err != nil {
			return fmt.Errorf("list completed transactions: %w", err)
		}

		if err := e.reconcileAccounts(ctx, accounts, transactions, summary); err != nil {
			return err
		}
		if err := e.reconcileFlows(ctx, accounts, transactions, summary); err != nil {
			return err
		}
		if err := e.reconcileStock(ctx, summary); err != nil {
			return err
		}

		// Cash summary over the repaired balances.
		total := types.ZeroMoney()
		for i := range accounts {
			if accounts[i].AccountType.IsCashLike() && accounts[i].IsActive {
				total = total.Add(accounts[i].CurrentBalance)
			}
		}
		summary.CashBalance = total

		return nil
	})
	if err != nil {
		return nil, err
	}

	summary.FinishedAt = time.Now().UTC()

	logger.Info(ctx, "reconciliation finished",
		"accounts_checked", summary.AccountsChecked,
		"accounts_repaired", summary.AccountsRepaired,
		"products_repaired", summary.ProductsRepaired,
		"flows_repaired", summary.FlowsRepaired,
		"skipped", summary.SkippedEntries,
		"discrepancies", len(summary.Discrepancies),
	)
	return summary, nil
}

// reconcileAccounts folds every completed transaction into per-account
// balances and writes the results back unconditionally.
func (e *Engine) reconcileAccounts(ctx context.Context, accounts []finance.Account, transactions []finance.Transaction, summary *Summary) error {
	computed := make(map[id.ID]types.Money, len(accounts))
	for i := range accounts {
		computed[accounts[i].ID] = accounts[i].OpeningBalance
	}

	for i := range transactions {
		t := &transactions[i]
		skipped := false

		if t.FromAccountID != nil {
			if bal, ok := computed[*t.FromAccountID]; ok {
				computed[*t.FromAccountID] = bal.Sub(t.Amount)
			} else {
				skipped = true
			}
		}
		if t.ToAccountID != nil {
			if bal, ok := computed[*t.ToAccountID]; ok {
				computed[*t.ToAccountID] = bal.Add(t.Amount)
			} else {
				skipped = true
			}
		}

		if skipped {
			summary.SkippedEntries++
			repairErr := apperror.NewRepairFailure("transaction", t.ID, "references a missing account")
			logger.Warn(ctx, "skipping unreconcilable transaction",
				"code", repairErr.Code,
				"transaction_id", t.ID,
				"transaction_code", t.TransactionCode,
			)
		}
	}

	for i := range accounts {
		a := &accounts[i]
		summary.AccountsChecked++

		expected := computed[a.ID]
		if !expected.Equal(a.CurrentBalance) {
			summary.AccountsRepaired++
			summary.Discrepancies = append(summary.Discrepancies, Discrepancy{
				Entity:   "account",
				ID:       a.ID,
				Field:    "current_balance",
				Expected: expected.String(),
				Stored:   a.CurrentBalance.String(),
			})
		}

		// Repair semantics: write the fold result back regardless of
		// comparison, so the stored value is the ledger's, always.
		if err := e.accounts.UpdateBalance(ctx, a.ID, expected); err != nil {
			return fmt.Errorf("repair account %s: %w", a.ID, err)
		}
		a.CurrentBalance = expected
	}

	return nil
}

// reconcileFlows replays completed transactions per account and verifies
// each cash-flow row's running-balance snapshot against the balance the
// account had immediately after that transaction posted.
func (e *Engine) reconcileFlows(ctx context.Context, accounts []finance.Account, transactions []finance.Transaction, summary *Summary) error {
	for i := range accounts {
		a := &accounts[i]

		flows, err := e.cashflows.ListByAccountOrdered(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("list flows for account %s: %w", a.ID, err)
		}
		if len(flows) == 0 {
			continue
		}

		byTransaction := make(map[id.ID]*finance.CashFlow, len(flows))
		for j := range flows {
			byTransaction[flows[j].TransactionID] = &flows[j]
		}

		running := a.OpeningBalance
		for j := range transactions {
			t := &transactions[j]

			touches := false
			if t.FromAccountID != nil && *t.FromAccountID == a.ID {
				running = running.Sub(t.Amount)
				touches = true
			}
			if t.ToAccountID != nil && *t.ToAccountID == a.ID {
				running = running.Add(t.Amount)
				touches = true
			}
			if !touches {
				continue
			}

			flow, ok := byTransaction[t.ID]
			if !ok || flow.AccountID != a.ID {
				// Flow lives on the transaction's primary account; this
				// account is a counter-party only.
				continue
			}

			summary.FlowsChecked++
			if !flow.RunningBalance.Equal(running) {
				summary.FlowsRepaired++
				summary.Discrepancies = append(summary.Discrepancies, Discrepancy{
					Entity:   "cash_flow",
					ID:       flow.ID,
					Field:    "running_balance",
					Expected: running.String(),
					Stored:   flow.RunningBalance.String(),
				})
				if err := e.cashflows.UpdateRunningBalance(ctx, flow.ID, running); err != nil {
					return fmt.Errorf("repair flow %s: %w", flow.ID, err)
				}
			}
		}
	}

	return nil
}

// reconcileStock repairs each product's cached stock to the stock_after
// of its most recent ledger movement.
func (e *Engine) reconcileStock(ctx context.Context, summary *Summary) error {
	products, err := e.products.List(ctx, false)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	for i := range products {
		p := &products[i]
		summary.ProductsChecked++

		last, err := e.movements.LastMovement(ctx, p.ID)
		if err != nil {
			summary.SkippedEntries++
			repairErr := apperror.NewRepairFailure("product", p.ID, "cannot read movement history")
			logger.Warn(ctx, "skipping unreconcilable product",
				"code", repairErr.Code,
				"product_id", p.ID,
				"error", err,
			)
			continue
		}
		if last == nil {
			// No movements yet: the cache is its own origin.
			continue
		}

		if last.StockAfter != p.Stock {
			summary.ProductsRepaired++
			summary.Discrepancies = append(summary.Discrepancies, Discrepancy{
				Entity:   "product",
				ID:       p.ID,
				Field:    "stock",
				Expected: fmt.Sprintf("%d", last.StockAfter),
				Stored:   fmt.Sprintf("%d", p.Stock),
			})
			if err := e.products.UpdateStock(ctx, p.ID, last.StockAfter); err != nil {
				return fmt.Errorf("repair product %s: %w", p.ID, err)
			}
		}
	}

	return nil
}
