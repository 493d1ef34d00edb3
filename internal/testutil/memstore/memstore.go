// Package memstore provides in-memory repository implementations for
// service tests. The store keeps everything in plain maps and slices and
// offers snapshot-based rollback so transactional behavior can be
// exercised without a database.
package memstore

import (
	"context"
	"sort"
	"time"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/catalog/product"
	"kasbook/internal/domain/finance"
	"kasbook/internal/domain/stockledger"
)

// Store is an in-memory database shared by the fake repositories.
type Store struct {
	Products     map[id.ID]*product.Product
	Movements    []stockledger.StockMovement
	Accounts     map[id.ID]*finance.Account
	Transactions map[id.ID]*finance.Transaction
	CashFlows    []finance.CashFlow
	Categories   map[string]finance.Category

	// Fail points. Set an error to make the next matching write fail.
	FailCreateMovement error
	FailUpdateStock    error
	FailCreateFlow     error
	FailUpdateBalance  error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		Products:     make(map[id.ID]*product.Product),
		Accounts:     make(map[id.ID]*finance.Account),
		Transactions: make(map[id.ID]*finance.Transaction),
		Categories:   make(map[string]finance.Category),
	}
}

// SeedCategory registers a category in the lookup table.
func (s *Store) SeedCategory(code string, txType finance.TransactionType, flowType finance.FlowType) {
	s.Categories[code] = finance.Category{
		Code:            code,
		Name:            code,
		TransactionType: txType,
		FlowType:        flowType,
	}
}

// snapshot deep-copies the mutable state.
func (s *Store) snapshot() *Store {
	cp := New()
	for k, v := range s.Products {
		p := *v
		cp.Products[k] = &p
	}
	for k, v := range s.Accounts {
		a := *v
		cp.Accounts[k] = &a
	}
	for k, v := range s.Transactions {
		t := *v
		cp.Transactions[k] = &t
	}
	cp.Movements = append([]stockledger.StockMovement(nil), s.Movements...)
	cp.CashFlows = append([]finance.CashFlow(nil), s.CashFlows...)
	for k, v := range s.Categories {
		cp.Categories[k] = v
	}
	return cp
}

// restore copies the snapshot's state back into s.
func (s *Store) restore(snap *Store) {
	s.Products = snap.Products
	s.Accounts = snap.Accounts
	s.Transactions = snap.Transactions
	s.Movements = snap.Movements
	s.CashFlows = snap.CashFlows
	s.Categories = snap.Categories
}

// TxManager implements tx.SnapshotManager over the store: fn runs
// directly, and an error restores the pre-call state like a rollback.
// Nested calls join the outer "transaction" and roll back with it.
type TxManager struct {
	Store *Store
	depth int
}

func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.depth > 0 {
		m.depth++
		defer func() { m.depth-- }()
		return fn(ctx)
	}

	snap := m.Store.snapshot()
	m.depth = 1
	err := fn(ctx)
	m.depth = 0
	if err != nil {
		m.Store.restore(snap)
	}
	return err
}

func (m *TxManager) RunInSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}

// ProductRepo implements product.Repository.
type ProductRepo struct{ Store *Store }

func (r *ProductRepo) Create(_ context.Context, p *product.Product) error {
	cp := *p
	r.Store.Products[p.ID] = &cp
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := r.Store.Products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) GetByIDForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *ProductRepo) UpdateStock(_ context.Context, productID id.ID, stock types.Quantity) error {
	if r.Store.FailUpdateStock != nil {
		return r.Store.FailUpdateStock
	}
	p, ok := r.Store.Products[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	p.Stock = stock
	return nil
}

func (r *ProductRepo) List(_ context.Context, activeOnly bool) ([]product.Product, error) {
	out := make([]product.Product, 0, len(r.Store.Products))
	for _, p := range r.Store.Products {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// MovementRepo implements stockledger.Repository.
type MovementRepo struct{ Store *Store }

func (r *MovementRepo) CreateMovement(_ context.Context, m *stockledger.StockMovement) error {
	if r.Store.FailCreateMovement != nil {
		return r.Store.FailCreateMovement
	}
	r.Store.Movements = append(r.Store.Movements, *m)
	return nil
}

func (r *MovementRepo) LastMovement(_ context.Context, productID id.ID) (*stockledger.StockMovement, error) {
	for i := len(r.Store.Movements) - 1; i >= 0; i-- {
		if r.Store.Movements[i].ProductID == productID {
			m := r.Store.Movements[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (r *MovementRepo) ListByProduct(_ context.Context, productID id.ID, filter stockledger.MovementFilter) ([]stockledger.StockMovement, error) {
	var out []stockledger.StockMovement
	for i := len(r.Store.Movements) - 1; i >= 0; i-- {
		m := r.Store.Movements[i]
		if m.ProductID != productID {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		out = append(out, m)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *MovementRepo) Turnover(_ context.Context, productID id.ID, from, to time.Time) (stockledger.Turnover, error) {
	t := stockledger.Turnover{ProductID: productID, From: from, To: to}
	for _, m := range r.Store.Movements {
		if m.ProductID != productID {
			continue
		}
		if m.Direction == stockledger.DirectionIncrease {
			t.Received += m.Quantity
		} else {
			t.Issued += m.Quantity
		}
		t.ClosingStock = m.StockAfter
	}
	return t, nil
}

// AccountRepo implements finance.AccountRepository.
type AccountRepo struct{ Store *Store }

func (r *AccountRepo) Create(_ context.Context, a *finance.Account) error {
	cp := *a
	r.Store.Accounts[a.ID] = &cp
	return nil
}

func (r *AccountRepo) GetByID(_ context.Context, accountID id.ID) (*finance.Account, error) {
	a, ok := r.Store.Accounts[accountID]
	if !ok {
		return nil, apperror.NewNotFound("account", accountID.String())
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, accountID id.ID) (*finance.Account, error) {
	return r.GetByID(ctx, accountID)
}

func (r *AccountRepo) List(_ context.Context, filter finance.AccountFilter) ([]finance.Account, error) {
	var out []finance.Account
	for _, a := range r.Store.Accounts {
		if filter.ActiveOnly && !a.IsActive {
			continue
		}
		if len(filter.Types) > 0 {
			match := false
			for _, t := range filter.Types {
				if a.AccountType == t {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountCode < out[j].AccountCode })
	return out, nil
}

func (r *AccountRepo) UpdateBalance(_ context.Context, accountID id.ID, balance types.Money) error {
	if r.Store.FailUpdateBalance != nil {
		return r.Store.FailUpdateBalance
	}
	a, ok := r.Store.Accounts[accountID]
	if !ok {
		return apperror.NewNotFound("account", accountID.String())
	}
	a.CurrentBalance = balance
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AccountRepo) SetActive(_ context.Context, accountID id.ID, active bool) error {
	a, ok := r.Store.Accounts[accountID]
	if !ok {
		return apperror.NewNotFound("account", accountID.String())
	}
	a.IsActive = active
	return nil
}

// TransactionRepo implements finance.TransactionRepository.
type TransactionRepo struct{ Store *Store }

func (r *TransactionRepo) Create(_ context.Context, t *finance.Transaction) error {
	cp := *t
	r.Store.Transactions[t.ID] = &cp
	return nil
}

func (r *TransactionRepo) GetByID(_ context.Context, txID id.ID) (*finance.Transaction, error) {
	t, ok := r.Store.Transactions[txID]
	if !ok {
		return nil, apperror.NewNotFound("transaction", txID.String())
	}
	cp := *t
	return &cp, nil
}

func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, txID id.ID) (*finance.Transaction, error) {
	return r.GetByID(ctx, txID)
}

func (r *TransactionRepo) UpdateStatus(_ context.Context, t *finance.Transaction) error {
	stored, ok := r.Store.Transactions[t.ID]
	if !ok {
		return apperror.NewNotFound("transaction", t.ID.String())
	}
	stored.Status = t.Status
	stored.ApprovedBy = t.ApprovedBy
	stored.ApprovedAt = t.ApprovedAt
	stored.RejectedReason = t.RejectedReason
	stored.UpdatedAt = t.UpdatedAt
	return nil
}

func (r *TransactionRepo) List(_ context.Context, filter finance.TransactionFilter) ([]finance.Transaction, error) {
	var out []finance.Transaction
	for _, t := range r.Store.Transactions {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && t.TransactionType != *filter.Type {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionCode < out[j].TransactionCode })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *TransactionRepo) ListCompletedOrdered(_ context.Context) ([]finance.Transaction, error) {
	var out []finance.Transaction
	for _, t := range r.Store.Transactions {
		if t.Status == finance.StatusCompleted {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// CashFlowRepo implements finance.CashFlowRepository.
type CashFlowRepo struct{ Store *Store }

func (r *CashFlowRepo) Create(_ context.Context, f *finance.CashFlow) error {
	if r.Store.FailCreateFlow != nil {
		return r.Store.FailCreateFlow
	}
	r.Store.CashFlows = append(r.Store.CashFlows, *f)
	return nil
}

func (r *CashFlowRepo) GetByTransactionID(_ context.Context, txID id.ID) (*finance.CashFlow, error) {
	for i := range r.Store.CashFlows {
		if r.Store.CashFlows[i].TransactionID == txID {
			f := r.Store.CashFlows[i]
			return &f, nil
		}
	}
	return nil, nil
}

func (r *CashFlowRepo) List(_ context.Context, filter finance.CashFlowFilter) ([]finance.CashFlow, error) {
	var out []finance.CashFlow
	for _, f := range r.Store.CashFlows {
		if filter.AccountID != nil && f.AccountID != *filter.AccountID {
			continue
		}
		if filter.FlowType != nil && f.FlowType != *filter.FlowType {
			continue
		}
		out = append(out, f)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *CashFlowRepo) ListByAccountOrdered(_ context.Context, accountID id.ID) ([]finance.CashFlow, error) {
	var out []finance.CashFlow
	for _, f := range r.Store.CashFlows {
		if f.AccountID == accountID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FlowDate.Equal(out[j].FlowDate) {
			return out[i].FlowDate.Before(out[j].FlowDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *CashFlowRepo) UpdateRunningBalance(_ context.Context, flowID id.ID, balance types.Money) error {
	for i := range r.Store.CashFlows {
		if r.Store.CashFlows[i].ID == flowID {
			r.Store.CashFlows[i].RunningBalance = balance
			return nil
		}
	}
	return apperror.NewNotFound("cash_flow", flowID.String())
}

func (r *CashFlowRepo) Statement(_ context.Context, from, to time.Time) (finance.FlowStatement, error) {
	st := finance.FlowStatement{From: from, To: to}
	for _, f := range r.Store.CashFlows {
		if f.FlowDate.Before(from) || f.FlowDate.After(to) {
			continue
		}
		inflow := f.Direction == finance.FlowInflow
		switch f.FlowType {
		case finance.FlowOperating:
			if inflow {
				st.OperatingIn = st.OperatingIn.Add(f.Amount)
			} else {
				st.OperatingOut = st.OperatingOut.Add(f.Amount)
			}
		case finance.FlowInvesting:
			if inflow {
				st.InvestingIn = st.InvestingIn.Add(f.Amount)
			} else {
				st.InvestingOut = st.InvestingOut.Add(f.Amount)
			}
		case finance.FlowFinancing:
			if inflow {
				st.FinancingIn = st.FinancingIn.Add(f.Amount)
			} else {
				st.FinancingOut = st.FinancingOut.Add(f.Amount)
			}
		}
		st.NetChange = st.NetChange.Add(f.SignedAmount())
	}
	return st, nil
}

// CategoryRepo implements finance.CategoryRepository.
type CategoryRepo struct{ Store *Store }

func (r *CategoryRepo) GetByCode(_ context.Context, code string) (*finance.Category, error) {
	c, ok := r.Store.Categories[code]
	if !ok {
		return nil, apperror.NewNotFound("category", code)
	}
	return &c, nil
}

func (r *CategoryRepo) List(_ context.Context) ([]finance.Category, error) {
	out := make([]finance.Category, 0, len(r.Store.Categories))
	for _, c := range r.Store.Categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
