package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/catalog/product"
	"kasbook/internal/domain/finance"
	"kasbook/internal/domain/reconcile"
	"kasbook/internal/domain/stockledger"
	"kasbook/internal/testutil/memstore"
	"kasbook/pkg/numerator"
)

type engineFixture struct {
	store  *memstore.Store
	engine *reconcile.Engine
	ledger *finance.LedgerService
	stock  *stockledger.Service
	svc    *finance.AccountService
}

func newEngineFixture() *engineFixture {
	store := memstore.New()
	store.SeedCategory("sales", finance.TxIncome, finance.FlowOperating)
	store.SeedCategory("utilities", finance.TxExpense, finance.FlowOperating)

	txManager := &memstore.TxManager{Store: store}
	accounts := &memstore.AccountRepo{Store: store}
	transactions := &memstore.TransactionRepo{Store: store}
	cashflows := &memstore.CashFlowRepo{Store: store}
	categories := &memstore.CategoryRepo{Store: store}
	products := &memstore.ProductRepo{Store: store}
	movements := &memstore.MovementRepo{Store: store}
	gen := &numerator.MockGenerator{}

	return &engineFixture{
		store:  store,
		engine: reconcile.NewEngine(accounts, transactions, cashflows, products, movements, txManager),
		ledger: finance.NewLedgerService(transactions, accounts, cashflows, categories, gen, txManager),
		stock:  stockledger.NewService(movements, products, txManager),
		svc:    finance.NewAccountService(accounts, gen, txManager),
	}
}

func (f *engineFixture) seedAccount(t *testing.T, name string, opening string) *finance.Account {
	t.Helper()
	a := finance.NewAccount(name, finance.AccountCash, "", types.MustMoney(opening))
	require.NoError(t, f.svc.CreateAccount(context.Background(), a))
	return a
}

func (f *engineFixture) seedProduct(t *testing.T, sku string) *product.Product {
	t.Helper()
	p := &product.Product{
		ID:        id.New(),
		SKU:       sku,
		Name:      sku,
		UnitPrice: types.MustMoney("100"),
		IsActive:  true,
	}
	require.NoError(t, (&memstore.ProductRepo{Store: f.store}).Create(context.Background(), p))
	return p
}

func (f *engineFixture) post(t *testing.T, txType finance.TransactionType, category, amount string, from, to *id.ID, date time.Time) *finance.Transaction {
	t.Helper()
	created, err := f.ledger.CreateTransaction(context.Background(), finance.CreateInput{
		Type: txType, Category: category, Amount: types.MustMoney(amount),
		FromAccountID: from, ToAccountID: to, CreatedBy: "clerk", Date: date,
	})
	require.NoError(t, err)
	approved, err := f.ledger.Approve(context.Background(), created.ID, "manager")
	require.NoError(t, err)
	return approved
}

func TestRecalculateBalances_CleanRun(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Main cash", "100000")
	p := f.seedProduct(t, "SKU-001")
	date := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	f.post(t, finance.TxIncome, "sales", "30000", nil, &acc.ID, date)
	f.post(t, finance.TxExpense, "utilities", "20000", &acc.ID, nil, date.Add(time.Hour))

	_, err := f.stock.RecordMovement(ctx, stockledger.RecordInput{
		ProductID: p.ID, Type: stockledger.TypeIn, Quantity: 40, ActorID: "u1",
	})
	require.NoError(t, err)

	summary, err := f.engine.RecalculateBalances(ctx)
	require.NoError(t, err)

	assert.Empty(t, summary.Discrepancies)
	assert.Equal(t, 1, summary.AccountsChecked)
	assert.Equal(t, 0, summary.AccountsRepaired)
	assert.Equal(t, 1, summary.ProductsChecked)
	assert.Equal(t, 0, summary.ProductsRepaired)
	assert.Equal(t, 2, summary.FlowsChecked)
	assert.Equal(t, 0, summary.FlowsRepaired)
	assert.Equal(t, 0, summary.SkippedEntries)
	assert.True(t, summary.CashBalance.Equal(types.MustMoney("110000")))
}

func TestRecalculateBalances_RepairsDrift(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Main cash", "50000")
	p := f.seedProduct(t, "SKU-001")
	date := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	f.post(t, finance.TxExpense, "utilities", "10000", &acc.ID, nil, date)
	_, err := f.stock.RecordMovement(ctx, stockledger.RecordInput{
		ProductID: p.ID, Type: stockledger.TypeIn, Quantity: 25, ActorID: "u1",
	})
	require.NoError(t, err)

	// Corrupt the caches behind the services' back.
	f.store.Accounts[acc.ID].CurrentBalance = types.MustMoney("99999")
	f.store.Products[p.ID].Stock = 7
	f.store.CashFlows[0].RunningBalance = types.MustMoney("-1")

	summary, err := f.engine.RecalculateBalances(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.AccountsRepaired)
	assert.Equal(t, 1, summary.ProductsRepaired)
	assert.Equal(t, 1, summary.FlowsRepaired)
	assert.Len(t, summary.Discrepancies, 3)

	assert.True(t, f.store.Accounts[acc.ID].CurrentBalance.Equal(types.MustMoney("40000")))
	assert.Equal(t, types.Quantity(25), f.store.Products[p.ID].Stock)
	assert.True(t, f.store.CashFlows[0].RunningBalance.Equal(types.MustMoney("40000")))

	// A second run finds nothing left to repair.
	summary, err = f.engine.RecalculateBalances(ctx)
	require.NoError(t, err)
	assert.Empty(t, summary.Discrepancies)
	assert.Equal(t, 0, summary.AccountsRepaired)
	assert.Equal(t, 0, summary.ProductsRepaired)
	assert.Equal(t, 0, summary.FlowsRepaired)
}

func TestRecalculateBalances_SkipsDanglingReferences(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Main cash", "10000")
	date := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	f.post(t, finance.TxExpense, "utilities", "3000", &acc.ID, nil, date)

	// A completed transaction pointing at a deleted account must be
	// logged and skipped, not fail the run.
	ghost := id.New()
	orphan := &finance.Transaction{
		ID:              id.New(),
		TransactionCode: "TRX-GHOST",
		TransactionType: finance.TxExpense,
		Category:        "utilities",
		Amount:          types.MustMoney("500"),
		FromAccountID:   &ghost,
		Status:          finance.StatusCompleted,
		CreatedBy:       "clerk",
		TransactionDate: date,
	}
	f.store.Transactions[orphan.ID] = orphan

	summary, err := f.engine.RecalculateBalances(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SkippedEntries)
	assert.True(t, f.store.Accounts[acc.ID].CurrentBalance.Equal(types.MustMoney("7000")))
}

func TestRecalculateBalances_ProductWithoutMovements(t *testing.T) {
	f := newEngineFixture()
	p := f.seedProduct(t, "SKU-002")
	f.store.Products[p.ID].Stock = 12

	summary, err := f.engine.RecalculateBalances(context.Background())
	require.NoError(t, err)

	// No ledger history: the cached value stands.
	assert.Equal(t, 0, summary.ProductsRepaired)
	assert.Equal(t, types.Quantity(12), f.store.Products[p.ID].Stock)
}
