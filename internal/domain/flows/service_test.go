package flows_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/entity"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/catalog/product"
	"kasbook/internal/domain/finance"
	"kasbook/internal/domain/flows"
	"kasbook/internal/domain/stockledger"
	"kasbook/internal/testutil/memstore"
	"kasbook/pkg/numerator"
)

type flowsFixture struct {
	store   *memstore.Store
	service *flows.Service
	svc     *finance.AccountService
	stock   *stockledger.Service
}

func newFlowsFixture() *flowsFixture {
	store := memstore.New()
	store.SeedCategory(flows.CategorySales, finance.TxIncome, finance.FlowOperating)
	store.SeedCategory(flows.CategoryPurchase, finance.TxExpense, finance.FlowOperating)
	store.SeedCategory(flows.CategoryPayroll, finance.TxExpense, finance.FlowOperating)
	store.SeedCategory(flows.CategoryUtilities, finance.TxExpense, finance.FlowOperating)

	txManager := &memstore.TxManager{Store: store}
	accounts := &memstore.AccountRepo{Store: store}
	products := &memstore.ProductRepo{Store: store}
	movements := &memstore.MovementRepo{Store: store}
	gen := &numerator.MockGenerator{}

	ledger := finance.NewLedgerService(
		&memstore.TransactionRepo{Store: store},
		accounts,
		&memstore.CashFlowRepo{Store: store},
		&memstore.CategoryRepo{Store: store},
		gen,
		txManager,
	)
	stock := stockledger.NewService(movements, products, txManager)

	return &flowsFixture{
		store:   store,
		service: flows.NewService(stock, products, ledger, txManager),
		svc:     finance.NewAccountService(accounts, gen, txManager),
		stock:   stock,
	}
}

func (f *flowsFixture) seedAccount(t *testing.T, opening string) *finance.Account {
	t.Helper()
	a := finance.NewAccount("Main cash", finance.AccountCash, "", types.MustMoney(opening))
	require.NoError(t, f.svc.CreateAccount(context.Background(), a))
	return a
}

func (f *flowsFixture) seedProduct(t *testing.T, sku, price string, stock types.Quantity) *product.Product {
	t.Helper()
	p := &product.Product{
		ID:        id.New(),
		SKU:       sku,
		Name:      sku,
		UnitPrice: types.MustMoney(price),
		IsActive:  true,
	}
	require.NoError(t, (&memstore.ProductRepo{Store: f.store}).Create(context.Background(), p))
	if stock > 0 {
		// The correction movement establishes the cached stock; seeding the
		// literal as well would double it.
		_, err := f.stock.RecordMovement(context.Background(), stockledger.RecordInput{
			ProductID: p.ID, Type: stockledger.TypeCorrection,
			Direction: stockledger.DirectionIncrease, Quantity: stock, ActorID: "seed",
		})
		require.NoError(t, err)
		require.Equal(t, stock, f.store.Products[p.ID].Stock)
	}
	return p
}

func TestSaleCheckout(t *testing.T) {
	f := newFlowsFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "10000")
	coffee := f.seedProduct(t, "SKU-001", "450", 20)
	filters := f.seedProduct(t, "SKU-002", "120", 35)

	result, err := f.service.SaleCheckout(ctx, flows.SaleInput{
		Lines: []flows.Line{
			{ProductID: coffee.ID, Quantity: 2},
			{ProductID: filters.ID, Quantity: 5},
		},
		AccountID: acc.ID,
		ActorID:   "cashier",
	})
	require.NoError(t, err)

	// 2*450 + 5*120 = 1500
	assert.True(t, result.Total.Equal(types.MustMoney("1500")))
	assert.Equal(t, finance.StatusCompleted, result.Transaction.Status)
	require.Len(t, result.Movements, 2)

	assert.Equal(t, types.Quantity(18), f.store.Products[coffee.ID].Stock)
	assert.Equal(t, types.Quantity(30), f.store.Products[filters.ID].Stock)
	assert.True(t, f.store.Accounts[acc.ID].CurrentBalance.Equal(types.MustMoney("11500")))

	// Movements and the transaction share one sale reference.
	require.NotNil(t, result.Transaction.Reference)
	assert.Equal(t, entity.RefSale, result.Transaction.Reference.Kind)
	for _, m := range result.Movements {
		require.NotNil(t, m.Reference)
		assert.Equal(t, result.Transaction.Reference.ID, m.Reference.ID)
	}

	require.Len(t, f.store.CashFlows, 1)
	assert.Equal(t, finance.FlowInflow, f.store.CashFlows[0].Direction)
}

func TestSaleCheckout_InsufficientStockRollsBackEverything(t *testing.T) {
	f := newFlowsFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "10000")
	coffee := f.seedProduct(t, "SKU-001", "450", 20)
	filters := f.seedProduct(t, "SKU-002", "120", 3)

	_, err := f.service.SaleCheckout(ctx, flows.SaleInput{
		Lines: []flows.Line{
			{ProductID: coffee.ID, Quantity: 2},
			{ProductID: filters.ID, Quantity: 5},
		},
		AccountID: acc.ID,
		ActorID:   "cashier",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// The first line's movement rolled back with the rest.
	assert.Equal(t, types.Quantity(20), f.store.Products[coffee.ID].Stock)
	assert.Equal(t, types.Quantity(3), f.store.Products[filters.ID].Stock)
	assert.True(t, f.store.Accounts[acc.ID].CurrentBalance.Equal(types.MustMoney("10000")))
	assert.Empty(t, f.store.CashFlows)

	// Seeding corrections are the only surviving movements.
	assert.Len(t, f.store.Movements, 2)
}

func TestPurchaseReceipt(t *testing.T) {
	f := newFlowsFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "50000")
	coffee := f.seedProduct(t, "SKU-001", "450", 0)
	cost := types.MustMoney("300")

	result, err := f.service.PurchaseReceipt(ctx, flows.PurchaseInput{
		Lines:     []flows.Line{{ProductID: coffee.ID, Quantity: 40, UnitPrice: &cost}},
		AccountID: acc.ID,
		ActorID:   "storekeeper",
	})
	require.NoError(t, err)

	assert.True(t, result.Total.Equal(types.MustMoney("12000")))
	assert.Equal(t, types.Quantity(40), f.store.Products[coffee.ID].Stock)
	assert.True(t, f.store.Accounts[acc.ID].CurrentBalance.Equal(types.MustMoney("38000")))

	require.Len(t, f.store.CashFlows, 1)
	assert.Equal(t, finance.FlowOutflow, f.store.CashFlows[0].Direction)
	assert.Equal(t, flows.CategoryPurchase, f.store.CashFlows[0].Category)
}

func TestPayrollPayment(t *testing.T) {
	f := newFlowsFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "90000")

	tx, err := f.service.PayrollPayment(ctx, flows.PaymentInput{
		FromAccountID: acc.ID,
		Amount:        types.MustMoney("45000"),
		Description:   "August salaries",
		ActorID:       "accountant",
	})
	require.NoError(t, err)

	assert.Equal(t, finance.StatusCompleted, tx.Status)
	assert.Equal(t, flows.CategoryPayroll, tx.Category)
	require.NotNil(t, tx.Reference)
	assert.Equal(t, entity.RefPayroll, tx.Reference.Kind)
	assert.True(t, f.store.Accounts[acc.ID].CurrentBalance.Equal(types.MustMoney("45000")))
}

func TestExpensePayment_InsufficientInputs(t *testing.T) {
	f := newFlowsFixture()
	ctx := context.Background()

	_, err := f.service.ExpensePayment(ctx, flows.PaymentInput{
		Amount:  types.MustMoney("100"),
		ActorID: "accountant",
	})
	require.Error(t, err)

	acc := f.seedAccount(t, "100")
	_, err = f.service.ExpensePayment(ctx, flows.PaymentInput{
		FromAccountID: acc.ID,
		Amount:        types.MustMoney("100"),
	})
	require.Error(t, err)
}
