package finance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/finance"
	"kasbook/internal/testutil/memstore"
	"kasbook/pkg/numerator"
)

type ledgerFixture struct {
	store    *memstore.Store
	accounts *memstore.AccountRepo
	ledger   *finance.LedgerService
	service  *finance.AccountService
}

func newLedgerFixture() *ledgerFixture {
	store := memstore.New()
	store.SeedCategory("sales", finance.TxIncome, finance.FlowOperating)
	store.SeedCategory("utilities", finance.TxExpense, finance.FlowOperating)
	store.SeedCategory("payroll", finance.TxExpense, finance.FlowOperating)
	store.SeedCategory("transfer", finance.TxTransfer, finance.FlowFinancing)
	store.SeedCategory("equipment", finance.TxExpense, finance.FlowInvesting)

	txManager := &memstore.TxManager{Store: store}
	accounts := &memstore.AccountRepo{Store: store}
	gen := &numerator.MockGenerator{}

	return &ledgerFixture{
		store:    store,
		accounts: accounts,
		ledger: finance.NewLedgerService(
			&memstore.TransactionRepo{Store: store},
			accounts,
			&memstore.CashFlowRepo{Store: store},
			&memstore.CategoryRepo{Store: store},
			gen,
			txManager,
		),
		service: finance.NewAccountService(accounts, gen, txManager),
	}
}

func (f *ledgerFixture) seedAccount(t *testing.T, name string, accountType finance.AccountType, opening string) *finance.Account {
	t.Helper()
	a := finance.NewAccount(name, accountType, "", types.MustMoney(opening))
	require.NoError(t, f.service.CreateAccount(context.Background(), a))
	return a
}

func TestApprove_PostsExpense(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Main cash", finance.AccountCash, "100000")

	created, err := f.ledger.CreateTransaction(ctx, finance.CreateInput{
		Type:          finance.TxExpense,
		Category:      "utilities",
		Amount:        types.MustMoney("20000"),
		FromAccountID: &acc.ID,
		Description:   "August electricity",
		CreatedBy:     "clerk",
	})
	require.NoError(t, err)
	assert.Equal(t, finance.StatusPending, created.Status)

	// Pending transactions have no balance effect.
	stored, err := f.accounts.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentBalance.Equal(types.MustMoney("100000")))

	approved, err := f.ledger.Approve(ctx, created.ID, "manager")
	require.NoError(t, err)
	assert.Equal(t, finance.StatusCompleted, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "manager", *approved.ApprovedBy)

	stored, err = f.accounts.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentBalance.Equal(types.MustMoney("80000")),
		"expected 80000, got %s", stored.CurrentBalance)

	// Exactly one flow, outflow, running balance snapshots the result.
	require.Len(t, f.store.CashFlows, 1)
	flow := f.store.CashFlows[0]
	assert.Equal(t, finance.FlowOutflow, flow.Direction)
	assert.Equal(t, finance.FlowOperating, flow.FlowType)
	assert.Equal(t, acc.ID, flow.AccountID)
	assert.Equal(t, created.ID, flow.TransactionID)
	assert.True(t, flow.Amount.Equal(types.MustMoney("20000")))
	assert.True(t, flow.RunningBalance.Equal(types.MustMoney("80000")))
}

func TestApprove_Idempotent(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Main cash", finance.AccountCash, "50000")

	created, err := f.ledger.CreateTransaction(ctx, finance.CreateInput{
		Type:          finance.TxExpense,
		Category:      "utilities",
		Amount:        types.MustMoney("10000"),
		FromAccountID: &acc.ID,
		CreatedBy:     "clerk",
	})
	require.NoError(t, err)

	_, err = f.ledger.Approve(ctx, created.ID, "manager")
	require.NoError(t, err)
	_, err = f.ledger.Approve(ctx, created.ID, "manager")
	require.NoError(t, err)

	stored, err := f.accounts.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentBalance.Equal(types.MustMoney("40000")),
		"double approval must not double the balance effect")
	assert.Len(t, f.store.CashFlows, 1)
}

func TestApprove_Transfer(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	from := f.seedAccount(t, "Main cash", finance.AccountCash, "30000")
	to := f.seedAccount(t, "Operating bank", finance.AccountBank, "5000")

	created, err := f.ledger.CreateTransaction(ctx, finance.CreateInput{
		Type:          finance.TxTransfer,
		Category:      "transfer",
		Amount:        types.MustMoney("12000"),
		FromAccountID: &from.ID,
		ToAccountID:   &to.ID,
		CreatedBy:     "clerk",
	})
	require.NoError(t, err)

	_, err = f.ledger.Approve(ctx, created.ID, "manager")
	require.NoError(t, err)

	fromStored, _ := f.accounts.GetByID(ctx, from.ID)
	toStored, _ := f.accounts.GetByID(ctx, to.ID)
	assert.True(t, fromStored.CurrentBalance.Equal(types.MustMoney("18000")))
	assert.True(t, toStored.CurrentBalance.Equal(types.MustMoney("17000")))

	// The flow is recorded on the source account as an outflow.
	require.Len(t, f.store.CashFlows, 1)
	flow := f.store.CashFlows[0]
	assert.Equal(t, from.ID, flow.AccountID)
	assert.Equal(t, finance.FlowOutflow, flow.Direction)
	assert.Equal(t, finance.FlowFinancing, flow.FlowType)
	assert.True(t, flow.RunningBalance.Equal(types.MustMoney("18000")))
}

func TestReject_TerminalNoBalanceEffect(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Main cash", finance.AccountCash, "9000")

	created, err := f.ledger.CreateTransaction(ctx, finance.CreateInput{
		Type:          finance.TxExpense,
		Category:      "utilities",
		Amount:        types.MustMoney("4000"),
		FromAccountID: &acc.ID,
		CreatedBy:     "clerk",
	})
	require.NoError(t, err)

	rejected, err := f.ledger.Reject(ctx, created.ID, "manager", "duplicate invoice")
	require.NoError(t, err)
	assert.Equal(t, finance.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectedReason)
	assert.Equal(t, "duplicate invoice", *rejected.RejectedReason)

	stored, _ := f.accounts.GetByID(ctx, acc.ID)
	assert.True(t, stored.CurrentBalance.Equal(types.MustMoney("9000")))
	assert.Empty(t, f.store.CashFlows)

	// Rejected is terminal.
	_, err = f.ledger.Approve(ctx, created.ID, "manager")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)

	_, err = f.ledger.Reject(ctx, created.ID, "manager", "again")
	require.Error(t, err)
}

func TestApprove_RollbackOnFlowFailure(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Main cash", finance.AccountCash, "9000")

	created, err := f.ledger.CreateTransaction(ctx, finance.CreateInput{
		Type:          finance.TxExpense,
		Category:      "utilities",
		Amount:        types.MustMoney("1000"),
		FromAccountID: &acc.ID,
		CreatedBy:     "clerk",
	})
	require.NoError(t, err)

	f.store.FailCreateFlow = errors.New("connection reset")
	_, err = f.ledger.Approve(ctx, created.ID, "manager")
	require.Error(t, err)

	// Everything rolled back: status, balance, and no flow row.
	stored, _ := f.accounts.GetByID(ctx, acc.ID)
	assert.True(t, stored.CurrentBalance.Equal(types.MustMoney("9000")))
	assert.Empty(t, f.store.CashFlows)

	storedTx, err := f.ledger.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.StatusPending, storedTx.Status)

	// Approval succeeds once the fault clears.
	f.store.FailCreateFlow = nil
	_, err = f.ledger.Approve(ctx, created.ID, "manager")
	require.NoError(t, err)
}

func TestCreateTransaction_Validation(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Main cash", finance.AccountCash, "5000")

	cases := []struct {
		name  string
		input finance.CreateInput
	}{
		{"unknown category", finance.CreateInput{
			Type: finance.TxExpense, Category: "snacks", Amount: types.MustMoney("10"),
			FromAccountID: &acc.ID, CreatedBy: "clerk",
		}},
		{"zero amount", finance.CreateInput{
			Type: finance.TxExpense, Category: "utilities", Amount: types.ZeroMoney(),
			FromAccountID: &acc.ID, CreatedBy: "clerk",
		}},
		{"negative amount", finance.CreateInput{
			Type: finance.TxExpense, Category: "utilities", Amount: types.MustMoney("-5"),
			FromAccountID: &acc.ID, CreatedBy: "clerk",
		}},
		{"income without destination", finance.CreateInput{
			Type: finance.TxIncome, Category: "sales", Amount: types.MustMoney("10"),
			CreatedBy: "clerk",
		}},
		{"expense without source", finance.CreateInput{
			Type: finance.TxExpense, Category: "utilities", Amount: types.MustMoney("10"),
			CreatedBy: "clerk",
		}},
		{"transfer to itself", finance.CreateInput{
			Type: finance.TxTransfer, Category: "transfer", Amount: types.MustMoney("10"),
			FromAccountID: &acc.ID, ToAccountID: &acc.ID, CreatedBy: "clerk",
		}},
		{"missing creator", finance.CreateInput{
			Type: finance.TxExpense, Category: "utilities", Amount: types.MustMoney("10"),
			FromAccountID: &acc.ID,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.CreateTransaction(ctx, tc.input)
			require.Error(t, err)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}

	assert.Empty(t, f.store.Transactions)
}

func TestCreateTransaction_InactiveAccount(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Old register", finance.AccountCash, "100")
	require.NoError(t, f.service.Deactivate(ctx, acc.ID))

	_, err := f.ledger.CreateTransaction(ctx, finance.CreateInput{
		Type:          finance.TxExpense,
		Category:      "utilities",
		Amount:        types.MustMoney("10"),
		FromAccountID: &acc.ID,
		CreatedBy:     "clerk",
	})
	require.Error(t, err)
}

func TestCashFlowStatement_Buckets(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Main cash", finance.AccountCash, "100000")
	date := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	post := func(txType finance.TransactionType, category, amount string, from, to *id.ID) {
		t.Helper()
		created, err := f.ledger.CreateTransaction(ctx, finance.CreateInput{
			Type: txType, Category: category, Amount: types.MustMoney(amount),
			FromAccountID: from, ToAccountID: to, CreatedBy: "clerk", Date: date,
		})
		require.NoError(t, err)
		_, err = f.ledger.Approve(ctx, created.ID, "manager")
		require.NoError(t, err)
	}

	post(finance.TxIncome, "sales", "30000", nil, &acc.ID)
	post(finance.TxExpense, "payroll", "12000", &acc.ID, nil)
	post(finance.TxExpense, "equipment", "8000", &acc.ID, nil)

	st, err := f.ledger.CashFlowStatement(ctx, date.Add(-time.Hour), date.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, st.OperatingIn.Equal(types.MustMoney("30000")))
	assert.True(t, st.OperatingOut.Equal(types.MustMoney("12000")))
	assert.True(t, st.InvestingOut.Equal(types.MustMoney("8000")))
	assert.True(t, st.NetChange.Equal(types.MustMoney("10000")))
}
