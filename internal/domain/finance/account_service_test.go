package finance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasbook/internal/core/types"
	"kasbook/internal/domain/finance"
)

func TestCreateAccount_AssignsTypedCode(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	cash := finance.NewAccount("Main cash", finance.AccountCash, "", types.MustMoney("1000"))
	require.NoError(t, f.service.CreateAccount(ctx, cash))
	assert.Equal(t, "CASH-00001", cash.AccountCode)

	second := finance.NewAccount("Backup cash", finance.AccountCash, "", types.ZeroMoney())
	require.NoError(t, f.service.CreateAccount(ctx, second))
	assert.Equal(t, "CASH-00002", second.AccountCode)

	bank := finance.NewAccount("Operating bank", finance.AccountBank, "", types.ZeroMoney())
	require.NoError(t, f.service.CreateAccount(ctx, bank))
	assert.Equal(t, "BANK-00001", bank.AccountCode)

	// Current balance seeds from the opening balance.
	stored, err := f.service.GetAccount(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentBalance.Equal(types.MustMoney("1000")))
	assert.True(t, stored.IsActive)
}

func TestCreateAccount_Validation(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	noName := finance.NewAccount("", finance.AccountCash, "", types.ZeroMoney())
	require.Error(t, f.service.CreateAccount(ctx, noName))

	badType := finance.NewAccount("Petty cash", "wallet", "", types.ZeroMoney())
	require.Error(t, f.service.CreateAccount(ctx, badType))
}

func TestDeactivate_Idempotent(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	acc := f.seedAccount(t, "Old register", finance.AccountCash, "0")

	require.NoError(t, f.service.Deactivate(ctx, acc.ID))
	require.NoError(t, f.service.Deactivate(ctx, acc.ID))

	stored, err := f.service.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestCashSummary_ActiveCashLikeOnly(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	f.seedAccount(t, "Main cash", finance.AccountCash, "1500")
	f.seedAccount(t, "Operating bank", finance.AccountBank, "2500")
	f.seedAccount(t, "Trade receivables", finance.AccountReceivable, "90000")
	closed := f.seedAccount(t, "Closed register", finance.AccountCash, "700")
	require.NoError(t, f.service.Deactivate(ctx, closed.ID))

	summary, err := f.service.CashSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.AccountCount)
	assert.True(t, summary.TotalBalance.Equal(types.MustMoney("4000")))
}
