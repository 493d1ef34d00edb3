package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kasbook/internal/core/types"
)

func TestFlowTypeFor(t *testing.T) {
	t.Run("category bucket wins", func(t *testing.T) {
		cat := &Category{Code: "equipment", TransactionType: TxExpense, FlowType: FlowInvesting}
		assert.Equal(t, FlowInvesting, FlowTypeFor(cat, TxExpense))
	})

	t.Run("falls back to transaction type", func(t *testing.T) {
		assert.Equal(t, FlowOperating, FlowTypeFor(nil, TxIncome))
		assert.Equal(t, FlowOperating, FlowTypeFor(nil, TxExpense))
		assert.Equal(t, FlowFinancing, FlowTypeFor(nil, TxTransfer))
		assert.Equal(t, FlowOperating, FlowTypeFor(nil, TxAdjustment))
	})

	t.Run("category without bucket falls back", func(t *testing.T) {
		cat := &Category{Code: "legacy", TransactionType: TxTransfer}
		assert.Equal(t, FlowFinancing, FlowTypeFor(cat, TxTransfer))
	})
}

func TestCashFlowSignedAmount(t *testing.T) {
	inflow := &CashFlow{Direction: FlowInflow, Amount: types.MustMoney("100.50")}
	assert.True(t, inflow.SignedAmount().Equal(types.MustMoney("100.50")))

	outflow := &CashFlow{Direction: FlowOutflow, Amount: types.MustMoney("20000")}
	assert.True(t, outflow.SignedAmount().Equal(types.MustMoney("-20000")))
}
