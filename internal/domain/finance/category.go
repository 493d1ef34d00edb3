package finance

// Category is a validated lookup-table entry for transaction categories.
// Categories stay open strings (new ones can be seeded without code
// changes), but every transaction's category must exist in the table,
// and the table is what maps a category to its cash-flow bucket.
type Category struct {
	Code            string          `db:"code" json:"code"`
	Name            string          `db:"name" json:"name"`
	TransactionType TransactionType `db:"transaction_type" json:"transactionType"`
	FlowType        FlowType        `db:"flow_type" json:"flowType"`
}

// defaultFlowTypes is the fallback classification when a category has no
// lookup row (historical data tolerance).
var defaultFlowTypes = map[TransactionType]FlowType{
	TxIncome:     FlowOperating,
	TxExpense:    FlowOperating,
	TxTransfer:   FlowFinancing,
	TxAdjustment: FlowOperating,
}

// FlowTypeFor resolves the cash-flow bucket for a transaction: the
// category's configured bucket when known, otherwise the default for the
// transaction type.
func FlowTypeFor(cat *Category, txType TransactionType) FlowType {
	if cat != nil && cat.FlowType != "" {
		return cat.FlowType
	}
	return defaultFlowTypes[txType]
}
