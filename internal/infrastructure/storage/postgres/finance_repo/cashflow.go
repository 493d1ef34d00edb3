package finance_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/finance"
	"kasbook/internal/infrastructure/storage/postgres"
)

const cashFlowsTable = "fin_cash_flows"

var cashFlowColumns = []string{
	"id", "flow_date", "flow_type", "direction", "category", "amount",
	"account_id", "transaction_id", "running_balance",
	"description", "created_at",
}

// CashFlowRepo implements finance.CashFlowRepository.
type CashFlowRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewCashFlowRepo creates a new cash-flow repository.
func NewCashFlowRepo(txManager *postgres.TxManager) *CashFlowRepo {
	return &CashFlowRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CashFlowRepo) Create(ctx context.Context, f *finance.CashFlow) error {
	q := r.builder.Insert(cashFlowsTable).
		Columns(cashFlowColumns...).
		Values(
			f.ID, f.FlowDate, f.FlowType, f.Direction, f.Category, f.Amount,
			f.AccountID, f.TransactionID, f.RunningBalance,
			f.Description, f.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		// transaction_id carries a unique constraint: one flow per
		// posted transaction.
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("cash_flow", "transaction_id", f.TransactionID.String())
		}
		return fmt.Errorf("insert cash flow: %w", err)
	}
	return nil
}

// GetByTransactionID returns the flow posted for a transaction, or nil
// when none exists. Approval uses this as its idempotence check.
func (r *CashFlowRepo) GetByTransactionID(ctx context.Context, txID id.ID) (*finance.CashFlow, error) {
	q := r.builder.Select(cashFlowColumns...).
		From(cashFlowsTable).
		Where(squirrel.Eq{"transaction_id": txID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var f finance.CashFlow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &f, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get flow by transaction: %w", err)
	}
	return &f, nil
}

func (r *CashFlowRepo) List(ctx context.Context, filter finance.CashFlowFilter) ([]finance.CashFlow, error) {
	q := r.builder.Select(cashFlowColumns...).
		From(cashFlowsTable).
		OrderBy("flow_date DESC", "id DESC")

	if filter.AccountID != nil {
		q = q.Where(squirrel.Eq{"account_id": *filter.AccountID})
	}
	if filter.FlowType != nil {
		q = q.Where(squirrel.Eq{"flow_type": *filter.FlowType})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"flow_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"flow_date": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []finance.CashFlow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select cash flows: %w", err)
	}
	return out, nil
}

// ListByAccountOrdered returns an account's flows in replay order for
// running-balance verification.
func (r *CashFlowRepo) ListByAccountOrdered(ctx context.Context, accountID id.ID) ([]finance.CashFlow, error) {
	q := r.builder.Select(cashFlowColumns...).
		From(cashFlowsTable).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("flow_date", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []finance.CashFlow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select account flows: %w", err)
	}
	return out, nil
}

func (r *CashFlowRepo) UpdateRunningBalance(ctx context.Context, flowID id.ID, balance types.Money) error {
	q := r.builder.Update(cashFlowsTable).
		Set("running_balance", balance).
		Where(squirrel.Eq{"id": flowID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update running balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("cash_flow", flowID.String())
	}
	return nil
}

// Statement aggregates flows per bucket over a period in one query.
func (r *CashFlowRepo) Statement(ctx context.Context, from, to time.Time) (finance.FlowStatement, error) {
	st := finance.FlowStatement{From: from, To: to}

	sql := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE flow_type = 'operating' AND direction = 'inflow'), 0),
			COALESCE(SUM(amount) FILTER (WHERE flow_type = 'operating' AND direction = 'outflow'), 0),
			COALESCE(SUM(amount) FILTER (WHERE flow_type = 'investing' AND direction = 'inflow'), 0),
			COALESCE(SUM(amount) FILTER (WHERE flow_type = 'investing' AND direction = 'outflow'), 0),
			COALESCE(SUM(amount) FILTER (WHERE flow_type = 'financing' AND direction = 'inflow'), 0),
			COALESCE(SUM(amount) FILTER (WHERE flow_type = 'financing' AND direction = 'outflow'), 0),
			COALESCE(SUM(CASE WHEN direction = 'inflow' THEN amount ELSE -amount END), 0)
		FROM fin_cash_flows
		WHERE flow_date >= $1 AND flow_date < $2
	`

	row := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, from, to)
	err := row.Scan(
		&st.OperatingIn, &st.OperatingOut,
		&st.InvestingIn, &st.InvestingOut,
		&st.FinancingIn, &st.FinancingOut,
		&st.NetChange,
	)
	if err != nil {
		return st, fmt.Errorf("aggregate statement: %w", err)
	}
	return st, nil
}
