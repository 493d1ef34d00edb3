// Package finance_repo provides PostgreSQL implementations for the
// finance repositories: accounts, transactions, cash flows, and the
// category lookup table.
package finance_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/finance"
	"kasbook/internal/infrastructure/storage/postgres"
)

const accountsTable = "fin_accounts"

var accountColumns = []string{
	"id", "account_code", "account_type", "name", "category",
	"opening_balance", "current_balance",
	"is_active", "created_at", "updated_at",
}

// AccountRepo implements finance.AccountRepository.
type AccountRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewAccountRepo creates a new account repository.
func NewAccountRepo(txManager *postgres.TxManager) *AccountRepo {
	return &AccountRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *AccountRepo) Create(ctx context.Context, a *finance.Account) error {
	q := r.builder.Insert(accountsTable).
		Columns(accountColumns...).
		Values(
			a.ID, a.AccountCode, a.AccountType, a.Name, a.Category,
			a.OpeningBalance, a.CurrentBalance,
			a.IsActive, a.CreatedAt, a.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("account", "account_code", a.AccountCode)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, accountID id.ID) (*finance.Account, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"id": accountID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a finance.Account
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", accountID.String())
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// GetByIDForUpdate locks the account row. Posting locks both accounts
// of a transaction in ascending id order.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, accountID id.ID) (*finance.Account, error) {
	sql := `
		SELECT id, account_code, account_type, name, category,
		       opening_balance, current_balance,
		       is_active, created_at, updated_at
		FROM fin_accounts
		WHERE id = $1
		FOR UPDATE
	`

	var a finance.Account
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &a, sql, accountID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", accountID.String())
		}
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return &a, nil
}

func (r *AccountRepo) List(ctx context.Context, filter finance.AccountFilter) ([]finance.Account, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		OrderBy("account_code")

	if len(filter.Types) > 0 {
		q = q.Where(squirrel.Eq{"account_type": filter.Types})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []finance.Account
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	return out, nil
}

func (r *AccountRepo) UpdateBalance(ctx context.Context, accountID id.ID, balance types.Money) error {
	q := r.builder.Update(accountsTable).
		Set("current_balance", balance).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": accountID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("account", accountID.String())
	}
	return nil
}

func (r *AccountRepo) SetActive(ctx context.Context, accountID id.ID, active bool) error {
	q := r.builder.Update(accountsTable).
		Set("is_active", active).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": accountID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("account", accountID.String())
	}
	return nil
}
