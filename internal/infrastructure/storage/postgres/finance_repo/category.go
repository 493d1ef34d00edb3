package finance_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kasbook/internal/core/apperror"
	"kasbook/internal/domain/finance"
	"kasbook/internal/infrastructure/storage/postgres"
)

const categoriesTable = "fin_categories"

var categoryColumns = []string{"code", "name", "transaction_type", "flow_type"}

// CategoryRepo implements finance.CategoryRepository over the seeded
// lookup table.
type CategoryRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewCategoryRepo creates a new category repository.
func NewCategoryRepo(txManager *postgres.TxManager) *CategoryRepo {
	return &CategoryRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CategoryRepo) GetByCode(ctx context.Context, code string) (*finance.Category, error) {
	q := r.builder.Select(categoryColumns...).
		From(categoriesTable).
		Where(squirrel.Eq{"code": code})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c finance.Category
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("category", code)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]finance.Category, error) {
	q := r.builder.Select(categoryColumns...).
		From(categoriesTable).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []finance.Category
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	return out, nil
}
