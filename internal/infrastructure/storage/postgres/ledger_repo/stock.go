// Package ledger_repo provides PostgreSQL implementations for the
// append-only ledger repositories.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"kasbook/internal/core/entity"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/stockledger"
	"kasbook/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "stock_movements"

var movementColumns = []string{
	"id", "product_id", "movement_type", "direction", "quantity",
	"stock_before", "stock_after", "unit_price",
	"reference_kind", "reference_id", "metadata",
	"description", "actor_id", "created_at",
}

// movementRow flattens the optional document reference into nullable
// columns for scanning.
type movementRow struct {
	ID            id.ID                    `db:"id"`
	ProductID     id.ID                    `db:"product_id"`
	MovementType  stockledger.MovementType `db:"movement_type"`
	Direction     stockledger.Direction    `db:"direction"`
	Quantity      types.Quantity           `db:"quantity"`
	StockBefore   types.Quantity           `db:"stock_before"`
	StockAfter    types.Quantity           `db:"stock_after"`
	UnitPrice     *types.Money             `db:"unit_price"`
	ReferenceKind *string                  `db:"reference_kind"`
	ReferenceID   *id.ID                   `db:"reference_id"`
	Metadata      map[string]string        `db:"metadata"`
	Description   string                   `db:"description"`
	ActorID       string                   `db:"actor_id"`
	CreatedAt     time.Time                `db:"created_at"`
}

func (row *movementRow) toDomain() stockledger.StockMovement {
	m := stockledger.StockMovement{
		ID:          row.ID,
		ProductID:   row.ProductID,
		Type:        row.MovementType,
		Direction:   row.Direction,
		Quantity:    row.Quantity,
		StockBefore: row.StockBefore,
		StockAfter:  row.StockAfter,
		UnitPrice:   row.UnitPrice,
		Metadata:    row.Metadata,
		Description: row.Description,
		ActorID:     row.ActorID,
		CreatedAt:   row.CreatedAt,
	}
	if row.ReferenceKind != nil && row.ReferenceID != nil {
		m.Reference = &entity.Reference{
			Kind: entity.ReferenceKind(*row.ReferenceKind),
			ID:   *row.ReferenceID,
		}
	}
	return m
}

// StockRepo implements stockledger.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock ledger repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateMovement appends one movement row. There is no update or delete
// path for this table.
func (r *StockRepo) CreateMovement(ctx context.Context, m *stockledger.StockMovement) error {
	var refKind *string
	var refID *id.ID
	if m.Reference != nil {
		kind := string(m.Reference.Kind)
		refKind = &kind
		refID = &m.Reference.ID
	}

	q := r.builder.Insert(stockMovementsTable).
		Columns(movementColumns...).
		Values(
			m.ID, m.ProductID, m.Type, m.Direction, m.Quantity,
			m.StockBefore, m.StockAfter, m.UnitPrice,
			refKind, refID, m.Metadata,
			m.Description, m.ActorID, m.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (r *StockRepo) LastMovement(ctx context.Context, productID id.ID) (*stockledger.StockMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row movementRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last movement: %w", err)
	}

	m := row.toDomain()
	return &m, nil
}

func (r *StockRepo) ListByProduct(ctx context.Context, productID id.ID, filter stockledger.MovementFilter) ([]stockledger.StockMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at DESC", "id DESC")

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
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

	var rows []movementRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	out := make([]stockledger.StockMovement, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// Turnover aggregates receipts and issues over a period, with opening
// and closing stock taken from the nearest movement snapshots.
func (r *StockRepo) Turnover(ctx context.Context, productID id.ID, from, to time.Time) (stockledger.Turnover, error) {
	result := stockledger.Turnover{ProductID: productID, From: from, To: to}

	sumSQL := `
		SELECT
			COALESCE(SUM(quantity) FILTER (WHERE direction = 'increase'), 0) AS received,
			COALESCE(SUM(quantity) FILTER (WHERE direction = 'decrease'), 0) AS issued
		FROM stock_movements
		WHERE product_id = $1 AND created_at >= $2 AND created_at < $3
	`
	row := r.txManager.GetQuerier(ctx).QueryRow(ctx, sumSQL, productID, from, to)
	if err := row.Scan(&result.Received, &result.Issued); err != nil {
		return result, fmt.Errorf("sum turnover: %w", err)
	}

	if err := r.stockAsOf(ctx, productID, from, &result.OpeningStock); err != nil {
		return result, fmt.Errorf("opening stock: %w", err)
	}
	if err := r.stockAsOf(ctx, productID, to, &result.ClosingStock); err != nil {
		return result, fmt.Errorf("closing stock: %w", err)
	}

	return result, nil
}

// stockAsOf reads the stock_after snapshot of the last movement strictly
// before at, leaving dst untouched when the product has no earlier movements.
func (r *StockRepo) stockAsOf(ctx context.Context, productID id.ID, at time.Time, dst *types.Quantity) error {
	const snapshotSQL = `
		SELECT stock_after FROM stock_movements
		WHERE product_id = $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, snapshotSQL, productID, at).Scan(dst)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}
