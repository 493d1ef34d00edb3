package finance_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/entity"
	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/finance"
	"kasbook/internal/infrastructure/storage/postgres"
)

const transactionsTable = "fin_transactions"

var transactionColumns = []string{
	"id", "transaction_code", "transaction_type", "category", "subcategory",
	"amount", "from_account_id", "to_account_id",
	"reference_kind", "reference_id", "description",
	"status", "created_by", "approved_by", "approved_at", "rejected_reason",
	"transaction_date", "created_at", "updated_at",
}

type transactionRow struct {
	ID              id.ID                     `db:"id"`
	TransactionCode string                    `db:"transaction_code"`
	TransactionType finance.TransactionType   `db:"transaction_type"`
	Category        string                    `db:"category"`
	Subcategory     string                    `db:"subcategory"`
	Amount          types.Money               `db:"amount"`
	FromAccountID   *id.ID                    `db:"from_account_id"`
	ToAccountID     *id.ID                    `db:"to_account_id"`
	ReferenceKind   *string                   `db:"reference_kind"`
	ReferenceID     *id.ID                    `db:"reference_id"`
	Description     string                    `db:"description"`
	Status          finance.TransactionStatus `db:"status"`
	CreatedBy       string                    `db:"created_by"`
	ApprovedBy      *string                   `db:"approved_by"`
	ApprovedAt      *time.Time                `db:"approved_at"`
	RejectedReason  *string                   `db:"rejected_reason"`
	TransactionDate time.Time                 `db:"transaction_date"`
	CreatedAt       time.Time                 `db:"created_at"`
	UpdatedAt       time.Time                 `db:"updated_at"`
}

func (row *transactionRow) toDomain() finance.Transaction {
	t := finance.Transaction{
		ID:              row.ID,
		TransactionCode: row.TransactionCode,
		TransactionType: row.TransactionType,
		Category:        row.Category,
		Subcategory:     row.Subcategory,
		Amount:          row.Amount,
		FromAccountID:   row.FromAccountID,
		ToAccountID:     row.ToAccountID,
		Description:     row.Description,
		Status:          row.Status,
		CreatedBy:       row.CreatedBy,
		ApprovedBy:      row.ApprovedBy,
		ApprovedAt:      row.ApprovedAt,
		RejectedReason:  row.RejectedReason,
		TransactionDate: row.TransactionDate,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.ReferenceKind != nil && row.ReferenceID != nil {
		t.Reference = &entity.Reference{
			Kind: entity.ReferenceKind(*row.ReferenceKind),
			ID:   *row.ReferenceID,
		}
	}
	return t
}

// TransactionRepo implements finance.TransactionRepository.
type TransactionRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewTransactionRepo creates a new transaction repository.
func NewTransactionRepo(txManager *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *TransactionRepo) Create(ctx context.Context, t *finance.Transaction) error {
	var refKind *string
	var refID *id.ID
	if t.Reference != nil {
		kind := string(t.Reference.Kind)
		refKind = &kind
		refID = &t.Reference.ID
	}

	q := r.builder.Insert(transactionsTable).
		Columns(transactionColumns...).
		Values(
			t.ID, t.TransactionCode, t.TransactionType, t.Category, t.Subcategory,
			t.Amount, t.FromAccountID, t.ToAccountID,
			refKind, refID, t.Description,
			t.Status, t.CreatedBy, t.ApprovedBy, t.ApprovedAt, t.RejectedReason,
			t.TransactionDate, t.CreatedAt, t.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("transaction", "transaction_code", t.TransactionCode)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, txID id.ID) (*finance.Transaction, error) {
	return r.get(ctx, txID, false)
}

// GetByIDForUpdate locks the transaction row so concurrent approvals of
// the same transaction serialize.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, txID id.ID) (*finance.Transaction, error) {
	return r.get(ctx, txID, true)
}

func (r *TransactionRepo) get(ctx context.Context, txID id.ID, forUpdate bool) (*finance.Transaction, error) {
	q := r.builder.Select(transactionColumns...).
		From(transactionsTable).
		Where(squirrel.Eq{"id": txID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row transactionRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transaction", txID.String())
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	t := row.toDomain()
	return &t, nil
}

// UpdateStatus persists a lifecycle transition. The business fields of
// the row never change after creation.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, t *finance.Transaction) error {
	q := r.builder.Update(transactionsTable).
		Set("status", t.Status).
		Set("approved_by", t.ApprovedBy).
		Set("approved_at", t.ApprovedAt).
		Set("rejected_reason", t.RejectedReason).
		Set("updated_at", t.UpdatedAt).
		Where(squirrel.Eq{"id": t.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("transaction", t.ID.String())
	}
	return nil
}

func (r *TransactionRepo) List(ctx context.Context, filter finance.TransactionFilter) ([]finance.Transaction, error) {
	q := r.builder.Select(transactionColumns...).
		From(transactionsTable).
		OrderBy("transaction_date DESC", "id DESC")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"transaction_type": *filter.Type})
	}
	if filter.AccountID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_account_id": *filter.AccountID},
			squirrel.Eq{"to_account_id": *filter.AccountID},
		})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"transaction_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"transaction_date": *filter.ToDate})
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

	var rows []transactionRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}

	out := make([]finance.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// ListCompletedOrdered streams all completed transactions in fold order
// for the reconciliation engine.
func (r *TransactionRepo) ListCompletedOrdered(ctx context.Context) ([]finance.Transaction, error) {
	q := r.builder.Select(transactionColumns...).
		From(transactionsTable).
		Where(squirrel.Eq{"status": finance.StatusCompleted}).
		OrderBy("transaction_date", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []transactionRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select completed transactions: %w", err)
	}

	out := make([]finance.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
