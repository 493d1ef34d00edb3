package stockledger

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
	"kasbook/internal/domain/catalog/product"
)

// In-memory fakes.

type fakeMovementRepo struct {
	movements []StockMovement
	createErr error
}

func (r *fakeMovementRepo) CreateMovement(_ context.Context, m *StockMovement) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.movements = append(r.movements, *m)
	return nil
}

func (r *fakeMovementRepo) LastMovement(_ context.Context, productID id.ID) (*StockMovement, error) {
	for i := len(r.movements) - 1; i >= 0; i-- {
		if r.movements[i].ProductID == productID {
			m := r.movements[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (r *fakeMovementRepo) ListByProduct(_ context.Context, productID id.ID, filter MovementFilter) ([]StockMovement, error) {
	var out []StockMovement
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if m.ProductID != productID {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		out = append(out, m)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) Turnover(_ context.Context, productID id.ID, from, to time.Time) (Turnover, error) {
	t := Turnover{ProductID: productID, From: from, To: to}
	for _, m := range r.movements {
		if m.ProductID != productID {
			continue
		}
		if m.Direction == DirectionIncrease {
			t.Received += m.Quantity
		} else {
			t.Issued += m.Quantity
		}
		t.ClosingStock = m.StockAfter
	}
	return t, nil
}

type fakeProductRepo struct {
	products       map[id.ID]*product.Product
	updateStockErr error
}

func newFakeProductRepo(products ...*product.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[id.ID]*product.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) Create(_ context.Context, p *product.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) GetByIDForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *fakeProductRepo) UpdateStock(_ context.Context, productID id.ID, stock types.Quantity) error {
	if r.updateStockErr != nil {
		return r.updateStockErr
	}
	p, ok := r.products[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	p.Stock = stock
	return nil
}

func (r *fakeProductRepo) List(_ context.Context, activeOnly bool) ([]product.Product, error) {
	var out []product.Product
	for _, p := range r.products {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// passthroughTxManager runs fn directly. It snapshots the fakes before
// fn and restores them on error so a failed unit of work leaves no
// partial writes, like a database rollback would.
type passthroughTxManager struct {
	movements *fakeMovementRepo
	products  *fakeProductRepo
}

func (m *passthroughTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	savedMovements := append([]StockMovement(nil), m.movements.movements...)
	savedProducts := make(map[id.ID]product.Product, len(m.products.products))
	for k, v := range m.products.products {
		savedProducts[k] = *v
	}

	if err := fn(ctx); err != nil {
		m.movements.movements = savedMovements
		for k, v := range savedProducts {
			cp := v
			m.products.products[k] = &cp
		}
		return err
	}
	return nil
}

func testProduct(stock types.Quantity) *product.Product {
	return &product.Product{
		ID:        id.New(),
		SKU:       "SKU-001",
		Name:      "Ground coffee 1kg",
		UnitPrice: types.MustMoney("450.00"),
		Stock:     stock,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
}

func newTestService(p *product.Product) (*Service, *fakeMovementRepo, *fakeProductRepo) {
	movements := &fakeMovementRepo{}
	products := newFakeProductRepo(p)
	svc := NewService(movements, products, &passthroughTxManager{movements: movements, products: products})
	return svc, movements, products
}

func TestRecordMovement_FoldInvariant(t *testing.T) {
	p := testProduct(0)
	svc, repo, products := newTestService(p)
	ctx := context.Background()

	steps := []struct {
		input    RecordInput
		expected types.Quantity
	}{
		{RecordInput{ProductID: p.ID, Type: TypeIn, Quantity: 50, ActorID: "u1"}, 50},
		{RecordInput{ProductID: p.ID, Type: TypeOut, Quantity: 10, ActorID: "u1"}, 40},
		{RecordInput{ProductID: p.ID, Type: TypeReturn, Quantity: 3, ActorID: "u1"}, 43},
		{RecordInput{ProductID: p.ID, Type: TypeDamage, Quantity: 5, ActorID: "u1"}, 38},
		{RecordInput{ProductID: p.ID, Type: TypeAdjustment, Direction: DirectionDecrease, Quantity: 8, ActorID: "u1"}, 30},
	}

	for _, step := range steps {
		m, err := svc.RecordMovement(ctx, step.input)
		require.NoError(t, err)
		assert.Equal(t, step.expected, m.StockAfter)
		assert.Equal(t, m.StockBefore+m.SignedQuantity(), m.StockAfter)
	}

	// Cache equals the last movement's stock_after.
	stock, err := svc.CurrentStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(30), stock)

	last, err := repo.LastMovement(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, stock, last.StockAfter)
	assert.Len(t, repo.movements, 5)
	assert.Equal(t, types.Quantity(30), products.products[p.ID].Stock)
}

func TestRecordMovement_InsufficientStock(t *testing.T) {
	p := testProduct(50)
	svc, repo, _ := newTestService(p)
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, RecordInput{ProductID: p.ID, Type: TypeOut, Quantity: 10, ActorID: "u1"})
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, RecordInput{ProductID: p.ID, Type: TypeOut, Quantity: 45, ActorID: "u1"})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, int64(45), appErr.Details["requested"])
	assert.Equal(t, int64(40), appErr.Details["available"])

	// The rejected movement wrote nothing.
	assert.Len(t, repo.movements, 1)
	stock, err := svc.CurrentStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(40), stock)
}

func TestRecordMovement_AdjustmentRequiresDirection(t *testing.T) {
	p := testProduct(10)
	svc, repo, _ := newTestService(p)

	for _, typ := range []MovementType{TypeAdjustment, TypeCorrection} {
		_, err := svc.RecordMovement(context.Background(), RecordInput{
			ProductID: p.ID,
			Type:      typ,
			Quantity:  5,
			ActorID:   "u1",
		})
		require.Error(t, err)

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	}
	assert.Empty(t, repo.movements)
}

func TestRecordMovement_ValidationRejects(t *testing.T) {
	p := testProduct(10)
	svc, _, _ := newTestService(p)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RecordInput
	}{
		{"zero quantity", RecordInput{ProductID: p.ID, Type: TypeIn, Quantity: 0, ActorID: "u1"}},
		{"negative quantity", RecordInput{ProductID: p.ID, Type: TypeIn, Quantity: -5, ActorID: "u1"}},
		{"unknown type", RecordInput{ProductID: p.ID, Type: "teleport", Quantity: 1, ActorID: "u1"}},
		{"missing actor", RecordInput{ProductID: p.ID, Type: TypeIn, Quantity: 1}},
		{"nil product", RecordInput{Type: TypeIn, Quantity: 1, ActorID: "u1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordMovement(ctx, tc.input)
			require.Error(t, err)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

func TestRecordMovement_RollbackOnCacheFailure(t *testing.T) {
	p := testProduct(10)
	movements := &fakeMovementRepo{}
	products := newFakeProductRepo(p)
	products.updateStockErr = errors.New("connection reset")
	svc := NewService(movements, products, &passthroughTxManager{movements: movements, products: products})

	_, err := svc.RecordMovement(context.Background(), RecordInput{
		ProductID: p.ID,
		Type:      TypeIn,
		Quantity:  5,
		ActorID:   "u1",
	})
	require.Error(t, err)

	// Rollback removed the movement written before the cache update failed.
	assert.Empty(t, movements.movements)
	assert.Equal(t, types.Quantity(10), products.products[p.ID].Stock)
}

func TestRecordMovement_UnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(testProduct(10))

	_, err := svc.RecordMovement(context.Background(), RecordInput{
		ProductID: id.New(),
		Type:      TypeIn,
		Quantity:  1,
		ActorID:   "u1",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestTurnoverReport_PeriodValidation(t *testing.T) {
	svc, _, _ := newTestService(testProduct(10))

	now := time.Now()
	_, err := svc.TurnoverReport(context.Background(), id.New(), now, now.Add(-time.Hour))
	require.Error(t, err)
}
