package stockledger

import (
	"context"
	"fmt"
	"time"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/id"
	"kasbook/internal/core/tx"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/catalog/product"
	"kasbook/pkg/logger"
)

// Service provides business operations on the stock ledger.
type Service struct {
	repo      Repository
	products  product.Repository
	txManager tx.Manager
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, products product.Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		txManager: txManager,
	}
}

// RecordMovement appends one movement and updates the product's cached
// stock in the same transaction. The write is all-or-nothing: no movement
// row is ever visible without the matching cache update.
func (s *Service) RecordMovement(ctx context.Context, in RecordInput) (*StockMovement, error) {
	direction, err := in.Validate()
	if err != nil {
		return nil, err
	}

	var movement *StockMovement
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Row lock serializes concurrent movements for the same product.
		p, err := s.products.GetByIDForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}

		before := p.Stock
		var after types.Quantity
		if direction == DirectionDecrease {
			after = before - in.Quantity
			if after < 0 {
				return apperror.NewInsufficientStock(p.ID.String(), in.Quantity, before)
			}
		} else {
			after = before + in.Quantity
		}

		movement = &StockMovement{
			ID:          id.New(),
			ProductID:   p.ID,
			Type:        in.Type,
			Direction:   direction,
			Quantity:    in.Quantity,
			StockBefore: before,
			StockAfter:  after,
			UnitPrice:   in.UnitPrice,
			Reference:   in.Reference,
			Metadata:    in.Metadata,
			Description: in.Description,
			ActorID:     in.ActorID,
			CreatedAt:   time.Now().UTC(),
		}

		if err := s.repo.CreateMovement(ctx, movement); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		if err := s.products.UpdateStock(ctx, p.ID, after); err != nil {
			return fmt.Errorf("update stock cache: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock movement recorded",
		"movement_id", movement.ID,
		"product_id", movement.ProductID,
		"type", movement.Type,
		"quantity", movement.Quantity,
		"stock_after", movement.StockAfter,
	)

	return movement, nil
}

// CurrentStock returns the cached stock for a product. Pure read, no
// ledger replay.
func (s *Service) CurrentStock(ctx context.Context, productID id.ID) (types.Quantity, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// MovementHistory returns a product's movement log, newest first.
func (s *Service) MovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]StockMovement, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListByProduct(ctx, productID, filter)
}

// TurnoverReport summarizes receipts and issues for a period.
func (s *Service) TurnoverReport(ctx context.Context, productID id.ID, from, to time.Time) (Turnover, error) {
	if !to.After(from) {
		return Turnover{}, apperror.NewValidation("period end must be after start")
	}
	return s.repo.Turnover(ctx, productID, from, to)
}
