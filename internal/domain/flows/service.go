// Package flows implements the composite business operations that touch
// both ledgers at once: a sale moves stock out and money in, a purchase
// receipt moves stock in and money out. Each operation runs as one unit
// of work; a failure in either ledger rolls back both.
package flows

import (
	"context"
	"fmt"
	"time"

	"kasbook/internal/core/apperror"
	"kasbook/internal/core/entity"
	"kasbook/internal/core/id"
	"kasbook/internal/core/tx"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/catalog/product"
	"kasbook/internal/domain/finance"
	"kasbook/internal/domain/stockledger"
	"kasbook/pkg/logger"
)

// Canonical seeded categories used by the composite operations.
const (
	CategorySales     = "sales"
	CategoryPurchase  = "inventory_purchase"
	CategoryPayroll   = "payroll"
	CategoryUtilities = "utilities"
)

// Service composes the stock ledger and the transaction ledger.
type Service struct {
	stock     *stockledger.Service
	products  product.Repository
	ledger    *finance.LedgerService
	txManager tx.Manager
}

func NewService(stock *stockledger.Service, products product.Repository, ledger *finance.LedgerService, txManager tx.Manager) *Service {
	return &Service{
		stock:     stock,
		products:  products,
		ledger:    ledger,
		txManager: txManager,
	}
}

// Line is one product position in a sale or purchase.
type Line struct {
	ProductID id.ID
	Quantity  types.Quantity

	// UnitPrice overrides the catalog price when set.
	UnitPrice *types.Money
}

// SaleInput describes a checkout: stock goes out, money comes in.
type SaleInput struct {
	Lines       []Line
	AccountID   id.ID // receiving cash or bank account
	ActorID     string
	Description string
	Date        time.Time
}

// PurchaseInput describes a goods receipt: stock comes in, money goes out.
type PurchaseInput struct {
	Lines       []Line
	AccountID   id.ID // paying account
	ActorID     string
	Description string
	Date        time.Time
}

// PaymentInput describes a money-only outflow (payroll, utilities and
// other expenses with no stock side).
type PaymentInput struct {
	FromAccountID id.ID
	Amount        types.Money
	Category      string
	Reference     *entity.Reference
	Description   string
	ActorID       string
	Date          time.Time
}

// Result reports what a composite operation wrote.
type Result struct {
	Transaction *finance.Transaction         `json:"transaction"`
	Movements   []*stockledger.StockMovement `json:"movements"`
	Total       types.Money                  `json:"total"`
}

// SaleCheckout records an out-movement per line, then posts an approved
// income transaction for the total. All writes share one transaction;
// insufficient stock on any line rolls everything back.
func (s *Service) SaleCheckout(ctx context.Context, in SaleInput) (*Result, error) {
	if err := validateLines(in.Lines, in.AccountID, in.ActorID); err != nil {
		return nil, err
	}

	// One reference ID ties the movements and the transaction together.
	ref := &entity.Reference{Kind: entity.RefSale, ID: id.New()}

	result := &Result{}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		total, movements, err := s.moveLines(ctx, in.Lines, stockledger.TypeOut, in.ActorID, in.Description, ref)
		if err != nil {
			return err
		}

		t, err := s.postApproved(ctx, finance.CreateInput{
			Type:        finance.TxIncome,
			Category:    CategorySales,
			Amount:      total,
			ToAccountID: &in.AccountID,
			Reference:   ref,
			Description: in.Description,
			CreatedBy:   in.ActorID,
			Date:        in.Date,
		}, in.ActorID)
		if err != nil {
			return err
		}

		result.Transaction = t
		result.Movements = movements
		result.Total = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale checkout posted",
		"transaction_code", result.Transaction.TransactionCode,
		"lines", len(result.Movements),
		"total", result.Total,
	)
	return result, nil
}

// PurchaseReceipt records an in-movement per line and posts an approved
// expense transaction for the total.
func (s *Service) PurchaseReceipt(ctx context.Context, in PurchaseInput) (*Result, error) {
	if err := validateLines(in.Lines, in.AccountID, in.ActorID); err != nil {
		return nil, err
	}

	ref := &entity.Reference{Kind: entity.RefPurchase, ID: id.New()}

	result := &Result{}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		total, movements, err := s.moveLines(ctx, in.Lines, stockledger.TypeIn, in.ActorID, in.Description, ref)
		if err != nil {
			return err
		}

		t, err := s.postApproved(ctx, finance.CreateInput{
			Type:          finance.TxExpense,
			Category:      CategoryPurchase,
			Amount:        total,
			FromAccountID: &in.AccountID,
			Reference:     ref,
			Description:   in.Description,
			CreatedBy:     in.ActorID,
			Date:          in.Date,
		}, in.ActorID)
		if err != nil {
			return err
		}

		result.Transaction = t
		result.Movements = movements
		result.Total = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase receipt posted",
		"transaction_code", result.Transaction.TransactionCode,
		"lines", len(result.Movements),
		"total", result.Total,
	)
	return result, nil
}

// ExpensePayment posts an approved money-only expense.
func (s *Service) ExpensePayment(ctx context.Context, in PaymentInput) (*finance.Transaction, error) {
	if in.Category == "" {
		in.Category = CategoryUtilities
	}
	return s.payment(ctx, in)
}

// PayrollPayment posts an approved payroll expense.
func (s *Service) PayrollPayment(ctx context.Context, in PaymentInput) (*finance.Transaction, error) {
	in.Category = CategoryPayroll
	if in.Reference == nil {
		in.Reference = &entity.Reference{Kind: entity.RefPayroll, ID: id.New()}
	}
	return s.payment(ctx, in)
}

func (s *Service) payment(ctx context.Context, in PaymentInput) (*finance.Transaction, error) {
	if id.IsNil(in.FromAccountID) {
		return nil, apperror.NewValidation("paying account is required").WithDetail("field", "fromAccountId")
	}
	if in.ActorID == "" {
		return nil, apperror.NewValidation("actor is required").WithDetail("field", "actorId")
	}

	var result *finance.Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.postApproved(ctx, finance.CreateInput{
			Type:          finance.TxExpense,
			Category:      in.Category,
			Amount:        in.Amount,
			FromAccountID: &in.FromAccountID,
			Reference:     in.Reference,
			Description:   in.Description,
			CreatedBy:     in.ActorID,
			Date:          in.Date,
		}, in.ActorID)
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment posted",
		"transaction_code", result.TransactionCode,
		"category", result.Category,
		"amount", result.Amount,
	)
	return result, nil
}

// moveLines writes one movement per line and returns the priced total.
func (s *Service) moveLines(ctx context.Context, lines []Line, movementType stockledger.MovementType, actorID, description string, ref *entity.Reference) (types.Money, []*stockledger.StockMovement, error) {
	total := types.ZeroMoney()
	movements := make([]*stockledger.StockMovement, 0, len(lines))

	for _, line := range lines {
		price := line.UnitPrice
		if price == nil {
			p, err := s.products.GetByID(ctx, line.ProductID)
			if err != nil {
				return total, nil, err
			}
			price = &p.UnitPrice
		}

		m, err := s.stock.RecordMovement(ctx, stockledger.RecordInput{
			ProductID:   line.ProductID,
			Type:        movementType,
			Quantity:    line.Quantity,
			Description: description,
			ActorID:     actorID,
			Reference:   ref,
			UnitPrice:   price,
		})
		if err != nil {
			return total, nil, err
		}

		movements = append(movements, m)
		total = total.Add(price.Mul(types.NewMoneyFromInt(line.Quantity)))
	}

	if total.LessThanOrEqual(types.ZeroMoney()) {
		return total, nil, apperror.NewValidation("priced total must be positive")
	}
	return total, movements, nil
}

// postApproved creates a transaction and approves it in place. Used by
// point-of-fact operations where the money movement already happened.
func (s *Service) postApproved(ctx context.Context, in finance.CreateInput, approverID string) (*finance.Transaction, error) {
	t, err := s.ledger.CreateTransaction(ctx, in)
	if err != nil {
		return nil, err
	}
	approved, err := s.ledger.Approve(ctx, t.ID, approverID)
	if err != nil {
		return nil, fmt.Errorf("approve %s: %w", t.TransactionCode, err)
	}
	return approved, nil
}

func validateLines(lines []Line, accountID id.ID, actorID string) error {
	if len(lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	if id.IsNil(accountID) {
		return apperror.NewValidation("account is required").WithDetail("field", "accountId")
	}
	if actorID == "" {
		return apperror.NewValidation("actor is required").WithDetail("field", "actorId")
	}
	for i, line := range lines {
		if line.Quantity <= 0 {
			return apperror.NewValidation("line quantity must be positive").WithDetail("line", i)
		}
	}
	return nil
}
