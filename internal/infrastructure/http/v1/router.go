// Package v1 provides HTTP API version 1.
package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"kasbook/internal/domain/catalog/product"
	"kasbook/internal/domain/finance"
	"kasbook/internal/domain/flows"
	"kasbook/internal/domain/reconcile"
	"kasbook/internal/domain/stockledger"
	"kasbook/internal/infrastructure/http/v1/dto"
	"kasbook/internal/infrastructure/http/v1/handlers"
	"kasbook/internal/infrastructure/http/v1/middleware"
	"kasbook/internal/infrastructure/storage/postgres"
	"kasbook/internal/infrastructure/storage/postgres/catalog_repo"
	"kasbook/internal/infrastructure/storage/postgres/finance_repo"
	"kasbook/internal/infrastructure/storage/postgres/ledger_repo"
	"kasbook/pkg/logger"
	"kasbook/pkg/numerator"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// TxManager drives atomic units of work for every ledger write.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// Verifier validates access tokens from the identity collaborator.
	Verifier middleware.TokenVerifier

	// Numerator generates account and transaction codes.
	Numerator numerator.Generator

	// DevMode relaxes authentication to make local testing easier.
	DevMode bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := dto.RegisterValidations(); err != nil {
		return nil, fmt.Errorf("register validations: %w", err)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	auditService, err := postgres.NewAuditService(cfg.TxManager)
	if err != nil {
		return nil, fmt.Errorf("init audit service: %w", err)
	}

	// Repositories
	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	stockRepo := ledger_repo.NewStockRepo(cfg.TxManager)
	accountRepo := finance_repo.NewAccountRepo(cfg.TxManager)
	transactionRepo := finance_repo.NewTransactionRepo(cfg.TxManager)
	cashFlowRepo := finance_repo.NewCashFlowRepo(cfg.TxManager)
	categoryRepo := finance_repo.NewCategoryRepo(cfg.TxManager)

	// Services
	productService := product.NewService(productRepo)
	stockService := stockledger.NewService(stockRepo, productRepo, cfg.TxManager)
	accountService := finance.NewAccountService(accountRepo, cfg.Numerator, cfg.TxManager)
	ledgerService := finance.NewLedgerService(transactionRepo, accountRepo, cashFlowRepo, categoryRepo, cfg.Numerator, cfg.TxManager)
	flowsService := flows.NewService(stockService, productRepo, ledgerService, cfg.TxManager)
	reconcileEngine := reconcile.NewEngine(accountRepo, transactionRepo, cashFlowRepo, productRepo, stockRepo, cfg.TxManager)

	// API v1: every mutating operation records the acting user, so the
	// whole surface sits behind the actor middleware.
	api := router.Group("/api/v1")
	if cfg.DevMode {
		api.Use(middleware.OptionalActor(cfg.Verifier))
	} else {
		api.Use(middleware.Actor(cfg.Verifier))
	}

	productHandler := handlers.NewProductHandler(productService)
	products := api.Group("/products")
	{
		products.POST("", productHandler.Create)
		products.GET("", productHandler.List)
		products.GET("/:id", productHandler.Get)
	}

	stockHandler := handlers.NewStockHandler(stockService, auditService)
	stock := api.Group("/stock")
	{
		stock.POST("/movements", stockHandler.RecordMovement)
		stock.GET("/:productId", stockHandler.CurrentStock)
		stock.GET("/:productId/movements", stockHandler.MovementHistory)
		stock.GET("/:productId/turnover", stockHandler.Turnover)
	}

	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	accounts := api.Group("/accounts")
	{
		accounts.POST("", accountHandler.Create)
		accounts.GET("", accountHandler.List)
		accounts.GET("/cash-summary", accountHandler.CashSummary)
		accounts.GET("/:id", accountHandler.Get)
		accounts.POST("/:id/deactivate", accountHandler.Deactivate)
	}

	transactionHandler := handlers.NewTransactionHandler(ledgerService, auditService)
	transactions := api.Group("/transactions")
	{
		transactions.POST("", transactionHandler.Create)
		transactions.GET("", transactionHandler.List)
		transactions.GET("/:id", transactionHandler.Get)
		transactions.POST("/:id/approve", transactionHandler.Approve)
		transactions.POST("/:id/reject", transactionHandler.Reject)
	}

	cashFlowHandler := handlers.NewCashFlowHandler(ledgerService)
	cashFlows := api.Group("/cash-flows")
	{
		cashFlows.GET("", cashFlowHandler.List)
		cashFlows.GET("/statement", cashFlowHandler.Statement)
	}

	flowsHandler := handlers.NewFlowsHandler(flowsService)
	flowGroup := api.Group("/flows")
	{
		flowGroup.POST("/sale", flowsHandler.Sale)
		flowGroup.POST("/purchase", flowsHandler.Purchase)
		flowGroup.POST("/expense", flowsHandler.Expense)
		flowGroup.POST("/payroll", flowsHandler.Payroll)
	}

	reconcileHandler := handlers.NewReconcileHandler(reconcileEngine)
	api.POST("/reconcile/recalculate", reconcileHandler.Recalculate)

	return router, nil
}
