// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"kasbook/internal/core/id"
	"kasbook/internal/core/types"
	"kasbook/internal/domain/finance"
	"kasbook/internal/infrastructure/storage/postgres"
	"kasbook/internal/infrastructure/storage/postgres/finance_repo"
	"kasbook/pkg/logger"
	"kasbook/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	gen := numerator.New(pool)

	if err := seedAccounts(ctx, txManager, gen, log); err != nil {
		log.Fatalw("failed to seed accounts", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoProducts(ctx, txManager, log); err != nil {
			log.Fatalw("failed to seed demo products", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedAccounts opens the default cash and bank accounts once.
func seedAccounts(ctx context.Context, txManager *postgres.TxManager, gen numerator.Generator, log *logger.Logger) error {
	accountRepo := finance_repo.NewAccountRepo(txManager)
	service := finance.NewAccountService(accountRepo, gen, txManager)

	existing, err := service.ListAccounts(ctx, finance.AccountFilter{})
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if len(existing) > 0 {
		log.Infow("accounts already seeded", "count", len(existing))
		return nil
	}

	accounts := []*finance.Account{
		finance.NewAccount("Main Cash Register", finance.AccountCash, "store", types.ZeroMoney()),
		finance.NewAccount("Operating Bank Account", finance.AccountBank, "store", types.ZeroMoney()),
	}

	for _, a := range accounts {
		if err := service.CreateAccount(ctx, a); err != nil {
			return fmt.Errorf("create account %q: %w", a.Name, err)
		}
		log.Infow("account created", "code", a.AccountCode, "name", a.Name)
	}

	return nil
}

// seedDemoProducts bulk-inserts a small demo catalog.
func seedDemoProducts(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	type demoProduct struct {
		sku   string
		name  string
		price string
	}

	demo := []demoProduct{
		{"TEA-001", "Green Tea 100g", "4.50"},
		{"TEA-002", "Black Tea 100g", "3.90"},
		{"COF-001", "Arabica Beans 250g", "8.75"},
		{"COF-002", "Robusta Beans 250g", "6.20"},
		{"SUG-001", "Cane Sugar 1kg", "2.10"},
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(demo))
	for _, d := range demo {
		price := types.MustMoney(d.price)
		rows = append(rows, []any{id.New(), d.sku, d.name, price, int64(0), true, now, now})
	}

	inserter := postgres.NewBatchInserter(txManager)
	columns := []string{"id", "sku", "name", "unit_price", "stock", "is_active", "created_at", "updated_at"}

	var inserted int64
	err := txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		n, err := inserter.CopyFromSlice(ctx, "cat_products", columns, rows)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert demo products: %w", err)
	}

	log.Infow("demo products seeded", "count", inserted)
	return nil
}
