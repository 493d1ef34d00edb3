// Package main provides a CLI trigger for ledger reconciliation.
// Intended for cron jobs and operator runs; the same engine also sits
// behind the API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"kasbook/internal/domain/reconcile"
	"kasbook/internal/infrastructure/storage/postgres"
	"kasbook/internal/infrastructure/storage/postgres/catalog_repo"
	"kasbook/internal/infrastructure/storage/postgres/finance_repo"
	"kasbook/internal/infrastructure/storage/postgres/ledger_repo"
	"kasbook/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
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

	txManager := postgres.NewTxManager(pool)

	engine := reconcile.NewEngine(
		finance_repo.NewAccountRepo(txManager),
		finance_repo.NewTransactionRepo(txManager),
		finance_repo.NewCashFlowRepo(txManager),
		catalog_repo.NewProductRepo(txManager),
		ledger_repo.NewStockRepo(txManager),
		txManager,
	)

	log.Info("reconciliation starting")

	summary, err := engine.RecalculateBalances(ctx)
	if err != nil {
		log.Fatalw("reconciliation failed", "error", err)
	}

	log.Infow("reconciliation finished",
		"accounts_checked", summary.AccountsChecked,
		"accounts_repaired", summary.AccountsRepaired,
		"products_checked", summary.ProductsChecked,
		"products_repaired", summary.ProductsRepaired,
		"flows_checked", summary.FlowsChecked,
		"flows_repaired", summary.FlowsRepaired,
		"skipped_entries", summary.SkippedEntries,
		"cash_balance", summary.CashBalance,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)

	// Full summary on stdout for cron log collection.
	out, err := json.MarshalIndent(summary, "", "  ")
	if err == nil {
		fmt.Println(string(out))
	}

	if summary.SkippedEntries > 0 {
		os.Exit(2)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
