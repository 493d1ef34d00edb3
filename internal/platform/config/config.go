// Package config loads application configuration from the environment.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL string
	Port        string
	Env         string // development, production
	LogLevel    string

	// Pool sizing
	DBMaxConns int32
	DBMinConns int32

	// StatementTimeout bounds every statement inside ledger transactions.
	StatementTimeout time.Duration

	// MigrationsPath is the file:// source for golang-migrate.
	MigrationsPath string

	// AuthTokenSecret verifies tokens issued by the identity collaborator.
	// The ledger core only extracts the acting user from them.
	AuthTokenSecret string
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables, with an optional
// .env file for local development.
func Load() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_MAX_CONNS", 25)
	viper.SetDefault("DB_MIN_CONNS", 5)
	viper.SetDefault("STATEMENT_TIMEOUT", "30s")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("AUTH_TOKEN_SECRET", "")

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:     viper.GetString("DATABASE_URL"),
		Port:            viper.GetString("PORT"),
		Env:             viper.GetString("APP_ENV"),
		LogLevel:        viper.GetString("LOG_LEVEL"),
		DBMaxConns:      viper.GetInt32("DB_MAX_CONNS"),
		DBMinConns:      viper.GetInt32("DB_MIN_CONNS"),
		MigrationsPath:  viper.GetString("MIGRATIONS_PATH"),
		AuthTokenSecret: viper.GetString("AUTH_TOKEN_SECRET"),
	}

	timeout, err := time.ParseDuration(viper.GetString("STATEMENT_TIMEOUT"))
	if err != nil {
		timeout = 30 * time.Second
	}
	cfg.StatementTimeout = timeout

	return cfg, nil
}
