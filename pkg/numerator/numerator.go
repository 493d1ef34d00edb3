// Package numerator provides sequential code generation for accounts and
// transactions. Codes follow the pattern PREFIX-XXXXX, optionally with a
// date segment (e.g. TRX-20260829-0001) when the sequence resets per period.
package numerator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Generator generates sequential codes.
// This is the domain contract; the database-backed implementation is Service.
type Generator interface {
	// NextCode generates the next code for the configured sequence.
	NextCode(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
}

// ResetPeriod controls when the numeric part restarts from 1.
type ResetPeriod string

const (
	ResetNever ResetPeriod = "never"
	ResetYear  ResetPeriod = "year"
	ResetDay   ResetPeriod = "day"
)

// Config holds code generation configuration.
type Config struct {
	// Prefix added to all codes (e.g. "CASH", "TRX")
	Prefix string

	// Reset controls the sequence scope: never, year, or day.
	// Year and day resets embed the period in the code.
	Reset ResetPeriod

	// PadWidth is the minimum width of the numeric part (default 5)
	PadWidth int
}

// DefaultConfig returns a never-resetting sequence with 5-digit padding.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:   prefix,
		Reset:    ResetNever,
		PadWidth: 5,
	}
}

// Strategy defines the generation strategy.
type Strategy int

const (
	// StrategyStrict uses UPSERT ... RETURNING for every code.
	// Guarantees gapless sequences; use for account and transaction codes.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Faster, but may leave gaps if the process restarts.
	StrategyCached
)

// Options configure a single generation call.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once in Cached mode.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Querier is the database dependency of Service.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service is the database-backed Generator built on the sys_sequences table.
type Service struct {
	querier Querier

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

// New creates a numerator service.
func New(querier Querier) *Service {
	return &Service{
		querier: querier,
		ranges:  make(map[string]*cachedRange),
	}
}

var _ Generator = (*Service)(nil)

// NextCode generates the next code for the sequence identified by cfg.
func (s *Service) NextCode(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	key := s.buildKey(cfg, period)

	var num int64
	var err error
	switch opts.Strategy {
	case StrategyCached:
		num, err = s.nextCached(ctx, key, opts)
	default:
		num, err = s.nextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}

	return s.formatCode(cfg, period, num), nil
}

// nextStrict fetches the next number from the database via UPSERT + RETURNING.
func (s *Service) nextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// nextCached serves from an in-memory range, reserving a new range from the
// database when the current one is exhausted.
func (s *Service) nextCached(ctx context.Context, key string, opts *Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, exists := s.ranges[key]
	if !exists {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		var newMax int64
		err := s.querier.QueryRow(ctx, `
			INSERT INTO sys_sequences (key, current_val)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
			RETURNING current_val
		`, key, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}

		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// buildKey derives the sequence key from prefix and reset period.
func (s *Service) buildKey(cfg Config, period time.Time) string {
	switch cfg.Reset {
	case ResetYear:
		return fmt.Sprintf("%s_%d", cfg.Prefix, period.Year())
	case ResetDay:
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("20060102"))
	default:
		return cfg.Prefix
	}
}

// formatCode renders the final code string.
func (s *Service) formatCode(cfg Config, period time.Time, num int64) string {
	pad := cfg.PadWidth
	if pad <= 0 {
		pad = 5
	}

	parts := []string{cfg.Prefix}
	switch cfg.Reset {
	case ResetYear:
		parts = append(parts, fmt.Sprintf("%d", period.Year()))
	case ResetDay:
		parts = append(parts, period.Format("20060102"))
	}
	parts = append(parts, fmt.Sprintf("%0*d", pad, num))

	return strings.Join(parts, "-")
}
