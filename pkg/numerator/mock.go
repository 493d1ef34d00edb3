package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	NextCodeFunc func(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	mu   sync.Mutex
	seqs map[string]int64
}

// NextCode implements Generator. Without NextCodeFunc it returns
// deterministic per-prefix sequential codes (PREFIX-00001, PREFIX-00002, ...).
func (m *MockGenerator) NextCode(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error) {
	if m.NextCodeFunc != nil {
		return m.NextCodeFunc(ctx, cfg, opts, period)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seqs == nil {
		m.seqs = make(map[string]int64)
	}
	m.seqs[cfg.Prefix]++
	return fmt.Sprintf("%s-%05d", cfg.Prefix, m.seqs[cfg.Prefix]), nil
}

var _ Generator = (*MockGenerator)(nil)
