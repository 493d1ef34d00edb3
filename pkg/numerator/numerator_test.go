package numerator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences UPSERT: each call bumps the
// sequence by the increment argument (1 for strict, RangeSize for cached).
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	return &mockRow{val: m.currentValue}
}

func TestNextCode_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("CASH")

	num, err := svc.NextCode(ctx, cfg, nil, time.Now())
	require.NoError(t, err)
	require.Equal(t, "CASH-00001", num)

	num, err = svc.NextCode(ctx, cfg, nil, time.Now())
	require.NoError(t, err)
	require.Equal(t, "CASH-00002", num)
}

func TestNextCode_DailyReset(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()

	cfg := Config{Prefix: "TRX", Reset: ResetDay, PadWidth: 4}
	period := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	num, err := svc.NextCode(ctx, cfg, nil, period)
	require.NoError(t, err)
	require.Equal(t, "TRX-20260829-0001", num)
}

func TestNextCode_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("ORD")
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}

	// First call reserves a range of 10; subsequent calls serve from memory.
	for i := 1; i <= 12; i++ {
		num, err := svc.NextCode(ctx, cfg, opts, time.Now())
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("ORD-%05d", i), num)
	}

	// One refill after exhausting the first range.
	require.EqualValues(t, 20, q.currentValue)
}

func TestNextCode_CachedConcurrent(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("CC")
	opts := &Options{Strategy: StrategyCached, RangeSize: 25}

	const workers = 8
	const perWorker = 20

	var wg sync.WaitGroup
	seen := sync.Map{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				num, err := svc.NextCode(ctx, cfg, opts, time.Now())
				require.NoError(t, err)
				_, dup := seen.LoadOrStore(num, true)
				require.False(t, dup, "duplicate code %s", num)
			}
		}()
	}
	wg.Wait()
}
