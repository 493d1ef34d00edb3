package postgres

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSavepointUniquePerManager(t *testing.T) {
	m := &TxManager{}

	const n = 200
	var mu sync.Mutex
	seen := make(map[string]struct{}, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := m.nextSavepoint()
			mu.Lock()
			seen[name] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}
