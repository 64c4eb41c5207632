package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grove/internal/event"
)

var _ event.IDGenerator = (*SequenceGenerator)(nil)

func TestClock_OnlyMovesWhenAdvanced(t *testing.T) {
	start := time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())

	got := clock.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), got)
	assert.Equal(t, got, clock.Now())

	clock.Set(start)
	assert.Equal(t, start, clock.Now())
}

func TestSequenceGenerator_Format(t *testing.T) {
	gen := NewSequenceGenerator("dev")
	assert.Equal(t, "dev-0001", gen.Generate())
	assert.Equal(t, "dev-0002", gen.Generate())
	assert.Equal(t, 2, gen.Count())

	assert.Equal(t, "client-0001", NewSequenceGenerator("").Generate())
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceGenerator("p")
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.Equal(t, numGoroutines*callsPerGoroutine, gen.Count())
}
