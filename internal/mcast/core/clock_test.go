package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClock_TickIsMonotonic(t *testing.T) {
	c := NewClock()
	require.EqualValues(t, 0, c.Read())
	require.EqualValues(t, 1, c.Tick())
	require.EqualValues(t, 2, c.Tick())
	require.EqualValues(t, 2, c.Read())
}

func TestClock_UpdateTakesMaxPlusOne(t *testing.T) {
	c := NewClock()
	c.Tick() // 1

	require.EqualValues(t, 6, c.Update(5))
	require.EqualValues(t, 7, c.Update(3))
}

func TestClock_ConcurrentTicksNeverCollide(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	results := make(chan uint64, 1000)
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.Tick()
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uint64]struct{})
	for v := range results {
		_, dup := seen[v]
		require.False(t, dup, "duplicate tick value %d", v)
		seen[v] = struct{}{}
	}
	require.Len(t, seen, 1000)
}
