package ingest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Admit(t *testing.T) {
	t.Parallel()

	t.Run("first trigger admitted", func(t *testing.T) {
		t.Parallel()

		g := NewGate(time.Minute)

		_, ok := g.Admit()

		assert.True(t, ok)
	})

	t.Run("second trigger within cooldown rejected", func(t *testing.T) {
		t.Parallel()

		var (
			now   = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
			clock = func() time.Time {
				return now
			}

			g = NewGate(time.Minute, WithGateClock(clock))
		)

		_, ok := g.Admit()
		require.True(t, ok)

		now = now.Add(time.Second * 25)

		retryAfter, ok := g.Admit()

		require.False(t, ok)
		assert.Equal(t, time.Second*35, retryAfter)
	})

	t.Run("trigger after cooldown admitted", func(t *testing.T) {
		t.Parallel()

		var (
			now   = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
			clock = func() time.Time {
				return now
			}

			g = NewGate(time.Minute, WithGateClock(clock))
		)

		_, ok := g.Admit()
		require.True(t, ok)

		now = now.Add(time.Minute)

		_, ok = g.Admit()

		assert.True(t, ok)
	})

	t.Run("concurrent triggers admit exactly one", func(t *testing.T) {
		t.Parallel()

		var (
			g = NewGate(time.Minute)

			admitted int
			mu       sync.Mutex
			wg       sync.WaitGroup
		)

		for range 10 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				if _, ok := g.Admit(); ok {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, admitted)
	})
}
