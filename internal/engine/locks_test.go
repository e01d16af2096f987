package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalPilot/internal/clock"
	"signalPilot/internal/ports"
)

func TestLockManager(t *testing.T) {
	clk := clock.NewReplay(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	t.Run("exclusive acquisition", func(t *testing.T) {
		m := NewLockManager(clk)
		assert.True(t, m.TryAcquire("ETHUSDT", "strat-a"))
		assert.False(t, m.TryAcquire("ETHUSDT", "strat-b"))

		holder, held := m.HolderOf("ETHUSDT")
		require.True(t, held)
		assert.Equal(t, "strat-a", holder)

		// Other symbols are independent.
		assert.True(t, m.TryAcquire("BTCUSDT", "strat-b"))
	})

	t.Run("holder cannot stack acquisitions", func(t *testing.T) {
		m := NewLockManager(clk)
		assert.True(t, m.TryAcquire("ETHUSDT", "strat-a"))
		assert.False(t, m.TryAcquire("ETHUSDT", "strat-a"))
	})

	t.Run("release requires the holder", func(t *testing.T) {
		m := NewLockManager(clk)
		require.True(t, m.TryAcquire("ETHUSDT", "strat-a"))

		err := m.Release("ETHUSDT", "strat-b")
		assert.True(t, errors.Is(err, ports.ErrLockNotHeld))

		require.NoError(t, m.Release("ETHUSDT", "strat-a"))
		_, held := m.HolderOf("ETHUSDT")
		assert.False(t, held)

		// Released symbol is acquirable again.
		assert.True(t, m.TryAcquire("ETHUSDT", "strat-b"))
	})

	t.Run("release of an unlocked symbol errors", func(t *testing.T) {
		m := NewLockManager(clk)
		err := m.Release("ETHUSDT", "strat-a")
		assert.True(t, errors.Is(err, ports.ErrLockNotHeld))
	})
}
