package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"signalPilot/internal/domain"
)

func tick(symbol string, at time.Time, price, volume float64) domain.Tick {
	return domain.Tick{Symbol: symbol, Time: at, Price: price, Volume: volume}
}

func TestWindowStore_AppendAndRange(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewWindowStore(time.Hour)

	store.Append(tick("ETHUSDT", base, 3000, 1))
	store.Append(tick("ETHUSDT", base.Add(10*time.Second), 3010, 2))
	store.Append(tick("ETHUSDT", base.Add(20*time.Second), 3020, 3))
	store.Append(tick("BTCUSDT", base.Add(5*time.Second), 60000, 1))

	got := store.Range("ETHUSDT", base.Add(5*time.Second), base.Add(20*time.Second))
	assert.Len(t, got, 2)
	assert.Equal(t, 3010.0, got[0].Price)
	assert.Equal(t, 3020.0, got[1].Price)

	// Bounds are inclusive on both ends.
	got = store.Range("ETHUSDT", base, base)
	assert.Len(t, got, 1)
	assert.Equal(t, 3000.0, got[0].Price)

	// Symbols are isolated.
	assert.Equal(t, 1, store.Len("BTCUSDT"))
	assert.Empty(t, store.Range("BTCUSDT", base.Add(6*time.Second), base.Add(time.Minute)))
}

func TestWindowStore_DropsOutOfOrderTick(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewWindowStore(time.Hour)

	store.Append(tick("ETHUSDT", base.Add(time.Minute), 3010, 1))
	store.Append(tick("ETHUSDT", base, 3000, 1)) // late, dropped

	assert.Equal(t, 1, store.Len("ETHUSDT"))
	got := store.Range("ETHUSDT", base, base.Add(time.Hour))
	assert.Len(t, got, 1)
	assert.Equal(t, 3010.0, got[0].Price)
}

func TestWindowStore_EvictsOldTicks(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewWindowStore(10 * time.Minute)

	store.Append(tick("ETHUSDT", base, 3000, 1))
	store.Append(tick("ETHUSDT", base.Add(5*time.Minute), 3005, 1))
	assert.Equal(t, 2, store.Len("ETHUSDT"))

	// A tick 11 minutes later pushes the first one past maxAge.
	store.Append(tick("ETHUSDT", base.Add(11*time.Minute), 3011, 1))
	assert.Equal(t, 2, store.Len("ETHUSDT"))
	got := store.Range("ETHUSDT", base, base.Add(time.Hour))
	assert.Equal(t, 3005.0, got[0].Price)
	assert.Equal(t, 3011.0, got[1].Price)
}
