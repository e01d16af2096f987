package indicator

import (
	"sync"
	"time"

	"signalPilot/internal/domain"
)

// WindowStore keeps the recent tick history per symbol that indicator windows
// are computed over. Ticks older than maxAge relative to the newest tick are
// evicted on append.
type WindowStore struct {
	mu     sync.RWMutex
	maxAge time.Duration
	ticks  map[string][]domain.Tick
}

// NewWindowStore creates a tick window store retaining up to maxAge of history.
func NewWindowStore(maxAge time.Duration) *WindowStore {
	return &WindowStore{
		maxAge: maxAge,
		ticks:  make(map[string][]domain.Tick),
	}
}

// Append adds a tick to its symbol's window. Ticks must arrive in
// non-decreasing time order per symbol; a late tick is dropped.
func (w *WindowStore) Append(tick domain.Tick) {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := w.ticks[tick.Symbol]
	if n := len(buf); n > 0 && tick.Time.Before(buf[n-1].Time) {
		return
	}
	buf = append(buf, tick)

	// Evict everything older than maxAge behind the newest tick.
	cutoff := buf[len(buf)-1].Time.Add(-w.maxAge)
	start := 0
	for start < len(buf) && buf[start].Time.Before(cutoff) {
		start++
	}
	if start > 0 {
		buf = append(buf[:0:0], buf[start:]...)
	}
	w.ticks[tick.Symbol] = buf
}

// Range returns the ticks for symbol with from <= t.Time <= to, oldest first.
func (w *WindowStore) Range(symbol string, from, to time.Time) []domain.Tick {
	w.mu.RLock()
	defer w.mu.RUnlock()

	buf := w.ticks[symbol]
	out := make([]domain.Tick, 0, len(buf))
	for _, t := range buf {
		if t.Time.Before(from) || t.Time.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Len returns the number of retained ticks for a symbol.
func (w *WindowStore) Len(symbol string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.ticks[symbol])
}
