// Package clock provides the two time sources behind ports.Clock: wall time
// for live/paper trading and replay time for backtests. Replay time is the
// timestamp of the last consumed historical tick, fully decoupled from how
// fast ticks are pushed through the engine.
package clock

import (
	"sync"
	"time"
)

// Wall tracks the operating system clock.
type Wall struct{}

// NewWall creates a wall-clock time source.
func NewWall() *Wall { return &Wall{} }

// Now returns the current wall-clock time in UTC.
func (w *Wall) Now() time.Time { return time.Now().UTC() }

// Replay tracks the timestamp carried on the most recently consumed
// historical tick. Safe for concurrent reads while the replay driver advances it.
type Replay struct {
	mu  sync.RWMutex
	now time.Time
}

// NewReplay creates a replay clock starting at the given session time.
func NewReplay(start time.Time) *Replay {
	return &Replay{now: start.UTC()}
}

// Now returns the timestamp of the last consumed tick.
func (r *Replay) Now() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.now
}

// Advance moves the clock to the given tick timestamp. Out-of-order
// timestamps are ignored so the clock never runs backwards.
func (r *Replay) Advance(t time.Time) {
	t = t.UTC()
	r.mu.Lock()
	if t.After(r.now) {
		r.now = t
	}
	r.mu.Unlock()
}
