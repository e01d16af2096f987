package ports

import "time"

// Clock supplies "now" to everything that windows or expires by time.
// Indicator windows, O1 timeouts and cooldowns must only ever consult this
// interface, never the wall clock directly: in live/paper mode it tracks wall
// time, in backtest mode it tracks the timestamp of the last consumed
// historical tick regardless of replay speed.
type Clock interface {
	Now() time.Time
}
