package domain

import "time"

// Tick represents a single market trade observation.
type Tick struct {
	Symbol string    `csv:"symbol"`
	Time   time.Time `csv:"-"`
	Price  float64   `csv:"price"`
	Volume float64   `csv:"volume"`

	// UnixMs carries the tick timestamp in CSV files; Time is derived from it
	// by the loader.
	UnixMs int64 `csv:"unix_ms"`
}
