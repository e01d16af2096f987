// Package csvfeed loads historical ticks from CSV files for backtesting.
package csvfeed

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

// Feed implements ports.TickFeed over one or more CSV files. Files use the
// columns symbol, price, volume, unix_ms. Ticks are merged across files and
// delivered in timestamp order.
type Feed struct {
	logger ports.Logger
	ticks  []domain.Tick
}

// Load reads and validates every file, merging the ticks into one ordered
// sequence.
func Load(logger ports.Logger, paths ...string) (*Feed, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for the csv feed")
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: at least one csv file is required", ports.ErrConfigurationError)
	}

	f := &Feed{logger: logger}
	for _, path := range paths {
		ticks, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		f.ticks = append(f.ticks, ticks...)
	}
	sort.SliceStable(f.ticks, func(i, j int) bool { return f.ticks[i].Time.Before(f.ticks[j].Time) })
	logger.Info(context.Background(), "Loaded historical ticks", map[string]interface{}{"files": len(paths), "ticks": len(f.ticks)})
	return f, nil
}

func loadFile(path string) ([]domain.Tick, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv file: %w", err)
	}
	defer file.Close()

	var rows []*domain.Tick
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("parsing csv file: %w", err)
	}

	ticks := make([]domain.Tick, 0, len(rows))
	for i, row := range rows {
		if row.Symbol == "" {
			return nil, fmt.Errorf("%w: row %d has no symbol", ports.ErrValidation, i+1)
		}
		if row.Price <= 0 {
			return nil, fmt.Errorf("%w: row %d has non-positive price %f", ports.ErrValidation, i+1, row.Price)
		}
		if row.UnixMs <= 0 {
			return nil, fmt.Errorf("%w: row %d has no timestamp", ports.ErrValidation, i+1)
		}
		row.Time = time.UnixMilli(row.UnixMs).UTC()
		ticks = append(ticks, *row)
	}
	return ticks, nil
}

// Ticks returns the loaded sequence; the backtest runner iterates it directly
// so it can advance the replay clock between ticks.
func (f *Feed) Ticks() []domain.Tick { return f.ticks }

// Stream delivers the loaded ticks for the requested symbols.
func (f *Feed) Stream(ctx context.Context, symbols []string) (<-chan domain.Tick, error) {
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	out := make(chan domain.Tick)
	go func() {
		defer close(out)
		for _, tick := range f.ticks {
			if len(wanted) > 0 && !wanted[tick.Symbol] {
				continue
			}
			select {
			case out <- tick:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
