package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"signalPilot/internal/domain"
)

// WriteTicksToCSV writes ticks in the format the csvfeed loader reads back
// (columns symbol, price, volume, unix_ms). Parent directories are created as
// needed.
func WriteTicksToCSV(ticks []domain.Tick, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer file.Close()

	rows := make([]*domain.Tick, len(ticks))
	for i := range ticks {
		t := ticks[i]
		if t.UnixMs == 0 {
			t.UnixMs = t.Time.UnixMilli()
		}
		rows[i] = &t
	}
	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("writing csv file: %w", err)
	}
	return nil
}
