package csvfeed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalPilot/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MergesAndOrdersFiles(t *testing.T) {
	// 1740830400000 = 2025-03-01T12:00:00Z
	eth := writeCSV(t, "eth.csv", "symbol,price,volume,unix_ms\n"+
		"ETHUSDT,3000,1.5,1740830402000\n"+
		"ETHUSDT,3010,2,1740830404000\n")
	btc := writeCSV(t, "btc.csv", "symbol,price,volume,unix_ms\n"+
		"BTCUSDT,90000,0.1,1740830403000\n")

	feed, err := Load(&mockLogger{}, eth, btc)
	require.NoError(t, err)

	ticks := feed.Ticks()
	require.Len(t, ticks, 3)
	assert.Equal(t, "ETHUSDT", ticks[0].Symbol)
	assert.Equal(t, "BTCUSDT", ticks[1].Symbol)
	assert.Equal(t, "ETHUSDT", ticks[2].Symbol)
	assert.True(t, ticks[0].Time.Before(ticks[1].Time))
	assert.Equal(t, time.UnixMilli(1740830402000).UTC(), ticks[0].Time)
	assert.InDelta(t, 1.5, ticks[0].Volume, 1e-9)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing symbol", content: "symbol,price,volume,unix_ms\n,3000,1,1740830402000\n"},
		{name: "non-positive price", content: "symbol,price,volume,unix_ms\nETHUSDT,0,1,1740830402000\n"},
		{name: "missing timestamp", content: "symbol,price,volume,unix_ms\nETHUSDT,3000,1,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, "bad.csv", tt.content)
			_, err := Load(&mockLogger{}, path)
			assert.ErrorIs(t, err, ports.ErrValidation)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(nil, "whatever.csv")
	assert.Error(t, err, "nil logger")

	_, err = Load(&mockLogger{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = Load(&mockLogger{}, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestFeed_StreamFiltersSymbols(t *testing.T) {
	path := writeCSV(t, "ticks.csv", "symbol,price,volume,unix_ms\n"+
		"ETHUSDT,3000,1,1740830402000\n"+
		"BTCUSDT,90000,1,1740830403000\n"+
		"ETHUSDT,3010,1,1740830404000\n")

	feed, err := Load(&mockLogger{}, path)
	require.NoError(t, err)

	ch, err := feed.Stream(context.Background(), []string{"ETHUSDT"})
	require.NoError(t, err)

	var prices []float64
	for tick := range ch {
		assert.Equal(t, "ETHUSDT", tick.Symbol)
		prices = append(prices, tick.Price)
	}
	assert.Equal(t, []float64{3000, 3010}, prices)
}
