package indicator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

func makeTicks(prices []float64, volumes []float64) []domain.Tick {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]domain.Tick, len(prices))
	for i := range prices {
		vol := 1.0
		if volumes != nil {
			vol = volumes[i]
		}
		out[i] = domain.Tick{Symbol: "ETHUSDT", Time: base.Add(time.Duration(i) * time.Second), Price: prices[i], Volume: vol}
	}
	return out
}

func TestCalcLastPrice(t *testing.T) {
	got, err := calcLastPrice(makeTicks([]float64{3000, 3010, 3020}, nil))
	require.NoError(t, err)
	assert.Equal(t, 3020.0, got)

	_, err = calcLastPrice(nil)
	assert.True(t, errors.Is(err, ports.ErrNoData))
}

func TestCalcSMA(t *testing.T) {
	got, err := calcSMA(makeTicks([]float64{3000, 3010, 3020}, nil))
	require.NoError(t, err)
	assert.InDelta(t, 3010.0, got, 1e-9)
}

func TestCalcVWAP(t *testing.T) {
	// 3000*1 + 3100*3 = 12300 over volume 4
	got, err := calcVWAP(makeTicks([]float64{3000, 3100}, []float64{1, 3}))
	require.NoError(t, err)
	assert.InDelta(t, 3075.0, got, 1e-9)

	_, err = calcVWAP(makeTicks([]float64{3000}, []float64{0}))
	assert.True(t, errors.Is(err, ports.ErrNoData))
}

func TestCalcRSI(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{name: "flat window is neutral", prices: []float64{3000, 3000, 3000}, want: 50},
		{name: "only gains", prices: []float64{3000, 3010, 3020}, want: 100},
		{name: "only losses", prices: []float64{3020, 3010, 3000}, want: 0},
		{name: "equal gains and losses", prices: []float64{3000, 3010, 3000}, want: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calcRSI(makeTicks(tt.prices, nil))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := calcRSI(makeTicks([]float64{3000}, nil))
	assert.True(t, errors.Is(err, ports.ErrNoData))
}

func TestCalcVolumeSum(t *testing.T) {
	got, err := calcVolumeSum(makeTicks([]float64{3000, 3010}, []float64{2, 3.5}))
	require.NoError(t, err)
	assert.InDelta(t, 5.5, got, 1e-9)
}

func TestCalcVolumeSurge(t *testing.T) {
	current := makeTicks([]float64{3000, 3010}, []float64{4, 6})
	prior := makeTicks([]float64{2990, 2995}, []float64{2, 3})

	got, err := calcVolumeSurge(current, prior)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-9)

	_, err = calcVolumeSurge(current, nil)
	assert.True(t, errors.Is(err, ports.ErrNoData))
}

func TestCalcVolatility(t *testing.T) {
	got, err := calcVolatility(makeTicks([]float64{3000, 3002, 3004}, nil))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-9)

	_, err = calcVolatility(makeTicks([]float64{3000}, nil))
	assert.True(t, errors.Is(err, ports.ErrNoData))
}

func TestCalcPriceChange(t *testing.T) {
	got, err := calcPriceChange(makeTicks([]float64{3000, 3030}, nil))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)

	got, err = calcPriceChange(makeTicks([]float64{3000, 2970}, nil))
	require.NoError(t, err)
	assert.InDelta(t, -1.0, got, 1e-9)
}
