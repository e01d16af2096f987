package indicator

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

// calcLastPrice returns the price of the newest tick in the window.
func calcLastPrice(ticks []domain.Tick) (float64, error) {
	if len(ticks) == 0 {
		return 0, ports.ErrNoData
	}
	return ticks[len(ticks)-1].Price, nil
}

// calcSMA returns the arithmetic mean of tick prices in the window.
func calcSMA(ticks []domain.Tick) (float64, error) {
	if len(ticks) == 0 {
		return 0, ports.ErrNoData
	}
	mean, err := stats.Mean(prices(ticks))
	if err != nil {
		return 0, fmt.Errorf("failed to calculate mean: %w", err)
	}
	return mean, nil
}

// calcVWAP returns the volume-weighted average price over the window.
func calcVWAP(ticks []domain.Tick) (float64, error) {
	if len(ticks) == 0 {
		return 0, ports.ErrNoData
	}
	var notional, volume float64
	for _, t := range ticks {
		notional += t.Price * t.Volume
		volume += t.Volume
	}
	if volume == 0 {
		return 0, fmt.Errorf("%w: zero traded volume in window", ports.ErrNoData)
	}
	return notional / volume, nil
}

// calcRSI computes a relative strength index over consecutive tick prices in
// the window. Average gain and loss are simple means across the window.
func calcRSI(ticks []domain.Tick) (float64, error) {
	if len(ticks) < 2 {
		return 0, fmt.Errorf("%w: rsi needs at least 2 ticks", ports.ErrNoData)
	}
	var avgGain, avgLoss float64
	for i := 1; i < len(ticks); i++ {
		change := ticks[i].Price - ticks[i-1].Price
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	n := float64(len(ticks) - 1)
	avgGain /= n
	avgLoss /= n

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil // flat window is neutral
		}
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// calcVolumeSum returns the total traded volume in the window.
func calcVolumeSum(ticks []domain.Tick) (float64, error) {
	if len(ticks) == 0 {
		return 0, ports.ErrNoData
	}
	var volume float64
	for _, t := range ticks {
		volume += t.Volume
	}
	return volume, nil
}

// calcVolumeSurge returns the ratio of volume in the current window to volume
// in the equally sized window preceding it. A value of 2.0 means volume doubled.
func calcVolumeSurge(current, prior []domain.Tick) (float64, error) {
	if len(current) == 0 {
		return 0, ports.ErrNoData
	}
	var cur, prev float64
	for _, t := range current {
		cur += t.Volume
	}
	for _, t := range prior {
		prev += t.Volume
	}
	if prev == 0 {
		return 0, fmt.Errorf("%w: no baseline volume in preceding window", ports.ErrNoData)
	}
	return cur / prev, nil
}

// calcVolatility returns the sample standard deviation of tick prices.
func calcVolatility(ticks []domain.Tick) (float64, error) {
	if len(ticks) < 2 {
		return 0, fmt.Errorf("%w: volatility needs at least 2 ticks", ports.ErrNoData)
	}
	sd, err := stats.StandardDeviationSample(prices(ticks))
	if err != nil {
		return 0, fmt.Errorf("failed to calculate standard deviation: %w", err)
	}
	return sd, nil
}

// calcPriceChange returns the percent change from the oldest to the newest
// tick price in the window.
func calcPriceChange(ticks []domain.Tick) (float64, error) {
	if len(ticks) < 2 {
		return 0, fmt.Errorf("%w: price change needs at least 2 ticks", ports.ErrNoData)
	}
	first := ticks[0].Price
	last := ticks[len(ticks)-1].Price
	if first == 0 {
		return 0, fmt.Errorf("%w: zero base price", ports.ErrNoData)
	}
	return (last - first) / first * 100, nil
}

func prices(ticks []domain.Tick) []float64 {
	out := make([]float64, len(ticks))
	for i, t := range ticks {
		out[i] = t.Price
	}
	return out
}
