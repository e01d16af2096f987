package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalPilot/internal/domain"
)

func TestAnalyze_Empty(t *testing.T) {
	report := Analyze(nil, 10000)
	assert.Equal(t, 0, report.TotalTrades)
	assert.InDelta(t, 10000.0, report.InitialBalance, 1e-9)
	assert.InDelta(t, 10000.0, report.FinalBalance, 1e-9)
	assert.Empty(t, report.EquityCurve)
}

func TestAnalyze_Metrics(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	trade := func(pnl float64, entry, exit time.Duration) domain.Trade {
		return domain.Trade{
			StrategyID: "strat-1",
			Symbol:     "ETHUSDT",
			PNL:        pnl,
			EntryTime:  base.Add(entry),
			ExitTime:   base.Add(exit),
		}
	}

	// Deliberately out of exit-time order; Analyze must sort.
	trades := []domain.Trade{
		trade(300, 22*time.Minute, 30*time.Minute),
		trade(200, 0, 10*time.Minute),
		trade(-100, 15*time.Minute, 20*time.Minute),
	}

	report := Analyze(trades, 10000)

	assert.Equal(t, 3, report.TotalTrades)
	assert.Equal(t, 2, report.WinningTrades)
	assert.Equal(t, 1, report.LosingTrades)
	assert.InDelta(t, 2.0/3.0, report.WinRate, 1e-9)
	assert.InDelta(t, 400.0, report.TotalProfit, 1e-9)
	assert.InDelta(t, 10400.0, report.FinalBalance, 1e-9)
	assert.InDelta(t, 0.04, report.ReturnOnInvestment, 1e-9)

	assert.InDelta(t, 250.0, report.AverageWin, 1e-9)
	assert.InDelta(t, -100.0, report.AverageLoss, 1e-9)
	assert.InDelta(t, 5.0, report.ProfitFactor, 1e-9)
	assert.InDelta(t, 2.0/3.0*250-1.0/3.0*100, report.Expectancy, 1e-9)

	// Peak 10200 after the first win, trough 10100 after the loss.
	assert.InDelta(t, 100.0/10200.0, report.MaxDrawdown, 1e-9)

	assert.Equal(t, 23*time.Minute/3, report.AverageTradeDuration)
	assert.Greater(t, report.SharpeRatio, 0.0)

	require.Len(t, report.EquityCurve, 3)
	assert.InDelta(t, 10200.0, report.EquityCurve[0].Value, 1e-9)
	assert.InDelta(t, 10100.0, report.EquityCurve[1].Value, 1e-9)
	assert.InDelta(t, 10400.0, report.EquityCurve[2].Value, 1e-9)
	assert.True(t, report.EquityCurve[0].Time.Before(report.EquityCurve[1].Time))
}

func TestAnalyze_AllWinners(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	trades := []domain.Trade{
		{PNL: 100, EntryTime: base, ExitTime: base.Add(time.Minute)},
		{PNL: 50, EntryTime: base.Add(2 * time.Minute), ExitTime: base.Add(3 * time.Minute)},
	}

	report := Analyze(trades, 1000)
	assert.InDelta(t, 1.0, report.WinRate, 1e-9)
	assert.Zero(t, report.ProfitFactor, "no losses means the factor is undefined")
	assert.Zero(t, report.MaxDrawdown)
	assert.InDelta(t, -0.0, report.AverageLoss, 1e-9)
}
