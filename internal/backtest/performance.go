package backtest

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"signalPilot/internal/domain"
)

// Report holds the performance metrics of one backtest run.
type Report struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalProfit   float64
	AverageWin    float64
	AverageLoss   float64
	ProfitFactor  float64
	Expectancy    float64
	SharpeRatio   float64
	MaxDrawdown   float64

	InitialBalance     float64
	FinalBalance       float64
	ReturnOnInvestment float64

	AverageTradeDuration time.Duration
	EquityCurve          []EquityPoint
}

// EquityPoint is one point on the equity curve, taken at a trade close.
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// Analyze computes performance metrics from the completed round trips of a
// run. Trades are processed in exit-time order regardless of input order.
func Analyze(trades []domain.Trade, initialBalance float64) *Report {
	report := &Report{
		InitialBalance: initialBalance,
		FinalBalance:   initialBalance,
	}
	if len(trades) == 0 {
		return report
	}

	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ExitTime.Before(sorted[j].ExitTime) })

	var (
		balance       = initialBalance
		peak          = initialBalance
		grossWin      float64
		grossLoss     float64
		totalDuration time.Duration
		returns       []float64
	)

	for _, trade := range sorted {
		report.TotalTrades++
		if trade.PNL > 0 {
			report.WinningTrades++
			grossWin += trade.PNL
		} else {
			report.LosingTrades++
			grossLoss += -trade.PNL
		}

		returns = append(returns, trade.PNL/balance)
		balance += trade.PNL
		report.TotalProfit += trade.PNL
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)

		if balance > peak {
			peak = balance
		}
		drawdown := (peak - balance) / peak
		if drawdown > report.MaxDrawdown {
			report.MaxDrawdown = drawdown
		}
		report.EquityCurve = append(report.EquityCurve, EquityPoint{
			Time:     trade.ExitTime,
			Value:    balance,
			Drawdown: drawdown,
		})
	}

	report.FinalBalance = balance
	report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades)
	report.ReturnOnInvestment = (balance - initialBalance) / initialBalance
	report.AverageTradeDuration = totalDuration / time.Duration(report.TotalTrades)

	if report.WinningTrades > 0 {
		report.AverageWin = grossWin / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = -grossLoss / float64(report.LosingTrades)
	}
	if grossLoss > 0 {
		report.ProfitFactor = grossWin / grossLoss
	}
	report.Expectancy = report.WinRate*report.AverageWin + (1-report.WinRate)*report.AverageLoss

	// Per-trade Sharpe; annualization is left to the reader of the report.
	if len(returns) > 1 {
		mean, errMean := stats.Mean(returns)
		stdDev, errStd := stats.StandardDeviationSample(returns)
		if errMean == nil && errStd == nil && stdDev > 0 {
			report.SharpeRatio = mean / stdDev
		}
	}

	return report
}
