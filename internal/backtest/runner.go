// Package backtest replays historical ticks through the execution engine at
// virtual-time speed and reports the resulting performance. Because the engine
// only ever reads the replay clock, the same tick file yields identical
// decisions at any acceleration factor.
package backtest

import (
	"context"
	"fmt"
	"time"

	"signalPilot/internal/adapters/paper"
	"signalPilot/internal/clock"
	"signalPilot/internal/domain"
	"signalPilot/internal/engine"
	"signalPilot/internal/ports"
)

// Config holds the replay settings.
type Config struct {
	// StepInterval is the virtual scheduler cadence: one engine step per
	// elapsed interval of tick time. Defaults to 1s.
	StepInterval time.Duration

	// Acceleration throttles the replay relative to real time: 1 replays at
	// recorded speed, 10 at ten times it, 0 as fast as possible. It affects
	// wall-clock duration only, never the decisions made.
	Acceleration float64

	Logger ports.Logger
}

// Runner drives one backtest session.
type Runner struct {
	cfg     Config
	logger  ports.Logger
	clk     *clock.Replay
	engine  *engine.Engine
	gateway *paper.Gateway

	trades []domain.Trade
}

// NewRunner wires a runner around an engine built on the given replay clock
// and paper gateway. The engine's trade callback is claimed by the runner.
func NewRunner(cfg Config, clk *clock.Replay, eng *engine.Engine, gw *paper.Gateway) (*Runner, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for the backtest runner")
	}
	if clk == nil || eng == nil || gw == nil {
		return nil, fmt.Errorf("replay clock, engine and paper gateway are required")
	}
	if cfg.StepInterval <= 0 {
		cfg.StepInterval = time.Second
	}
	if cfg.Acceleration < 0 {
		return nil, fmt.Errorf("acceleration cannot be negative")
	}
	r := &Runner{cfg: cfg, logger: cfg.Logger, clk: clk, engine: eng, gateway: gw}
	eng.SetTradeCallback(func(t domain.Trade) { r.trades = append(r.trades, t) })
	return r, nil
}

// Run replays the tick sequence. Ticks must be ordered by timestamp; the
// scheduler steps once per elapsed StepInterval of tick time, after the ticks
// of that interval have been applied.
func (r *Runner) Run(ctx context.Context, ticks []domain.Tick, initialBalance float64) (*Report, error) {
	op := "Run"
	if len(ticks) == 0 {
		return nil, fmt.Errorf("%w: no ticks to replay", ports.ErrNoData)
	}

	r.logger.Info(ctx, op+": Backtest started", map[string]interface{}{
		"ticks":        len(ticks),
		"from":         ticks[0].Time,
		"to":           ticks[len(ticks)-1].Time,
		"stepInterval": r.cfg.StepInterval.String(),
		"acceleration": r.cfg.Acceleration,
	})

	nextStep := ticks[0].Time.Truncate(r.cfg.StepInterval).Add(r.cfg.StepInterval)
	prev := ticks[0].Time

	for _, tick := range ticks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Step the scheduler for every virtual interval boundary the tick
		// stream has crossed, so quiet stretches still expire timeouts and
		// cooldowns.
		for !tick.Time.Before(nextStep) {
			r.clk.Advance(nextStep)
			r.engine.Step(ctx)
			nextStep = nextStep.Add(r.cfg.StepInterval)
		}

		r.clk.Advance(tick.Time)
		r.engine.OnTick(tick)
		r.gateway.OnTick(tick)

		if r.cfg.Acceleration > 0 {
			if gap := tick.Time.Sub(prev); gap > 0 {
				time.Sleep(time.Duration(float64(gap) / r.cfg.Acceleration))
			}
		}
		prev = tick.Time
	}

	// Final step so outcomes of the last ticks are observed and recorded.
	r.engine.Step(ctx)
	r.engine.Stop(ctx)

	report := Analyze(r.trades, initialBalance)
	r.logger.Info(ctx, op+": Backtest finished", map[string]interface{}{
		"trades":       report.TotalTrades,
		"totalProfit":  report.TotalProfit,
		"finalBalance": report.FinalBalance,
		"maxDrawdown":  report.MaxDrawdown,
	})
	return report, nil
}

// Trades returns the completed round trips collected during the run.
func (r *Runner) Trades() []domain.Trade { return r.trades }
