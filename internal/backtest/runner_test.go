package backtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalPilot/internal/adapters/paper"
	"signalPilot/internal/clock"
	"signalPilot/internal/domain"
	"signalPilot/internal/engine"
	"signalPilot/internal/indicator"
	"signalPilot/internal/ports"
	"signalPilot/internal/recorder"
	"signalPilot/internal/strategy"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, _ domain.TransitionEvent) {}

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// dipTicks is a short session: a dip below 3000 triggers the entry, the rally
// afterwards takes out the 1% profit target.
func dipTicks() []domain.Tick {
	tick := func(offset time.Duration, price float64) domain.Tick {
		return domain.Tick{Symbol: "ETHUSDT", Time: testBase.Add(offset), Price: price, Volume: 1}
	}
	return []domain.Tick{
		tick(0, 3050),
		tick(1500*time.Millisecond, 2950),
		tick(3200*time.Millisecond, 2960),
		tick(5500*time.Millisecond, 3020),
		tick(7500*time.Millisecond, 3005),
	}
}

func dipStrategy() *domain.StrategySpec {
	return &domain.StrategySpec{
		ID:        "strat-1",
		Name:      "dip-buy",
		Symbols:   []string{"ETHUSDT"},
		CreatedAt: testBase.Add(-24 * time.Hour),
		Signal: domain.SignalSection{Conditions: []domain.Condition{
			{VariantID: "px", Operator: domain.OpLess, Threshold: 3000},
		}},
		Order: domain.OrderSection{
			TakeProfit: domain.PriceRef{VariantID: "tp_px", OffsetPercent: 1},
			Sizing:     domain.PositionSizing{Mode: domain.SizeFixed, Amount: 2},
		},
		Emergency: domain.EmergencySection{Cooldown: 10 * time.Minute},
	}
}

type sessionResult struct {
	report  *Report
	trades  []domain.Trade
	records []*domain.DecisionRecord
}

func runSession(t *testing.T, acceleration float64) sessionResult {
	t.Helper()
	ctx := context.Background()
	logger := &mockLogger{}

	window := map[string]any{"t1_seconds_ago": 3600, "t2_seconds_ago": 0}
	ind, err := indicator.New(indicator.Config{Logger: logger})
	require.NoError(t, err)
	require.NoError(t, ind.LoadVariants([]*domain.IndicatorVariant{
		{ID: "px", BaseType: indicator.BaseLastPrice, Category: domain.CategoryGeneral, Params: window},
		{ID: "tp_px", BaseType: indicator.BaseLastPrice, Category: domain.CategoryTakeProfit, Params: window},
	}))

	reg := strategy.NewRegistry()
	snap := strategy.BuildSnapshot(ctx, []*domain.StrategySpec{dipStrategy()}, ind, logger)
	require.Empty(t, snap.Invalid())
	reg.Swap(snap)

	clk := clock.NewReplay(testBase)
	gw, err := paper.New(paper.Config{InitialBalance: 10000, Logger: logger, Clock: clk})
	require.NoError(t, err)

	rec := recorder.NewMemory()
	eng, err := engine.New(engine.Config{}, engine.Deps{
		Logger:     logger,
		Clock:      clk,
		Indicators: ind,
		Registry:   reg,
		Locks:      engine.NewLockManager(clk),
		Gateway:    gw,
		Recorder:   rec,
		Publisher:  noopPublisher{},
	})
	require.NoError(t, err)

	runner, err := NewRunner(Config{Acceleration: acceleration, Logger: logger}, clk, eng, gw)
	require.NoError(t, err)

	report, err := runner.Run(ctx, dipTicks(), 10000)
	require.NoError(t, err)
	return sessionResult{report: report, trades: runner.Trades(), records: rec.Records()}
}

func TestRunner_DipBuySession(t *testing.T) {
	res := runSession(t, 0)

	require.Len(t, res.trades, 1)
	trade := res.trades[0]
	assert.Equal(t, domain.CloseReasonTakeProfit, trade.CloseReason)
	assert.InDelta(t, 2950.0, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 2950*1.01, trade.ExitPrice, 1e-9)
	assert.InDelta(t, (2950*1.01-2950)*2, trade.PNL, 1e-9)

	assert.Equal(t, 1, res.report.TotalTrades)
	assert.InDelta(t, 10000+trade.PNL, res.report.FinalBalance, 1e-9)

	// One record per condition-driven transition: the signal and the order.
	// The take-profit close is the gateway's doing and produces none.
	require.Len(t, res.records, 2)
	assert.Equal(t, domain.SectionSignal, res.records[0].Transition)
	assert.Equal(t, domain.SectionOrder, res.records[1].Transition)
	assert.InDelta(t, 2950.0, res.records[0].Snapshot["px"].Value, 1e-9)
}

func TestRunner_DeterministicAcrossAcceleration(t *testing.T) {
	first := runSession(t, 0)
	second := runSession(t, 1000)

	require.Equal(t, len(first.records), len(second.records))
	for i := range first.records {
		a, b := first.records[i], second.records[i]
		assert.True(t, a.Timestamp.Equal(b.Timestamp), "record %d timestamps differ", i)
		assert.Equal(t, a.Transition, b.Transition)
		assert.Equal(t, a.Outcome, b.Outcome)
		assert.Equal(t, a.Snapshot, b.Snapshot)
	}
	assert.InDelta(t, first.report.FinalBalance, second.report.FinalBalance, 1e-9)
	assert.Equal(t, fmt.Sprintf("%+v", first.trades), fmt.Sprintf("%+v", second.trades))
}

func TestRunner_Validation(t *testing.T) {
	logger := &mockLogger{}
	clk := clock.NewReplay(testBase)

	_, err := NewRunner(Config{}, clk, nil, nil)
	assert.Error(t, err, "missing logger")

	_, err = NewRunner(Config{Logger: logger}, clk, nil, nil)
	assert.Error(t, err, "missing collaborators")
}

func TestRunner_EmptyTicks(t *testing.T) {
	logger := &mockLogger{}
	clk := clock.NewReplay(testBase)
	gw, err := paper.New(paper.Config{InitialBalance: 10000, Logger: logger, Clock: clk})
	require.NoError(t, err)

	ind, err := indicator.New(indicator.Config{Logger: logger})
	require.NoError(t, err)
	reg := strategy.NewRegistry()
	eng, err := engine.New(engine.Config{}, engine.Deps{
		Logger: logger, Clock: clk, Indicators: ind, Registry: reg,
		Locks: engine.NewLockManager(clk), Gateway: gw,
		Recorder: recorder.NewMemory(), Publisher: noopPublisher{},
	})
	require.NoError(t, err)

	runner, err := NewRunner(Config{Logger: logger}, clk, eng, gw)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), nil, 10000)
	assert.ErrorIs(t, err, ports.ErrNoData)
}
