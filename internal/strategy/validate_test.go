package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalPilot/internal/domain"
	"signalPilot/internal/indicator"
	"signalPilot/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	warnMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// mockResolver implements VariantResolver over a fixed variant map.
type mockResolver struct {
	variants map[string]*indicator.Variant
}

func (m *mockResolver) Variant(id string) (*indicator.Variant, bool) {
	v, ok := m.variants[id]
	return v, ok
}

func testResolver() *mockResolver {
	return &mockResolver{variants: map[string]*indicator.Variant{
		"vwap_10m":  {ID: "vwap_10m", BaseType: indicator.BaseVWAP, Category: domain.CategoryGeneral},
		"vol_1h":    {ID: "vol_1h", BaseType: indicator.BaseVolatility, Category: domain.CategoryRisk},
		"entry_px":  {ID: "entry_px", BaseType: indicator.BaseLastPrice, Category: domain.CategoryOrderPrice},
		"sl_px":     {ID: "sl_px", BaseType: indicator.BaseLastPrice, Category: domain.CategoryStopLoss},
		"tp_px":     {ID: "tp_px", BaseType: indicator.BaseLastPrice, Category: domain.CategoryTakeProfit},
		"exit_px":   {ID: "exit_px", BaseType: indicator.BaseLastPrice, Category: domain.CategoryCloseOrderPrice},
		"eth_only":  {ID: "eth_only", BaseType: indicator.BaseSMA, Category: domain.CategoryGeneral, Symbols: []string{"ETHUSDT"}},
		"rsi_gen":   {ID: "rsi_gen", BaseType: indicator.BaseRSI, Category: domain.CategoryGeneral},
	}}
}

func validSpec() *domain.StrategySpec {
	return &domain.StrategySpec{
		ID:        "strat-1",
		Name:      "vwap-dip",
		Symbols:   []string{"ETHUSDT"},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Signal: domain.SignalSection{Conditions: []domain.Condition{
			{VariantID: "vwap_10m", Operator: domain.OpLess, Threshold: 3000},
		}},
		Order: domain.OrderSection{
			TakeProfit: domain.PriceRef{VariantID: "tp_px", OffsetPercent: 2},
			Sizing:     domain.PositionSizing{Mode: domain.SizeFixed, Amount: 1},
		},
		Emergency: domain.EmergencySection{Cooldown: 10 * time.Minute},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(spec *domain.StrategySpec)
		wantErr error
	}{
		{name: "valid minimal spec", mutate: func(spec *domain.StrategySpec) {}},
		{
			name: "valid spec with every slot filled",
			mutate: func(spec *domain.StrategySpec) {
				spec.Order.Conditions = []domain.Condition{{VariantID: "rsi_gen", Operator: domain.OpLess, Threshold: 30}}
				spec.Order.OrderPriceVariant = "entry_px"
				spec.Order.StopLoss = domain.PriceRef{VariantID: "sl_px", OffsetPercent: -2}
				spec.Order.Sizing = domain.PositionSizing{
					Mode:    domain.SizeRiskCurve,
					Percent: 20,
					Curve: domain.RiskAdjustmentCurve{
						RiskVariantID: "vol_1h",
						Points:        []domain.CurvePoint{{RiskValue: 10, Percent: 100}, {RiskValue: 50, Percent: 25}},
					},
				}
				spec.Cancel = domain.CancelSection{TimeoutSeconds: 30}
				spec.Exit = domain.ExitSection{
					Conditions:       []domain.Condition{{VariantID: "vwap_10m", Operator: domain.OpGreater, Threshold: 3100}},
					ExitPriceVariant: "exit_px",
				}
				spec.Emergency.Conditions = []domain.Condition{{VariantID: "vol_1h", Operator: domain.OpGreater, Threshold: 80}}
			},
		},
		{
			name:    "missing id",
			mutate:  func(spec *domain.StrategySpec) { spec.ID = "" },
			wantErr: ports.ErrValidation,
		},
		{
			name:    "no symbols",
			mutate:  func(spec *domain.StrategySpec) { spec.Symbols = nil },
			wantErr: ports.ErrValidation,
		},
		{
			name:    "empty entry conditions",
			mutate:  func(spec *domain.StrategySpec) { spec.Signal.Conditions = nil },
			wantErr: ports.ErrValidation,
		},
		{
			name:    "emergency cooldown mandatory",
			mutate:  func(spec *domain.StrategySpec) { spec.Emergency.Cooldown = 0 },
			wantErr: ports.ErrValidation,
		},
		{
			name: "dangling condition variant",
			mutate: func(spec *domain.StrategySpec) {
				spec.Signal.Conditions[0].VariantID = "no_such"
			},
			wantErr: ports.ErrDanglingVariant,
		},
		{
			name: "price variant in a condition list",
			mutate: func(spec *domain.StrategySpec) {
				spec.Signal.Conditions = append(spec.Signal.Conditions,
					domain.Condition{VariantID: "tp_px", Operator: domain.OpGreater, Threshold: 0})
			},
			wantErr: ports.ErrCategoryMisuse,
		},
		{
			name: "unknown operator",
			mutate: func(spec *domain.StrategySpec) {
				spec.Signal.Conditions[0].Operator = "=="
			},
			wantErr: ports.ErrValidation,
		},
		{
			name:    "take profit required",
			mutate:  func(spec *domain.StrategySpec) { spec.Order.TakeProfit = domain.PriceRef{} },
			wantErr: ports.ErrValidation,
		},
		{
			name: "wrong category in a price slot",
			mutate: func(spec *domain.StrategySpec) {
				spec.Order.OrderPriceVariant = "vwap_10m"
			},
			wantErr: ports.ErrCategoryMisuse,
		},
		{
			name: "stop loss slot rejects take profit category",
			mutate: func(spec *domain.StrategySpec) {
				spec.Order.StopLoss = domain.PriceRef{VariantID: "tp_px"}
			},
			wantErr: ports.ErrCategoryMisuse,
		},
		{
			name: "fixed sizing requires positive amount",
			mutate: func(spec *domain.StrategySpec) {
				spec.Order.Sizing = domain.PositionSizing{Mode: domain.SizeFixed}
			},
			wantErr: ports.ErrValidation,
		},
		{
			name: "balance percent out of range",
			mutate: func(spec *domain.StrategySpec) {
				spec.Order.Sizing = domain.PositionSizing{Mode: domain.SizeBalancePercent, Percent: 150}
			},
			wantErr: ports.ErrValidation,
		},
		{
			name: "risk curve sizing requires a curve",
			mutate: func(spec *domain.StrategySpec) {
				spec.Order.Sizing = domain.PositionSizing{Mode: domain.SizeRiskCurve, Percent: 20}
			},
			wantErr: ports.ErrValidation,
		},
		{
			name: "sizing curve must use a risk variant",
			mutate: func(spec *domain.StrategySpec) {
				spec.Order.Sizing = domain.PositionSizing{
					Mode:    domain.SizeRiskCurve,
					Percent: 20,
					Curve: domain.RiskAdjustmentCurve{
						RiskVariantID: "vwap_10m",
						Points:        []domain.CurvePoint{{RiskValue: 1, Percent: 100}, {RiskValue: 2, Percent: 50}},
					},
				}
			},
			wantErr: ports.ErrCategoryMisuse,
		},
		{
			name: "variant not scoped to the strategy's symbol",
			mutate: func(spec *domain.StrategySpec) {
				spec.Symbols = []string{"BTCUSDT"}
				spec.Signal.Conditions[0].VariantID = "eth_only"
			},
			wantErr: ports.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)
			err := Validate(spec, testResolver())
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBuildSnapshot(t *testing.T) {
	ctx := context.Background()
	logger := &mockLogger{}

	older := validSpec()
	older.ID = "strat-b"
	older.Name = "older"
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	newer := validSpec()
	newer.ID = "strat-a"
	newer.Name = "newer"
	newer.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	sameInstant := validSpec()
	sameInstant.ID = "strat-c"
	sameInstant.Name = "tied"
	sameInstant.CreatedAt = older.CreatedAt

	broken := validSpec()
	broken.ID = "strat-broken"
	broken.Name = "broken"
	broken.Signal.Conditions = nil

	duplicate := validSpec()
	duplicate.ID = "strat-dup"
	duplicate.Name = "older" // same name as the first spec

	snap := BuildSnapshot(ctx, []*domain.StrategySpec{newer, broken, older, duplicate, sameInstant}, testResolver(), logger)

	// Priority order: ascending CreatedAt, ties broken by id.
	active := snap.Active()
	require.Len(t, active, 3)
	assert.Equal(t, "strat-b", active[0].ID)
	assert.Equal(t, "strat-c", active[1].ID)
	assert.Equal(t, "strat-a", active[2].ID)

	// Invalid strategies are flagged, not silently dropped.
	require.Len(t, snap.Invalid(), 2)
	assert.True(t, errors.Is(snap.Invalid()["strat-broken"], ports.ErrValidation))
	assert.True(t, errors.Is(snap.Invalid()["strat-dup"], ports.ErrDuplicateStrategy))
	assert.NotEmpty(t, logger.warnMsgs)
}

func TestRegistry_Swap(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Current().Active())

	snap := &Snapshot{active: []*domain.StrategySpec{validSpec()}, invalid: map[string]error{}}
	r.Swap(snap)
	assert.Len(t, r.Current().Active(), 1)
}
