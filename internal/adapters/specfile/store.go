// Package specfile loads strategy and indicator-variant definitions from a
// YAML file.
package specfile

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

// Store implements ports.SpecStore over a single YAML definitions file. The
// file is parsed once at construction; LoadVariants and LoadStrategies return
// the parsed result.
type Store struct {
	variants   []*domain.IndicatorVariant
	strategies []*domain.StrategySpec
}

// file is the YAML document shape.
type file struct {
	Indicators []variantYAML  `yaml:"indicators"`
	Strategies []strategyYAML `yaml:"strategies"`
}

type variantYAML struct {
	ID       string         `yaml:"id"`
	BaseType string         `yaml:"base_type"`
	Category string         `yaml:"category"`
	Params   map[string]any `yaml:"params"`
	Symbols  []string       `yaml:"symbols"`
}

type conditionYAML struct {
	Variant   string  `yaml:"variant"`
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
}

type priceRefYAML struct {
	Variant       string  `yaml:"variant"`
	OffsetPercent float64 `yaml:"offset_percent"`
}

type curvePointYAML struct {
	RiskValue float64 `yaml:"risk_value"`
	Percent   float64 `yaml:"percent"`
}

type curveYAML struct {
	RiskVariant string           `yaml:"risk_variant"`
	Points      []curvePointYAML `yaml:"points"`
}

type sizingYAML struct {
	Mode    string    `yaml:"mode"`
	Amount  float64   `yaml:"amount"`
	Percent float64   `yaml:"percent"`
	Curve   curveYAML `yaml:"curve"`
}

type strategyYAML struct {
	ID              string    `yaml:"id"`
	Name            string    `yaml:"name"`
	Symbols         []string  `yaml:"symbols"`
	CreatedAt       time.Time `yaml:"created_at"`
	CooldownSeconds int       `yaml:"cooldown_seconds"`

	Signal struct {
		Conditions []conditionYAML `yaml:"conditions"`
	} `yaml:"signal"`

	Order struct {
		Conditions         []conditionYAML `yaml:"conditions"`
		OrderPriceVariant  string          `yaml:"order_price_variant"`
		StopLoss           priceRefYAML    `yaml:"stop_loss"`
		TakeProfit         priceRefYAML    `yaml:"take_profit"`
		Sizing             sizingYAML      `yaml:"sizing"`
		MaxSlippagePercent float64         `yaml:"max_slippage_percent"`
	} `yaml:"order"`

	Cancel struct {
		TimeoutSeconds  int             `yaml:"timeout_seconds"`
		Conditions      []conditionYAML `yaml:"conditions"`
		CooldownSeconds int             `yaml:"cooldown_seconds"`
	} `yaml:"cancel"`

	Exit struct {
		Conditions       []conditionYAML `yaml:"conditions"`
		ExitPriceVariant string          `yaml:"exit_price_variant"`
		PriceAdjustment  curveYAML       `yaml:"price_adjustment"`
	} `yaml:"exit"`

	Emergency struct {
		Conditions      []conditionYAML `yaml:"conditions"`
		CooldownSeconds int             `yaml:"cooldown_seconds"`
		Actions         struct {
			CancelPendingOrder    *bool `yaml:"cancel_pending_order"`
			ClosePositionAtMarket *bool `yaml:"close_position_at_market"`
			LogEvent              *bool `yaml:"log_event"`
		} `yaml:"actions"`
	} `yaml:"emergency"`
}

// Load parses the definitions file. Structural errors (unreadable file, bad
// YAML) are reported here; semantic validation happens when the definitions
// are loaded into the engine and registry.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definitions file %s: %w", path, err)
	}

	var doc file
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing definitions file %s: %w", path, err)
	}

	s := &Store{}
	for _, v := range doc.Indicators {
		if v.ID == "" {
			return nil, fmt.Errorf("%w: indicator variant with empty id", ports.ErrValidation)
		}
		s.variants = append(s.variants, &domain.IndicatorVariant{
			ID:       v.ID,
			BaseType: v.BaseType,
			Category: domain.IndicatorCategory(v.Category),
			Params:   v.Params,
			Symbols:  v.Symbols,
		})
	}
	for _, raw := range doc.Strategies {
		spec, err := translateStrategy(raw)
		if err != nil {
			return nil, err
		}
		s.strategies = append(s.strategies, spec)
	}
	return s, nil
}

// LoadVariants returns the parsed indicator-variant definitions.
func (s *Store) LoadVariants(_ context.Context) ([]*domain.IndicatorVariant, error) {
	return s.variants, nil
}

// LoadStrategies returns the parsed strategy definitions.
func (s *Store) LoadStrategies(_ context.Context) ([]*domain.StrategySpec, error) {
	return s.strategies, nil
}

func translateStrategy(raw strategyYAML) (*domain.StrategySpec, error) {
	if raw.ID == "" || raw.Name == "" {
		return nil, fmt.Errorf("%w: strategy requires both id and name (id=%q name=%q)", ports.ErrValidation, raw.ID, raw.Name)
	}

	spec := &domain.StrategySpec{
		ID:        raw.ID,
		Name:      raw.Name,
		Symbols:   raw.Symbols,
		CreatedAt: raw.CreatedAt.UTC(),
		Cooldown:  time.Duration(raw.CooldownSeconds) * time.Second,

		Signal: domain.SignalSection{Conditions: translateConditions(raw.Signal.Conditions)},
		Order: domain.OrderSection{
			Conditions:        translateConditions(raw.Order.Conditions),
			OrderPriceVariant: raw.Order.OrderPriceVariant,
			StopLoss:          domain.PriceRef{VariantID: raw.Order.StopLoss.Variant, OffsetPercent: raw.Order.StopLoss.OffsetPercent},
			TakeProfit:        domain.PriceRef{VariantID: raw.Order.TakeProfit.Variant, OffsetPercent: raw.Order.TakeProfit.OffsetPercent},
			Sizing: domain.PositionSizing{
				Mode:    domain.SizingMode(raw.Order.Sizing.Mode),
				Amount:  raw.Order.Sizing.Amount,
				Percent: raw.Order.Sizing.Percent,
				Curve:   translateCurve(raw.Order.Sizing.Curve),
			},
			MaxSlippagePercent: raw.Order.MaxSlippagePercent,
		},
		Cancel: domain.CancelSection{
			TimeoutSeconds: raw.Cancel.TimeoutSeconds,
			Conditions:     translateConditions(raw.Cancel.Conditions),
			Cooldown:       time.Duration(raw.Cancel.CooldownSeconds) * time.Second,
		},
		Exit: domain.ExitSection{
			Conditions:       translateConditions(raw.Exit.Conditions),
			ExitPriceVariant: raw.Exit.ExitPriceVariant,
			PriceAdjustment:  translateCurve(raw.Exit.PriceAdjustment),
		},
		Emergency: domain.EmergencySection{
			Conditions: translateConditions(raw.Emergency.Conditions),
			Cooldown:   time.Duration(raw.Emergency.CooldownSeconds) * time.Second,
			Actions: domain.EmergencyActions{
				CancelPendingOrder:    boolOrDefault(raw.Emergency.Actions.CancelPendingOrder, true),
				ClosePositionAtMarket: boolOrDefault(raw.Emergency.Actions.ClosePositionAtMarket, true),
				LogEvent:              boolOrDefault(raw.Emergency.Actions.LogEvent, true),
			},
		},
	}
	return spec, nil
}

func translateConditions(raw []conditionYAML) []domain.Condition {
	if len(raw) == 0 {
		return nil
	}
	out := make([]domain.Condition, len(raw))
	for i, c := range raw {
		out[i] = domain.Condition{
			VariantID: c.Variant,
			Operator:  domain.Operator(c.Operator),
			Threshold: c.Threshold,
		}
	}
	return out
}

func translateCurve(raw curveYAML) domain.RiskAdjustmentCurve {
	curve := domain.RiskAdjustmentCurve{RiskVariantID: raw.RiskVariant}
	for _, p := range raw.Points {
		curve.Points = append(curve.Points, domain.CurvePoint{RiskValue: p.RiskValue, Percent: p.Percent})
	}
	return curve
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
