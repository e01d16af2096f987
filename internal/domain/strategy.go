package domain

import "time"

// Operator is a comparison operator used by conditions.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// Apply evaluates the operator against a computed indicator value.
func (o Operator) Apply(value, threshold float64) bool {
	switch o {
	case OpGreater:
		return value > threshold
	case OpLess:
		return value < threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpLessEqual:
		return value <= threshold
	}
	return false
}

// Condition compares one indicator variant's value against a threshold.
// Conditions within a section combine with AND only.
type Condition struct {
	VariantID string
	Operator  Operator
	Threshold float64
}

// CurvePoint is one breakpoint of a risk-adjustment curve.
type CurvePoint struct {
	RiskValue float64
	Percent   float64
}

// RiskAdjustmentCurve maps a risk indicator's value to a percentage multiplier
// through piecewise-linear interpolation. Breakpoints are ordered by strictly
// increasing RiskValue. An empty curve is equivalent to a constant 100%.
type RiskAdjustmentCurve struct {
	RiskVariantID string // category=risk variant sampled at decision time
	Points        []CurvePoint
}

// IsZero reports whether no curve was configured.
func (c RiskAdjustmentCurve) IsZero() bool {
	return c.RiskVariantID == "" && len(c.Points) == 0
}

// SizingMode selects how position size is derived.
type SizingMode string

const (
	SizeFixed          SizingMode = "fixed"           // fixed base-asset amount
	SizeBalancePercent SizingMode = "balance_percent" // percent of available balance
	SizeRiskCurve      SizingMode = "risk_curve"      // balance percent scaled by a risk curve
)

// PositionSizing describes how large an order the Z1 section places.
type PositionSizing struct {
	Mode    SizingMode
	Amount  float64             // fixed quantity (SizeFixed)
	Percent float64             // percent of balance (SizeBalancePercent, SizeRiskCurve)
	Curve   RiskAdjustmentCurve // multiplier curve (SizeRiskCurve)
}

// PriceRef couples a price-category indicator with an offset in percent.
type PriceRef struct {
	VariantID     string
	OffsetPercent float64
}

// SignalSection holds the S1 entry-signal conditions.
type SignalSection struct {
	Conditions []Condition
}

// OrderSection holds the Z1 order-entry rules, evaluated only while an S1
// signal is active.
type OrderSection struct {
	Conditions         []Condition
	OrderPriceVariant  string   // optional, category=order_price; empty means market price
	StopLoss           PriceRef // optional, category=stop_loss
	TakeProfit         PriceRef // required, category=take_profit
	Sizing             PositionSizing
	MaxSlippagePercent float64
}

// CancelSection holds the O1 cancellation rules. Cancellation applies only
// while no order has been placed yet.
type CancelSection struct {
	TimeoutSeconds int // optional; 0 disables the timeout
	Conditions     []Condition
	Cooldown       time.Duration // optional
}

// ExitSection holds the ZE1 signal-based exit rules.
type ExitSection struct {
	Conditions       []Condition
	ExitPriceVariant string              // optional, category=close_order_price
	PriceAdjustment  RiskAdjustmentCurve // optional exit-price adjustment
}

// EmergencyActions configures what an E1 trigger does. All default to true.
type EmergencyActions struct {
	CancelPendingOrder    bool
	ClosePositionAtMarket bool
	LogEvent              bool
}

// EmergencySection holds the E1 emergency-exit rules. Cooldown is mandatory.
type EmergencySection struct {
	Conditions []Condition
	Cooldown   time.Duration
	Actions    EmergencyActions
}

// StrategySpec is the full definition of one strategy. Specs are immutable
// once loaded into a registry snapshot.
type StrategySpec struct {
	ID        string
	Name      string // unique
	Symbols   []string
	CreatedAt time.Time // drives the deterministic priority order

	Signal    SignalSection
	Order     OrderSection
	Cancel    CancelSection
	Exit      ExitSection
	Emergency EmergencySection

	// Cooldown applied after a regular lifecycle completion (zero-length unless set).
	Cooldown time.Duration
}

// ConditionVariantIDs returns the variant ids referenced from every condition
// list and curve of the spec, in section order. Price-slot variants are not
// included.
func (s *StrategySpec) ConditionVariantIDs() []string {
	var ids []string
	for _, list := range [][]Condition{
		s.Signal.Conditions, s.Order.Conditions, s.Cancel.Conditions,
		s.Exit.Conditions, s.Emergency.Conditions,
	} {
		for _, c := range list {
			ids = append(ids, c.VariantID)
		}
	}
	if s.Order.Sizing.Curve.RiskVariantID != "" {
		ids = append(ids, s.Order.Sizing.Curve.RiskVariantID)
	}
	if s.Exit.PriceAdjustment.RiskVariantID != "" {
		ids = append(ids, s.Exit.PriceAdjustment.RiskVariantID)
	}
	return ids
}

// PriceVariantIDs returns the non-empty price-slot variant ids of the spec.
func (s *StrategySpec) PriceVariantIDs() []string {
	var ids []string
	for _, id := range []string{
		s.Order.OrderPriceVariant, s.Order.StopLoss.VariantID,
		s.Order.TakeProfit.VariantID, s.Exit.ExitPriceVariant,
	} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
