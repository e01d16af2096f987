package strategy

import (
	"fmt"

	"signalPilot/internal/domain"
	"signalPilot/internal/indicator"
	"signalPilot/internal/ports"
)

// VariantResolver looks up parsed indicator variants. Satisfied by the
// indicator engine.
type VariantResolver interface {
	Variant(id string) (*indicator.Variant, bool)
}

// Validate checks one strategy spec against the loaded variant set: section
// wiring, indicator category rules and curve shape. A strategy that fails
// validation is excluded from evaluation entirely, never partially run.
func Validate(spec *domain.StrategySpec, resolver VariantResolver) error {
	if spec.ID == "" || spec.Name == "" {
		return fmt.Errorf("%w: strategy id and name are required", ports.ErrValidation)
	}
	if len(spec.Symbols) == 0 {
		return fmt.Errorf("%w: strategy %s monitors no symbols", ports.ErrValidation, spec.ID)
	}
	if len(spec.Signal.Conditions) == 0 {
		return fmt.Errorf("%w: strategy %s has no S1 entry conditions", ports.ErrValidation, spec.ID)
	}
	if spec.Emergency.Cooldown <= 0 {
		return fmt.Errorf("%w: strategy %s E1 cooldown is mandatory", ports.ErrValidation, spec.ID)
	}
	if spec.Cancel.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: strategy %s O1 timeout cannot be negative", ports.ErrValidation, spec.ID)
	}
	if spec.Order.MaxSlippagePercent < 0 {
		return fmt.Errorf("%w: strategy %s max slippage cannot be negative", ports.ErrValidation, spec.ID)
	}

	// Condition lists accept general and risk variants only.
	sections := []struct {
		section    domain.Section
		conditions []domain.Condition
	}{
		{domain.SectionSignal, spec.Signal.Conditions},
		{domain.SectionOrder, spec.Order.Conditions},
		{domain.SectionCancel, spec.Cancel.Conditions},
		{domain.SectionExit, spec.Exit.Conditions},
		{domain.SectionEmergency, spec.Emergency.Conditions},
	}
	for _, sec := range sections {
		for _, cond := range sec.conditions {
			if err := checkConditionVariant(spec, sec.section, cond, resolver); err != nil {
				return err
			}
		}
	}

	// Price slots accept exactly the category matching the slot.
	if spec.Order.TakeProfit.VariantID == "" {
		return fmt.Errorf("%w: strategy %s Z1 take profit is required", ports.ErrValidation, spec.ID)
	}
	priceSlots := []struct {
		slot      string
		variantID string
		category  domain.IndicatorCategory
	}{
		{"Z1.order_price", spec.Order.OrderPriceVariant, domain.CategoryOrderPrice},
		{"Z1.stop_loss", spec.Order.StopLoss.VariantID, domain.CategoryStopLoss},
		{"Z1.take_profit", spec.Order.TakeProfit.VariantID, domain.CategoryTakeProfit},
		{"ZE1.exit_price", spec.Exit.ExitPriceVariant, domain.CategoryCloseOrderPrice},
	}
	for _, slot := range priceSlots {
		if slot.variantID == "" {
			continue
		}
		v, err := resolveFor(spec, slot.variantID, resolver)
		if err != nil {
			return err
		}
		if v.Category != slot.category {
			return fmt.Errorf("%w: strategy %s %s references variant %s of category %s (want %s)",
				ports.ErrCategoryMisuse, spec.ID, slot.slot, v.ID, v.Category, slot.category)
		}
	}

	// Sizing.
	switch spec.Order.Sizing.Mode {
	case domain.SizeFixed:
		if spec.Order.Sizing.Amount <= 0 {
			return fmt.Errorf("%w: strategy %s fixed sizing requires a positive amount", ports.ErrValidation, spec.ID)
		}
	case domain.SizeBalancePercent:
		if spec.Order.Sizing.Percent <= 0 || spec.Order.Sizing.Percent > 100 {
			return fmt.Errorf("%w: strategy %s balance percent sizing must be in (0, 100]", ports.ErrValidation, spec.ID)
		}
	case domain.SizeRiskCurve:
		if spec.Order.Sizing.Percent <= 0 || spec.Order.Sizing.Percent > 100 {
			return fmt.Errorf("%w: strategy %s risk-curve sizing needs a base percent in (0, 100]", ports.ErrValidation, spec.ID)
		}
		if spec.Order.Sizing.Curve.IsZero() {
			return fmt.Errorf("%w: strategy %s risk-curve sizing requires a curve", ports.ErrValidation, spec.ID)
		}
	default:
		return fmt.Errorf("%w: strategy %s has unknown sizing mode %q", ports.ErrValidation, spec.ID, spec.Order.Sizing.Mode)
	}

	// Curves.
	for _, c := range []struct {
		where string
		curve domain.RiskAdjustmentCurve
	}{
		{"Z1.sizing", spec.Order.Sizing.Curve},
		{"ZE1.price_adjustment", spec.Exit.PriceAdjustment},
	} {
		if err := validateCurve(c.curve, c.where); err != nil {
			return fmt.Errorf("strategy %s: %w", spec.ID, err)
		}
		if c.curve.RiskVariantID == "" {
			continue
		}
		v, err := resolveFor(spec, c.curve.RiskVariantID, resolver)
		if err != nil {
			return err
		}
		if v.Category != domain.CategoryRisk {
			return fmt.Errorf("%w: strategy %s %s curve references variant %s of category %s (want %s)",
				ports.ErrCategoryMisuse, spec.ID, c.where, v.ID, v.Category, domain.CategoryRisk)
		}
	}

	return nil
}

func checkConditionVariant(spec *domain.StrategySpec, section domain.Section, cond domain.Condition, resolver VariantResolver) error {
	v, err := resolveFor(spec, cond.VariantID, resolver)
	if err != nil {
		return err
	}
	if v.Category != domain.CategoryGeneral && v.Category != domain.CategoryRisk {
		return fmt.Errorf("%w: strategy %s %s condition references variant %s of category %s (conditions accept general/risk)",
			ports.ErrCategoryMisuse, spec.ID, section, v.ID, v.Category)
	}
	switch cond.Operator {
	case domain.OpGreater, domain.OpLess, domain.OpGreaterEqual, domain.OpLessEqual:
	default:
		return fmt.Errorf("%w: strategy %s %s condition has unknown operator %q",
			ports.ErrValidation, spec.ID, section, cond.Operator)
	}
	return nil
}

func resolveFor(spec *domain.StrategySpec, variantID string, resolver VariantResolver) (*indicator.Variant, error) {
	v, ok := resolver.Variant(variantID)
	if !ok {
		return nil, fmt.Errorf("%w: strategy %s references %q", ports.ErrDanglingVariant, spec.ID, variantID)
	}
	for _, symbol := range spec.Symbols {
		if !v.AppliesTo(symbol) {
			return nil, fmt.Errorf("%w: strategy %s uses variant %s which is not scoped to symbol %s",
				ports.ErrValidation, spec.ID, variantID, symbol)
		}
	}
	return v, nil
}
