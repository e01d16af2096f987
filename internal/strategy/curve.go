package strategy

import (
	"fmt"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

// Interpolate maps a risk value through a piecewise-linear curve to a percent
// multiplier. Values outside [min, max] clamp to the boundary percent; there
// is no extrapolation. An empty curve is a constant 100%.
func Interpolate(curve domain.RiskAdjustmentCurve, riskValue float64) float64 {
	points := curve.Points
	if len(points) == 0 {
		return 100.0
	}
	if riskValue <= points[0].RiskValue {
		return points[0].Percent
	}
	last := points[len(points)-1]
	if riskValue >= last.RiskValue {
		return last.Percent
	}
	for i := 1; i < len(points); i++ {
		if riskValue > points[i].RiskValue {
			continue
		}
		lo, hi := points[i-1], points[i]
		frac := (riskValue - lo.RiskValue) / (hi.RiskValue - lo.RiskValue)
		return lo.Percent + frac*(hi.Percent-lo.Percent)
	}
	return last.Percent // unreachable with sorted points
}

// validateCurve checks breakpoint ordering: risk values strictly increasing.
func validateCurve(curve domain.RiskAdjustmentCurve, where string) error {
	if curve.IsZero() {
		return nil
	}
	if curve.RiskVariantID == "" {
		return fmt.Errorf("%w: %s curve has breakpoints but no risk variant", ports.ErrValidation, where)
	}
	if len(curve.Points) == 0 {
		return fmt.Errorf("%w: %s curve names a risk variant but has no breakpoints", ports.ErrValidation, where)
	}
	for i := 1; i < len(curve.Points); i++ {
		if curve.Points[i].RiskValue <= curve.Points[i-1].RiskValue {
			return fmt.Errorf("%w: %s curve risk values must be strictly increasing (point %d)",
				ports.ErrValidation, where, i)
		}
	}
	return nil
}
