package indicator

import (
	"fmt"
	"time"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

// Base-type names of the built-in calculations.
const (
	BaseLastPrice     = "last_price"
	BaseSMA           = "sma"
	BaseVWAP          = "vwap"
	BaseRSI           = "rsi"
	BaseVolumeSum     = "volume_sum"
	BaseVolumeSurge   = "volume_surge"
	BaseVolatility    = "volatility"
	BasePriceChange   = "price_change_percent"
	BaseSmooth        = "smooth"
	defaultRefreshSec = 1
)

// Window is a backward-looking interval [T1 seconds ago, T2 seconds ago]
// relative to virtual now, with T1 > T2 >= 0.
type Window struct {
	T1 time.Duration
	T2 time.Duration
}

// Bounds resolves the window to absolute times for the given virtual now.
func (w Window) Bounds(now time.Time) (from, to time.Time) {
	return now.Add(-w.T1), now.Add(-w.T2)
}

// Params is the strongly typed form every base type's loose parameter map is
// validated into at load time.
type Params struct {
	Window  Window
	Refresh time.Duration

	// smooth only
	SourceVariantID string
	Samples         int
	Step            time.Duration
}

// Variant is an indicator variant with its parameters parsed and validated.
type Variant struct {
	ID       string
	BaseType string
	Category domain.IndicatorCategory
	Params   Params
	Symbols  []string
}

// AppliesTo reports whether the variant is usable for the given symbol.
func (v *Variant) AppliesTo(symbol string) bool {
	if len(v.Symbols) == 0 {
		return true
	}
	for _, s := range v.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// DependsOn returns the ids of variants this variant is computed from.
func (v *Variant) DependsOn() []string {
	if v.BaseType == BaseSmooth {
		return []string{v.Params.SourceVariantID}
	}
	return nil
}

// BucketSize returns the cache bucket size for the variant: the smaller of its
// refresh interval and one second.
func (v *Variant) BucketSize() time.Duration {
	if v.Params.Refresh < time.Second && v.Params.Refresh > 0 {
		return v.Params.Refresh
	}
	return time.Second
}

type paramSchema struct {
	needsWindow bool
	extraKeys   map[string]bool
}

var schemas = map[string]paramSchema{
	BaseLastPrice:   {needsWindow: true},
	BaseSMA:         {needsWindow: true},
	BaseVWAP:        {needsWindow: true},
	BaseRSI:         {needsWindow: true},
	BaseVolumeSum:   {needsWindow: true},
	BaseVolumeSurge: {needsWindow: true},
	BaseVolatility:  {needsWindow: true},
	BasePriceChange: {needsWindow: true},
	BaseSmooth: {
		extraKeys: map[string]bool{"source_variant_id": true, "samples": true, "step_seconds": true},
	},
}

// ParseVariant validates a raw variant definition against its base type's
// parameter schema and returns the strongly typed form. Unknown and missing
// fields are rejected here, at load time, never at evaluation time.
func ParseVariant(raw *domain.IndicatorVariant) (*Variant, error) {
	if raw.ID == "" {
		return nil, fmt.Errorf("%w: variant id is empty", ports.ErrValidation)
	}
	schema, ok := schemas[raw.BaseType]
	if !ok {
		return nil, fmt.Errorf("%w: %q (variant %s)", ports.ErrUnknownBaseType, raw.BaseType, raw.ID)
	}
	switch raw.Category {
	case domain.CategoryGeneral, domain.CategoryRisk, domain.CategoryOrderPrice,
		domain.CategoryStopLoss, domain.CategoryTakeProfit, domain.CategoryCloseOrderPrice:
	default:
		return nil, fmt.Errorf("%w: variant %s has unknown category %q", ports.ErrValidation, raw.ID, raw.Category)
	}

	v := &Variant{
		ID:       raw.ID,
		BaseType: raw.BaseType,
		Category: raw.Category,
		Symbols:  raw.Symbols,
		Params:   Params{Refresh: defaultRefreshSec * time.Second},
	}

	seen := map[string]bool{}
	for key, val := range raw.Params {
		seen[key] = true
		switch {
		case key == "refresh_interval_seconds":
			sec, err := asPositiveFloat(val)
			if err != nil {
				return nil, fmt.Errorf("%w: variant %s refresh_interval_seconds: %v", ports.ErrBadParameters, raw.ID, err)
			}
			v.Params.Refresh = time.Duration(sec * float64(time.Second))
		case key == "t1_seconds_ago" && schema.needsWindow:
			sec, err := asNonNegativeFloat(val)
			if err != nil {
				return nil, fmt.Errorf("%w: variant %s t1_seconds_ago: %v", ports.ErrBadParameters, raw.ID, err)
			}
			v.Params.Window.T1 = time.Duration(sec * float64(time.Second))
		case key == "t2_seconds_ago" && schema.needsWindow:
			sec, err := asNonNegativeFloat(val)
			if err != nil {
				return nil, fmt.Errorf("%w: variant %s t2_seconds_ago: %v", ports.ErrBadParameters, raw.ID, err)
			}
			v.Params.Window.T2 = time.Duration(sec * float64(time.Second))
		case schema.extraKeys[key]:
			if err := parseExtra(v, key, val); err != nil {
				return nil, fmt.Errorf("%w: variant %s %s: %v", ports.ErrBadParameters, raw.ID, key, err)
			}
		default:
			return nil, fmt.Errorf("%w: variant %s has unknown parameter %q for base type %s",
				ports.ErrBadParameters, raw.ID, key, raw.BaseType)
		}
	}

	if schema.needsWindow {
		if !seen["t1_seconds_ago"] || !seen["t2_seconds_ago"] {
			return nil, fmt.Errorf("%w: variant %s requires t1_seconds_ago and t2_seconds_ago",
				ports.ErrBadParameters, raw.ID)
		}
		if v.Params.Window.T1 <= v.Params.Window.T2 {
			return nil, fmt.Errorf("%w: variant %s window requires t1 > t2 >= 0",
				ports.ErrBadParameters, raw.ID)
		}
	}
	if raw.BaseType == BaseSmooth {
		if v.Params.SourceVariantID == "" {
			return nil, fmt.Errorf("%w: variant %s requires source_variant_id", ports.ErrBadParameters, raw.ID)
		}
		if v.Params.Samples < 1 {
			return nil, fmt.Errorf("%w: variant %s requires samples >= 1", ports.ErrBadParameters, raw.ID)
		}
		if v.Params.Step <= 0 {
			return nil, fmt.Errorf("%w: variant %s requires step_seconds > 0", ports.ErrBadParameters, raw.ID)
		}
	}
	return v, nil
}

func parseExtra(v *Variant, key string, val any) error {
	switch key {
	case "source_variant_id":
		s, ok := val.(string)
		if !ok || s == "" {
			return fmt.Errorf("must be a non-empty string")
		}
		v.Params.SourceVariantID = s
	case "samples":
		n, err := asPositiveFloat(val)
		if err != nil {
			return err
		}
		v.Params.Samples = int(n)
	case "step_seconds":
		sec, err := asPositiveFloat(val)
		if err != nil {
			return err
		}
		v.Params.Step = time.Duration(sec * float64(time.Second))
	}
	return nil
}

func asFloat(val any) (float64, error) {
	switch n := val.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", val)
}

func asPositiveFloat(val any) (float64, error) {
	n, err := asFloat(val)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %v", n)
	}
	return n, nil
}

func asNonNegativeFloat(val any) (float64, error) {
	n, err := asFloat(val)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("cannot be negative, got %v", n)
	}
	return n, nil
}
