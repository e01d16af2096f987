package domain

// IndicatorCategory restricts where an indicator variant may be referenced
// from within a strategy definition.
type IndicatorCategory string

const (
	CategoryGeneral         IndicatorCategory = "general"
	CategoryRisk            IndicatorCategory = "risk"
	CategoryOrderPrice      IndicatorCategory = "order_price"
	CategoryStopLoss        IndicatorCategory = "stop_loss"
	CategoryTakeProfit      IndicatorCategory = "take_profit"
	CategoryCloseOrderPrice IndicatorCategory = "close_order_price"
)

// IsPriceCategory reports whether the category names a price-producing slot
// (Z1 order price, stop loss, take profit or ZE1 exit price).
func (c IndicatorCategory) IsPriceCategory() bool {
	switch c {
	case CategoryOrderPrice, CategoryStopLoss, CategoryTakeProfit, CategoryCloseOrderPrice:
		return true
	}
	return false
}

// Freshness describes how an indicator value was obtained.
type Freshness string

const (
	// FreshnessComputed means the value was recomputed for the current cache bucket.
	FreshnessComputed Freshness = "computed"
	// FreshnessCached means the value was served from the current cache bucket.
	FreshnessCached Freshness = "cached"
	// FreshnessDegraded means recomputation failed or timed out and the last
	// successfully computed value was returned instead.
	FreshnessDegraded Freshness = "degraded"
)

// IndicatorVariant is a concrete, parameterized instantiation of a built-in
// indicator calculation. Variants are immutable once referenced by a strategy;
// edits create a new variant id.
type IndicatorVariant struct {
	ID       string            // unique, immutable once referenced
	BaseType string            // name of a built-in calculation
	Category IndicatorCategory // where the variant may be referenced from
	Params   map[string]any    // raw parameters, validated against the base type's schema on load
	Symbols  []string          // specific symbols the variant applies to; empty means all
}

// AppliesTo reports whether the variant is usable for the given symbol.
func (v *IndicatorVariant) AppliesTo(symbol string) bool {
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
