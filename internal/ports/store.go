package ports

import (
	"context"

	"signalPilot/internal/domain"
)

// SpecStore loads strategy and indicator-variant definitions. The core never
// writes definitions; the storage format (YAML file, DB row) is the adapter's
// concern.
type SpecStore interface {
	LoadVariants(ctx context.Context) ([]*domain.IndicatorVariant, error)
	LoadStrategies(ctx context.Context) ([]*domain.StrategySpec, error)
}
