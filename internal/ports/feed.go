package ports

import (
	"context"

	"signalPilot/internal/domain"
)

// TickFeed delivers an ordered stream of market ticks from the market-data
// adapter. The feed closes the returned channel when the stream ends or the
// context is cancelled.
type TickFeed interface {
	// Stream starts delivering ticks for the given symbols.
	Stream(ctx context.Context, symbols []string) (<-chan domain.Tick, error)
}
