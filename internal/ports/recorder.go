package ports

import (
	"context"

	"signalPilot/internal/domain"
)

// DecisionLog is the append-only audit trail. Record must never fail silently:
// a write failure is surfaced to the caller, which halts further transitions
// for the affected instance rather than proceeding unrecorded.
type DecisionLog interface {
	Record(ctx context.Context, rec *domain.DecisionRecord) error
}

// DecisionReader queries recorded decisions, most recent first.
type DecisionReader interface {
	Recent(ctx context.Context, limit int) ([]*domain.DecisionRecord, error)
	BySymbol(ctx context.Context, symbol string, limit int) ([]*domain.DecisionRecord, error)
}
