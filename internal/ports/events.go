package ports

import (
	"context"

	"signalPilot/internal/domain"
)

// EventPublisher fans transition events out to dashboards and monitoring.
// Delivery is at-least-once; the core does not depend on any stronger
// transport guarantee.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.TransitionEvent)
}
