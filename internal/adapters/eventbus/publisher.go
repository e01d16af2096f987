// Package eventbus publishes transition events to dashboards and monitoring
// over an in-process EventBus. Topics are the event type names; subscribers
// receive the full domain.TransitionEvent payload.
package eventbus

import (
	"context"

	"github.com/asaskevich/EventBus"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

// Publisher implements ports.EventPublisher on EventBus.
type Publisher struct {
	bus    EventBus.Bus
	logger ports.Logger
}

// New creates a publisher with a fresh bus.
func New(logger ports.Logger) *Publisher {
	return &Publisher{bus: EventBus.New(), logger: logger}
}

// Bus exposes the underlying bus so the surrounding system can subscribe.
func (p *Publisher) Bus() EventBus.Bus { return p.bus }

// Subscribe registers an async handler for one event type.
func (p *Publisher) Subscribe(eventType domain.EventType, handler func(domain.TransitionEvent)) error {
	return p.bus.SubscribeAsync(string(eventType), handler, false)
}

// Publish fans the event out. Delivery is at-least-once within the process;
// the core does not depend on any stronger guarantee.
func (p *Publisher) Publish(ctx context.Context, event domain.TransitionEvent) {
	p.bus.Publish(string(event.Type), event)
	if p.logger != nil {
		p.logger.Debug(ctx, "Transition event published", map[string]interface{}{
			"type": string(event.Type), "strategyID": event.StrategyID, "symbol": event.Symbol,
		})
	}
}
