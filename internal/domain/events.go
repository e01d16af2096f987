package domain

import "time"

// EventType names a transition event emitted for dashboards/monitoring.
type EventType string

const (
	EventSignalDetected  EventType = "signal_detected"
	EventOrderCreated    EventType = "order_created"
	EventPositionUpdated EventType = "position_updated"
	EventSignalCancelled EventType = "signal_cancelled"
	EventEmergencyExit   EventType = "emergency_exit"
)

// TransitionEvent is the payload published once per state transition.
type TransitionEvent struct {
	Type       EventType
	Time       time.Time
	StrategyID string
	Symbol     string
	Section    Section
	Detail     map[string]interface{}
}
