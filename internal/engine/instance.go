package engine

import (
	"time"

	"signalPilot/internal/domain"
)

// State is the lifecycle state of one runtime instance.
type State string

const (
	StateMonitoring     State = "MONITORING"
	StateSignalDetected State = "SIGNAL_DETECTED"
	StateOrderPlaced    State = "ORDER_PLACED"
	StatePositionActive State = "POSITION_ACTIVE"
	StateCooldown       State = "COOLDOWN"
)

// Instance is the runtime state machine of one (strategy, symbol) pair.
// Instances are created lazily when a strategy starts monitoring a symbol and
// return to MONITORING once a full lifecycle completes and any cooldown
// expires. All access happens on the scheduler goroutine.
type Instance struct {
	Strategy *domain.StrategySpec
	Symbol   string

	State     State
	EnteredAt time.Time

	// SignalAt anchors the O1 timeout clock; SignalSnapshot keeps the S1
	// indicator values captured when the signal fired.
	SignalAt       time.Time
	SignalSnapshot domain.IndicatorSnapshot
	OrderSnapshot  domain.IndicatorSnapshot

	Order    *domain.Order
	Position *domain.Position

	CooldownUntil time.Time
	// holdsLock tracks whether this instance currently owns the symbol lock,
	// including through a cooldown that retains it.
	holdsLock bool
	// exitRequested suppresses duplicate ZE1 close dispatches while the
	// position_closed confirmation is still in flight.
	exitRequested bool

	// faulted marks the instance halted after a decision-record write failure.
	// A faulted instance makes no further transitions.
	faulted  bool
	faultErr error
}

func newInstance(spec *domain.StrategySpec, symbol string, now time.Time) *Instance {
	return &Instance{
		Strategy:  spec,
		Symbol:    symbol,
		State:     StateMonitoring,
		EnteredAt: now,
	}
}

func (in *Instance) setState(s State, now time.Time) {
	in.State = s
	in.EnteredAt = now
}

// reset clears per-lifecycle state when the instance returns to MONITORING.
func (in *Instance) reset(now time.Time) {
	in.setState(StateMonitoring, now)
	in.SignalAt = time.Time{}
	in.SignalSnapshot = nil
	in.OrderSnapshot = nil
	in.Order = nil
	in.Position = nil
	in.CooldownUntil = time.Time{}
	in.exitRequested = false
}

// Faulted reports whether the instance was halted by an audit write failure.
func (in *Instance) Faulted() (bool, error) {
	return in.faulted, in.faultErr
}
