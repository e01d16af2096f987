// Package engine contains the strategy execution core: the symbol lock
// manager, the per-(strategy, symbol) state machines and the evaluation
// scheduler that drives them on a fixed cadence against the virtual clock.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"signalPilot/internal/domain"
	"signalPilot/internal/indicator"
	"signalPilot/internal/ports"
	"signalPilot/internal/strategy"
)

const defaultTickInterval = time.Second

// Config holds engine tunables.
type Config struct {
	// TickInterval is the scheduler cadence in live/paper mode. Backtests
	// ignore it and drive Step from tick boundaries instead.
	TickInterval time.Duration
}

// Deps are the collaborators the engine is wired with.
type Deps struct {
	Logger     ports.Logger
	Clock      ports.Clock
	Indicators *indicator.Engine
	Registry   *strategy.Registry
	Locks      *LockManager
	Gateway    ports.OrderGateway
	Recorder   ports.DecisionLog
	Publisher  ports.EventPublisher
}

type instanceKey struct {
	strategyID string
	symbol     string
}

// Engine evaluates every active runtime instance once per scheduler tick, in
// deterministic order, with emergency-exit checks taking precedence. All
// instance mutation happens on the scheduler goroutine; OnTick may be called
// concurrently from the feed.
type Engine struct {
	cfg        Config
	logger     ports.Logger
	clk        ports.Clock
	indicators *indicator.Engine
	registry   *strategy.Registry
	locks      *LockManager
	gateway    ports.OrderGateway
	recorder   ports.DecisionLog
	publisher  ports.EventPublisher

	priceMu   sync.RWMutex
	lastPrice map[string]float64

	instances map[instanceKey]*Instance
	onTrade   func(domain.Trade)

	stopped atomic.Bool
}

// New creates the execution engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Logger == nil || deps.Clock == nil || deps.Indicators == nil || deps.Registry == nil ||
		deps.Locks == nil || deps.Gateway == nil || deps.Recorder == nil || deps.Publisher == nil {
		return nil, fmt.Errorf("missing required dependencies for engine")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	return &Engine{
		cfg:        cfg,
		logger:     deps.Logger,
		clk:        deps.Clock,
		indicators: deps.Indicators,
		registry:   deps.Registry,
		locks:      deps.Locks,
		gateway:    deps.Gateway,
		recorder:   deps.Recorder,
		publisher:  deps.Publisher,
		lastPrice:  make(map[string]float64),
		instances:  make(map[instanceKey]*Instance),
	}, nil
}

// SetTradeCallback registers a sink for completed round trips (used by the
// backtest report). Must be set before the engine starts stepping.
func (e *Engine) SetTradeCallback(fn func(domain.Trade)) { e.onTrade = fn }

// OnTick feeds one market tick into the indicator window store and the
// last-price table. Safe to call from the feed goroutine.
func (e *Engine) OnTick(tick domain.Tick) {
	if e.stopped.Load() {
		return
	}
	e.indicators.Append(tick)
	e.priceMu.Lock()
	e.lastPrice[tick.Symbol] = tick.Price
	e.priceMu.Unlock()
}

// MarketPrice returns the most recently observed price for a symbol.
func (e *Engine) MarketPrice(symbol string) (float64, bool) {
	e.priceMu.RLock()
	defer e.priceMu.RUnlock()
	p, ok := e.lastPrice[symbol]
	return p, ok
}

// Instance returns the runtime instance for a (strategy, symbol) pair.
func (e *Engine) Instance(strategyID, symbol string) (*Instance, bool) {
	in, ok := e.instances[instanceKey{strategyID: strategyID, symbol: symbol}]
	return in, ok
}

// Step runs one logical scheduler tick: drain gateway notifications, then
// evaluate every instance in the snapshot's deterministic priority order.
// A single "now" is read per step so every instance sees the same instant.
func (e *Engine) Step(ctx context.Context) {
	if e.stopped.Load() {
		return
	}
	e.drainOrderEvents(ctx)

	snap := e.registry.Current()
	now := e.clk.Now()
	e.syncInstances(ctx, snap, now)

	for _, spec := range snap.Active() {
		for _, symbol := range spec.Symbols {
			in := e.instances[instanceKey{strategyID: spec.ID, symbol: symbol}]
			if in != nil {
				e.evaluate(ctx, in, now)
			}
		}
	}
}

// Stop halts evaluation: held locks are released, in-flight orders are left
// for the gateway to resolve, and no further decision records are produced.
func (e *Engine) Stop(ctx context.Context) {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, in := range e.instances {
		e.releaseIfHeld(ctx, in)
	}
	e.logger.Info(ctx, "Engine stopped, symbol locks released")
}

// Run drives Step on a fixed cadence until the context is cancelled. Live and
// paper mode use this; backtests call Step directly from the replay driver.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.logger.Info(ctx, "Evaluation scheduler started", map[string]interface{}{
		"interval": e.cfg.TickInterval.String(),
	})
	for {
		select {
		case <-ctx.Done():
			e.Stop(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
			e.Step(ctx)
		}
	}
}

// drainOrderEvents consumes every buffered gateway notification without
// blocking; outcomes of dispatched orders are observed here, on a later tick
// than their dispatch.
func (e *Engine) drainOrderEvents(ctx context.Context) {
	for {
		select {
		case ev, ok := <-e.gateway.Events():
			if !ok {
				return
			}
			e.handleOrderEvent(ctx, ev)
		default:
			return
		}
	}
}

// syncInstances lazily creates instances for every (strategy, symbol) in the
// snapshot and retires instances whose strategy left the snapshot.
func (e *Engine) syncInstances(ctx context.Context, snap *strategy.Snapshot, now time.Time) {
	want := make(map[instanceKey]*domain.StrategySpec)
	for _, spec := range snap.Active() {
		for _, symbol := range spec.Symbols {
			want[instanceKey{strategyID: spec.ID, symbol: symbol}] = spec
		}
	}
	for key, spec := range want {
		if in, ok := e.instances[key]; ok {
			in.Strategy = spec // definitions are immutable, but the snapshot pointer may be new
			continue
		}
		e.instances[key] = newInstance(spec, key.symbol, now)
		e.logger.Debug(ctx, "Runtime instance created", map[string]interface{}{
			"strategyID": key.strategyID, "symbol": key.symbol,
		})
	}
	for key, in := range e.instances {
		if _, ok := want[key]; ok {
			continue
		}
		e.releaseIfHeld(ctx, in)
		delete(e.instances, key)
		e.logger.Info(ctx, "Runtime instance retired (strategy left snapshot)", map[string]interface{}{
			"strategyID": key.strategyID, "symbol": key.symbol,
		})
	}
}

func (e *Engine) handleOrderEvent(ctx context.Context, ev ports.OrderEvent) {
	in, ok := e.instances[instanceKey{strategyID: ev.StrategyID, symbol: ev.Symbol}]
	if !ok {
		e.logger.Warn(ctx, "Order event for unknown instance", map[string]interface{}{
			"type": string(ev.Type), "strategyID": ev.StrategyID, "symbol": ev.Symbol,
		})
		return
	}
	if in.faulted {
		return
	}

	switch ev.Type {
	case ports.OrderEventFilled:
		e.onOrderFilled(ctx, in, ev)
	case ports.OrderEventRejected:
		e.onOrderRejected(ctx, in, ev)
	case ports.OrderEventPositionClosed:
		e.onPositionClosed(ctx, in, ev)
	default:
		e.logger.Warn(ctx, "Unknown order event type", map[string]interface{}{"type": string(ev.Type)})
	}
}

func (e *Engine) onOrderFilled(ctx context.Context, in *Instance, ev ports.OrderEvent) {
	if in.State != StateOrderPlaced || in.Order == nil {
		e.logger.Warn(ctx, "Fill event in unexpected state", map[string]interface{}{
			"strategyID": in.Strategy.ID, "symbol": in.Symbol, "state": string(in.State),
		})
		return
	}
	in.Position = &domain.Position{
		ID:         ev.GatewayID,
		StrategyID: in.Strategy.ID,
		Symbol:     in.Symbol,
		EntryPrice: ev.Price,
		Quantity:   ev.Quantity,
		StopLoss:   in.Order.Spec.StopLoss,
		TakeProfit: in.Order.Spec.TakeProfit,
		EntryTime:  ev.Time,
		Status:     domain.StatusOpen,
	}
	in.Order = nil
	in.setState(StatePositionActive, ev.Time)
	e.publish(ctx, domain.EventPositionUpdated, in, domain.SectionOrder, map[string]interface{}{
		"entryPrice": ev.Price, "quantity": ev.Quantity,
	})
	e.logger.Info(ctx, "Order filled, position active", map[string]interface{}{
		"strategyID": in.Strategy.ID, "symbol": in.Symbol, "entryPrice": ev.Price, "quantity": ev.Quantity,
	})
}

// onOrderRejected treats a rejected submission as a cancellation: release the
// lock, record the outcome, return to MONITORING. Never retried silently.
func (e *Engine) onOrderRejected(ctx context.Context, in *Instance, ev ports.OrderEvent) {
	if in.State != StateOrderPlaced {
		return
	}
	rec := &domain.DecisionRecord{
		Timestamp:  ev.Time,
		StrategyID: in.Strategy.ID,
		Symbol:     in.Symbol,
		Transition: domain.SectionCancel,
		Snapshot:   in.OrderSnapshot.Clone(),
		Outcome:    "order_rejected: " + ev.Err,
	}
	if !e.record(ctx, in, rec) {
		return
	}
	e.publish(ctx, domain.EventSignalCancelled, in, domain.SectionCancel, map[string]interface{}{
		"reason": "order_rejected", "error": ev.Err,
	})
	e.logger.Warn(ctx, "Order rejected, signal cancelled", map[string]interface{}{
		"strategyID": in.Strategy.ID, "symbol": in.Symbol, "error": ev.Err,
	})
	e.releaseIfHeld(ctx, in)
	in.reset(ev.Time)
}

func (e *Engine) onPositionClosed(ctx context.Context, in *Instance, ev ports.OrderEvent) {
	if in.Position == nil {
		return
	}
	pos := in.Position
	pos.ExitPrice = ev.Price
	pos.ExitTime = ev.Time
	pos.Status = domain.StatusClosed
	pos.CloseReason = ev.Reason
	pos.PNL = (ev.Price - pos.EntryPrice) * pos.Quantity

	if e.onTrade != nil {
		e.onTrade(domain.Trade{
			StrategyID:  pos.StrategyID,
			Symbol:      pos.Symbol,
			EntryPrice:  pos.EntryPrice,
			ExitPrice:   pos.ExitPrice,
			Quantity:    pos.Quantity,
			PNL:         pos.PNL,
			EntryTime:   pos.EntryTime,
			ExitTime:    pos.ExitTime,
			CloseReason: pos.CloseReason,
		})
	}
	e.publish(ctx, domain.EventPositionUpdated, in, domain.SectionExit, map[string]interface{}{
		"exitPrice": ev.Price, "reason": string(ev.Reason), "pnl": pos.PNL,
	})
	e.logger.Info(ctx, "Position closed", map[string]interface{}{
		"strategyID": in.Strategy.ID, "symbol": in.Symbol,
		"reason": string(ev.Reason), "exitPrice": ev.Price, "pnl": pos.PNL,
	})

	// E1 already moved the instance into cooldown and released the lock; only
	// a regular close drives the lifecycle-completion transition here.
	if in.State != StatePositionActive {
		return
	}
	if cd := in.Strategy.Cooldown; cd > 0 {
		in.CooldownUntil = ev.Time.Add(cd)
		in.setState(StateCooldown, ev.Time)
		return
	}
	e.releaseIfHeld(ctx, in)
	in.reset(ev.Time)
}

// record writes one decision record. A write failure breaks the audit
// guarantee and halts the instance rather than proceeding unrecorded.
func (e *Engine) record(ctx context.Context, in *Instance, rec *domain.DecisionRecord) bool {
	if err := e.recorder.Record(ctx, rec); err != nil {
		in.faulted = true
		in.faultErr = fmt.Errorf("%w: %v", ports.ErrInstanceFault, err)
		e.logger.Error(ctx, err, "Decision record write failed, halting instance", map[string]interface{}{
			"strategyID": in.Strategy.ID, "symbol": in.Symbol, "transition": string(rec.Transition),
		})
		return false
	}
	return true
}

func (e *Engine) publish(ctx context.Context, t domain.EventType, in *Instance, section domain.Section, detail map[string]interface{}) {
	e.publisher.Publish(ctx, domain.TransitionEvent{
		Type:       t,
		Time:       e.clk.Now(),
		StrategyID: in.Strategy.ID,
		Symbol:     in.Symbol,
		Section:    section,
		Detail:     detail,
	})
}

func (e *Engine) releaseIfHeld(ctx context.Context, in *Instance) {
	if !in.holdsLock {
		return
	}
	if err := e.locks.Release(in.Symbol, in.Strategy.ID); err != nil {
		e.logger.Warn(ctx, "Symbol lock release failed", map[string]interface{}{
			"strategyID": in.Strategy.ID, "symbol": in.Symbol, "error": err.Error(),
		})
	}
	in.holdsLock = false
}
