package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"signalPilot/internal/domain"
	"signalPilot/internal/strategy"
)

var (
	errZeroRefPrice  = errors.New("reference price is zero")
	errUnknownSizing = errors.New("unknown sizing mode")
)

// evaluate runs one scheduler tick for one instance. The emergency-exit check
// comes first and preempts everything else; cooldown and O1 timers are
// re-checked against the virtual clock each tick, never via dedicated timers.
func (e *Engine) evaluate(ctx context.Context, in *Instance, now time.Time) {
	if in.faulted {
		return
	}

	if in.State == StateCooldown {
		if now.Before(in.CooldownUntil) {
			return
		}
		e.releaseIfHeld(ctx, in)
		in.reset(now)
		e.logger.Debug(ctx, "Cooldown expired, back to monitoring", map[string]interface{}{
			"strategyID": in.Strategy.ID, "symbol": in.Symbol,
		})
	}

	if in.State != StateMonitoring {
		if e.checkEmergency(ctx, in, now) {
			return
		}
	}

	switch in.State {
	case StateMonitoring:
		e.evalSignal(ctx, in, now)
	case StateSignalDetected:
		e.evalCancelOrOrder(ctx, in, now)
	case StateOrderPlaced:
		// Waiting for the gateway's fill or rejection event.
	case StatePositionActive:
		e.evalExit(ctx, in, now)
	}
}

// evalConditions evaluates a condition list with AND semantics, collecting
// every consulted indicator value into the snapshot — including values whose
// comparison did not trip, so the decision record explains the whole decision.
// An indicator that cannot produce any value fails its condition.
func (e *Engine) evalConditions(ctx context.Context, conds []domain.Condition, symbol string, now time.Time, snap domain.IndicatorSnapshot) bool {
	all := true
	for _, cond := range conds {
		val, err := e.indicators.Evaluate(ctx, cond.VariantID, symbol, now)
		if err != nil {
			e.logger.Debug(ctx, "Condition indicator unavailable", map[string]interface{}{
				"variantID": cond.VariantID, "symbol": symbol, "error": err.Error(),
			})
			all = false
			continue
		}
		snap[cond.VariantID] = val.Sample()
		if !cond.Operator.Apply(val.Value, cond.Threshold) {
			all = false
		}
	}
	return all
}

// checkEmergency evaluates E1 and, when it trips, cancels/closes immediately,
// releases the lock and starts the mandatory cooldown. Returns true when the
// instance transitioned (or faulted) and must not be evaluated further this tick.
func (e *Engine) checkEmergency(ctx context.Context, in *Instance, now time.Time) bool {
	em := in.Strategy.Emergency
	if len(em.Conditions) == 0 {
		return false
	}
	snap := domain.IndicatorSnapshot{}
	if !e.evalConditions(ctx, em.Conditions, in.Symbol, now, snap) {
		return false
	}

	if in.Order != nil && em.Actions.CancelPendingOrder {
		if err := e.gateway.CancelOrder(ctx, in.Order.GatewayID); err != nil {
			e.logger.Warn(ctx, "Emergency cancel of pending order failed", map[string]interface{}{
				"strategyID": in.Strategy.ID, "symbol": in.Symbol, "error": err.Error(),
			})
		}
		in.Order = nil
	}
	if in.Position != nil && in.Position.IsOpen() && em.Actions.ClosePositionAtMarket {
		if err := e.gateway.ClosePosition(ctx, in.Strategy.ID, in.Symbol, 0, domain.CloseReasonEmergency); err != nil {
			e.logger.Error(ctx, err, "Emergency close dispatch failed", map[string]interface{}{
				"strategyID": in.Strategy.ID, "symbol": in.Symbol,
			})
		}
		in.exitRequested = true
	}

	rec := &domain.DecisionRecord{
		Timestamp:  now,
		StrategyID: in.Strategy.ID,
		Symbol:     in.Symbol,
		Transition: domain.SectionEmergency,
		Snapshot:   snap,
		Outcome:    "emergency_exit",
	}
	if !e.record(ctx, in, rec) {
		return true
	}
	e.publish(ctx, domain.EventEmergencyExit, in, domain.SectionEmergency, map[string]interface{}{
		"fromState": string(in.State),
	})
	if em.Actions.LogEvent {
		e.logger.Info(ctx, "Emergency exit triggered", map[string]interface{}{
			"strategyID": in.Strategy.ID, "symbol": in.Symbol, "fromState": string(in.State),
		})
	}

	e.releaseIfHeld(ctx, in)
	in.CooldownUntil = now.Add(em.Cooldown)
	in.setState(StateCooldown, now)
	return true
}

// evalSignal checks S1 while monitoring; all conditions must hold AND the
// symbol lock must be free. Losing the lock race just means retrying on a
// later tick.
func (e *Engine) evalSignal(ctx context.Context, in *Instance, now time.Time) {
	snap := domain.IndicatorSnapshot{}
	if !e.evalConditions(ctx, in.Strategy.Signal.Conditions, in.Symbol, now, snap) {
		return
	}
	if !e.locks.TryAcquire(in.Symbol, in.Strategy.ID) {
		holder, _ := e.locks.HolderOf(in.Symbol)
		e.logger.Debug(ctx, "S1 satisfied but symbol is locked", map[string]interface{}{
			"strategyID": in.Strategy.ID, "symbol": in.Symbol, "heldBy": holder,
		})
		return
	}
	in.holdsLock = true

	rec := &domain.DecisionRecord{
		Timestamp:  now,
		StrategyID: in.Strategy.ID,
		Symbol:     in.Symbol,
		Transition: domain.SectionSignal,
		Snapshot:   snap,
		Outcome:    "signal_detected",
	}
	if !e.record(ctx, in, rec) {
		return
	}
	in.SignalAt = now
	in.SignalSnapshot = snap
	in.setState(StateSignalDetected, now)
	e.publish(ctx, domain.EventSignalDetected, in, domain.SectionSignal, nil)
	e.logger.Info(ctx, "Entry signal detected, symbol lock acquired", map[string]interface{}{
		"strategyID": in.Strategy.ID, "symbol": in.Symbol,
	})
}

// evalCancelOrOrder handles the SIGNAL_DETECTED state: O1 cancellation first
// (timeout elapsed or cancellation conditions met), then Z1 order entry.
func (e *Engine) evalCancelOrOrder(ctx context.Context, in *Instance, now time.Time) {
	o1 := in.Strategy.Cancel
	timeoutHit := o1.TimeoutSeconds > 0 &&
		!now.Before(in.SignalAt.Add(time.Duration(o1.TimeoutSeconds)*time.Second))

	snap := domain.IndicatorSnapshot{}
	condsHit := len(o1.Conditions) > 0 && e.evalConditions(ctx, o1.Conditions, in.Symbol, now, snap)

	if timeoutHit || condsHit {
		outcome := "cancelled: conditions_met"
		if timeoutHit {
			outcome = "cancelled: timeout"
		}
		rec := &domain.DecisionRecord{
			Timestamp:  now,
			StrategyID: in.Strategy.ID,
			Symbol:     in.Symbol,
			Transition: domain.SectionCancel,
			Snapshot:   snap,
			Outcome:    outcome,
		}
		if !e.record(ctx, in, rec) {
			return
		}
		e.publish(ctx, domain.EventSignalCancelled, in, domain.SectionCancel, map[string]interface{}{
			"timeout": timeoutHit,
		})
		e.logger.Info(ctx, "Signal cancelled", map[string]interface{}{
			"strategyID": in.Strategy.ID, "symbol": in.Symbol, "timeout": timeoutHit,
		})
		if o1.Cooldown > 0 {
			in.CooldownUntil = now.Add(o1.Cooldown)
			in.setState(StateCooldown, now)
			return
		}
		e.releaseIfHeld(ctx, in)
		in.reset(now)
		return
	}

	z1 := in.Strategy.Order
	orderSnap := domain.IndicatorSnapshot{}
	if len(z1.Conditions) > 0 && !e.evalConditions(ctx, z1.Conditions, in.Symbol, now, orderSnap) {
		return
	}
	e.placeOrder(ctx, in, now, orderSnap)
}

// placeOrder computes price, stop loss, take profit and size, then dispatches
// the order. Any failure on this path is treated as a cancellation: release
// the lock, record the outcome, return to MONITORING — never retried silently.
func (e *Engine) placeOrder(ctx context.Context, in *Instance, now time.Time, snap domain.IndicatorSnapshot) {
	z1 := in.Strategy.Order

	marketPrice, haveMarket := e.MarketPrice(in.Symbol)
	if !haveMarket {
		e.logger.Warn(ctx, "No market price observed yet, deferring order", map[string]interface{}{
			"strategyID": in.Strategy.ID, "symbol": in.Symbol,
		})
		return
	}

	orderType := domain.OrderTypeMarket
	limitPrice := 0.0
	if z1.OrderPriceVariant != "" {
		val, err := e.indicators.Evaluate(ctx, z1.OrderPriceVariant, in.Symbol, now)
		if err != nil {
			e.cancelOnOrderFailure(ctx, in, now, snap, "order price indicator unavailable: "+err.Error())
			return
		}
		snap[z1.OrderPriceVariant] = val.Sample()
		orderType = domain.OrderTypeLimit
		limitPrice = val.Value
	}
	refPrice := marketPrice
	if orderType == domain.OrderTypeLimit {
		refPrice = limitPrice
	}

	stopLoss := 0.0
	if z1.StopLoss.VariantID != "" {
		val, err := e.indicators.Evaluate(ctx, z1.StopLoss.VariantID, in.Symbol, now)
		if err != nil {
			e.cancelOnOrderFailure(ctx, in, now, snap, "stop loss indicator unavailable: "+err.Error())
			return
		}
		snap[z1.StopLoss.VariantID] = val.Sample()
		stopLoss = val.Value * (1 - z1.StopLoss.OffsetPercent/100)
	}

	val, err := e.indicators.Evaluate(ctx, z1.TakeProfit.VariantID, in.Symbol, now)
	if err != nil {
		e.cancelOnOrderFailure(ctx, in, now, snap, "take profit indicator unavailable: "+err.Error())
		return
	}
	snap[z1.TakeProfit.VariantID] = val.Sample()
	takeProfit := val.Value * (1 + z1.TakeProfit.OffsetPercent/100)

	quantity, err := e.orderQuantity(ctx, in, now, refPrice, snap)
	if err != nil {
		e.cancelOnOrderFailure(ctx, in, now, snap, "sizing failed: "+err.Error())
		return
	}

	spec := domain.OrderSpec{
		ClientOrderID:      uuid.NewString(),
		StrategyID:         in.Strategy.ID,
		Symbol:             in.Symbol,
		Side:               domain.Buy,
		Type:               orderType,
		Price:              limitPrice,
		Quantity:           quantity,
		StopLoss:           stopLoss,
		TakeProfit:         takeProfit,
		MaxSlippagePercent: z1.MaxSlippagePercent,
		SubmittedAt:        now,
	}
	gatewayID, err := e.gateway.SubmitOrder(ctx, spec)
	if err != nil {
		e.cancelOnOrderFailure(ctx, in, now, snap, "order submission failed: "+err.Error())
		return
	}

	rec := &domain.DecisionRecord{
		Timestamp:  now,
		StrategyID: in.Strategy.ID,
		Symbol:     in.Symbol,
		Transition: domain.SectionOrder,
		Snapshot:   snap,
		Outcome:    "order_submitted",
	}
	if !e.record(ctx, in, rec) {
		return
	}
	in.Order = &domain.Order{
		ClientOrderID: spec.ClientOrderID,
		GatewayID:     gatewayID,
		Spec:          spec,
		SubmittedAt:   now,
	}
	in.OrderSnapshot = snap
	in.setState(StateOrderPlaced, now)
	e.publish(ctx, domain.EventOrderCreated, in, domain.SectionOrder, map[string]interface{}{
		"orderType": string(orderType), "price": limitPrice, "quantity": quantity,
		"stopLoss": stopLoss, "takeProfit": takeProfit,
	})
	e.logger.Info(ctx, "Order dispatched", map[string]interface{}{
		"strategyID": in.Strategy.ID, "symbol": in.Symbol, "clientOrderID": spec.ClientOrderID,
		"type": string(orderType), "quantity": quantity,
	})
}

func (e *Engine) cancelOnOrderFailure(ctx context.Context, in *Instance, now time.Time, snap domain.IndicatorSnapshot, reason string) {
	rec := &domain.DecisionRecord{
		Timestamp:  now,
		StrategyID: in.Strategy.ID,
		Symbol:     in.Symbol,
		Transition: domain.SectionCancel,
		Snapshot:   snap,
		Outcome:    "cancelled: " + reason,
	}
	if !e.record(ctx, in, rec) {
		return
	}
	e.publish(ctx, domain.EventSignalCancelled, in, domain.SectionCancel, map[string]interface{}{
		"reason": reason,
	})
	e.logger.Warn(ctx, "Order entry failed, signal cancelled", map[string]interface{}{
		"strategyID": in.Strategy.ID, "symbol": in.Symbol, "reason": reason,
	})
	e.releaseIfHeld(ctx, in)
	in.reset(now)
}

// orderQuantity derives the position size: fixed amount, percent of balance,
// or percent of balance scaled through the risk-adjustment curve.
func (e *Engine) orderQuantity(ctx context.Context, in *Instance, now time.Time, refPrice float64, snap domain.IndicatorSnapshot) (float64, error) {
	sizing := in.Strategy.Order.Sizing
	switch sizing.Mode {
	case domain.SizeFixed:
		return sizing.Amount, nil
	case domain.SizeBalancePercent, domain.SizeRiskCurve:
		balance, err := e.gateway.Balance(ctx)
		if err != nil {
			return 0, err
		}
		notional := balance * sizing.Percent / 100
		if sizing.Mode == domain.SizeRiskCurve {
			risk, err := e.indicators.Evaluate(ctx, sizing.Curve.RiskVariantID, in.Symbol, now)
			if err != nil {
				return 0, err
			}
			snap[sizing.Curve.RiskVariantID] = risk.Sample()
			notional *= strategy.Interpolate(sizing.Curve, risk.Value) / 100
		}
		if refPrice <= 0 {
			return 0, errZeroRefPrice
		}
		return notional / refPrice, nil
	}
	return 0, errUnknownSizing
}

// evalExit handles POSITION_ACTIVE: ZE1 conditions close the position at the
// computed exit price; SL/TP triggers are the gateway's job and come back as
// position_closed events.
func (e *Engine) evalExit(ctx context.Context, in *Instance, now time.Time) {
	if in.exitRequested {
		return
	}
	ze := in.Strategy.Exit
	if len(ze.Conditions) == 0 {
		return
	}
	snap := domain.IndicatorSnapshot{}
	if !e.evalConditions(ctx, ze.Conditions, in.Symbol, now, snap) {
		return
	}

	exitPrice := 0.0 // market
	if ze.ExitPriceVariant != "" {
		val, err := e.indicators.Evaluate(ctx, ze.ExitPriceVariant, in.Symbol, now)
		if err != nil {
			e.logger.Warn(ctx, "Exit price indicator unavailable, closing at market", map[string]interface{}{
				"strategyID": in.Strategy.ID, "symbol": in.Symbol, "error": err.Error(),
			})
		} else {
			snap[ze.ExitPriceVariant] = val.Sample()
			exitPrice = val.Value
		}
	}
	if exitPrice > 0 && !ze.PriceAdjustment.IsZero() {
		risk, err := e.indicators.Evaluate(ctx, ze.PriceAdjustment.RiskVariantID, in.Symbol, now)
		if err == nil {
			snap[ze.PriceAdjustment.RiskVariantID] = risk.Sample()
			exitPrice *= strategy.Interpolate(ze.PriceAdjustment, risk.Value) / 100
		}
	}

	if err := e.gateway.ClosePosition(ctx, in.Strategy.ID, in.Symbol, exitPrice, domain.CloseReasonExitSignal); err != nil {
		e.logger.Error(ctx, err, "Exit close dispatch failed", map[string]interface{}{
			"strategyID": in.Strategy.ID, "symbol": in.Symbol,
		})
		return
	}

	rec := &domain.DecisionRecord{
		Timestamp:  now,
		StrategyID: in.Strategy.ID,
		Symbol:     in.Symbol,
		Transition: domain.SectionExit,
		Snapshot:   snap,
		Outcome:    "exit_dispatched",
	}
	if !e.record(ctx, in, rec) {
		return
	}
	in.exitRequested = true
	e.publish(ctx, domain.EventPositionUpdated, in, domain.SectionExit, map[string]interface{}{
		"exitPrice": exitPrice,
	})
	e.logger.Info(ctx, "Exit signal dispatched", map[string]interface{}{
		"strategyID": in.Strategy.ID, "symbol": in.Symbol, "exitPrice": exitPrice,
	})
}
