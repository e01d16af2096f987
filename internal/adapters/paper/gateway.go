// Package paper simulates the order-management collaborator: orders fill
// against the incoming tick stream, stop-loss and take-profit levels are
// monitored here (not in the core), and every outcome is reported back as an
// asynchronous event. The same gateway serves paper trading and backtests.
package paper

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

const defaultEventBuffer = 1024

type positionKey struct {
	strategyID string
	symbol     string
}

type pendingOrder struct {
	gatewayID string
	spec      domain.OrderSpec
}

type openPosition struct {
	id         string
	strategyID string
	symbol     string
	entryPrice float64
	quantity   float64
	stopLoss   float64
	takeProfit float64
}

// Gateway implements ports.OrderGateway against simulated fills.
type Gateway struct {
	logger ports.Logger
	clock  ports.Clock
	events chan ports.OrderEvent

	mu        sync.Mutex
	balance   float64
	lastPrice map[string]float64
	pending   map[string]*pendingOrder
	positions map[positionKey]*openPosition
}

// Config holds the simulated account settings.
type Config struct {
	InitialBalance float64
	EventBuffer    int
	Logger         ports.Logger
	Clock          ports.Clock
}

// New creates a paper gateway.
func New(cfg Config) (*Gateway, error) {
	if cfg.Logger == nil || cfg.Clock == nil {
		return nil, fmt.Errorf("logger and clock are required for the paper gateway")
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive")
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	return &Gateway{
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		events:    make(chan ports.OrderEvent, cfg.EventBuffer),
		balance:   cfg.InitialBalance,
		lastPrice: make(map[string]float64),
		pending:   make(map[string]*pendingOrder),
		positions: make(map[positionKey]*openPosition),
	}, nil
}

// Events exposes the inbound notification channel.
func (g *Gateway) Events() <-chan ports.OrderEvent { return g.events }

// Balance returns the available simulated quote balance.
func (g *Gateway) Balance(_ context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balance, nil
}

// SubmitOrder dispatches an order. Market orders fill against the last
// observed price; limit orders rest until a tick crosses them. The fill or
// rejection arrives as an event, never as a synchronous result.
func (g *Gateway) SubmitOrder(ctx context.Context, spec domain.OrderSpec) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	gatewayID := uuid.NewString()
	if spec.Quantity <= 0 {
		g.emit(ports.OrderEvent{
			Type: ports.OrderEventRejected, Time: g.clock.Now(),
			ClientOrderID: spec.ClientOrderID, GatewayID: gatewayID,
			StrategyID: spec.StrategyID, Symbol: spec.Symbol,
			Err: "quantity must be positive",
		})
		return gatewayID, nil
	}

	switch spec.Type {
	case domain.OrderTypeMarket:
		price, ok := g.lastPrice[spec.Symbol]
		if !ok {
			g.emit(ports.OrderEvent{
				Type: ports.OrderEventRejected, Time: g.clock.Now(),
				ClientOrderID: spec.ClientOrderID, GatewayID: gatewayID,
				StrategyID: spec.StrategyID, Symbol: spec.Symbol,
				Err: "no market price for symbol",
			})
			return gatewayID, nil
		}
		g.fill(gatewayID, spec, price)
	case domain.OrderTypeLimit:
		price, ok := g.lastPrice[spec.Symbol]
		// A buy limit already at or above the market fills immediately unless
		// the implied slippage exceeds the order's tolerance.
		if ok && price <= spec.Price {
			g.fill(gatewayID, spec, price)
			return gatewayID, nil
		}
		if ok && spec.MaxSlippagePercent > 0 && spec.Price > 0 {
			drift := (price - spec.Price) / spec.Price * 100
			if drift > spec.MaxSlippagePercent {
				g.emit(ports.OrderEvent{
					Type: ports.OrderEventRejected, Time: g.clock.Now(),
					ClientOrderID: spec.ClientOrderID, GatewayID: gatewayID,
					StrategyID: spec.StrategyID, Symbol: spec.Symbol,
					Err: fmt.Sprintf("slippage %.2f%% exceeds limit %.2f%%", drift, spec.MaxSlippagePercent),
				})
				return gatewayID, nil
			}
		}
		g.pending[gatewayID] = &pendingOrder{gatewayID: gatewayID, spec: spec}
	default:
		return "", fmt.Errorf("%w: unknown order type %q", ports.ErrInvalidRequest, spec.Type)
	}
	return gatewayID, nil
}

// CancelOrder removes a resting order.
func (g *Gateway) CancelOrder(_ context.Context, gatewayID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pending[gatewayID]; !ok {
		return fmt.Errorf("%w: %s", ports.ErrOrderNotFound, gatewayID)
	}
	delete(g.pending, gatewayID)
	return nil
}

// ClosePosition closes an open position; limitPrice zero closes at the last
// observed market price.
func (g *Gateway) ClosePosition(_ context.Context, strategyID, symbol string, limitPrice float64, reason domain.CloseReason) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := positionKey{strategyID: strategyID, symbol: symbol}
	pos, ok := g.positions[key]
	if !ok {
		return fmt.Errorf("%w: no open position for strategy %s on %s", ports.ErrNotFound, strategyID, symbol)
	}
	price := limitPrice
	if price <= 0 {
		price = g.lastPrice[symbol]
	}
	g.closeLocked(key, pos, price, reason)
	return nil
}

// OnTick advances the simulation: resting limit orders fill when crossed and
// SL/TP levels close open positions. Must be fed the same tick stream as the
// engine.
func (g *Gateway) OnTick(tick domain.Tick) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastPrice[tick.Symbol] = tick.Price

	for id, ord := range g.pending {
		if ord.spec.Symbol != tick.Symbol {
			continue
		}
		if tick.Price <= ord.spec.Price {
			delete(g.pending, id)
			g.fill(id, ord.spec, tick.Price)
		}
	}

	for key, pos := range g.positions {
		if pos.symbol != tick.Symbol {
			continue
		}
		switch {
		case pos.stopLoss > 0 && tick.Price <= pos.stopLoss:
			g.closeLocked(key, pos, pos.stopLoss, domain.CloseReasonStopLoss)
		case pos.takeProfit > 0 && tick.Price >= pos.takeProfit:
			g.closeLocked(key, pos, pos.takeProfit, domain.CloseReasonTakeProfit)
		}
	}
}

// fill opens the position and reports the fill. Caller holds the mutex.
func (g *Gateway) fill(gatewayID string, spec domain.OrderSpec, price float64) {
	key := positionKey{strategyID: spec.StrategyID, symbol: spec.Symbol}
	g.positions[key] = &openPosition{
		id:         gatewayID,
		strategyID: spec.StrategyID,
		symbol:     spec.Symbol,
		entryPrice: price,
		quantity:   spec.Quantity,
		stopLoss:   spec.StopLoss,
		takeProfit: spec.TakeProfit,
	}
	g.emit(ports.OrderEvent{
		Type: ports.OrderEventFilled, Time: g.clock.Now(),
		ClientOrderID: spec.ClientOrderID, GatewayID: gatewayID,
		StrategyID: spec.StrategyID, Symbol: spec.Symbol,
		Price: price, Quantity: spec.Quantity,
	})
}

// closeLocked settles a position and reports position_closed. Caller holds the mutex.
func (g *Gateway) closeLocked(key positionKey, pos *openPosition, price float64, reason domain.CloseReason) {
	pnl := (price - pos.entryPrice) * pos.quantity
	g.balance += pnl
	delete(g.positions, key)
	g.emit(ports.OrderEvent{
		Type: ports.OrderEventPositionClosed, Time: g.clock.Now(),
		GatewayID: pos.id, StrategyID: pos.strategyID, Symbol: pos.symbol,
		Price: price, Quantity: pos.quantity, Reason: reason,
	})
}

func (g *Gateway) emit(ev ports.OrderEvent) {
	g.events <- ev
}
