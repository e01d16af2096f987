package ports

import (
	"context"
	"time"

	"signalPilot/internal/domain"
)

// OrderEventType names the asynchronous notifications the gateway reports back.
type OrderEventType string

const (
	OrderEventFilled         OrderEventType = "order_filled"
	OrderEventRejected       OrderEventType = "order_rejected"
	OrderEventPositionClosed OrderEventType = "position_closed"
)

// OrderEvent is one inbound notification from the order gateway. The core
// never waits on gateway calls inside the evaluation loop; outcomes arrive as
// events and are observed on a later scheduler tick.
type OrderEvent struct {
	Type          OrderEventType
	Time          time.Time
	ClientOrderID string
	GatewayID     string
	StrategyID    string
	Symbol        string
	Price         float64 // fill or close price
	Quantity      float64
	Reason        domain.CloseReason // for position_closed
	Err           string             // for order_rejected
}

// OrderGateway is the order-management collaborator. SubmitOrder dispatches and
// returns immediately; fills, rejections and SL/TP-driven position closes are
// reported through Events.
type OrderGateway interface {
	// SubmitOrder dispatches an order and returns the gateway-assigned id.
	SubmitOrder(ctx context.Context, spec domain.OrderSpec) (string, error)

	// CancelOrder cancels a pending (unfilled) order.
	CancelOrder(ctx context.Context, gatewayID string) error

	// ClosePosition closes an open position; limitPrice zero means at current
	// market price. The resulting position_closed event carries the reason.
	ClosePosition(ctx context.Context, strategyID, symbol string, limitPrice float64, reason domain.CloseReason) error

	// Balance returns the available quote balance used for percent-based sizing.
	Balance(ctx context.Context) (float64, error)

	// Events exposes the inbound notification channel.
	Events() <-chan OrderEvent
}
