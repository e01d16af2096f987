package domain

import "time"

// OrderType distinguishes market orders from limit orders priced by an
// order_price indicator.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderSpec is the request handed to the order gateway when a Z1 section
// fires. Price is zero for market orders.
type OrderSpec struct {
	ClientOrderID      string
	StrategyID         string
	Symbol             string
	Side               OrderSide
	Type               OrderType
	Price              float64
	Quantity           float64
	StopLoss           float64
	TakeProfit         float64
	MaxSlippagePercent float64
	SubmittedAt        time.Time
}

// Order tracks a dispatched order while its outcome is pending.
type Order struct {
	ClientOrderID string
	GatewayID     string // id assigned by the order gateway
	Spec          OrderSpec
	SubmittedAt   time.Time
}

// Position represents an open or closed position owned by one strategy on one
// symbol.
type Position struct {
	ID          string
	StrategyID  string
	Symbol      string
	EntryPrice  float64
	ExitPrice   float64 // 0 while open
	Quantity    float64
	StopLoss    float64
	TakeProfit  float64
	EntryTime   time.Time
	ExitTime    time.Time // zero value while open
	Status      PositionStatus
	PNL         float64 // set on close
	CloseReason CloseReason
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// Trade represents a completed round trip, used by the backtest report.
type Trade struct {
	StrategyID  string
	Symbol      string
	EntryPrice  float64
	ExitPrice   float64
	Quantity    float64
	PNL         float64
	EntryTime   time.Time
	ExitTime    time.Time
	CloseReason CloseReason
}
