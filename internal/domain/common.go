package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonExitSignal CloseReason = "EXIT_SIGNAL" // ZE1 signal-based exit
	CloseReasonEmergency  CloseReason = "EMERGENCY"   // E1 override
	CloseReasonManual     CloseReason = "MANUAL"
	CloseReasonUnknown    CloseReason = "Unknown"
)

// Section identifies one of the five condition-driven phases of a strategy
// lifecycle: entry signal, order entry, cancellation, signal-based exit and
// emergency exit.
type Section string

const (
	SectionSignal    Section = "S1"
	SectionOrder     Section = "Z1"
	SectionCancel    Section = "O1"
	SectionExit      Section = "ZE1"
	SectionEmergency Section = "E1"
)
