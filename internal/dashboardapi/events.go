package dashboardapi

import "time"

// Event wraps every push sent to a connected WebSocket client.
type Event struct {
	Type      string      `json:"type"` // "snapshot", "fill", "order", "position", "kill"
	Timestamp time.Time   `json:"timestamp"`
	Coin      string      `json:"coin,omitempty"`
	Data      interface{} `json:"data"`
}

// FillEvent reports one executed fill.
type FillEvent struct {
	Coin          string  `json:"coin"`
	Side          string  `json:"side"`
	Price         float64 `json:"price"`
	Size          float64 `json:"size"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// OrderEvent reports an order lifecycle transition.
type OrderEvent struct {
	OrderID string  `json:"order_id"`
	Coin    string  `json:"coin"`
	Status  string  `json:"status"`
	Side    string  `json:"side"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
}

// PositionEvent reports a position change.
type PositionEvent struct {
	Coin          string  `json:"coin"`
	Side          string  `json:"side"`
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	ExposureUSD   float64 `json:"exposure_usd"`
	MarkPrice     float64 `json:"mark_price"`
}

// KillEvent reports the risk manager tripping the kill switch.
type KillEvent struct {
	Coin   string    `json:"coin,omitempty"`
	Reason string    `json:"reason"`
	Until  time.Time `json:"until"`
}

func NewFillEvent(coin, side string, price, size, realized, unrealized float64) FillEvent {
	return FillEvent{Coin: coin, Side: side, Price: price, Size: size, RealizedPnL: realized, UnrealizedPnL: unrealized}
}

func NewOrderEvent(orderID, coin, status, side string, price, size float64) OrderEvent {
	return OrderEvent{OrderID: orderID, Coin: coin, Status: status, Side: side, Price: price, Size: size}
}

func NewPositionEvent(pos PositionSnapshot, coin string) PositionEvent {
	return PositionEvent{
		Coin:          coin,
		Side:          pos.Side,
		Size:          pos.Size,
		EntryPrice:    pos.EntryPrice,
		UnrealizedPnL: pos.UnrealizedPnL,
		ExposureUSD:   pos.ExposureUSD,
		MarkPrice:     pos.MarkPrice,
	}
}

func NewKillEvent(coin, reason string, until time.Time) KillEvent {
	return KillEvent{Coin: coin, Reason: reason, Until: until}
}
