// Package market defines the venue-agnostic vocabulary the rest of the
// engine is built on: trading pairs, orders, order books, tickers,
// balances, positions and accounts. Every monetary or size field uses
// xdecimal.Decimal; float64 never appears in accounting paths.
package market

import (
	"fmt"

	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// TradingPair is the canonical identity of a tradeable instrument.
type TradingPair struct {
	Base  string
	Quote string
}

func NewTradingPair(base, quote string) TradingPair {
	return TradingPair{Base: base, Quote: quote}
}

// Symbol renders "BASE-QUOTE", the canonical string form used in logs and
// map keys throughout the engine.
func (p TradingPair) Symbol() string {
	return p.Base + "-" + p.Quote
}

func (p TradingPair) Equal(other TradingPair) bool {
	return p.Base == other.Base && p.Quote == other.Quote
}

func (p TradingPair) String() string { return p.Symbol() }

// Side is the direction of an order or a position.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType distinguishes resting limit orders from immediate market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// TimeInForce controls how long a resting order lives before cancellation.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "gtc" // good-til-cancelled
	TimeInForceIOC TimeInForce = "ioc" // immediate-or-cancel
	TimeInForceALO TimeInForce = "alo" // add-liquidity-only (post-only)
	TimeInForceFOK TimeInForce = "fok" // fill-or-kill
)

// OrderStatus is a node in the monotonic status lattice:
//
//	pending -> open -> partially_filled -> filled
//	                                     \-> (cancelled | rejected from any non-terminal state)
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// statusRank gives each status a position in the lattice so transitions can
// be checked for monotonicity. Terminal statuses all rank above every
// non-terminal status; among themselves they are incomparable (any one of
// them, once reached, rejects every further transition).
var statusRank = map[OrderStatus]int{
	OrderStatusPending:         0,
	OrderStatusOpen:            1,
	OrderStatusPartiallyFilled: 2,
	OrderStatusFilled:          3,
	OrderStatusCancelled:       3,
	OrderStatusRejected:        3,
}

// IsTerminal reports whether the status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

// CanTransitionTo reports whether moving from s to next is monotonic: a
// terminal status never transitions, and non-terminal progress only ever
// moves forward in rank (or sideways into a terminal sink).
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next.IsTerminal() {
		return true
	}
	return statusRank[next] >= statusRank[s]
}

// PositionSide is the direction of an open position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// OrderRequest is trading intent, not yet accepted by any venue.
type OrderRequest struct {
	Pair          TradingPair
	Side          Side
	Type          OrderType
	Amount        xdecimal.Decimal
	Price         *xdecimal.Decimal // required for limit, forbidden for market
	TimeInForce   TimeInForce
	ReduceOnly    bool
	ClientOrderID string // empty means "let the caller/manager mint one"
}

// Validate enforces the structural invariants an OrderRequest must satisfy.
func (r OrderRequest) Validate() error {
	if !r.Amount.IsPos() {
		return fmt.Errorf("market: invalid amount %s: must be positive", r.Amount)
	}
	switch r.Type {
	case OrderTypeLimit:
		if r.Price == nil || !r.Price.IsPos() {
			return fmt.Errorf("market: limit order requires a positive price")
		}
	case OrderTypeMarket:
		if r.Price != nil {
			return fmt.Errorf("market: market order should not have a price")
		}
	default:
		return fmt.Errorf("market: unknown order type %q", r.Type)
	}
	return nil
}

// Order is the live entity tracked by the order manager, a superset of the
// originating request plus venue-assigned and fill-accumulated fields.
type Order struct {
	Request OrderRequest

	ExchangeOrderID string // venue-assigned OID, empty until acknowledged
	ClientOrderID   string // the single owned copy; Request.ClientOrderID aliases this
	Status          OrderStatus
	FilledAmount    xdecimal.Decimal
	AvgFillPrice    *xdecimal.Decimal
	Commission      xdecimal.Decimal
	ErrorMessage    string

	CreatedAt timeutil.Timestamp
	UpdatedAt timeutil.Timestamp
}

// IsActive reports whether the order can still receive fills or be cancelled.
func (o *Order) IsActive() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusPartiallyFilled
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() xdecimal.Decimal {
	return o.Request.Amount.Sub(o.FilledAmount)
}

// OrderBookLevel is one price rung of a ladder.
type OrderBookLevel struct {
	Price     xdecimal.Decimal
	Size      xdecimal.Decimal
	NumOrders int
}

// Ticker is a best-effort current-price snapshot for an instrument.
type Ticker struct {
	Pair      TradingPair
	Bid       xdecimal.Decimal
	Ask       xdecimal.Decimal
	Last      xdecimal.Decimal
	Volume24h xdecimal.Decimal
	Timestamp timeutil.Timestamp
}

// Mid is the arithmetic mean of bid and ask.
func (t Ticker) Mid() xdecimal.Decimal {
	return t.Bid.Add(t.Ask).Div(xdecimal.NewFromInt(2))
}

// SpreadBps is the bid-ask spread in basis points of the mid price.
func (t Ticker) SpreadBps() xdecimal.Decimal {
	mid := t.Mid()
	if mid.IsZero() {
		return xdecimal.Zero
	}
	return t.Ask.Sub(t.Bid).Div(mid).Mul(xdecimal.NewFromInt(10000))
}

// Balance is a single asset's ledger entry on an account.
type Balance struct {
	Asset     string
	Total     xdecimal.Decimal
	Available xdecimal.Decimal
	Locked    xdecimal.Decimal
}

// Position is an open exposure in one instrument.
type Position struct {
	Pair             TradingPair
	Side             PositionSide
	Size             xdecimal.Decimal // always positive; direction is in Side
	EntryPrice       xdecimal.Decimal
	MarkPrice        *xdecimal.Decimal
	LiquidationPrice *xdecimal.Decimal
	UnrealizedPnL    xdecimal.Decimal
	Leverage         xdecimal.Decimal
	MarginUsed       xdecimal.Decimal
}

// RecomputeUnrealizedPnL applies the standard perpetual invariant:
// unrealized_pnl = (mark - entry) * size for long, negated for short.
func (p *Position) RecomputeUnrealizedPnL(mark xdecimal.Decimal) {
	delta := mark.Sub(p.EntryPrice).Mul(p.Size)
	if p.Side == PositionSideShort {
		delta = delta.Neg()
	}
	p.UnrealizedPnL = delta
	m := mark
	p.MarkPrice = &m
}

// MarginSummary is one of Account's two margin views (cross and per-position).
type MarginSummary struct {
	AccountValue  xdecimal.Decimal
	TotalMarginUsed xdecimal.Decimal
	TotalNtlPos   xdecimal.Decimal
	TotalRawUsd   xdecimal.Decimal
}

// Candle is one OHLCV bar for a pair at a given interval.
type Candle struct {
	Pair      TradingPair
	Interval  timeutil.Interval
	Open      xdecimal.Decimal
	High      xdecimal.Decimal
	Low       xdecimal.Decimal
	Close     xdecimal.Decimal
	Volume    xdecimal.Decimal
	Timestamp timeutil.Timestamp // bar open time, aligned via Timestamp.AlignToInterval
}

// Fill is a single execution reported by the venue, either over the user
// WebSocket channel or read back from a fills query.
type Fill struct {
	ExchangeOrderID string
	Pair            TradingPair
	Side            Side
	Price           xdecimal.Decimal
	Size            xdecimal.Decimal
	Commission      xdecimal.Decimal
	TradeID         string
	Timestamp       timeutil.Timestamp
}

// Account is the venue-synced financial state of the trading wallet.
type Account struct {
	MarginSummary              MarginSummary
	CrossMarginSummary         MarginSummary
	Withdrawable               xdecimal.Decimal
	CrossMaintenanceMarginUsed xdecimal.Decimal
	TotalRealizedPnL           xdecimal.Decimal
}
