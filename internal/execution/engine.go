// Package execution is the pre-trade gatekeeper between strategy intent and
// the order manager: it enforces max-order-size and max-concurrent-open-order
// checks, forwards accepted requests to an ExecutionClient, and publishes
// the resulting events onto the bus. Grounded on the teacher's
// strategy.Maker.reconcileOrders (the teacher's own pre-trade gate folded
// risk-budget sizing directly into quote computation); here that gate is
// pulled out into a venue-agnostic component any strategy plugin can share.
package execution

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/0xtitan6/quantis/internal/bus"
	"github.com/0xtitan6/quantis/internal/errs"
	"github.com/0xtitan6/quantis/internal/orders"
	"github.com/0xtitan6/quantis/internal/paper"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// ExecutionClient is the capability execution needs: submitting and
// cancelling orders. *orders.Manager satisfies this.
type ExecutionClient interface {
	SubmitOrder(ctx context.Context, req market.OrderRequest) (*market.Order, error)
	CancelOrder(ctx context.Context, exchangeOrderID string) error
	GetActiveOrders() []*market.Order
}

// Stats are the running counters the execution engine exposes.
type Stats struct {
	OrdersSubmitted int64
	OrdersFilled    int64
	OrdersRejected  int64
}

// Limits are the pre-trade checks enforced before an order reaches the
// client.
type Limits struct {
	MaxOrderSize       xdecimal.Decimal
	MaxConcurrentOrders int
}

// Engine is the execution gatekeeper.
type Engine struct {
	client ExecutionClient
	bus    *bus.MessageBus
	limits Limits
	logger *slog.Logger

	submitted atomic.Int64
	filled    atomic.Int64
	rejected  atomic.Int64
}

// New builds an execution engine wrapping client.
func New(client ExecutionClient, mb *bus.MessageBus, limits Limits, logger *slog.Logger) *Engine {
	e := &Engine{client: client, bus: mb, limits: limits, logger: logger.With("component", "execution_engine")}
	return e
}

// SubmitIntent runs req through the pre-trade checks and, if it passes,
// forwards it to the client and publishes the outcome onto the bus under
// "order.submitted" / "order.rejected" / "order.filled".
func (e *Engine) SubmitIntent(ctx context.Context, req market.OrderRequest) (*market.Order, error) {
	if err := e.checkLimits(req); err != nil {
		e.rejected.Add(1)
		e.publish("order.rejected", req)
		return nil, err
	}

	o, err := e.client.SubmitOrder(ctx, req)
	if err != nil {
		e.rejected.Add(1)
		e.publish("order.rejected", req)
		return o, err
	}

	e.submitted.Add(1)
	e.publish("order.submitted", o)
	if o.Status == market.OrderStatusFilled {
		e.filled.Add(1)
		e.publish("order.filled", o)
	}
	return o, nil
}

func (e *Engine) checkLimits(req market.OrderRequest) error {
	if !e.limits.MaxOrderSize.IsZero() && req.Amount.GreaterThan(e.limits.MaxOrderSize) {
		return errs.ErrExceedsMaxPositionSize
	}
	if e.limits.MaxConcurrentOrders > 0 && len(e.client.GetActiveOrders()) >= e.limits.MaxConcurrentOrders {
		return errs.ErrExceedsMaxPositionSize
	}
	return nil
}

func (e *Engine) publish(topic string, payload interface{}) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(topic, payload)
}

// StatsSnapshot returns the current counters.
func (e *Engine) StatsSnapshot() Stats {
	return Stats{
		OrdersSubmitted: e.submitted.Load(),
		OrdersFilled:    e.filled.Load(),
		OrdersRejected:  e.rejected.Load(),
	}
}

var _ ExecutionClient = (*orders.Manager)(nil)
var _ ExecutionClient = (*paper.Simulator)(nil)
