package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/0xtitan6/quantis/internal/errs"
	"github.com/0xtitan6/quantis/pkg/exchange"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// OnOrderUpdate is invoked whenever an order's stored state changes.
type OnOrderUpdate func(o *market.Order)

// OnOrderFill is invoked whenever a fill is applied to an order.
type OnOrderFill func(o *market.Order, fill market.Fill)

// Manager wraps a Store with a single mutex: the store is a shared
// resource guarded inside the manager, never exposed for independent
// locking. It is the sole caller of the registered exchange.Handle's order
// operations.
type Manager struct {
	mu    sync.Mutex
	store *Store
	ex    exchange.Handle

	seq atomic.Int64

	logger *slog.Logger

	onUpdate OnOrderUpdate
	onFill   OnOrderFill
}

// NewManager builds a manager delegating to ex for every venue operation.
func NewManager(ex exchange.Handle, logger *slog.Logger) *Manager {
	return &Manager{
		store:  NewStore(),
		ex:     ex,
		logger: logger.With("component", "order_manager"),
	}
}

// OnOrderUpdate registers the update callback (replaces any previous one).
func (m *Manager) OnOrderUpdate(fn OnOrderUpdate) { m.onUpdate = fn }

// OnOrderFill registers the fill callback (replaces any previous one).
func (m *Manager) OnOrderFill(fn OnOrderFill) { m.onFill = fn }

func (m *Manager) nextClientOrderID() string {
	n := m.seq.Add(1)
	return fmt.Sprintf("cid-%d-%d", timeutil.Now().UnixMillis(), n)
}

// SubmitOrder validates req, mints a client id if the caller didn't supply
// one, stores a pending placeholder, delegates to the exchange, and updates
// the stored order from the response.
func (m *Manager) SubmitOrder(ctx context.Context, req market.OrderRequest) (*market.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if req.ClientOrderID == "" {
		req.ClientOrderID = m.nextClientOrderID()
	}
	now := timeutil.Now()
	pending := &market.Order{
		Request:       req,
		ClientOrderID: req.ClientOrderID,
		Status:        market.OrderStatusPending,
		FilledAmount:  xdecimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.store.Insert(pending)
	m.mu.Unlock()

	result, err := m.ex.CreateOrder(ctx, req)
	if err != nil {
		m.mu.Lock()
		pending.Status = market.OrderStatusRejected
		pending.ErrorMessage = err.Error()
		pending.UpdatedAt = timeutil.Now()
		m.store.MarkTerminal(pending)
		m.mu.Unlock()
		m.notify(pending)
		return pending, err
	}

	m.mu.Lock()
	pending.ExchangeOrderID = result.ExchangeOrderID
	pending.Status = result.Status
	pending.FilledAmount = result.FilledAmount
	pending.AvgFillPrice = result.AvgFillPrice
	pending.UpdatedAt = timeutil.Now()
	m.store.BindExchangeID(pending)
	if pending.Status.IsTerminal() {
		m.store.MarkTerminal(pending)
	}
	m.mu.Unlock()

	m.notify(pending)
	if pending.FilledAmount.IsPos() {
		m.notifyFill(pending, market.Fill{
			ExchangeOrderID: pending.ExchangeOrderID,
			Pair:            pending.Request.Pair,
			Side:            pending.Request.Side,
			Price:           fillPrice(pending),
			Size:            pending.FilledAmount,
			Timestamp:       pending.UpdatedAt,
		})
	}
	return pending, nil
}

func fillPrice(o *market.Order) xdecimal.Decimal {
	if o.AvgFillPrice != nil {
		return *o.AvgFillPrice
	}
	return xdecimal.Zero
}

// CancelOrder cancels an active order by its venue-assigned id.
func (m *Manager) CancelOrder(ctx context.Context, exchangeOrderID string) error {
	m.mu.Lock()
	o, ok := m.store.ByExchangeID(exchangeOrderID)
	if !ok {
		m.mu.Unlock()
		return errs.ErrOrderNotFound
	}
	if !o.IsActive() {
		m.mu.Unlock()
		return errs.ErrOrderNotCancellable
	}
	m.mu.Unlock()

	if err := m.ex.CancelOrder(ctx, exchangeOrderID); err != nil {
		return err
	}

	m.mu.Lock()
	o.Status = market.OrderStatusCancelled
	o.UpdatedAt = timeutil.Now()
	m.store.MarkTerminal(o)
	m.mu.Unlock()
	m.notify(o)
	return nil
}

// CancelOrders cancels a batch of orders, aggregating per-item success and
// the first failure encountered (each item is attempted independently).
func (m *Manager) CancelOrders(ctx context.Context, exchangeOrderIDs []string) (cancelled int, firstErr error) {
	for _, id := range exchangeOrderIDs {
		if err := m.CancelOrder(ctx, id); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		cancelled++
	}
	return cancelled, firstErr
}

// RefreshOrderStatus refetches an order from the venue and reconciles it
// through the same status lattice WS events use.
func (m *Manager) RefreshOrderStatus(ctx context.Context, exchangeOrderID string) (*market.Order, error) {
	fresh, err := m.ex.GetOrder(ctx, exchangeOrderID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.store.ByExchangeID(exchangeOrderID)
	if !ok {
		m.store.Insert(fresh)
		return fresh, nil
	}
	m.applyReconciledLocked(stored, fresh.Status, fresh.FilledAmount, fresh.AvgFillPrice)
	return stored, nil
}

// GetActiveOrders returns every order still in a non-terminal state.
func (m *Manager) GetActiveOrders() []*market.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Active()
}

// GetOrderHistory returns terminal orders, optionally filtered by pair.
func (m *Manager) GetOrderHistory(pair *market.TradingPair, limit int) []*market.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.History(pair, limit)
}

// GetByClientID looks up an order by the client-minted id.
func (m *Manager) GetByClientID(clientID string) (*market.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ByClientID(clientID)
}

// GetByExchangeID looks up an order by its venue-assigned id.
func (m *Manager) GetByExchangeID(exchangeID string) (*market.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ByExchangeID(exchangeID)
}

// HandleUserFill accumulates a fill onto the matching stored order: filled
// size grows, average fill price is a size-weighted blend, commission
// accumulates, and status moves open->partially_filled or ->filled when the
// remainder reaches zero.
func (m *Manager) HandleUserFill(fill market.Fill) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.store.ByExchangeID(fill.ExchangeOrderID)
	if !ok {
		m.logger.Warn("fill for unknown order", "exchange_order_id", fill.ExchangeOrderID)
		return
	}
	if o.Status.IsTerminal() {
		return
	}

	totalFilled := o.FilledAmount.Add(fill.Size)
	var newAvg xdecimal.Decimal
	if totalFilled.IsPos() {
		weighted := xdecimal.Zero
		if o.AvgFillPrice != nil {
			weighted = o.AvgFillPrice.Mul(o.FilledAmount)
		}
		weighted = weighted.Add(fill.Price.Mul(fill.Size))
		newAvg = weighted.Div(totalFilled)
	}

	o.FilledAmount = totalFilled
	o.AvgFillPrice = &newAvg
	o.Commission = o.Commission.Add(fill.Commission)
	o.UpdatedAt = fill.Timestamp

	next := market.OrderStatusPartiallyFilled
	if o.Remaining().IsZero() || o.Remaining().IsNeg() {
		next = market.OrderStatusFilled
	}
	if o.Status.CanTransitionTo(next) {
		o.Status = next
	}
	if o.Status.IsTerminal() {
		m.store.MarkTerminal(o)
	}

	m.notifyLocked(o)
	m.notifyFillLocked(o, fill)
}

// HandleOrderUpdate maps a venue-reported status onto the stored order via
// the monotonic transition lattice, dropping any update that would regress.
func (m *Manager) HandleOrderUpdate(exchangeOrderID string, status market.OrderStatus, filledAmount xdecimal.Decimal, avgFillPrice *xdecimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.store.ByExchangeID(exchangeOrderID)
	if !ok {
		return
	}
	m.applyReconciledLocked(o, status, filledAmount, avgFillPrice)
}

// applyReconciledLocked is the shared reconciliation rule for both WS order
// updates and HTTP refresh responses: the incoming state is applied only if
// it does not regress the status lattice. A WS event that arrives after an
// HTTP refresh and still doesn't regress the status wins identically; the
// manager does not distinguish the event's origin, only its position in
// the lattice.
func (m *Manager) applyReconciledLocked(o *market.Order, status market.OrderStatus, filledAmount xdecimal.Decimal, avgFillPrice *xdecimal.Decimal) {
	if !o.Status.CanTransitionTo(status) && status != o.Status {
		m.logger.Debug("dropping regressive status transition",
			"exchange_order_id", o.ExchangeOrderID, "from", o.Status, "to", status)
		return
	}
	if filledAmount.GreaterThan(o.FilledAmount) {
		o.FilledAmount = filledAmount
		if avgFillPrice != nil {
			o.AvgFillPrice = avgFillPrice
		}
	}
	o.Status = status
	o.UpdatedAt = timeutil.Now()
	if o.Status.IsTerminal() {
		m.store.MarkTerminal(o)
	}
	m.notifyLocked(o)
}

func (m *Manager) notify(o *market.Order) {
	if m.onUpdate != nil {
		m.onUpdate(o)
	}
}

func (m *Manager) notifyLocked(o *market.Order) {
	m.notify(o)
}

func (m *Manager) notifyFill(o *market.Order, fill market.Fill) {
	if m.onFill != nil {
		m.onFill(o, fill)
	}
}

func (m *Manager) notifyFillLocked(o *market.Order, fill market.Fill) {
	m.notifyFill(o, fill)
}
