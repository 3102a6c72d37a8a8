// Package orders implements order lifecycle tracking: a dual-indexed store
// plus a Manager that submits, cancels and reconciles orders against both
// HTTP responses and WebSocket events. Generalized from the teacher's
// strategy.Maker.activeOrders map (a single index keyed by exchange id) into
// four indices: by client id, by exchange id, and separate active/history
// reference lists, so the client_order_id a caller holds is never a
// dangling copy of data the store has moved or dropped.
package orders

import (
	"github.com/0xtitan6/quantis/pkg/market"
)

// Store owns every Order the manager has ever submitted. The
// client_order_id key is duplicated into the map; Order.ClientOrderID
// points at that same owned string, so a caller holding an *Order never
// observes a stale index entry after a terminal transition.
type Store struct {
	byClientID   map[string]*market.Order
	byExchangeID map[string]*market.Order
	active       []*market.Order
	history      []*market.Order
}

// NewStore creates an empty order store.
func NewStore() *Store {
	return &Store{
		byClientID:   make(map[string]*market.Order),
		byExchangeID: make(map[string]*market.Order),
	}
}

// Insert records a freshly submitted order under its client id, and under
// its exchange id too if already known.
func (s *Store) Insert(o *market.Order) {
	s.byClientID[o.ClientOrderID] = o
	if o.ExchangeOrderID != "" {
		s.byExchangeID[o.ExchangeOrderID] = o
	}
	if o.IsActive() || o.Status == market.OrderStatusPending {
		s.active = append(s.active, o)
	} else {
		s.history = append(s.history, o)
	}
}

// BindExchangeID indexes an order that has just received its venue-assigned
// id (the order was previously only reachable by client id).
func (s *Store) BindExchangeID(o *market.Order) {
	if o.ExchangeOrderID != "" {
		s.byExchangeID[o.ExchangeOrderID] = o
	}
}

// ByClientID looks up an order by the id the caller minted at submit time.
func (s *Store) ByClientID(clientID string) (*market.Order, bool) {
	o, ok := s.byClientID[clientID]
	return o, ok
}

// ByExchangeID looks up an order by its venue-assigned id.
func (s *Store) ByExchangeID(exchangeID string) (*market.Order, bool) {
	o, ok := s.byExchangeID[exchangeID]
	return o, ok
}

// MarkTerminal moves an order's reference from the active list to history.
// Safe to call more than once; a no-op if the order is no longer in active.
func (s *Store) MarkTerminal(o *market.Order) {
	for i, a := range s.active {
		if a == o {
			s.active = append(s.active[:i], s.active[i+1:]...)
			s.history = append(s.history, o)
			return
		}
	}
}

// Active returns every order still in a non-terminal state, in submission order.
func (s *Store) Active() []*market.Order {
	out := make([]*market.Order, len(s.active))
	copy(out, s.active)
	return out
}

// History returns terminal orders, optionally filtered by pair, most recent
// last. limit <= 0 means unbounded.
func (s *Store) History(pair *market.TradingPair, limit int) []*market.Order {
	var filtered []*market.Order
	for _, o := range s.history {
		if pair != nil && !o.Request.Pair.Equal(*pair) {
			continue
		}
		filtered = append(filtered, o)
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}
