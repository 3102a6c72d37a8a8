// Package account tracks per-coin positions and venue-synced account state.
// Generalized from the teacher's strategy.Inventory (a single binary-market
// YES/NO position with float64 math) into a map of one perpetual position
// per coin, size-weighted entry accounting done in xdecimal, and explicit
// flip/close/open splitting on opposite-side fills.
package account

import (
	"context"
	"sync"

	"github.com/0xtitan6/quantis/pkg/exchange"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// Tracker holds the current per-coin positions and account snapshot. Single
// mutex, snapshots returned by value/copy so callers never hold a pointer
// into internal state.
type Tracker struct {
	mu sync.RWMutex

	ex         exchange.Handle
	positions  map[string]*market.Position // coin -> position
	account    market.Account
}

// NewTracker builds a tracker that syncs against ex.
func NewTracker(ex exchange.Handle) *Tracker {
	return &Tracker{
		ex:        ex,
		positions: make(map[string]*market.Position),
	}
}

// SyncAccountState fetches venue positions and replaces the position map
// atomically. The account snapshot is not fetched or changed by this call.
func (t *Tracker) SyncAccountState(ctx context.Context) error {
	positions, err := t.ex.GetPositions(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[string]*market.Position, len(positions))
	for i := range positions {
		p := positions[i]
		fresh[p.Pair.Base] = &p
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions = fresh
	return nil
}

// ApplyFill applies one fill to the tracked position for fill.Pair.Base.
//
//   - No existing position: opens one in the fill's direction.
//   - Same-side fill: grows the position with a size-weighted entry price.
//   - Opposite-side fill smaller than the open size: reduces the position
//     and realizes PnL on the closed portion.
//   - Opposite-side fill equal to the open size: closes the position.
//   - Opposite-side fill larger than the open size: closes the existing
//     position (realizing PnL on all of it) and opens a new, flipped
//     position sized at the residual, entered at the fill price — this
//     "flip" split keeps a single fill from silently carrying realized
//     PnL from one direction into an unrelated open price.
func (t *Tracker) ApplyFill(fill market.Fill) {
	t.mu.Lock()
	defer t.mu.Unlock()

	coin := fill.Pair.Base
	fillSide := sideToPositionSide(fill.Side)

	existing, ok := t.positions[coin]
	if !ok || existing.Size.IsZero() {
		t.positions[coin] = &market.Position{
			Pair:       fill.Pair,
			Side:       fillSide,
			Size:       fill.Size,
			EntryPrice: fill.Price,
		}
		return
	}

	if existing.Side == fillSide {
		totalCost := existing.EntryPrice.Mul(existing.Size).Add(fill.Price.Mul(fill.Size))
		existing.Size = existing.Size.Add(fill.Size)
		existing.EntryPrice = totalCost.Div(existing.Size)
		return
	}

	// Opposite side: realize PnL on the portion being closed.
	closedSize := xdecimal.Min(fill.Size, existing.Size)
	realized := fill.Price.Sub(existing.EntryPrice).Mul(closedSize)
	if existing.Side == market.PositionSideShort {
		realized = realized.Neg()
	}
	t.account.TotalRealizedPnL = t.account.TotalRealizedPnL.Add(realized)

	switch {
	case fill.Size.LessThan(existing.Size):
		existing.Size = existing.Size.Sub(fill.Size)
	case fill.Size.Equal(existing.Size):
		delete(t.positions, coin)
	default:
		residual := fill.Size.Sub(existing.Size)
		t.positions[coin] = &market.Position{
			Pair:       fill.Pair,
			Side:       fillSide,
			Size:       residual,
			EntryPrice: fill.Price,
		}
	}
}

func sideToPositionSide(s market.Side) market.PositionSide {
	if s == market.SideBuy {
		return market.PositionSideLong
	}
	return market.PositionSideShort
}

// UpdateMarkPrices recomputes every tracked position's unrealized PnL from
// the latest marks, keyed by coin.
func (t *Tracker) UpdateMarkPrices(marks map[string]xdecimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for coin, pos := range t.positions {
		if mark, ok := marks[coin]; ok {
			pos.RecomputeUnrealizedPnL(mark)
		}
	}
}

// GetPosition returns a copy of the tracked position for coin, if any.
func (t *Tracker) GetPosition(coin string) (market.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.positions[coin]
	if !ok {
		return market.Position{}, false
	}
	return *p, true
}

// GetAllPositions returns a copy of every tracked position.
func (t *Tracker) GetAllPositions() []market.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]market.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	return out
}

// Account returns a copy of the current account snapshot.
func (t *Tracker) Account() market.Account {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.account
}
