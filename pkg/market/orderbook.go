package market

import (
	"sort"
	"sync"

	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// OrderBook is a single instrument's local mirror of the venue's ladder,
// one writer (the dispatch thread) by convention with many concurrent
// readers. Bids are sorted descending by price, asks ascending, so the top
// of each slice is always the best price.
type OrderBook struct {
	mu sync.RWMutex

	pair      TradingPair
	bids      []OrderBookLevel
	asks      []OrderBookLevel
	updatedAt timeutil.Timestamp
}

// NewOrderBook creates an empty book for pair.
func NewOrderBook(pair TradingPair) *OrderBook {
	return &OrderBook{pair: pair}
}

func (b *OrderBook) Pair() TradingPair { return b.pair }

// ApplySnapshot replaces both ladders atomically from the reader's
// perspective. An update older than the book's current timestamp is
// discarded — no rewinding.
func (b *OrderBook) ApplySnapshot(bids, asks []OrderBookLevel, ts timeutil.Timestamp) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.updatedAt.IsZero() && ts.Before(b.updatedAt) {
		return
	}

	sortedBids := append([]OrderBookLevel(nil), bids...)
	sort.SliceStable(sortedBids, func(i, j int) bool {
		return sortedBids[i].Price.GreaterThan(sortedBids[j].Price)
	})
	sortedAsks := append([]OrderBookLevel(nil), asks...)
	sort.SliceStable(sortedAsks, func(i, j int) bool {
		return sortedAsks[i].Price.LessThan(sortedAsks[j].Price)
	})

	b.bids = sortedBids
	b.asks = sortedAsks
	b.updatedAt = ts
}

// BookSide selects which ladder a delta applies to.
type BookSide int

const (
	BookSideBid BookSide = iota
	BookSideAsk
)

// ApplyDelta upserts a single level; a zero-size level removes that price.
// An update whose timestamp is strictly behind the book's current
// timestamp is discarded.
func (b *OrderBook) ApplyDelta(side BookSide, level OrderBookLevel, ts timeutil.Timestamp) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.updatedAt.IsZero() && ts.Before(b.updatedAt) {
		return
	}
	b.updatedAt = ts

	var ladder *[]OrderBookLevel
	var less func(a, c xdecimal.Decimal) bool
	if side == BookSideBid {
		ladder = &b.bids
		less = func(a, c xdecimal.Decimal) bool { return a.GreaterThan(c) } // descending
	} else {
		ladder = &b.asks
		less = func(a, c xdecimal.Decimal) bool { return a.LessThan(c) } // ascending
	}

	levels := *ladder
	idx := sort.Search(len(levels), func(i int) bool {
		return !less(levels[i].Price, level.Price)
	})
	found := idx < len(levels) && levels[idx].Price.Equal(level.Price)

	if level.Size.IsZero() {
		if found {
			*ladder = append(levels[:idx], levels[idx+1:]...)
		}
		return
	}

	if found {
		levels[idx] = level
		return
	}

	// insert at idx, preserving sort order
	levels = append(levels, OrderBookLevel{})
	copy(levels[idx+1:], levels[idx:])
	levels[idx] = level
	*ladder = levels
}

// BestBid returns the top-of-book bid level. ok is false when the book has
// no bids.
func (b *OrderBook) BestBid() (level OrderBookLevel, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 {
		return OrderBookLevel{}, false
	}
	return b.bids[0], true
}

func (b *OrderBook) BestAsk() (level OrderBookLevel, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.asks) == 0 {
		return OrderBookLevel{}, false
	}
	return b.asks[0], true
}

// MidPrice returns (best_bid + best_ask) / 2. ok is false if either side is
// empty.
func (b *OrderBook) MidPrice() (xdecimal.Decimal, bool) {
	bid, bok := b.BestBid()
	ask, aok := b.BestAsk()
	if !bok || !aok {
		return xdecimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(xdecimal.NewFromInt(2)), true
}

// Spread returns best_ask - best_bid. ok is false if either side is empty.
func (b *OrderBook) Spread() (xdecimal.Decimal, bool) {
	bid, bok := b.BestBid()
	ask, aok := b.BestAsk()
	if !bok || !aok {
		return xdecimal.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}

// Bids returns a defensive copy of the bid ladder, best-first.
func (b *OrderBook) Bids() []OrderBookLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]OrderBookLevel(nil), b.bids...)
}

// Asks returns a defensive copy of the ask ladder, best-first.
func (b *OrderBook) Asks() []OrderBookLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]OrderBookLevel(nil), b.asks...)
}

func (b *OrderBook) UpdatedAt() timeutil.Timestamp {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updatedAt
}

// IsCrossed reports a violation of the best_bid < best_ask invariant; used
// defensively in tests and by connectors sanity-checking venue data.
func (b *OrderBook) IsCrossed() bool {
	bid, bok := b.BestBid()
	ask, aok := b.BestAsk()
	if !bok || !aok {
		return false
	}
	return !bid.Price.LessThan(ask.Price)
}
