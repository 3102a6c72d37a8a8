package bus

import (
	"sync"

	"github.com/0xtitan6/quantis/pkg/market"
)

// Cache is the latest-value store for market data: one Ticker and one
// partial (in-progress) candle per instrument. Writers replace a symbol's
// entry atomically under a single mutex; readers get a consistent copy.
// Optional bus re-publication is gated by enableNotifications.
type Cache struct {
	mu      sync.RWMutex
	tickers map[string]market.Ticker
	candles map[string]market.Candle

	bus                 *MessageBus
	enableNotifications bool
}

// NewCache builds a cache. If bus is non-nil and notify is true, every
// UpdateTicker/UpdateCandle call also publishes onto the bus under
// "market_data.quote"/"market_data.candle".
func NewCache(bus *MessageBus, notify bool) *Cache {
	return &Cache{
		tickers:             make(map[string]market.Ticker),
		candles:             make(map[string]market.Candle),
		bus:                 bus,
		enableNotifications: notify && bus != nil,
	}
}

// UpdateTicker replaces the cached ticker for its pair.
func (c *Cache) UpdateTicker(t market.Ticker) {
	key := t.Pair.Symbol()
	c.mu.Lock()
	c.tickers[key] = t
	c.mu.Unlock()

	if c.enableNotifications {
		c.bus.Publish("market_data.quote", t)
	}
}

// Ticker returns the latest cached ticker for pair, if any.
func (c *Cache) Ticker(pair market.TradingPair) (market.Ticker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tickers[pair.Symbol()]
	return t, ok
}

// UpdateCandle replaces the cached in-progress candle for its pair.
func (c *Cache) UpdateCandle(cdl market.Candle) {
	key := cdl.Pair.Symbol()
	c.mu.Lock()
	c.candles[key] = cdl
	c.mu.Unlock()

	if c.enableNotifications {
		c.bus.Publish("market_data.candle", cdl)
	}
}

// Candle returns the latest cached partial candle for pair, if any.
func (c *Cache) Candle(pair market.TradingPair) (market.Candle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cdl, ok := c.candles[pair.Symbol()]
	return cdl, ok
}
