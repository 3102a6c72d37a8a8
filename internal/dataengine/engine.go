// Package dataengine normalizes a connector's raw WebSocket streams into
// the engine's unified market types, writes them through the Cache, and
// republishes onto the bus. Grounded on the teacher's maker.Run select loop
// (internal/strategy/maker.go) that drained WSTradeEvent/WSOrderEvent
// channels directly; here that draining is pulled out into its own
// component so multiple consumers (order manager, strategies, dashboard)
// can all read from the Cache/bus instead of a single strategy owning the
// channel.
package dataengine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/0xtitan6/quantis/internal/bus"
	"github.com/0xtitan6/quantis/internal/hyperliquid"
	"github.com/0xtitan6/quantis/pkg/exchange"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// Stats is the running counters exposed by the engine.
type Stats struct {
	QuotesProcessed  int64
	CandlesProcessed int64
}

// Engine drains a WSFeed's typed channels, normalizes each event, and
// writes it through the Cache (optionally re-publishing onto the bus).
type Engine struct {
	feed   *hyperliquid.WSFeed
	cache  *bus.Cache
	bus    *bus.MessageBus
	mapper exchange.SymbolMapper
	logger *slog.Logger

	quotesProcessed  atomic.Int64
	candlesProcessed atomic.Int64
}

// New builds a data engine draining feed into cache.
func New(feed *hyperliquid.WSFeed, cache *bus.Cache, mb *bus.MessageBus, logger *slog.Logger) *Engine {
	return &Engine{
		feed:   feed,
		cache:  cache,
		bus:    mb,
		logger: logger.With("component", "data_engine"),
	}
}

// Run drains feed's channels until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-e.feed.AllMidsEvents():
			if !ok {
				return
			}
			e.handleAllMids(evt)

		case evt, ok := <-e.feed.L2BookEvents():
			if !ok {
				return
			}
			e.handleL2Book(evt)

		case trades, ok := <-e.feed.TradeEvents():
			if !ok {
				return
			}
			e.handleTrades(trades)
		}
	}
}

func (e *Engine) handleAllMids(evt hyperliquid.WSAllMidsData) {
	for coin, midStr := range evt.Mids {
		mid, err := xdecimal.ParseString(midStr)
		if err != nil {
			e.logger.Warn("parse mid price", "coin", coin, "error", err)
			continue
		}
		pair := e.mapper.FromHyperliquid(coin)
		ticker := market.Ticker{Pair: pair, Bid: mid, Ask: mid, Last: mid, Timestamp: timeutil.Now()}
		e.cache.UpdateTicker(ticker)
		e.quotesProcessed.Add(1)
	}
}

func (e *Engine) handleL2Book(evt hyperliquid.WSL2BookData) {
	pair := e.mapper.FromHyperliquid(evt.Coin)

	var bid, ask xdecimal.Decimal
	if len(evt.Levels) == 2 {
		if len(evt.Levels[0]) > 0 {
			bid, _ = xdecimal.ParseString(evt.Levels[0][0].Px)
		}
		if len(evt.Levels[1]) > 0 {
			ask, _ = xdecimal.ParseString(evt.Levels[1][0].Px)
		}
	}

	ticker := market.Ticker{Pair: pair, Bid: bid, Ask: ask, Timestamp: timeutil.Now()}
	e.cache.UpdateTicker(ticker)
	e.quotesProcessed.Add(1)
}

func (e *Engine) handleTrades(trades []hyperliquid.WSTradeWire) {
	for _, tr := range trades {
		pair := e.mapper.FromHyperliquid(tr.Coin)
		px, errPx := xdecimal.ParseString(tr.Px)
		sz, errSz := xdecimal.ParseString(tr.Sz)
		if errPx != nil || errSz != nil {
			continue
		}
		if e.bus != nil {
			e.bus.Publish("market_data.trade", market.Ticker{Pair: pair, Last: px, Timestamp: timeutil.Now()})
		}
		_ = sz
		e.quotesProcessed.Add(1)
	}
}

// StatsSnapshot returns the current counters.
func (e *Engine) StatsSnapshot() Stats {
	return Stats{
		QuotesProcessed:  e.quotesProcessed.Load(),
		CandlesProcessed: e.candlesProcessed.Load(),
	}
}
