package dataengine

import (
	"testing"

	"github.com/0xtitan6/quantis/internal/bus"
	"github.com/0xtitan6/quantis/internal/hyperliquid"
	"github.com/0xtitan6/quantis/pkg/market"
)

func testEngine() *Engine {
	c := bus.NewCache(nil, false)
	return &Engine{cache: c}
}

func TestHandleAllMidsUpdatesCache(t *testing.T) {
	t.Parallel()
	e := testEngine()
	e.handleAllMids(hyperliquid.WSAllMidsData{Mids: map[string]string{"BTC": "65000.5"}})

	ticker, ok := e.cache.Ticker(market.NewTradingPair("BTC", "USDC"))
	if !ok {
		t.Fatal("expected ticker in cache")
	}
	if ticker.Bid.String() != "65000.5" {
		t.Fatalf("expected bid 65000.5, got %s", ticker.Bid)
	}
	if e.StatsSnapshot().QuotesProcessed != 1 {
		t.Fatalf("expected 1 quote processed, got %d", e.StatsSnapshot().QuotesProcessed)
	}
}

func TestHandleL2BookUsesTopOfBookLevels(t *testing.T) {
	t.Parallel()
	e := testEngine()
	e.handleL2Book(hyperliquid.WSL2BookData{
		Coin: "ETH",
		Levels: [][]hyperliquid.L2LevelWire{
			{{Px: "3000", Sz: "1", N: 1}},
			{{Px: "3001", Sz: "2", N: 1}},
		},
	})

	ticker, ok := e.cache.Ticker(market.NewTradingPair("ETH", "USDC"))
	if !ok {
		t.Fatal("expected ticker in cache")
	}
	if ticker.Bid.String() != "3000" || ticker.Ask.String() != "3001" {
		t.Fatalf("unexpected ticker: %+v", ticker)
	}
}
