package bus

import (
	"testing"

	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

func TestPublishMatchesExactTopic(t *testing.T) {
	t.Parallel()
	b := NewMessageBus(nil)
	var got interface{}
	b.Subscribe("order.filled", func(topic string, event interface{}) { got = event })

	b.Publish("order.filled", "payload")
	if got != "payload" {
		t.Fatalf("expected handler invoked, got %v", got)
	}
}

func TestPublishTailWildcardMatchesSingleSegment(t *testing.T) {
	t.Parallel()
	b := NewMessageBus(nil)
	count := 0
	b.Subscribe("market_data.*", func(topic string, event interface{}) { count++ })

	b.Publish("market_data.quote", nil)
	b.Publish("market_data.candle", nil)
	b.Publish("market_data.quote.btc", nil) // extra segment: must not match

	if count != 2 {
		t.Fatalf("expected 2 matches, got %d", count)
	}
}

func TestPublishDoesNotPropagateHandlerPanic(t *testing.T) {
	t.Parallel()
	b := NewMessageBus(nil)
	called := false
	b.Subscribe("system.tick", func(topic string, event interface{}) { panic("boom") })
	b.Subscribe("system.tick", func(topic string, event interface{}) { called = true })

	b.Publish("system.tick", nil)
	if !called {
		t.Fatal("expected second handler to still run after first panicked")
	}
}

func TestCacheUpdateTickerAndRepublish(t *testing.T) {
	t.Parallel()
	b := NewMessageBus(nil)
	var published market.Ticker
	b.Subscribe("market_data.quote", func(topic string, event interface{}) {
		published = event.(market.Ticker)
	})

	c := NewCache(b, true)
	pair := market.NewTradingPair("BTC", "USDC")
	ticker := market.Ticker{Pair: pair, Bid: xdecimal.MustParse("100"), Ask: xdecimal.MustParse("101")}
	c.UpdateTicker(ticker)

	got, ok := c.Ticker(pair)
	if !ok || got.Bid.String() != "100" {
		t.Fatalf("expected cached ticker, got %+v ok=%v", got, ok)
	}
	if published.Ask.String() != "101" {
		t.Fatalf("expected republished ticker, got %+v", published)
	}
}
