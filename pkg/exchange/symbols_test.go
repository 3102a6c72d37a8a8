package exchange

import (
	"errors"
	"testing"

	"github.com/0xtitan6/quantis/internal/errs"
	"github.com/0xtitan6/quantis/pkg/market"
)

func TestSymbolMapperRoundTrip(t *testing.T) {
	t.Parallel()

	var m SymbolMapper
	pair := market.NewTradingPair("BTC", "USDC")

	coin, err := m.ToHyperliquid(pair)
	if err != nil {
		t.Fatalf("ToHyperliquid: %v", err)
	}
	got := m.FromHyperliquid(coin)
	if !got.Equal(pair) {
		t.Fatalf("round trip mismatch: got %v want %v", got, pair)
	}
}

func TestSymbolMapperRejectsNonUSDCQuote(t *testing.T) {
	t.Parallel()

	var m SymbolMapper
	_, err := m.ToHyperliquid(market.NewTradingPair("BTC", "USDT"))
	if err == nil {
		t.Fatal("expected an error for non-USDC quote")
	}
	if !errors.Is(err, errs.ErrUnsupportedQuoteCurrency) {
		t.Fatalf("expected ErrUnsupportedQuoteCurrency, got %v", err)
	}
}
