package exchange

import (
	"github.com/0xtitan6/quantis/internal/errs"
	"github.com/0xtitan6/quantis/pkg/market"
)

// SymbolMapper converts between the unified TradingPair and venue-native
// symbol strings. Hyperliquid identifies a perpetual by its base asset's
// "coin" string alone, assuming USDC collateral; other venue conventions
// are provided so future connectors can reuse the same mapper shape.
type SymbolMapper struct{}

// ToHyperliquid returns the coin string Hyperliquid uses to identify pair's
// perpetual market. Only USDC-quoted pairs are supported.
func (SymbolMapper) ToHyperliquid(pair market.TradingPair) (string, error) {
	if pair.Quote != "USDC" {
		return "", errs.ErrUnsupportedQuoteCurrency
	}
	return pair.Base, nil
}

// FromHyperliquid is the inverse of ToHyperliquid.
func (SymbolMapper) FromHyperliquid(coin string) market.TradingPair {
	return market.NewTradingPair(coin, "USDC")
}

// ToBinance concatenates base and quote with no separator (e.g. "BTCUSDT").
func (SymbolMapper) ToBinance(pair market.TradingPair) string {
	return pair.Base + pair.Quote
}

// ToOKX hyphenates base and quote (e.g. "BTC-USDT").
func (SymbolMapper) ToOKX(pair market.TradingPair) string {
	return pair.Base + "-" + pair.Quote
}
