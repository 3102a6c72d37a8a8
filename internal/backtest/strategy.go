package backtest

import (
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// EntrySignal is a strategy's instruction to open a position.
type EntrySignal struct {
	Side market.Side
	Size xdecimal.Decimal
}

// Strategy is the plug-in point the backtest and paper engines share. A
// strategy never sees a slippage-adjusted price: its candle history is the
// unadjusted close series, and its decision at index i may only depend on
// candles[0..i] — the engine never hands it a later index.
type Strategy interface {
	// Entry is consulted when no position is open. A nil return means no
	// trade this candle.
	Entry(history []market.Candle) *EntrySignal

	// Exit is consulted when a position is open. A true return closes the
	// full position at the current candle's close (adjusted by the executor).
	Exit(history []market.Candle, pos market.Position) bool
}
