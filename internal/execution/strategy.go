package execution

import (
	"context"

	"github.com/0xtitan6/quantis/pkg/market"
)

// Tick is what a strategy sees each time it is consulted: the coin's
// latest quote plus its current position (zero value if flat).
type Tick struct {
	Pair     market.TradingPair
	Ticker   market.Ticker
	Position market.Position
}

// Strategy is the plug-in point between market data and order intents.
// It is deliberately minimal — the engine ships the gatekeeper
// (pre-trade checks, order routing, event publication) and lets any
// quoting/signal body decide what to do with a Tick. Grounded on the
// teacher's strategy.Maker (per-market struct holding book/inventory/
// risk manager references, invoked once per refresh interval), but
// narrowed to the interaction contract only — computing bid/ask from
// gamma/sigma/k/t is strategy-specific and lives outside this package.
type Strategy interface {
	// Decide is called once per Tick and returns zero or more order
	// requests to submit via Engine.SubmitIntent. A nil/empty return
	// means no action this tick.
	Decide(ctx context.Context, tick Tick) []market.OrderRequest
}

// Run drives strategy with ticks read from ticks until ctx is cancelled
// or the channel closes, submitting every returned OrderRequest through
// the gatekeeper.
func (e *Engine) Run(ctx context.Context, strategy Strategy, ticks <-chan Tick) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			for _, req := range strategy.Decide(ctx, tick) {
				if _, err := e.SubmitIntent(ctx, req); err != nil {
					e.logger.Warn("strategy intent rejected", "pair", tick.Pair.Symbol(), "error", err)
				}
			}
		}
	}
}
