// Package backtest implements a deterministic, event-driven historical
// replay of the live order/position contracts. Grounded on the teacher's
// chidi150c-coinbase-idiom walk-forward loop (runBacktest's train/test
// split, periodic progress logging, equity gauge updates), generalized
// from a single fitted micro-model into a pluggable Strategy interface and
// from float64 PnL bookkeeping into the engine's own xdecimal/account
// contracts so a backtest exercises the exact same fill-application code
// path live trading does.
package backtest

import (
	"context"
	"log/slog"

	"github.com/0xtitan6/quantis/internal/account"
	"github.com/0xtitan6/quantis/pkg/exchange"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// Config parameterizes one backtest run.
type Config struct {
	Pair           market.TradingPair
	InitialCash    xdecimal.Decimal
	SlippagePct    xdecimal.Decimal
	CommissionRate xdecimal.Decimal
}

// Result is what a completed (or context-cancelled) run produces.
type Result struct {
	Config      Config
	Trades      []Trade
	EquityCurve []EquityPoint
	Metrics     Metrics
}

// Engine replays candles through a Strategy, applying fills through the
// same account.Tracker used by live trading.
type Engine struct {
	cfg      Config
	strategy Strategy
	executor OrderExecutor
	tracker  *account.Tracker
	logger   *slog.Logger
}

// New builds a backtest engine. The embedded account.Tracker is never
// synced against a venue; it is used purely for its position/PnL
// arithmetic.
func New(cfg Config, strategy Strategy, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		strategy: strategy,
		executor: OrderExecutor{SlippagePct: cfg.SlippagePct, CommissionRate: cfg.CommissionRate},
		tracker:  account.NewTracker(exchange.Handle{}),
		logger:   logger.With("component", "backtest"),
	}
}

// Run replays candles in strict timestamp order. candles must already be
// sorted ascending by Timestamp. ctx cancellation stops the replay early
// and still returns everything accumulated so far, with any open position
// left unflattened.
func (e *Engine) Run(ctx context.Context, candles []market.Candle) *Result {
	var (
		equityCurve []EquityPoint
		trades      []Trade
		openEntry   *Trade
	)
	cash := e.cfg.InitialCash
	coin := e.cfg.Pair.Base

	for i, candle := range candles {
		select {
		case <-ctx.Done():
			e.logger.Info("backtest cancelled", "candles_processed", i)
			return e.result(trades, equityCurve)
		default:
		}

		e.tracker.UpdateMarkPrices(map[string]xdecimal.Decimal{coin: candle.Close})
		pos, hasPos := e.tracker.GetPosition(coin)

		unrealized := xdecimal.Zero
		if hasPos {
			unrealized = pos.UnrealizedPnL
		}
		equityCurve = append(equityCurve, EquityPoint{Timestamp: candle.Timestamp, Equity: cash.Add(unrealized)})

		// Look-ahead prohibition: the strategy only ever sees candles[0..i].
		history := candles[:i+1]

		if hasPos {
			if e.strategy.Exit(history, pos) {
				fill := e.executor.Fill(e.cfg.Pair, closingSide(pos.Side), pos.Size, candle.Close, candle.Timestamp)
				cash = applyFillToCash(cash, fill)
				e.tracker.ApplyFill(fill)
				trades = append(trades, closeTrade(openEntry, fill))
				openEntry = nil
			}
			continue
		}

		sig := e.strategy.Entry(history)
		if sig == nil || !sig.Size.IsPos() {
			continue
		}
		fill := e.executor.Fill(e.cfg.Pair, sig.Side, sig.Size, candle.Close, candle.Timestamp)
		cash = applyFillToCash(cash, fill)
		e.tracker.ApplyFill(fill)
		openEntry = &Trade{
			Pair:       e.cfg.Pair,
			Side:       sig.Side,
			EntryPrice: fill.Price,
			Size:       fill.Size,
			Commission: fill.Commission,
			EntryTime:  fill.Timestamp,
		}
	}

	// Force-close any remaining position at the last candle's close.
	if pos, hasPos := e.tracker.GetPosition(coin); hasPos && len(candles) > 0 {
		last := candles[len(candles)-1]
		fill := e.executor.Fill(e.cfg.Pair, closingSide(pos.Side), pos.Size, last.Close, last.Timestamp)
		cash = applyFillToCash(cash, fill)
		e.tracker.ApplyFill(fill)
		trades = append(trades, closeTrade(openEntry, fill))
		equityCurve = append(equityCurve, EquityPoint{Timestamp: last.Timestamp, Equity: cash})
	}

	return e.result(trades, equityCurve)
}

func (e *Engine) result(trades []Trade, equityCurve []EquityPoint) *Result {
	return &Result{
		Config:      e.cfg,
		Trades:      trades,
		EquityCurve: equityCurve,
		Metrics:     computeMetrics(trades, equityCurve),
	}
}

// closingSide is the order side that flattens an open position: selling
// closes a long, buying closes a short.
func closingSide(side market.PositionSide) market.Side {
	if side == market.PositionSideLong {
		return market.SideSell
	}
	return market.SideBuy
}

func applyFillToCash(cash xdecimal.Decimal, fill market.Fill) xdecimal.Decimal {
	notional := fill.Price.Mul(fill.Size)
	if fill.Side == market.SideBuy {
		return cash.Sub(notional).Sub(fill.Commission)
	}
	return cash.Add(notional).Sub(fill.Commission)
}

func closeTrade(entry *Trade, exit market.Fill) Trade {
	if entry == nil {
		// Defensive: an exit fired without a tracked entry (shouldn't happen
		// given the engine only calls Exit while a position is open).
		return Trade{ExitPrice: exit.Price, ExitTime: exit.Timestamp, Commission: exit.Commission}
	}
	t := *entry
	t.ExitPrice = exit.Price
	t.ExitTime = exit.Timestamp
	t.Commission = t.Commission.Add(exit.Commission)

	var gross xdecimal.Decimal
	if t.Side == market.SideBuy {
		gross = exit.Price.Sub(t.EntryPrice).Mul(t.Size)
	} else {
		gross = t.EntryPrice.Sub(exit.Price).Mul(t.Size)
	}
	t.PnL = gross.Sub(t.Commission)
	return t
}
