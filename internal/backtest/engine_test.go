package backtest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func candle(closePx string, ts time.Time) market.Candle {
	return market.Candle{
		Pair:      market.NewTradingPair("BTC", "USDC"),
		Close:     xdecimal.MustParse(closePx),
		Timestamp: timeutil.FromTime(ts),
	}
}

// buyOnceStrategy enters long on the first candle it sees and exits after
// holdFor candles.
type buyOnceStrategy struct {
	holdFor int
	entered bool
}

func (s *buyOnceStrategy) Entry(history []market.Candle) *EntrySignal {
	if s.entered {
		return nil
	}
	s.entered = true
	return &EntrySignal{Side: market.SideBuy, Size: xdecimal.MustParse("1")}
}

func (s *buyOnceStrategy) Exit(history []market.Candle, pos market.Position) bool {
	return len(history) >= s.holdFor
}

func TestRunAppliesSlippageAndCommissionOnce(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []market.Candle{
		candle("100", base),
		candle("110", base.Add(time.Minute)),
		candle("110", base.Add(2*time.Minute)),
	}

	cfg := Config{
		Pair:           market.NewTradingPair("BTC", "USDC"),
		InitialCash:    xdecimal.MustParse("1000"),
		SlippagePct:    xdecimal.MustParse("0.01"),
		CommissionRate: xdecimal.MustParse("0.001"),
	}
	e := New(cfg, &buyOnceStrategy{holdFor: 2}, testLogger())
	result := e.Run(context.Background(), candles)

	require.Len(t, result.Trades, 1, "expected 1 trade")
	trade := result.Trades[0]

	wantEntry := xdecimal.MustParse("101") // 100 * 1.01
	assert.True(t, trade.EntryPrice.Equal(wantEntry), "entry price = %s, want %s", trade.EntryPrice, wantEntry)
	wantExit := xdecimal.MustParse("108.9") // 110 * 0.99
	assert.True(t, trade.ExitPrice.Equal(wantExit), "exit price = %s, want %s", trade.ExitPrice, wantExit)
	assert.False(t, trade.Commission.IsZero(), "expected nonzero total commission across both legs")
}

func TestRunForceClosesOpenPositionAtEnd(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []market.Candle{
		candle("100", base),
		candle("120", base.Add(time.Minute)),
	}

	cfg := Config{
		Pair:        market.NewTradingPair("BTC", "USDC"),
		InitialCash: xdecimal.MustParse("1000"),
	}
	// holdFor is large enough that Exit never fires on its own.
	e := New(cfg, &buyOnceStrategy{holdFor: 99}, testLogger())
	result := e.Run(context.Background(), candles)

	require.Len(t, result.Trades, 1, "expected the open position to be force-closed into 1 trade")
	assert.True(t, result.Trades[0].ExitPrice.Equal(xdecimal.MustParse("120")),
		"force-close exit price = %s, want 120", result.Trades[0].ExitPrice)
}

func TestRunEquityCurveTracksMarkToMarket(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []market.Candle{
		candle("100", base),
		candle("150", base.Add(time.Minute)),
	}

	cfg := Config{
		Pair:        market.NewTradingPair("BTC", "USDC"),
		InitialCash: xdecimal.MustParse("1000"),
	}
	e := New(cfg, &buyOnceStrategy{holdFor: 99}, testLogger())
	result := e.Run(context.Background(), candles)

	if len(result.EquityCurve) < 2 {
		t.Fatalf("expected at least 2 equity points, got %d", len(result.EquityCurve))
	}
	// Second sample should reflect the unrealized gain on the open position
	// before force-close: cash (900) + unrealized (50) = 950.
	if !result.EquityCurve[1].Equity.Equal(xdecimal.MustParse("950")) {
		t.Errorf("equity[1] = %s, want 950", result.EquityCurve[1].Equity)
	}
}

func TestComputeMetricsWinLossSplit(t *testing.T) {
	t.Parallel()
	ts := timeutil.FromTime(time.Now())
	trades := []Trade{
		{PnL: xdecimal.MustParse("10"), Commission: xdecimal.MustParse("1")},
		{PnL: xdecimal.MustParse("-5"), Commission: xdecimal.MustParse("1")},
	}
	equity := []EquityPoint{
		{Timestamp: ts, Equity: xdecimal.MustParse("1000")},
		{Timestamp: ts, Equity: xdecimal.MustParse("1010")},
		{Timestamp: ts, Equity: xdecimal.MustParse("1005")},
	}
	m := computeMetrics(trades, equity)

	if m.WinCount != 1 || m.LossCount != 1 {
		t.Fatalf("win/loss = %d/%d, want 1/1", m.WinCount, m.LossCount)
	}
	if !m.NetPnL.Equal(xdecimal.MustParse("5")) {
		t.Errorf("net pnl = %s, want 5", m.NetPnL)
	}
	if m.MaxDrawdown <= 0 {
		t.Error("expected a nonzero max drawdown from the 1010 -> 1005 dip")
	}
}
