package backtest

import (
	"math"

	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// Trade is one closed round-trip: an entry fill paired with the exit fill
// that flattened it.
type Trade struct {
	Pair       market.TradingPair
	Side       market.Side // direction of the entry
	EntryPrice xdecimal.Decimal
	ExitPrice  xdecimal.Decimal
	Size       xdecimal.Decimal
	PnL        xdecimal.Decimal // net of both legs' commission
	Commission xdecimal.Decimal
	EntryTime  timeutil.Timestamp
	ExitTime   timeutil.Timestamp
}

// EquityPoint is one sample of the running equity = cash + unrealized PnL.
type EquityPoint struct {
	Timestamp timeutil.Timestamp
	Equity    xdecimal.Decimal
}

// Metrics is the set of derived performance statistics a BacktestResult
// reports. Ratio/statistical fields use float64 since they're dimensionless
// and the underlying calculations (stdev, sqrt) lean on math, not decimal
// arithmetic.
type Metrics struct {
	TotalTrades  int
	WinCount     int
	LossCount    int
	WinRate      float64
	TotalPnL     xdecimal.Decimal // gross, before commission
	NetPnL       xdecimal.Decimal // after commission (sum of Trade.PnL)
	ProfitFactor float64
	AvgWin       xdecimal.Decimal
	AvgLoss      xdecimal.Decimal
	MaxDrawdown  float64 // fraction, e.g. 0.23 = 23% peak-to-trough
	Sharpe       float64
	Sortino      float64
	Calmar       float64
	Expectancy   xdecimal.Decimal
}

func computeMetrics(trades []Trade, equity []EquityPoint) Metrics {
	var m Metrics
	m.TotalTrades = len(trades)

	var grossPnL, netPnL, sumWin, sumLoss xdecimal.Decimal
	for _, t := range trades {
		gross := t.PnL.Add(t.Commission)
		grossPnL = grossPnL.Add(gross)
		netPnL = netPnL.Add(t.PnL)
		if t.PnL.IsPos() {
			m.WinCount++
			sumWin = sumWin.Add(t.PnL)
		} else if t.PnL.IsNeg() {
			m.LossCount++
			sumLoss = sumLoss.Add(t.PnL)
		}
	}
	m.TotalPnL = grossPnL
	m.NetPnL = netPnL

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinCount) / float64(m.TotalTrades)
		m.Expectancy = netPnL.Div(xdecimal.NewFromInt(int64(m.TotalTrades)))
	}
	if m.WinCount > 0 {
		m.AvgWin = sumWin.Div(xdecimal.NewFromInt(int64(m.WinCount)))
	}
	if m.LossCount > 0 {
		m.AvgLoss = sumLoss.Div(xdecimal.NewFromInt(int64(m.LossCount)))
	}
	if !sumLoss.IsZero() {
		m.ProfitFactor = sumWin.Div(sumLoss.Abs()).Float64()
	}

	m.MaxDrawdown = maxDrawdown(equity)

	returns := dailyReturns(equity)
	m.Sharpe = sharpeRatio(returns)
	m.Sortino = sortinoRatio(returns)
	m.Calmar = calmarRatio(equity, m.MaxDrawdown)

	return m
}

// maxDrawdown walks the equity curve tracking the running peak from index
// 0 (a documented off-by-one pitfall: an implementation that instead starts
// peak-tracking at index 1 silently ignores any drawdown relative to the
// very first equity sample).
func maxDrawdown(equity []EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0].Equity
	maxDD := 0.0
	for _, p := range equity {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		if peak.IsZero() {
			continue
		}
		dd := peak.Sub(p.Equity).Div(peak).Float64()
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// dailyReturns derives simple period-over-period returns from the equity
// curve; each equity sample is treated as one period (one candle).
func dailyReturns(equity []EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity.Float64()
		if prev == 0 {
			continue
		}
		cur := equity[i].Equity.Float64()
		returns = append(returns, (cur-prev)/prev)
	}
	return returns
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64, mu float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - mu
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// sharpeRatio annualizes mean/stdev of returns with risk-free = 0 and a
// 365-period year.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mu := mean(returns)
	sd := stdDev(returns, mu)
	if sd == 0 {
		return 0
	}
	return (mu / sd) * math.Sqrt(365)
}

// sortinoRatio is Sharpe with the denominator restricted to downside
// deviation (stdev of negative returns only).
func sortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mu := mean(returns)
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}
	dsd := stdDev(downside, 0)
	if dsd == 0 {
		return 0
	}
	return (mu / dsd) * math.Sqrt(365)
}

// calmarRatio is annualized return over max drawdown.
func calmarRatio(equity []EquityPoint, maxDD float64) float64 {
	if len(equity) < 2 || maxDD == 0 {
		return 0
	}
	start := equity[0].Equity.Float64()
	end := equity[len(equity)-1].Equity.Float64()
	if start == 0 {
		return 0
	}
	totalReturn := (end - start) / start
	periods := float64(len(equity))
	annualized := totalReturn * (365 / periods)
	return annualized / maxDD
}
