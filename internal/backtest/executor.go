package backtest

import (
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

var one = xdecimal.NewFromInt(1)

// OrderExecutor turns a signal into a Fill by applying slippage and
// commission to a candle's close price. Slippage is applied exactly once,
// here: strategies only ever see unadjusted close prices.
type OrderExecutor struct {
	SlippagePct    xdecimal.Decimal
	CommissionRate xdecimal.Decimal
}

// Fill synthesizes a Fill for side/size against closePrice at ts.
//   - fill_price = close * (1 + slippage) for buys, close * (1 - slippage) for sells.
//   - commission = fill_price * size * commission_rate.
func (e OrderExecutor) Fill(pair market.TradingPair, side market.Side, size, closePrice xdecimal.Decimal, ts timeutil.Timestamp) market.Fill {
	var multiplier xdecimal.Decimal
	if side == market.SideBuy {
		multiplier = one.Add(e.SlippagePct)
	} else {
		multiplier = one.Sub(e.SlippagePct)
	}
	fillPrice := closePrice.Mul(multiplier)
	commission := fillPrice.Mul(size).Mul(e.CommissionRate)

	return market.Fill{
		Pair:       pair,
		Side:       side,
		Price:      fillPrice,
		Size:       size,
		Commission: commission,
		Timestamp:  ts,
	}
}
