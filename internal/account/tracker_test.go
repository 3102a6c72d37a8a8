package account

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xtitan6/quantis/pkg/exchange"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

func testTracker() *Tracker {
	return NewTracker(exchange.Handle{})
}

func btcFill(side market.Side, price, size string) market.Fill {
	return market.Fill{
		Pair:  market.NewTradingPair("BTC", "USDC"),
		Side:  side,
		Price: xdecimal.MustParse(price),
		Size:  xdecimal.MustParse(size),
	}
}

func TestApplyFillOpensPosition(t *testing.T) {
	t.Parallel()
	tr := testTracker()
	tr.ApplyFill(btcFill(market.SideBuy, "100", "1"))

	pos, ok := tr.GetPosition("BTC")
	if !ok {
		t.Fatal("expected position to exist")
	}
	if pos.Side != market.PositionSideLong || pos.Size.String() != "1" || pos.EntryPrice.String() != "100" {
		t.Fatalf("unexpected position: %+v", pos)
	}
}

func TestApplyFillGrowsSameSideWithWeightedEntry(t *testing.T) {
	t.Parallel()
	tr := testTracker()
	tr.ApplyFill(btcFill(market.SideBuy, "100", "1"))
	tr.ApplyFill(btcFill(market.SideBuy, "110", "1"))

	pos, _ := tr.GetPosition("BTC")
	if pos.Size.String() != "2" {
		t.Fatalf("expected size 2, got %s", pos.Size)
	}
	if pos.EntryPrice.String() != "105" {
		t.Fatalf("expected weighted entry 105, got %s", pos.EntryPrice)
	}
}

func TestApplyFillReducesAndRealizesPnL(t *testing.T) {
	t.Parallel()
	tr := testTracker()
	tr.ApplyFill(btcFill(market.SideBuy, "100", "2"))
	tr.ApplyFill(btcFill(market.SideSell, "110", "1"))

	pos, ok := tr.GetPosition("BTC")
	if !ok {
		t.Fatal("expected residual position")
	}
	if pos.Size.String() != "1" {
		t.Fatalf("expected residual size 1, got %s", pos.Size)
	}
	if tr.Account().TotalRealizedPnL.String() != "10" {
		t.Fatalf("expected realized pnl 10, got %s", tr.Account().TotalRealizedPnL)
	}
}

func TestApplyFillClosesPositionExactly(t *testing.T) {
	t.Parallel()
	tr := testTracker()
	tr.ApplyFill(btcFill(market.SideBuy, "100", "1"))
	tr.ApplyFill(btcFill(market.SideSell, "120", "1"))

	if _, ok := tr.GetPosition("BTC"); ok {
		t.Fatal("expected position to be closed")
	}
	if tr.Account().TotalRealizedPnL.String() != "20" {
		t.Fatalf("expected realized pnl 20, got %s", tr.Account().TotalRealizedPnL)
	}
}

// TestApplyFillFlipsPosition covers the flip scenario: buying through a
// short closes it (realizing PnL) and opens a new long for the residual
// at the fill price.
func TestApplyFillFlipsPosition(t *testing.T) {
	t.Parallel()
	tr := testTracker()
	tr.ApplyFill(btcFill(market.SideSell, "100", "1")) // open short 1 @ 100
	tr.ApplyFill(btcFill(market.SideBuy, "90", "3"))    // close short (+10 realized), open long 2 @ 90

	pos, ok := tr.GetPosition("BTC")
	require.True(t, ok, "expected flipped position to exist")
	require.Equal(t, market.PositionSideLong, pos.Side, "expected flipped position to be long")
	require.Equal(t, "2", pos.Size.String(), "expected residual size 2")
	require.Equal(t, "90", pos.EntryPrice.String(), "expected flipped entry price 90")
	require.Equal(t, "10", tr.Account().TotalRealizedPnL.String(), "expected realized pnl 10 from the closed short")
}

func TestUpdateMarkPricesRecomputesUnrealized(t *testing.T) {
	t.Parallel()
	tr := testTracker()
	tr.ApplyFill(btcFill(market.SideBuy, "100", "2"))

	tr.UpdateMarkPrices(map[string]xdecimal.Decimal{"BTC": xdecimal.MustParse("110")})

	pos, _ := tr.GetPosition("BTC")
	if pos.UnrealizedPnL.String() != "20" {
		t.Fatalf("expected unrealized pnl 20, got %s", pos.UnrealizedPnL)
	}
}
