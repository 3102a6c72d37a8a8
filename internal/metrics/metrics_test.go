package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOrderIncrementsCounter(t *testing.T) {
	OrdersTotal.Reset()
	RecordOrder("BTC", "buy", "filled")
	RecordOrder("BTC", "buy", "filled")

	got := testutil.ToFloat64(OrdersTotal.WithLabelValues("BTC", "buy", "filled"))
	if got != 2 {
		t.Errorf("OrdersTotal = %v, want 2", got)
	}
}

func TestSetEquityUpdatesGauge(t *testing.T) {
	SetEquity(1234.5)
	if got := testutil.ToFloat64(EquityUSD); got != 1234.5 {
		t.Errorf("EquityUSD = %v, want 1234.5", got)
	}
}

func TestSetUnrealizedPnLPerCoin(t *testing.T) {
	UnrealizedPnLUSD.Reset()
	SetUnrealizedPnL("ETH", -42)
	if got := testutil.ToFloat64(UnrealizedPnLUSD.WithLabelValues("ETH")); got != -42 {
		t.Errorf("UnrealizedPnLUSD[ETH] = %v, want -42", got)
	}
}
