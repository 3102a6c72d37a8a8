package hyperliquid

import (
	"testing"

	"github.com/0xtitan6/quantis/internal/errs"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

func TestParseOrderStatusRestingArm(t *testing.T) {
	t.Parallel()

	req := market.OrderRequest{
		Pair:   market.NewTradingPair("BTC", "USDC"),
		Side:   market.SideBuy,
		Type:   market.OrderTypeLimit,
		Amount: xdecimal.MustParse("0.01"),
	}
	status := OrderStatusWire{Resting: &RestingOrderWire{Oid: 12345}}

	order, err := parseOrderStatus(status, req, "cloid-1")
	if err != nil {
		t.Fatalf("parseOrderStatus: %v", err)
	}
	if order.Status != market.OrderStatusOpen {
		t.Fatalf("expected status open, got %s", order.Status)
	}
	if order.ExchangeOrderID != "12345" {
		t.Fatalf("expected exchange order id 12345, got %s", order.ExchangeOrderID)
	}
	if !order.FilledAmount.IsZero() {
		t.Fatalf("expected zero filled amount, got %s", order.FilledAmount)
	}
}

// TestParseOrderStatusFilledArm guards against a historical regression:
// the venue can respond with a "filled" shape instead of "resting" for
// the same order request, and it must be handled, not silently dropped.
func TestParseOrderStatusFilledArm(t *testing.T) {
	t.Parallel()

	req := market.OrderRequest{
		Pair:   market.NewTradingPair("BTC", "USDC"),
		Side:   market.SideBuy,
		Type:   market.OrderTypeMarket,
		Amount: xdecimal.MustParse("0.001"),
	}
	status := OrderStatusWire{Filled: &FilledOrderWire{Oid: 777, TotalSz: "0.001", AvgPx: "88307.0"}}

	order, err := parseOrderStatus(status, req, "cloid-2")
	if err != nil {
		t.Fatalf("parseOrderStatus: %v", err)
	}
	if order.Status != market.OrderStatusFilled {
		t.Fatalf("expected status filled, got %s", order.Status)
	}
	if order.FilledAmount.Float64() != 0.001 {
		t.Fatalf("expected filled amount 0.001, got %s", order.FilledAmount)
	}
	if order.AvgFillPrice == nil || order.AvgFillPrice.Float64() != 88307.0 {
		t.Fatalf("expected avg fill price 88307.0, got %v", order.AvgFillPrice)
	}
}

func TestParseOrderStatusErrorArm(t *testing.T) {
	t.Parallel()

	req := market.OrderRequest{
		Pair:   market.NewTradingPair("BTC", "USDC"),
		Side:   market.SideBuy,
		Type:   market.OrderTypeLimit,
		Amount: xdecimal.MustParse("0.01"),
	}
	status := OrderStatusWire{Error: "insufficient margin"}

	_, err := parseOrderStatus(status, req, "cloid-3")
	if err == nil {
		t.Fatal("expected an error for the error arm")
	}
	rej, ok := errs.IsOrderRejected(err)
	if !ok || rej.Message != "insufficient margin" {
		t.Fatalf("expected OrderRejected{insufficient margin}, got %v", err)
	}
}

func TestBuildOrderWireLimitOrder(t *testing.T) {
	t.Parallel()

	price := xdecimal.MustParse("60000")
	req := market.OrderRequest{
		Pair:        market.NewTradingPair("BTC", "USDC"),
		Side:        market.SideBuy,
		Type:        market.OrderTypeLimit,
		Amount:      xdecimal.MustParse("0.01"),
		Price:       &price,
		TimeInForce: market.TimeInForceGTC,
	}

	wire, err := buildOrderWire(3, req, "cloid-4")
	if err != nil {
		t.Fatalf("buildOrderWire: %v", err)
	}
	if wire.Asset != 3 || !wire.IsBuy || wire.LimitPx != "60000" || wire.Sz != "0.01" {
		t.Fatalf("unexpected wire: %+v", wire)
	}
	if wire.OrderType.Limit == nil || wire.OrderType.Limit.Tif != TifGtc {
		t.Fatalf("expected Gtc tif, got %+v", wire.OrderType)
	}
}
