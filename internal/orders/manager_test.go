package orders

import (
	"context"
	"log/slog"
	"testing"

	"github.com/0xtitan6/quantis/internal/errs"
	"github.com/0xtitan6/quantis/pkg/exchange"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// fakeExchange is a minimal exchange.Exchange stub for order manager tests.
type fakeExchange struct {
	createResult *market.Order
	createErr    error
	cancelErr    error
	getResult    *market.Order
}

func (f *fakeExchange) Name() string                                  { return "fake" }
func (f *fakeExchange) Connect(ctx context.Context) error              { return nil }
func (f *fakeExchange) Disconnect(ctx context.Context) error           { return nil }
func (f *fakeExchange) IsConnected() bool                              { return true }
func (f *fakeExchange) GetTicker(ctx context.Context, pair market.TradingPair) (market.Ticker, error) {
	return market.Ticker{}, nil
}
func (f *fakeExchange) GetOrderBook(ctx context.Context, pair market.TradingPair, depth int) (*market.OrderBook, error) {
	return market.NewOrderBook(pair), nil
}
func (f *fakeExchange) CreateOrder(ctx context.Context, req market.OrderRequest) (*market.Order, error) {
	return f.createResult, f.createErr
}
func (f *fakeExchange) CancelOrder(ctx context.Context, exchangeOrderID string) error {
	return f.cancelErr
}
func (f *fakeExchange) CancelAllOrders(ctx context.Context, pair *market.TradingPair) (int, error) {
	return 0, nil
}
func (f *fakeExchange) GetOrder(ctx context.Context, exchangeOrderID string) (*market.Order, error) {
	return f.getResult, nil
}
func (f *fakeExchange) GetBalance(ctx context.Context) ([]market.Balance, error) { return nil, nil }
func (f *fakeExchange) GetPositions(ctx context.Context) ([]market.Position, error) {
	return nil, nil
}

func testRegistry(t *testing.T, impl exchange.Exchange) exchange.Handle {
	t.Helper()
	reg := exchange.NewRegistry(slog.Default())
	reg.SetExchange(impl, exchange.Config{Name: impl.Name()})
	h, err := reg.GetExchange()
	if err != nil {
		t.Fatalf("GetExchange: %v", err)
	}
	return h
}

func TestSubmitOrderRestingBecomesActive(t *testing.T) {
	t.Parallel()

	price := xdecimal.MustParse("100")
	req := market.OrderRequest{
		Pair:   market.NewTradingPair("BTC", "USDC"),
		Side:   market.SideBuy,
		Type:   market.OrderTypeLimit,
		Amount: xdecimal.MustParse("1"),
		Price:  &price,
	}

	fake := &fakeExchange{createResult: &market.Order{
		Request:         req,
		ExchangeOrderID: "42",
		Status:          market.OrderStatusOpen,
		FilledAmount:    xdecimal.Zero,
	}}
	m := NewManager(testRegistry(t, fake), slog.Default())

	o, err := m.SubmitOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if o.Status != market.OrderStatusOpen {
		t.Fatalf("expected open, got %s", o.Status)
	}
	if len(m.GetActiveOrders()) != 1 {
		t.Fatalf("expected 1 active order, got %d", len(m.GetActiveOrders()))
	}
	if _, ok := m.GetByClientID(o.ClientOrderID); !ok {
		t.Fatal("expected order reachable by client id")
	}
	if _, ok := m.GetByExchangeID("42"); !ok {
		t.Fatal("expected order reachable by exchange id")
	}
}

func TestCancelOrderMovesToHistory(t *testing.T) {
	t.Parallel()

	price := xdecimal.MustParse("100")
	req := market.OrderRequest{
		Pair:   market.NewTradingPair("BTC", "USDC"),
		Side:   market.SideBuy,
		Type:   market.OrderTypeLimit,
		Amount: xdecimal.MustParse("1"),
		Price:  &price,
	}
	fake := &fakeExchange{createResult: &market.Order{
		Request: req, ExchangeOrderID: "7", Status: market.OrderStatusOpen, FilledAmount: xdecimal.Zero,
	}}
	m := NewManager(testRegistry(t, fake), slog.Default())
	if _, err := m.SubmitOrder(context.Background(), req); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	if err := m.CancelOrder(context.Background(), "7"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if len(m.GetActiveOrders()) != 0 {
		t.Fatalf("expected 0 active orders after cancel")
	}
	hist := m.GetOrderHistory(nil, 0)
	if len(hist) != 1 || hist[0].Status != market.OrderStatusCancelled {
		t.Fatalf("expected 1 cancelled order in history, got %+v", hist)
	}
}

func TestCancelOrderNotFound(t *testing.T) {
	t.Parallel()
	m := NewManager(testRegistry(t, &fakeExchange{}), slog.Default())
	err := m.CancelOrder(context.Background(), "doesnotexist")
	if err != errs.ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestHandleUserFillAccumulatesAndTransitions(t *testing.T) {
	t.Parallel()

	price := xdecimal.MustParse("100")
	req := market.OrderRequest{
		Pair:   market.NewTradingPair("BTC", "USDC"),
		Side:   market.SideBuy,
		Type:   market.OrderTypeLimit,
		Amount: xdecimal.MustParse("2"),
		Price:  &price,
	}
	fake := &fakeExchange{createResult: &market.Order{
		Request: req, ExchangeOrderID: "99", Status: market.OrderStatusOpen, FilledAmount: xdecimal.Zero,
	}}
	m := NewManager(testRegistry(t, fake), slog.Default())
	if _, err := m.SubmitOrder(context.Background(), req); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	m.HandleUserFill(market.Fill{
		ExchangeOrderID: "99",
		Price:            xdecimal.MustParse("99"),
		Size:             xdecimal.MustParse("1"),
	})
	o, _ := m.GetByExchangeID("99")
	if o.Status != market.OrderStatusPartiallyFilled {
		t.Fatalf("expected partially_filled, got %s", o.Status)
	}

	m.HandleUserFill(market.Fill{
		ExchangeOrderID: "99",
		Price:            xdecimal.MustParse("101"),
		Size:             xdecimal.MustParse("1"),
	})
	o, _ = m.GetByExchangeID("99")
	if o.Status != market.OrderStatusFilled {
		t.Fatalf("expected filled, got %s", o.Status)
	}
	if o.AvgFillPrice.String() != "100" {
		t.Fatalf("expected avg fill price 100, got %s", o.AvgFillPrice)
	}
	if len(m.GetActiveOrders()) != 0 {
		t.Fatalf("expected order moved out of active once filled")
	}
}

// TestHandleOrderUpdateDropsRegression checks the reconciliation rule: a
// status update that would move an order backwards in the lattice
// (filled -> open) must be dropped.
func TestHandleOrderUpdateDropsRegression(t *testing.T) {
	t.Parallel()

	price := xdecimal.MustParse("100")
	req := market.OrderRequest{
		Pair:   market.NewTradingPair("BTC", "USDC"),
		Side:   market.SideBuy,
		Type:   market.OrderTypeLimit,
		Amount: xdecimal.MustParse("1"),
		Price:  &price,
	}
	fake := &fakeExchange{createResult: &market.Order{
		Request: req, ExchangeOrderID: "5", Status: market.OrderStatusFilled, FilledAmount: xdecimal.MustParse("1"),
	}}
	m := NewManager(testRegistry(t, fake), slog.Default())
	if _, err := m.SubmitOrder(context.Background(), req); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	m.HandleOrderUpdate("5", market.OrderStatusOpen, xdecimal.Zero, nil)

	o, _ := m.GetByExchangeID("5")
	if o.Status != market.OrderStatusFilled {
		t.Fatalf("expected status to remain filled, regression was applied: %s", o.Status)
	}
}
