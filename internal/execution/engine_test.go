package execution

import (
	"context"
	"log/slog"
	"testing"

	"github.com/0xtitan6/quantis/internal/bus"
	"github.com/0xtitan6/quantis/internal/errs"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

type fakeClient struct {
	submitResult *market.Order
	submitErr    error
	active       []*market.Order
}

func (f *fakeClient) SubmitOrder(ctx context.Context, req market.OrderRequest) (*market.Order, error) {
	return f.submitResult, f.submitErr
}
func (f *fakeClient) CancelOrder(ctx context.Context, exchangeOrderID string) error { return nil }
func (f *fakeClient) GetActiveOrders() []*market.Order                              { return f.active }

func basicRequest(amount string) market.OrderRequest {
	price := xdecimal.MustParse("100")
	return market.OrderRequest{
		Pair:   market.NewTradingPair("BTC", "USDC"),
		Side:   market.SideBuy,
		Type:   market.OrderTypeLimit,
		Amount: xdecimal.MustParse(amount),
		Price:  &price,
	}
}

func TestSubmitIntentRejectsOverMaxOrderSize(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	e := New(client, nil, Limits{MaxOrderSize: xdecimal.MustParse("1")}, slog.Default())

	_, err := e.SubmitIntent(context.Background(), basicRequest("2"))
	if err != errs.ErrExceedsMaxPositionSize {
		t.Fatalf("expected ErrExceedsMaxPositionSize, got %v", err)
	}
	if e.StatsSnapshot().OrdersRejected != 1 {
		t.Fatalf("expected 1 rejected order, got %d", e.StatsSnapshot().OrdersRejected)
	}
}

func TestSubmitIntentRejectsAtMaxConcurrentOrders(t *testing.T) {
	t.Parallel()
	client := &fakeClient{active: []*market.Order{{}, {}}}
	e := New(client, nil, Limits{MaxConcurrentOrders: 2}, slog.Default())

	_, err := e.SubmitIntent(context.Background(), basicRequest("1"))
	if err != errs.ErrExceedsMaxPositionSize {
		t.Fatalf("expected rejection at concurrent order cap, got %v", err)
	}
}

func TestSubmitIntentForwardsAndPublishes(t *testing.T) {
	t.Parallel()
	req := basicRequest("1")
	result := &market.Order{Request: req, ExchangeOrderID: "1", Status: market.OrderStatusOpen}
	client := &fakeClient{submitResult: result}

	mb := bus.NewMessageBus(nil)
	var submittedTopic string
	mb.Subscribe("order.submitted", func(topic string, event interface{}) { submittedTopic = topic })

	e := New(client, mb, Limits{}, slog.Default())
	o, err := e.SubmitIntent(context.Background(), req)
	if err != nil {
		t.Fatalf("SubmitIntent: %v", err)
	}
	if o.ExchangeOrderID != "1" {
		t.Fatalf("unexpected order: %+v", o)
	}
	if submittedTopic != "order.submitted" {
		t.Fatal("expected order.submitted to be published")
	}
	if e.StatsSnapshot().OrdersSubmitted != 1 {
		t.Fatalf("expected 1 submitted order, got %d", e.StatsSnapshot().OrdersSubmitted)
	}
}
