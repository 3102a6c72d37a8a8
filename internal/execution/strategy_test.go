package execution

import (
	"context"
	"log/slog"
	"testing"

	"github.com/0xtitan6/quantis/pkg/market"
)

type fixedStrategy struct {
	reqs []market.OrderRequest
}

func (f *fixedStrategy) Decide(ctx context.Context, tick Tick) []market.OrderRequest {
	return f.reqs
}

func TestRunSubmitsDecidedIntents(t *testing.T) {
	t.Parallel()
	req := basicRequest("1")
	result := &market.Order{Request: req, ExchangeOrderID: "1", Status: market.OrderStatusOpen}
	client := &fakeClient{submitResult: result}
	e := New(client, nil, Limits{}, slog.Default())

	strategy := &fixedStrategy{reqs: []market.OrderRequest{req}}
	ticks := make(chan Tick, 1)
	ticks <- Tick{Pair: req.Pair}
	close(ticks)

	e.Run(context.Background(), strategy, ticks)

	if e.StatsSnapshot().OrdersSubmitted != 1 {
		t.Fatalf("expected 1 submitted order, got %d", e.StatsSnapshot().OrdersSubmitted)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	e := New(client, nil, Limits{}, slog.Default())
	strategy := &fixedStrategy{}

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan Tick)
	cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx, strategy, ticks)
		close(done)
	}()
	<-done
}
