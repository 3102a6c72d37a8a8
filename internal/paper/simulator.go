// Package paper implements a live paper-trading simulator: it satisfies the
// same ExecutionClient capability the order manager does, but fills orders
// against the live bus.Cache's latest quote instead of a venue, using the
// same slippage/commission model as internal/backtest so a paper run and a
// historical backtest price a fill identically. Grounded on the teacher's
// chidi150c-coinbase-idiom PaperBroker (simulate execution using the latest
// known price; no external calls), extended from a single rolling spot
// price into per-coin quotes sourced from the bus cache, and from
// market-only fills into deferred limit-order polling.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/0xtitan6/quantis/internal/account"
	"github.com/0xtitan6/quantis/internal/backtest"
	"github.com/0xtitan6/quantis/internal/bus"
	"github.com/0xtitan6/quantis/internal/config"
	"github.com/0xtitan6/quantis/internal/errs"
	"github.com/0xtitan6/quantis/pkg/exchange"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

var (
	bpsDivisor = xdecimal.NewFromInt(10000)
)

// Config parameterizes the simulator. SlippageBps/CommissionBps come from
// config.PaperConfig in basis points; NewFromConfig converts them to the
// fractional rates OrderExecutor expects.
type Config struct {
	SlippagePct    xdecimal.Decimal
	CommissionRate xdecimal.Decimal
	InitialCapital xdecimal.Decimal
}

// FromPaperConfig converts the float64/bps-based config surface into the
// decimal fractional rates the simulator computes with internally.
func FromPaperConfig(cfg config.PaperConfig) Config {
	return Config{
		SlippagePct:    xdecimal.NewFromFloat(cfg.SlippageBps).Div(bpsDivisor),
		CommissionRate: xdecimal.NewFromFloat(cfg.CommissionBps).Div(bpsDivisor),
		InitialCapital: xdecimal.NewFromFloat(cfg.InitialCapital),
	}
}

// Simulator is an in-process venue: it satisfies execution.ExecutionClient,
// filling market orders immediately against the cache's latest ticker and
// holding limit orders open until PollQuotes observes a marketable price.
type Simulator struct {
	mu sync.Mutex

	cache    *bus.Cache
	tracker  *account.Tracker
	executor backtest.OrderExecutor
	logger   *slog.Logger

	cash     xdecimal.Decimal
	orders   map[string]*market.Order // by client order id
	peak     xdecimal.Decimal
	curDD    float64
	equity   []backtest.EquityPoint
}

// New builds a paper simulator reading quotes from cache.
func New(cfg Config, cache *bus.Cache, logger *slog.Logger) *Simulator {
	return &Simulator{
		cache:    cache,
		tracker:  account.NewTracker(exchange.Handle{}),
		executor: backtest.OrderExecutor{SlippagePct: cfg.SlippagePct, CommissionRate: cfg.CommissionRate},
		logger:   logger.With("component", "paper"),
		cash:     cfg.InitialCapital,
		orders:   make(map[string]*market.Order),
		peak:     cfg.InitialCapital,
	}
}

// SubmitOrder implements execution.ExecutionClient. Market orders fill
// immediately at the cached ticker's last price, adjusted by slippage and
// commission. Limit orders are accepted open and left for PollQuotes.
func (s *Simulator) SubmitOrder(ctx context.Context, req market.OrderRequest) (*market.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clientID := req.ClientOrderID
	if clientID == "" {
		clientID = uuid.New().String()
	}
	now := timeutil.Now()
	o := &market.Order{
		Request:         req,
		ExchangeOrderID: clientID,
		ClientOrderID:   clientID,
		Status:          market.OrderStatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Request.ClientOrderID = clientID

	if req.Type == market.OrderTypeMarket {
		ticker, ok := s.cache.Ticker(req.Pair)
		if !ok {
			return nil, fmt.Errorf("paper: no cached quote for %s", req.Pair)
		}
		if err := s.fill(o, ticker.Last, now); err != nil {
			return nil, err
		}
		return o, nil
	}

	s.orders[clientID] = o
	s.recordEquity(now)
	return o, nil
}

// CancelOrder cancels a still-open (necessarily limit) order by its
// exchange-assigned id, which the simulator sets equal to the client id.
func (s *Simulator) CancelOrder(ctx context.Context, exchangeOrderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[exchangeOrderID]
	if !ok || !o.IsActive() {
		return errs.ErrOrderNotCancellable
	}
	o.Status = market.OrderStatusCancelled
	o.UpdatedAt = timeutil.Now()
	delete(s.orders, exchangeOrderID)
	return nil
}

// GetActiveOrders returns every resting limit order not yet filled or cancelled.
func (s *Simulator) GetActiveOrders() []*market.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*market.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if o.IsActive() {
			out = append(out, o)
		}
	}
	return out
}

// PollQuotes checks every resting limit order against t and fills whatever
// has become marketable: a buy fills once the ask has dropped to or below
// its limit price, a sell fills once the bid has risen to or above it.
func (s *Simulator) PollQuotes(t market.Ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := timeutil.Now()
	for id, o := range s.orders {
		if !o.IsActive() || !o.Request.Pair.Equal(t.Pair) {
			continue
		}
		limit := *o.Request.Price
		marketable := false
		switch o.Request.Side {
		case market.SideBuy:
			marketable = t.Ask.LessThanOrEqual(limit)
		case market.SideSell:
			marketable = t.Bid.GreaterThanOrEqual(limit)
		}
		if !marketable {
			continue
		}
		if err := s.fill(o, limit, now); err != nil {
			s.logger.Warn("paper order failed to fill", "client_order_id", id, "error", err)
			continue
		}
	}
}

// fill synthesizes an executor Fill against refPrice, applies balance
// checks on buys, updates cash and the position tracker, and marks o
// terminal. Called with s.mu held.
func (s *Simulator) fill(o *market.Order, refPrice xdecimal.Decimal, now timeutil.Timestamp) error {
	req := o.Request
	f := s.executor.Fill(req.Pair, req.Side, req.Amount, refPrice, now)

	notional := f.Price.Mul(f.Size)
	if req.Side == market.SideBuy {
		cost := notional.Add(f.Commission)
		if cost.GreaterThan(s.cash) {
			o.Status = market.OrderStatusRejected
			o.ErrorMessage = errs.ErrInsufficientBalance.Error()
			o.UpdatedAt = now
			delete(s.orders, o.ClientOrderID)
			return errs.ErrInsufficientBalance
		}
		s.cash = s.cash.Sub(cost)
	} else {
		s.cash = s.cash.Add(notional).Sub(f.Commission)
	}

	s.tracker.ApplyFill(f)

	o.Status = market.OrderStatusFilled
	o.FilledAmount = f.Size
	o.AvgFillPrice = &f.Price
	o.Commission = f.Commission
	o.UpdatedAt = now
	o.ExchangeOrderID = o.ClientOrderID
	delete(s.orders, o.ClientOrderID)

	s.recordEquity(now)
	return nil
}

// recordEquity marks every open position to the cache's latest ticker,
// appends an equity sample, and updates the running peak-to-trough
// drawdown. Called with s.mu held.
func (s *Simulator) recordEquity(now timeutil.Timestamp) {
	marks := make(map[string]xdecimal.Decimal)
	for _, pos := range s.tracker.GetAllPositions() {
		if t, ok := s.cache.Ticker(pos.Pair); ok {
			marks[pos.Pair.Base] = t.Last
		}
	}
	s.tracker.UpdateMarkPrices(marks)

	unrealized := xdecimal.Zero
	for _, pos := range s.tracker.GetAllPositions() {
		unrealized = unrealized.Add(pos.UnrealizedPnL)
	}
	equityNow := s.cash.Add(unrealized)
	s.equity = append(s.equity, backtest.EquityPoint{Timestamp: now, Equity: equityNow})

	if equityNow.GreaterThan(s.peak) {
		s.peak = equityNow
	}
	if !s.peak.IsZero() {
		dd := s.peak.Sub(equityNow).Div(s.peak).Float64()
		if dd > s.curDD {
			s.curDD = dd
		}
	}
}

// EquityCurve returns every recorded equity sample so far.
func (s *Simulator) EquityCurve() []backtest.EquityPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]backtest.EquityPoint, len(s.equity))
	copy(out, s.equity)
	return out
}

// MaxDrawdown returns the largest peak-to-trough equity decline observed so far.
func (s *Simulator) MaxDrawdown() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curDD
}

// Cash returns the current uninvested cash balance.
func (s *Simulator) Cash() xdecimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cash
}

// Positions returns a copy of every tracked open position.
func (s *Simulator) Positions() []market.Position {
	return s.tracker.GetAllPositions()
}
