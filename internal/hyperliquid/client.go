// client.go binds the capability interface (pkg/exchange.Exchange) to the
// Hyperliquid Info/Exchange REST APIs and the WebSocket feed, generalizing
// the teacher's single concrete exchange.Client into an implementation of
// a venue-agnostic interface.
package hyperliquid

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/0xtitan6/quantis/internal/errs"
	"github.com/0xtitan6/quantis/pkg/exchange"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// Config is Hyperliquid-specific connection configuration layered on top
// of the generic exchange.Config.
type Config struct {
	exchange.Config
	WalletAddress string // address queried for clearinghouseState/openOrders
	PrivateKey    string // hex-encoded; empty means read-only (no signer)
	ChainID       int64
}

func (c Config) infoURL() string {
	if c.Testnet {
		return TestnetInfoURL
	}
	return MainnetInfoURL
}

func (c Config) wsURL() string {
	if c.Testnet {
		return TestnetWSURL
	}
	return MainnetWSURL
}

// Connector implements exchange.Exchange against Hyperliquid.
type Connector struct {
	cfg    Config
	logger *slog.Logger

	connected atomic.Bool

	rl         *TokenBucket
	info       *InfoClient
	exchangeAPI *ExchangeAPIClient
	signer     Signer
	assetIndex *AssetIndexMap
	ws         *WSFeed
	mapper     exchange.SymbolMapper

	clientOrderSeq atomic.Int64

	oidCoinMu sync.RWMutex
	oidCoin   map[int64]string // oid -> coin, populated as orders are seen
}

// New allocates and zero-initializes every subsystem. The signer is
// constructed only if cfg supplies a private key, so a read-only
// connector never needs wallet material on disk.
func New(cfg Config, logger *slog.Logger) (*Connector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "hyperliquid")

	var signer Signer = NoSigner{}
	if cfg.PrivateKey != "" {
		s, err := NewEOASigner(cfg.PrivateKey, cfg.ChainID)
		if err != nil {
			return nil, fmt.Errorf("hyperliquid: new signer: %w", err)
		}
		signer = s
	}

	rl := NewDefaultRateLimiter()
	info := newInfoClient(cfg.infoURL(), rl)

	return &Connector{
		cfg:         cfg,
		logger:      logger,
		rl:          rl,
		info:        info,
		exchangeAPI: newExchangeAPIClient(cfg.infoURL(), rl, signer),
		signer:      signer,
		assetIndex:  newAssetIndexMap(info),
		ws:          NewWSFeed(cfg.wsURL(), logger),
		oidCoin:     make(map[int64]string),
	}, nil
}

func (c *Connector) rememberOid(oid int64, coin string) {
	c.oidCoinMu.Lock()
	c.oidCoin[oid] = coin
	c.oidCoinMu.Unlock()
}

func (c *Connector) coinForOid(oid int64) (string, bool) {
	c.oidCoinMu.RLock()
	defer c.oidCoinMu.RUnlock()
	coin, ok := c.oidCoin[oid]
	return coin, ok
}

func (c *Connector) Name() string { return "hyperliquid" }

// Connect performs a liveness probe (fetch metadata) and transitions
// connected := true.
func (c *Connector) Connect(ctx context.Context) error {
	if _, err := c.info.Meta(ctx); err != nil {
		return errs.Wrap(errs.CategoryNetwork, "connect", err)
	}
	c.connected.Store(true)
	c.logger.Info("hyperliquid connector connected")
	return nil
}

// Disconnect tears down the WebSocket if initialized.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.connected.Store(false)
	if c.ws != nil {
		return c.ws.Close()
	}
	return nil
}

func (c *Connector) IsConnected() bool { return c.connected.Load() }

// InitWebSocket starts the feed's background receive loop. The caller
// supplies ctx for its lifetime; Run blocks until cancellation.
func (c *Connector) InitWebSocket(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.ws.Run(ctx)
	}()
	return errCh
}

// WSFeed exposes the underlying feed for subscription and event routing by
// the data engine.
func (c *Connector) WSFeed() *WSFeed { return c.ws }

// Info exposes the underlying Info-endpoint client so standalone consumers
// (the discovery scanner) can query venue metadata without going through
// the full order-lifecycle surface.
func (c *Connector) Info() *InfoClient { return c.info }

func (c *Connector) GetTicker(ctx context.Context, pair market.TradingPair) (market.Ticker, error) {
	coin, err := c.mapper.ToHyperliquid(pair)
	if err != nil {
		return market.Ticker{}, err
	}

	mids, err := c.info.AllMids(ctx)
	if err != nil {
		return market.Ticker{}, err
	}

	raw, ok := mids[coin]
	if !ok {
		return market.Ticker{}, errs.ErrNoPriceAvailable
	}
	mid, err := xdecimal.ParseString(raw)
	if err != nil {
		return market.Ticker{}, errs.Wrap(errs.CategoryData, "getTicker.parseMid", err)
	}

	return market.Ticker{
		Pair:      pair,
		Bid:       mid,
		Ask:       mid,
		Last:      mid,
		Timestamp: timeutil.Now(),
	}, nil
}

func (c *Connector) GetOrderBook(ctx context.Context, pair market.TradingPair, depth int) (*market.OrderBook, error) {
	coin, err := c.mapper.ToHyperliquid(pair)
	if err != nil {
		return nil, err
	}

	resp, err := c.info.L2Book(ctx, coin)
	if err != nil {
		return nil, err
	}
	if len(resp.Levels) < 2 {
		return nil, errs.Wrap(errs.CategoryData, "getOrderBook", fmt.Errorf("malformed l2Book response"))
	}

	bids, err := convertLevels(resp.Levels[0], depth)
	if err != nil {
		return nil, err
	}
	asks, err := convertLevels(resp.Levels[1], depth)
	if err != nil {
		return nil, err
	}

	book := market.NewOrderBook(pair)
	book.ApplySnapshot(bids, asks, timeutil.FromUnixMillis(resp.Time))
	return book, nil
}

func convertLevels(levels []L2LevelWire, depth int) ([]market.OrderBookLevel, error) {
	if depth > 0 && depth < len(levels) {
		levels = levels[:depth]
	}
	out := make([]market.OrderBookLevel, 0, len(levels))
	for _, l := range levels {
		px, err := xdecimal.ParseString(l.Px)
		if err != nil {
			return nil, errs.Wrap(errs.CategoryData, "convertLevels.px", err)
		}
		sz, err := xdecimal.ParseString(l.Sz)
		if err != nil {
			return nil, errs.Wrap(errs.CategoryData, "convertLevels.sz", err)
		}
		out = append(out, market.OrderBookLevel{Price: px, Size: sz, NumOrders: l.N})
	}
	return out, nil
}

// nextClientOrderID mints a monotonic client id: a per-connector counter
// followed by the current Unix time in milliseconds.
func (c *Connector) nextClientOrderID() string {
	seq := c.clientOrderSeq.Add(1)
	return fmt.Sprintf("%d-%d", seq, timeutil.Now().UnixMillis())
}

func (c *Connector) CreateOrder(ctx context.Context, req market.OrderRequest) (*market.Order, error) {
	if _, ok := c.signer.(NoSigner); ok {
		return nil, errs.ErrSignerRequired
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	coin, err := c.mapper.ToHyperliquid(req.Pair)
	if err != nil {
		return nil, err
	}
	assetIdx, err := c.assetIndex.Resolve(ctx, coin)
	if err != nil {
		return nil, err
	}

	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = c.nextClientOrderID()
	}

	order, err := c.exchangeAPI.PlaceOrder(ctx, assetIdx, req, clientOrderID)
	if err == nil && order.ExchangeOrderID != "" {
		if oid, perr := strconv.ParseInt(order.ExchangeOrderID, 10, 64); perr == nil {
			c.rememberOid(oid, coin)
		}
	}
	return order, err
}

// CancelOrder cancels by exchange id, resolving the order's coin from the
// oid->coin cache populated by CreateOrder/GetOrder/CancelAllOrders. If
// the coin is unknown (e.g. the order was placed in a previous process
// lifetime), use CancelOrderOnAsset with an explicit coin instead.
func (c *Connector) CancelOrder(ctx context.Context, exchangeOrderID string) error {
	oid, err := strconv.ParseInt(exchangeOrderID, 10, 64)
	if err != nil {
		return errs.Wrap(errs.CategoryData, "cancelOrder.parseOid", err)
	}
	coin, ok := c.coinForOid(oid)
	if !ok {
		return errs.ErrOrderNotFound
	}
	return c.CancelOrderOnAsset(ctx, coin, oid)
}

// CancelOrderOnAsset cancels by (coin, oid), resolving the asset index
// lazily on first use. Callers that already know the coin
// (e.g. the order manager) should prefer this over CancelOrder to avoid a
// cache lookup.
func (c *Connector) CancelOrderOnAsset(ctx context.Context, coin string, oid int64) error {
	if _, ok := c.signer.(NoSigner); ok {
		return errs.ErrSignerRequired
	}
	if coin == "" {
		return errs.ErrAssetNotFound
	}
	assetIdx, err := c.assetIndex.Resolve(ctx, coin)
	if err != nil {
		return err
	}
	return c.exchangeAPI.CancelOrder(ctx, assetIdx, oid)
}

func (c *Connector) CancelAllOrders(ctx context.Context, pair *market.TradingPair) (int, error) {
	if _, ok := c.signer.(NoSigner); ok {
		return 0, errs.ErrSignerRequired
	}

	open, err := c.info.OpenOrders(ctx, c.cfg.WalletAddress)
	if err != nil {
		return 0, err
	}

	var coinFilter string
	if pair != nil {
		coinFilter, err = c.mapper.ToHyperliquid(*pair)
		if err != nil {
			return 0, err
		}
	}

	cancels := make([]CancelWire, 0, len(open))
	for _, o := range open {
		if coinFilter != "" && o.Coin != coinFilter {
			continue
		}
		assetIdx, err := c.assetIndex.Resolve(ctx, o.Coin)
		if err != nil {
			continue
		}
		c.rememberOid(o.Oid, o.Coin)
		cancels = append(cancels, CancelWire{Asset: assetIdx, Oid: o.Oid})
	}

	return c.exchangeAPI.CancelOrders(ctx, cancels)
}

func (c *Connector) GetOrder(ctx context.Context, exchangeOrderID string) (*market.Order, error) {
	oid, err := strconv.ParseInt(exchangeOrderID, 10, 64)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryData, "getOrder.parseOid", err)
	}

	open, err := c.info.OpenOrders(ctx, c.cfg.WalletAddress)
	if err != nil {
		return nil, err
	}
	for _, o := range open {
		if o.Oid == oid {
			c.rememberOid(o.Oid, o.Coin)
			return openOrderToMarketOrder(o), nil
		}
	}
	return nil, errs.ErrOrderNotFound
}

func openOrderToMarketOrder(o OpenOrderWire) *market.Order {
	px, _ := xdecimal.ParseString(o.LimitPx)
	sz, _ := xdecimal.ParseString(o.Sz)
	side := market.SideBuy
	if o.Side == "A" {
		side = market.SideSell
	}
	clientOrderID := ""
	if o.Cloid != nil {
		clientOrderID = *o.Cloid
	}
	return &market.Order{
		Request: market.OrderRequest{
			Pair:   market.NewTradingPair(o.Coin, "USDC"),
			Side:   side,
			Type:   market.OrderTypeLimit,
			Amount: sz,
			Price:  &px,
		},
		ExchangeOrderID: fmt.Sprintf("%d", o.Oid),
		ClientOrderID:   clientOrderID,
		Status:          market.OrderStatusOpen,
		CreatedAt:       timeutil.FromUnixMillis(o.Timestamp),
		UpdatedAt:       timeutil.FromUnixMillis(o.Timestamp),
	}
}

// FillFromWire converts a "userFills" channel entry into the engine's
// Fill type, the same px/sz/side decoding openOrderToMarketOrder uses for
// REST open-order responses.
func FillFromWire(w WSUserFillWire) (market.Fill, error) {
	px, err := xdecimal.ParseString(w.Px)
	if err != nil {
		return market.Fill{}, errs.Wrap(errs.CategoryData, "fillFromWire.px", err)
	}
	sz, err := xdecimal.ParseString(w.Sz)
	if err != nil {
		return market.Fill{}, errs.Wrap(errs.CategoryData, "fillFromWire.sz", err)
	}
	fee, _ := xdecimal.ParseString(w.Fee)

	side := market.SideBuy
	if w.Side == "A" {
		side = market.SideSell
	}

	return market.Fill{
		ExchangeOrderID: fmt.Sprintf("%d", w.Oid),
		Pair:            market.NewTradingPair(w.Coin, "USDC"),
		Side:            side,
		Price:           px,
		Size:            sz,
		Commission:      fee,
		TradeID:         fmt.Sprintf("%d", w.Tid),
		Timestamp:       timeutil.FromUnixMillis(w.Time),
	}, nil
}

// OrderUpdateFromWire converts an "orderUpdates" channel entry into the
// manager's reconciliation inputs: the resulting status, filled amount,
// and average fill price (nil until any fill has occurred).
func OrderUpdateFromWire(u WSOrderUpdateWire) (market.OrderStatus, xdecimal.Decimal, *xdecimal.Decimal, error) {
	status := orderStatusFromWire(u.Status)

	origSz, err := xdecimal.ParseString(u.Order.OrigSz)
	if err != nil {
		return "", xdecimal.Decimal{}, nil, errs.Wrap(errs.CategoryData, "orderUpdateFromWire.origSz", err)
	}
	sz, err := xdecimal.ParseString(u.Order.Sz)
	if err != nil {
		return "", xdecimal.Decimal{}, nil, errs.Wrap(errs.CategoryData, "orderUpdateFromWire.sz", err)
	}
	filled := origSz.Sub(sz)

	var avgPx *xdecimal.Decimal
	if filled.GreaterThan(xdecimal.Zero) {
		px, err := xdecimal.ParseString(u.Order.LimitPx)
		if err == nil {
			avgPx = &px
		}
	}
	return status, filled, avgPx, nil
}

func orderStatusFromWire(s string) market.OrderStatus {
	switch s {
	case "filled":
		return market.OrderStatusFilled
	case "canceled", "cancelled":
		return market.OrderStatusCancelled
	case "rejected":
		return market.OrderStatusRejected
	case "triggered", "open":
		return market.OrderStatusOpen
	default:
		return market.OrderStatusOpen
	}
}

func (c *Connector) GetBalance(ctx context.Context) ([]market.Balance, error) {
	state, err := c.info.ClearinghouseState(ctx, c.cfg.WalletAddress)
	if err != nil {
		return nil, err
	}

	withdrawable, err := xdecimal.ParseString(state.Withdrawable)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryData, "getBalance.withdrawable", err)
	}
	accountValue, err := xdecimal.ParseString(state.MarginSummary.AccountValue)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryData, "getBalance.accountValue", err)
	}
	locked := accountValue.Sub(withdrawable)

	return []market.Balance{{
		Asset:     "USDC",
		Total:     accountValue,
		Available: withdrawable,
		Locked:    locked,
	}}, nil
}

func (c *Connector) GetPositions(ctx context.Context) ([]market.Position, error) {
	state, err := c.info.ClearinghouseState(ctx, c.cfg.WalletAddress)
	if err != nil {
		return nil, err
	}

	positions := make([]market.Position, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		pos, err := positionWireToMarketPosition(ap.Position)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

func positionWireToMarketPosition(w PositionWire) (market.Position, error) {
	szi, err := xdecimal.ParseString(w.Szi)
	if err != nil {
		return market.Position{}, errs.Wrap(errs.CategoryData, "position.szi", err)
	}
	entryPx, err := xdecimal.ParseString(w.EntryPx)
	if err != nil {
		return market.Position{}, errs.Wrap(errs.CategoryData, "position.entryPx", err)
	}
	unrealized, err := xdecimal.ParseString(w.UnrealizedPnl)
	if err != nil {
		return market.Position{}, errs.Wrap(errs.CategoryData, "position.unrealizedPnl", err)
	}
	marginUsed, err := xdecimal.ParseString(w.MarginUsed)
	if err != nil {
		return market.Position{}, errs.Wrap(errs.CategoryData, "position.marginUsed", err)
	}

	side := market.PositionSideLong
	size := szi
	if szi.IsNeg() {
		side = market.PositionSideShort
		size = szi.Abs()
	}

	pos := market.Position{
		Pair:          market.NewTradingPair(w.Coin, "USDC"),
		Side:          side,
		Size:          size,
		EntryPrice:    entryPx,
		UnrealizedPnL: unrealized,
		Leverage:      xdecimal.NewFromInt(int64(w.Leverage.Value)),
		MarginUsed:    marginUsed,
	}
	if w.LiquidationPx != nil {
		liq, err := xdecimal.ParseString(*w.LiquidationPx)
		if err == nil {
			pos.LiquidationPrice = &liq
		}
	}
	return pos, nil
}

var _ exchange.Exchange = (*Connector)(nil)
