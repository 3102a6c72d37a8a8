// Package exchange defines the polymorphic capability interface every
// venue connector implements, and the registry that owns the single
// connector a process runs against. Grounded on the ExchangeClient
// interface shape in the DimaJoyti-ai-agentic-crypto-browser example and
// the Provider/clientAPI wrapping pattern in tgeconf-nof0's Hyperliquid
// provider; the teacher itself has only one concrete client type, so this
// layer generalizes it into something venue-agnostic.
package exchange

import (
	"context"

	"github.com/0xtitan6/quantis/pkg/market"
)

// Exchange is the capability set every connector must expose. All fallible
// operations return an error from the internal/errs taxonomy.
type Exchange interface {
	Name() string

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	GetTicker(ctx context.Context, pair market.TradingPair) (market.Ticker, error)
	GetOrderBook(ctx context.Context, pair market.TradingPair, depth int) (*market.OrderBook, error)

	CreateOrder(ctx context.Context, req market.OrderRequest) (*market.Order, error)
	CancelOrder(ctx context.Context, exchangeOrderID string) error
	CancelAllOrders(ctx context.Context, pair *market.TradingPair) (int, error)
	GetOrder(ctx context.Context, exchangeOrderID string) (*market.Order, error)

	GetBalance(ctx context.Context) ([]market.Balance, error)
	GetPositions(ctx context.Context) ([]market.Position, error)
}

// Handle is a copyable, cheap value wrapping a shared Exchange
// implementation. It has value semantics over the underlying connector:
// copying a Handle never copies connector state, only the reference to it.
// Its lifetime is tied to the Registry that owns the implementation.
type Handle struct {
	impl Exchange
}

func newHandle(impl Exchange) Handle { return Handle{impl: impl} }

func (h Handle) Name() string          { return h.impl.Name() }
func (h Handle) IsConnected() bool     { return h.impl.IsConnected() }
func (h Handle) Unwrap() Exchange      { return h.impl }

func (h Handle) Connect(ctx context.Context) error    { return h.impl.Connect(ctx) }
func (h Handle) Disconnect(ctx context.Context) error { return h.impl.Disconnect(ctx) }

func (h Handle) GetTicker(ctx context.Context, pair market.TradingPair) (market.Ticker, error) {
	return h.impl.GetTicker(ctx, pair)
}

func (h Handle) GetOrderBook(ctx context.Context, pair market.TradingPair, depth int) (*market.OrderBook, error) {
	return h.impl.GetOrderBook(ctx, pair, depth)
}

func (h Handle) CreateOrder(ctx context.Context, req market.OrderRequest) (*market.Order, error) {
	return h.impl.CreateOrder(ctx, req)
}

func (h Handle) CancelOrder(ctx context.Context, exchangeOrderID string) error {
	return h.impl.CancelOrder(ctx, exchangeOrderID)
}

func (h Handle) CancelAllOrders(ctx context.Context, pair *market.TradingPair) (int, error) {
	return h.impl.CancelAllOrders(ctx, pair)
}

func (h Handle) GetOrder(ctx context.Context, exchangeOrderID string) (*market.Order, error) {
	return h.impl.GetOrder(ctx, exchangeOrderID)
}

func (h Handle) GetBalance(ctx context.Context) ([]market.Balance, error) {
	return h.impl.GetBalance(ctx)
}

func (h Handle) GetPositions(ctx context.Context) ([]market.Position, error) {
	return h.impl.GetPositions(ctx)
}

// Config is the venue connection surface consumed by the core. Absence
// of APISecret disables the signer and write paths fail with
// ErrSignerRequired.
type Config struct {
	Name      string
	APIKey    string
	APISecret string
	Testnet   bool
}

// HasSigner reports whether enough credential material is present to sign
// write operations.
func (c Config) HasSigner() bool { return c.APISecret != "" }
