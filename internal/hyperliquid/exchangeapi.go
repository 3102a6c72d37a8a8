// exchangeapi.go is the authenticated Exchange endpoint client: builds
// signed order/cancel actions and parses their tagged-union responses.
// Generalized from the teacher's Client.PostOrders/CancelOrders/CancelAll
// (resty, rate-limited, header/body construction) to Hyperliquid's
// {action, nonce, signature} envelope and its two-shaped order response,
// fixed here by exhaustively matching both the resting and filled arms.
package hyperliquid

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/0xtitan6/quantis/internal/errs"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// ExchangeAPIClient wraps the authenticated Hyperliquid Exchange endpoint.
type ExchangeAPIClient struct {
	http   *resty.Client
	rl     *TokenBucket
	signer Signer
}

func newExchangeAPIClient(baseURL string, rl *TokenBucket, signer Signer) *ExchangeAPIClient {
	return &ExchangeAPIClient{
		http:   newRestyClient(baseURL),
		rl:     rl,
		signer: signer,
	}
}

func (c *ExchangeAPIClient) nonce() int64 {
	return time.Now().UnixMilli()
}

func (c *ExchangeAPIClient) submit(ctx context.Context, action interface{}, result interface{}) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	nonce := c.nonce()
	sig, err := c.signer.SignAction(action, nonce, nil)
	if err != nil {
		return err // already ErrSignerRequired or a signing error
	}

	req := ExchangeRequest{
		Action:    action,
		Nonce:     nonce,
		Signature: sig,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(result).
		Post("/exchange")
	if err != nil {
		return errs.Wrap(errs.CategoryNetwork, "exchange.submit", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return errs.Wrap(errs.CategoryAPI, "exchange.submit", fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}
	return nil
}

// PlaceOrder submits a single order leg and parses its tagged-union
// response exhaustively: resting, filled, or error.
func (c *ExchangeAPIClient) PlaceOrder(ctx context.Context, assetIndex int, req market.OrderRequest, clientOrderID string) (*market.Order, error) {
	wire, err := buildOrderWire(assetIndex, req, clientOrderID)
	if err != nil {
		return nil, err
	}

	action := OrderAction{
		Type:     "order",
		Orders:   []OrderWire{wire},
		Grouping: "na",
	}

	var envelope OrderResponseEnvelope
	if err := c.submit(ctx, action, &envelope); err != nil {
		return nil, err
	}

	if envelope.Response == nil || len(envelope.Response.Data.Statuses) == 0 {
		return nil, errs.Wrap(errs.CategoryAPI, "exchange.placeOrder", fmt.Errorf("empty status list"))
	}

	return parseOrderStatus(envelope.Response.Data.Statuses[0], req, clientOrderID)
}

// parseOrderStatus matches Hyperliquid's documented tagged union
// exhaustively. Missing the Filled arm was a historical regression;
// both arms, plus Error, are handled here.
func parseOrderStatus(status OrderStatusWire, req market.OrderRequest, clientOrderID string) (*market.Order, error) {
	now := timeutil.Now()

	switch {
	case status.Resting != nil:
		return &market.Order{
			Request:         req,
			ExchangeOrderID: fmt.Sprintf("%d", status.Resting.Oid),
			ClientOrderID:   clientOrderID,
			Status:          market.OrderStatusOpen,
			FilledAmount:    xdecimal.Zero,
			CreatedAt:       now,
			UpdatedAt:       now,
		}, nil

	case status.Filled != nil:
		totalSz, err := xdecimal.ParseString(status.Filled.TotalSz)
		if err != nil {
			return nil, errs.Wrap(errs.CategoryData, "exchange.parseOrderStatus.filled.totalSz", err)
		}
		avgPx, err := xdecimal.ParseString(status.Filled.AvgPx)
		if err != nil {
			return nil, errs.Wrap(errs.CategoryData, "exchange.parseOrderStatus.filled.avgPx", err)
		}
		return &market.Order{
			Request:         req,
			ExchangeOrderID: fmt.Sprintf("%d", status.Filled.Oid),
			ClientOrderID:   clientOrderID,
			Status:          market.OrderStatusFilled,
			FilledAmount:    totalSz,
			AvgFillPrice:    &avgPx,
			CreatedAt:       now,
			UpdatedAt:       now,
		}, nil

	case status.Error != "":
		return nil, errs.NewOrderRejected(status.Error)

	default:
		return nil, errs.Wrap(errs.CategoryAPI, "exchange.parseOrderStatus", fmt.Errorf("unrecognized order status shape"))
	}
}

func buildOrderWire(assetIndex int, req market.OrderRequest, clientOrderID string) (OrderWire, error) {
	if err := req.Validate(); err != nil {
		return OrderWire{}, err
	}

	var priceStr string
	if req.Price != nil {
		priceStr = req.Price.String()
	} else {
		// Hyperliquid has no native market order: submit an aggressively
		// marketable IOC limit, the venue's own documented convention.
		priceStr = "0"
	}

	tif := TifGtc
	switch req.TimeInForce {
	case market.TimeInForceIOC:
		tif = TifIoc
	case market.TimeInForceALO:
		tif = TifAlo
	case market.TimeInForceFOK:
		tif = TifIoc // Hyperliquid has no native FOK; IOC is the closest primitive.
	}
	if req.Type == market.OrderTypeMarket {
		tif = TifIoc
	}

	var cloid *string
	if clientOrderID != "" {
		cloid = &clientOrderID
	}

	return OrderWire{
		Asset:      assetIndex,
		IsBuy:      req.Side == market.SideBuy,
		LimitPx:    priceStr,
		Sz:         req.Amount.String(),
		ReduceOnly: req.ReduceOnly,
		OrderType:  OrderTypeWire{Limit: &LimitOrderTypeWire{Tif: tif}},
		Cloid:      cloid,
	}, nil
}

// CancelOrder cancels a single order by its venue-assigned oid.
func (c *ExchangeAPIClient) CancelOrder(ctx context.Context, assetIndex int, oid int64) error {
	action := CancelAction{
		Type:    "cancel",
		Cancels: []CancelWire{{Asset: assetIndex, Oid: oid}},
	}

	var envelope CancelResponseEnvelope
	if err := c.submit(ctx, action, &envelope); err != nil {
		return err
	}
	return interpretCancelStatuses(envelope)
}

// CancelOrders cancels a batch of orders, one per (assetIndex, oid) pair.
func (c *ExchangeAPIClient) CancelOrders(ctx context.Context, cancels []CancelWire) (int, error) {
	if len(cancels) == 0 {
		return 0, nil
	}

	action := CancelAction{Type: "cancel", Cancels: cancels}

	var envelope CancelResponseEnvelope
	if err := c.submit(ctx, action, &envelope); err != nil {
		return 0, err
	}

	count := 0
	if envelope.Response != nil {
		for _, s := range envelope.Response.Data.Statuses {
			if s == "success" {
				count++
			}
		}
	}
	return count, nil
}

func interpretCancelStatuses(envelope CancelResponseEnvelope) error {
	if envelope.Response == nil || len(envelope.Response.Data.Statuses) == 0 {
		return errs.ErrOrderNotFound
	}
	if envelope.Response.Data.Statuses[0] != "success" {
		return errs.ErrOrderNotFound
	}
	return nil
}
