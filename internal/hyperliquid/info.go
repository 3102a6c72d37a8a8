// info.go is the unauthenticated Info endpoint client, generalized from the
// teacher's Client.GetOrderBook (resty, rate-limited, context-bound,
// result-target unmarshaling) to Hyperliquid's multi-request-type Info
// endpoint (allMids, l2Book, meta, clearinghouseState, openOrders,
// orderStatus, userFills all POST through one URL).
package hyperliquid

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/0xtitan6/quantis/internal/errs"
)

// InfoClient wraps the unauthenticated Hyperliquid Info endpoint.
type InfoClient struct {
	http *resty.Client
	rl   *TokenBucket
}

func newInfoClient(baseURL string, rl *TokenBucket) *InfoClient {
	return &InfoClient{
		http: newRestyClient(baseURL),
		rl:   rl,
	}
}

func newRestyClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultReadTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")
}

func (c *InfoClient) post(ctx context.Context, req InfoRequest, result interface{}) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(result).
		Post("/info")
	if err != nil {
		return errs.Wrap(errs.CategoryNetwork, "info."+req.Type, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return errs.Wrap(errs.CategoryAPI, "info."+req.Type, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}
	return nil
}

// AllMids fetches every coin's current mid price.
func (c *InfoClient) AllMids(ctx context.Context) (AllMidsResponse, error) {
	var result AllMidsResponse
	if err := c.post(ctx, InfoRequest{Type: "allMids"}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// L2Book fetches the order book snapshot for one coin.
func (c *InfoClient) L2Book(ctx context.Context, coin string) (*L2BookResponse, error) {
	var result L2BookResponse
	if err := c.post(ctx, InfoRequest{Type: "l2Book", Coin: coin}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Meta fetches the asset universe used to build the lazy asset-index map.
func (c *InfoClient) Meta(ctx context.Context) (*MetaResponse, error) {
	var result MetaResponse
	if err := c.post(ctx, InfoRequest{Type: "meta"}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MetaAndAssetCtxs fetches the asset universe alongside each coin's runtime
// market context (volume, funding, open interest, mark/mid/oracle price) —
// the source data the discovery scanner ranks coins from.
func (c *InfoClient) MetaAndAssetCtxs(ctx context.Context) (*MetaAndAssetCtxsResponse, error) {
	var result MetaAndAssetCtxsResponse
	if err := c.post(ctx, InfoRequest{Type: "metaAndAssetCtxs"}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearinghouseState fetches a user's account/position snapshot.
func (c *InfoClient) ClearinghouseState(ctx context.Context, user string) (*ClearinghouseStateResponse, error) {
	var result ClearinghouseStateResponse
	if err := c.post(ctx, InfoRequest{Type: "clearinghouseState", User: user}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// OpenOrders fetches a user's resting orders.
func (c *InfoClient) OpenOrders(ctx context.Context, user string) (OpenOrdersResponse, error) {
	var result OpenOrdersResponse
	if err := c.post(ctx, InfoRequest{Type: "openOrders", User: user}, &result); err != nil {
		return nil, err
	}
	return result, nil
}
