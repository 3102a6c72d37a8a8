// wire.go defines the venue-native JSON/msgpack shapes exchanged with
// Hyperliquid's Info and Exchange REST endpoints, grounded directly on
// other_examples/dwdwow-hl-go's types.go (OrderWire's field layout and
// msgpack tagging). Numeric fields are always strings on
// the wire; decoding into xdecimal.Decimal happens in client.go/exchangeapi.go,
// never by round-tripping through float64.
package hyperliquid

import "encoding/json"

// Tif is Hyperliquid's time-in-force enum as it appears on the wire.
type Tif string

const (
	TifGtc Tif = "Gtc"
	TifIoc Tif = "Ioc"
	TifAlo Tif = "Alo"
)

// LimitOrderTypeWire is the "limit" arm of OrderTypeWire.
type LimitOrderTypeWire struct {
	Tif Tif `json:"tif" msgpack:"tif"`
}

// OrderTypeWire tags whether an order is limit or trigger; only limit is
// used by this connector; market orders are submitted to Hyperliquid as
// IOC limit orders at a marketable price, the venue's own convention
// since it has no native market order type.
type OrderTypeWire struct {
	Limit *LimitOrderTypeWire `json:"limit,omitempty" msgpack:"limit,omitempty"`
}

// OrderWire is a single order leg in an "order" Exchange action, matching
// Hyperliquid's documented {a,b,p,s,r,t,c} shape exactly.
type OrderWire struct {
	Asset      int           `json:"a" msgpack:"a"`
	IsBuy      bool          `json:"b" msgpack:"b"`
	LimitPx    string        `json:"p" msgpack:"p"`
	Sz         string        `json:"s" msgpack:"s"`
	ReduceOnly bool          `json:"r" msgpack:"r"`
	OrderType  OrderTypeWire `json:"t" msgpack:"t"`
	Cloid      *string       `json:"c,omitempty" msgpack:"c,omitempty"`
}

// OrderAction is the Exchange endpoint's "order" action body.
type OrderAction struct {
	Type     string      `json:"type" msgpack:"type"` // always "order"
	Orders   []OrderWire `json:"orders" msgpack:"orders"`
	Grouping string      `json:"grouping" msgpack:"grouping"` // "na"
}

// CancelWire is a single cancel leg, identified by asset index + oid.
type CancelWire struct {
	Asset int   `json:"a" msgpack:"a"`
	Oid   int64 `json:"o" msgpack:"o"`
}

// CancelAction is the Exchange endpoint's "cancel" action body.
type CancelAction struct {
	Type    string       `json:"type" msgpack:"type"` // always "cancel"
	Cancels []CancelWire `json:"cancels" msgpack:"cancels"`
}

// CancelByCloidWire cancels by the client-chosen order id rather than oid.
type CancelByCloidWire struct {
	Asset int    `json:"asset" msgpack:"asset"`
	Cloid string `json:"cloid" msgpack:"cloid"`
}

// CancelByCloidAction is the Exchange endpoint's "cancelByCloid" action.
type CancelByCloidAction struct {
	Type    string              `json:"type" msgpack:"type"`
	Cancels []CancelByCloidWire `json:"cancels" msgpack:"cancels"`
}

// ExchangeRequest is the authenticated Exchange endpoint envelope:
// {action, nonce, signature, vaultAddress?}.
type ExchangeRequest struct {
	Action       interface{}  `json:"action"`
	Nonce        int64        `json:"nonce"`
	Signature    SignatureWire `json:"signature"`
	VaultAddress *string      `json:"vaultAddress,omitempty"`
}

// SignatureWire is the r/s/v tuple produced by the signer capability.
type SignatureWire struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// --- Exchange responses ---

// OrderResponseEnvelope wraps the Exchange endpoint's reply to an "order"
// action.
type OrderResponseEnvelope struct {
	Status   string             `json:"status"`
	Response *OrderResponseBody `json:"response,omitempty"`
}

type OrderResponseBody struct {
	Type string             `json:"type"`
	Data OrderResponseData `json:"data"`
}

type OrderResponseData struct {
	Statuses []OrderStatusWire `json:"statuses"`
}

// OrderStatusWire is the tagged union Hyperliquid returns per submitted
// order: exactly one of Resting, Filled, or Error is populated. Handling
// only Resting and ignoring Filled is a known footgun with this shape;
// both arms are matched exhaustively in exchangeapi.go's parseOrderStatus.
type OrderStatusWire struct {
	Resting *RestingOrderWire `json:"resting,omitempty"`
	Filled  *FilledOrderWire  `json:"filled,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type RestingOrderWire struct {
	Oid int64 `json:"oid"`
}

type FilledOrderWire struct {
	Oid    int64  `json:"oid"`
	TotalSz string `json:"totalSz"`
	AvgPx   string `json:"avgPx"`
}

// CancelResponseEnvelope wraps the Exchange endpoint's reply to a
// "cancel"/"cancelByCloid" action.
type CancelResponseEnvelope struct {
	Status   string              `json:"status"`
	Response *CancelResponseBody `json:"response,omitempty"`
}

type CancelResponseBody struct {
	Type string              `json:"type"`
	Data CancelResponseData `json:"data"`
}

type CancelResponseData struct {
	Statuses []string `json:"statuses"` // "success" or an error message
}

// --- Info endpoint ---

// InfoRequest is the unauthenticated Info endpoint envelope: {type, ...}.
type InfoRequest struct {
	Type string `json:"type"`
	Coin string `json:"coin,omitempty"`
	User string `json:"user,omitempty"`
	Oid  int64  `json:"oid,omitempty"`
	NSigFigs *int `json:"nSigFigs,omitempty"`
}

// AllMidsResponse maps coin -> mid price string.
type AllMidsResponse map[string]string

// L2BookResponse is the raw L2 book snapshot for one coin.
type L2BookResponse struct {
	Coin   string          `json:"coin"`
	Time   int64           `json:"time"`
	Levels [][]L2LevelWire `json:"levels"` // [0]=bids, [1]=asks
}

type L2LevelWire struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// MetaResponse is Hyperliquid's asset metadata listing, the source of the
// lazy coin -> asset-index map.
type MetaResponse struct {
	Universe []AssetInfo `json:"universe"`
}

type AssetInfo struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
	MaxLeverage int   `json:"maxLeverage"`
}

// AssetCtxWire is one coin's runtime market context: volume, funding, open
// interest, mark/mid/oracle prices. Returned alongside the asset universe by
// the metaAndAssetCtxs info request, in the same order as MetaResponse.Universe.
type AssetCtxWire struct {
	DayNtlVlm    string `json:"dayNtlVlm"`
	Funding      string `json:"funding"`
	MarkPx       string `json:"markPx"`
	MidPx        string `json:"midPx"`
	OpenInterest string `json:"openInterest"`
	OraclePx     string `json:"oraclePx"`
	PrevDayPx    string `json:"prevDayPx"`
}

// MetaAndAssetCtxsResponse is the raw two-element array the metaAndAssetCtxs
// info request returns: [meta, assetCtxs].
type MetaAndAssetCtxsResponse struct {
	Meta      MetaResponse
	AssetCtxs []AssetCtxWire
}

// UnmarshalJSON decodes the wire array form into the named fields.
func (r *MetaAndAssetCtxsResponse) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &r.Meta); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &r.AssetCtxs)
}

// ClearinghouseStateResponse is the per-user account snapshot backing
// GetBalance/GetPositions/Account sync.
type ClearinghouseStateResponse struct {
	MarginSummary              MarginSummaryWire   `json:"marginSummary"`
	CrossMarginSummary         MarginSummaryWire   `json:"crossMarginSummary"`
	CrossMaintenanceMarginUsed string              `json:"crossMaintenanceMarginUsed"`
	Withdrawable               string              `json:"withdrawable"`
	AssetPositions             []AssetPositionWire `json:"assetPositions"`
}

type MarginSummaryWire struct {
	AccountValue    string `json:"accountValue"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
	TotalMarginUsed string `json:"totalMarginUsed"`
}

type AssetPositionWire struct {
	Position PositionWire `json:"position"`
}

type PositionWire struct {
	Coin           string `json:"coin"`
	Szi            string `json:"szi"` // signed size: positive = long, negative = short
	EntryPx        string `json:"entryPx"`
	PositionValue  string `json:"positionValue"`
	UnrealizedPnl  string `json:"unrealizedPnl"`
	ReturnOnEquity string `json:"returnOnEquity"`
	Leverage       LeverageWire `json:"leverage"`
	LiquidationPx  *string `json:"liquidationPx,omitempty"`
	MarginUsed     string `json:"marginUsed"`
}

type LeverageWire struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// OpenOrdersResponse lists a user's resting orders.
type OpenOrdersResponse []OpenOrderWire

type OpenOrderWire struct {
	Coin      string  `json:"coin"`
	Oid       int64   `json:"oid"`
	Side      string  `json:"side"` // "B" or "A"
	LimitPx   string  `json:"limitPx"`
	Sz        string  `json:"sz"` // remaining, unfilled size
	OrigSz    string  `json:"origSz"`
	Timestamp int64   `json:"timestamp"`
	Cloid     *string `json:"cloid,omitempty"`
}

// --- WebSocket ---

// WSSubscribeMsg is the subscription control frame:
// {method:"subscribe", subscription:{type, coin?}}.
type WSSubscribeMsg struct {
	Method       string          `json:"method"` // "subscribe" | "unsubscribe"
	Subscription WSSubscription `json:"subscription"`
}

type WSSubscription struct {
	Type string `json:"type"`
	Coin string `json:"coin,omitempty"`
	User string `json:"user,omitempty"`
}

// WSEnvelope is the outer shape of every inbound WS message; Channel
// selects how Data is interpreted.
type WSEnvelope struct {
	Channel string          `json:"channel"`
	Data    interface{}     `json:"data"`
}

type WSAllMidsData struct {
	Mids map[string]string `json:"mids"`
}

type WSL2BookData struct {
	Coin   string          `json:"coin"`
	Time   int64           `json:"time"`
	Levels [][]L2LevelWire `json:"levels"`
}

type WSTradeWire struct {
	Coin string `json:"coin"`
	Side string `json:"side"`
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Time int64  `json:"time"`
	Tid  int64  `json:"tid"`
}

// WSUserFillWire is a single fill inside a "userFills" channel event.
type WSUserFillWire struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"`
	Time          int64  `json:"time"`
	StartPosition string `json:"startPosition"`
	Dir           string `json:"dir"`
	ClosedPnl     string `json:"closedPnl"`
	Oid           int64  `json:"oid"`
	Tid           int64  `json:"tid"`
	Fee           string `json:"fee"`
}

type WSUserFillsData struct {
	IsSnapshot bool             `json:"isSnapshot"`
	Fills      []WSUserFillWire `json:"fills"`
}

// WSOrderUpdateWire is a single order inside an "orderUpdates" channel
// event.
type WSOrderUpdateWire struct {
	Order           OpenOrderWire `json:"order"`
	Status          string        `json:"status"` // "open","filled","canceled","rejected","triggered"
	StatusTimestamp int64         `json:"statusTimestamp"`
}
