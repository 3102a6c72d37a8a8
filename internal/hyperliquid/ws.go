// ws.go implements the single persistent Hyperliquid WebSocket connection:
// background receive loop, explicit reconnect flag, exponential backoff
// (1s -> 30s) and subscription replay on reconnect. Generalized from the
// teacher's exchange/ws.go WSFeed (which ran two separate feeds for market
// vs. user channels, keyed by asset/condition id) into one feed that
// tracks an arbitrary set of {type, coin} subscriptions and dispatches by
// Hyperliquid's "channel" envelope field instead of Polymarket's
// "event_type" field. The hand-off-via-buffered-channel-with-drop pattern
// is carried unchanged.
package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// WSFeed manages the single Hyperliquid WebSocket connection.
type WSFeed struct {
	url    string
	logger *slog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	subsMu sync.RWMutex
	subs   map[WSSubscription]bool

	reconnect atomic.Bool

	allMidsCh  chan WSAllMidsData
	l2BookCh   chan WSL2BookData
	tradesCh   chan []WSTradeWire
	userFillCh chan WSUserFillsData
	orderCh    chan WSOrderUpdateWire
}

// NewWSFeed creates a feed bound to url (mainnet or testnet per config).
func NewWSFeed(url string, logger *slog.Logger) *WSFeed {
	f := &WSFeed{
		url:        url,
		logger:     logger.With("component", "hyperliquid_ws"),
		subs:       make(map[WSSubscription]bool),
		allMidsCh:  make(chan WSAllMidsData, readBufferSize),
		l2BookCh:   make(chan WSL2BookData, readBufferSize),
		tradesCh:   make(chan []WSTradeWire, readBufferSize),
		userFillCh: make(chan WSUserFillsData, tradeBufferSize),
		orderCh:    make(chan WSOrderUpdateWire, tradeBufferSize),
	}
	f.reconnect.Store(true)
	return f
}

func (f *WSFeed) AllMidsEvents() <-chan WSAllMidsData    { return f.allMidsCh }
func (f *WSFeed) L2BookEvents() <-chan WSL2BookData      { return f.l2BookCh }
func (f *WSFeed) TradeEvents() <-chan []WSTradeWire      { return f.tradesCh }
func (f *WSFeed) UserFillEvents() <-chan WSUserFillsData { return f.userFillCh }
func (f *WSFeed) OrderUpdateEvents() <-chan WSOrderUpdateWire { return f.orderCh }

// Run connects and maintains the connection with auto-reconnect. Blocks
// until ctx is cancelled or Close is called (which clears the reconnect
// flag to suppress further attempts).
func (f *WSFeed) Run(ctx context.Context) error {
	backoff := minReconnectWait

	for f.reconnect.Load() {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !f.reconnect.Load() {
			return nil
		}

		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		wait := reconnectDelay(backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
	return nil
}

// Subscribe records a subscription and sends it immediately if connected;
// it is replayed automatically after any reconnect.
func (f *WSFeed) Subscribe(sub WSSubscription) error {
	f.subsMu.Lock()
	f.subs[sub] = true
	f.subsMu.Unlock()

	return f.writeJSON(WSSubscribeMsg{Method: "subscribe", Subscription: sub})
}

// Unsubscribe removes a subscription and, if connected, sends the
// unsubscribe frame.
func (f *WSFeed) Unsubscribe(sub WSSubscription) error {
	f.subsMu.Lock()
	delete(f.subs, sub)
	f.subsMu.Unlock()

	return f.writeJSON(WSSubscribeMsg{Method: "unsubscribe", Subscription: sub})
}

// Close sets the reconnect flag false before closing, suppressing further
// reconnect attempts.
func (f *WSFeed) Close() error {
	f.reconnect.Store(false)
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *WSFeed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	if err := f.replaySubscriptions(); err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}

	f.logger.Info("hyperliquid websocket connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		f.dispatchMessage(msg)
	}
}

func (f *WSFeed) replaySubscriptions() error {
	f.subsMu.RLock()
	subs := make([]WSSubscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.subsMu.RUnlock()

	for _, sub := range subs {
		if err := f.writeJSON(WSSubscribeMsg{Method: "subscribe", Subscription: sub}); err != nil {
			return err
		}
	}
	return nil
}

// dispatchMessage routes by the "channel" field, matching Hyperliquid's
// envelope, and hands off onto buffered channels, dropping with a Warn log
// on backpressure rather than blocking the read loop.
func (f *WSFeed) dispatchMessage(data []byte) {
	var envelope struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Debug("ignoring non-json ws message", "data", string(data))
		return
	}

	switch envelope.Channel {
	case "allMids":
		var evt WSAllMidsData
		if err := json.Unmarshal(envelope.Data, &evt); err != nil {
			f.logger.Error("unmarshal allMids", "error", err)
			return
		}
		select {
		case f.allMidsCh <- evt:
		default:
			f.logger.Warn("allMids channel full, dropping event")
		}

	case "l2Book":
		var evt WSL2BookData
		if err := json.Unmarshal(envelope.Data, &evt); err != nil {
			f.logger.Error("unmarshal l2Book", "error", err)
			return
		}
		select {
		case f.l2BookCh <- evt:
		default:
			f.logger.Warn("l2Book channel full, dropping event", "coin", evt.Coin)
		}

	case "trades":
		var evt []WSTradeWire
		if err := json.Unmarshal(envelope.Data, &evt); err != nil {
			f.logger.Error("unmarshal trades", "error", err)
			return
		}
		select {
		case f.tradesCh <- evt:
		default:
			f.logger.Warn("trades channel full, dropping event")
		}

	case "userFills":
		var evt WSUserFillsData
		if err := json.Unmarshal(envelope.Data, &evt); err != nil {
			f.logger.Error("unmarshal userFills", "error", err)
			return
		}
		select {
		case f.userFillCh <- evt:
		default:
			f.logger.Warn("userFills channel full, dropping event")
		}

	case "orderUpdates":
		var evts []WSOrderUpdateWire
		if err := json.Unmarshal(envelope.Data, &evts); err != nil {
			f.logger.Error("unmarshal orderUpdates", "error", err)
			return
		}
		for _, evt := range evts {
			select {
			case f.orderCh <- evt:
			default:
				f.logger.Warn("orderUpdates channel full, dropping event", "oid", evt.Order.Oid)
			}
		}

	case "subscriptionResponse":
		f.logger.Debug("subscription acknowledged", "data", string(envelope.Data))

	case "error":
		f.logger.Warn("hyperliquid websocket error frame", "data", string(envelope.Data))

	default:
		f.logger.Debug("unknown ws channel", "channel", envelope.Channel)
	}
}

func (f *WSFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeJSON(map[string]string{"method": "ping"}); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

// reconnectDelay paces a reconnect attempt through a fresh rate.Limiter
// rather than returning d directly, so the exponential backoff schedule is
// enforced the same way outbound call pacing is: a limiter admitting one
// event per d. The limiter starts with a token already available, so that
// token is drained first to get a real ~d delay out of Reserve instead of
// an immediate grant.
func reconnectDelay(d time.Duration) time.Duration {
	lim := rate.NewLimiter(rate.Every(d), 1)
	now := time.Now()
	lim.AllowN(now, 1)
	return lim.ReserveN(now, 1).DelayFrom(now)
}

func (f *WSFeed) writeJSON(v interface{}) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return nil // not yet connected; Subscribe calls before Run are replayed on connect
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}
