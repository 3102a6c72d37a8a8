package hyperliquid

import "time"

// REST transport tuning, matching the teacher's exchange.NewClient
// (10s timeout, 3 retries, 500ms-5s backoff on 5xx).
const (
	defaultReadTimeout   = 10 * time.Second
	defaultRetryWait     = 500 * time.Millisecond
	defaultRetryMaxWait  = 5 * time.Second
)

// WebSocket tuning, matching the teacher's exchange/ws.go constants.
const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	minReconnectWait = time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	tradeBufferSize  = 64
	readBufferSize   = 256
)

const (
	MainnetInfoURL     = "https://api.hyperliquid.xyz"
	MainnetWSURL       = "wss://api.hyperliquid.xyz/ws"
	TestnetInfoURL     = "https://api.hyperliquid-testnet.xyz"
	TestnetWSURL       = "wss://api.hyperliquid-testnet.xyz/ws"
)
