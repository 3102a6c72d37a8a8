// Package dashboardapi is the read-only HTTP/WebSocket telemetry surface:
// a JSON snapshot endpoint plus a push feed of fill/order/position/kill
// events. Grounded on the teacher's internal/api package (DashboardSnapshot,
// Hub/Client, origin-checked upgrader), generalized from per-market YES/NO
// position telemetry to per-coin long/short perpetual telemetry.
package dashboardapi

import (
	"time"

	"github.com/0xtitan6/quantis/internal/config"
)

// Snapshot is the complete dashboard state at one instant.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	Markets []MarketStatus `json:"markets"`

	TotalRealizedPnL   float64 `json:"total_realized_pnl"`
	TotalUnrealizedPnL float64 `json:"total_unrealized_pnl"`
	TotalPnL           float64 `json:"total_pnl"`

	Risk   RiskSnapshot   `json:"risk"`
	Config ConfigSummary  `json:"config"`
	Scan   ScanSummary    `json:"scan"`
}

// MarketStatus is one coin's current book/position state.
type MarketStatus struct {
	Coin string `json:"coin"`

	MidPrice    float64   `json:"mid_price"`
	BestBid     float64   `json:"best_bid"`
	BestAsk     float64   `json:"best_ask"`
	SpreadBps   float64   `json:"spread_bps"`
	LastUpdated time.Time `json:"last_updated"`

	Position PositionSnapshot `json:"position"`
}

// PositionSnapshot is the tracked position and P&L for one coin.
type PositionSnapshot struct {
	Side          string  `json:"side"` // "long", "short", or "" if flat
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	MarkPrice     float64 `json:"mark_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	ExposureUSD   float64 `json:"exposure_usd"`
	Leverage      float64 `json:"leverage"`
}

// RiskSnapshot mirrors risk.RiskSnapshot for JSON transport.
type RiskSnapshot struct {
	GlobalExposure    float64 `json:"global_exposure"`
	MaxGlobalExposure float64 `json:"max_global_exposure"`
	ExposurePct       float64 `json:"exposure_pct"`

	KillSwitchActive bool      `json:"kill_switch_active"`
	KillSwitchUntil  time.Time `json:"kill_switch_until,omitempty"`
	KillSwitchReason string    `json:"kill_switch_reason,omitempty"`

	TotalRealizedPnL   float64 `json:"total_realized_pnl"`
	TotalUnrealizedPnL float64 `json:"total_unrealized_pnl"`

	MaxPositionPerCoin float64 `json:"max_position_per_coin"`
	MaxDailyLoss       float64 `json:"max_daily_loss"`
	MaxCoinsActive     int     `json:"max_coins_active"`
	CurrentCoinsActive int     `json:"current_coins_active"`
}

// ConfigSummary is the strategy/risk/discovery configuration currently in effect.
type ConfigSummary struct {
	Gamma            float64 `json:"gamma"`
	Sigma            float64 `json:"sigma"`
	K                float64 `json:"k"`
	T                float64 `json:"t"`
	DefaultSpreadBps int     `json:"default_spread_bps"`
	OrderSizeUSD     float64 `json:"order_size_usd"`
	RefreshInterval  string  `json:"refresh_interval"`
	StaleBookTimeout string  `json:"stale_book_timeout"`

	MaxPositionPerCoin  float64 `json:"max_position_per_coin"`
	MaxGlobalExposure   float64 `json:"max_global_exposure"`
	MaxCoinsActive      int     `json:"max_coins_active"`
	MaxLeverage         float64 `json:"max_leverage"`
	KillSwitchDropPct   float64 `json:"kill_switch_drop_pct"`
	KillSwitchWindowSec int     `json:"kill_switch_window_sec"`
	MaxDailyLoss        float64 `json:"max_daily_loss"`
	CooldownAfterKill   string  `json:"cooldown_after_kill"`

	DiscoveryPollInterval string  `json:"discovery_poll_interval"`
	MinVolume24h          float64 `json:"min_volume_24h"`
	MinSpread             float64 `json:"min_spread"`

	DryRun bool `json:"dry_run"`
}

// ScanSummary reports on the most recent discovery scan.
type ScanSummary struct {
	LastScanTime  time.Time `json:"last_scan_time"`
	CoinsSelected int       `json:"coins_selected"`
}

// NewConfigSummary projects the full engine config into its dashboard view.
func NewConfigSummary(cfg config.Config) ConfigSummary {
	return ConfigSummary{
		Gamma:            cfg.Strategy.Gamma,
		Sigma:            cfg.Strategy.Sigma,
		K:                cfg.Strategy.K,
		T:                cfg.Strategy.T,
		DefaultSpreadBps: cfg.Strategy.DefaultSpreadBps,
		OrderSizeUSD:     cfg.Strategy.OrderSizeUSD,
		RefreshInterval:  cfg.Strategy.RefreshInterval.String(),
		StaleBookTimeout: cfg.Strategy.StaleBookTimeout.String(),

		MaxPositionPerCoin:  cfg.Risk.MaxPositionPerCoin,
		MaxGlobalExposure:   cfg.Risk.MaxGlobalExposure,
		MaxCoinsActive:      cfg.Risk.MaxCoinsActive,
		MaxLeverage:         cfg.Risk.MaxLeverage,
		KillSwitchDropPct:   cfg.Risk.KillSwitchDropPct,
		KillSwitchWindowSec: cfg.Risk.KillSwitchWindowSec,
		MaxDailyLoss:        cfg.Risk.MaxDailyLoss,
		CooldownAfterKill:   cfg.Risk.CooldownAfterKill.String(),

		DiscoveryPollInterval: cfg.Discovery.PollInterval.String(),
		MinVolume24h:          cfg.Discovery.MinVolume24h,
		MinSpread:             cfg.Discovery.MinSpread,

		DryRun: cfg.DryRun,
	}
}
