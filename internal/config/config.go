// Package config defines all configuration for the trading engine. Config
// is loaded from a YAML file (default: configs/config.yaml) with sensitive
// fields overridable via QUANTIS_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Paper     PaperConfig     `mapstructure:"paper"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// ExchangeConfig selects and addresses the venue connector.
type ExchangeConfig struct {
	Name    string `mapstructure:"name"`
	Testnet bool   `mapstructure:"testnet"`
}

// WalletConfig holds the Ethereum wallet used for signing exchange actions.
// PrivateKey signs every order/cancel action via the Agent EIP-712 scheme.
type WalletConfig struct {
	Address    string `mapstructure:"address"`
	PrivateKey string `mapstructure:"private_key"`
	ChainID    int    `mapstructure:"chain_id"`
}

// StrategyConfig tunes the Avellaneda-Stoikov quoting parameters shared
// across every pluggable strategy body.
//
//   - Gamma: risk aversion parameter. Higher = tighter spread, less inventory risk.
//   - Sigma: estimated price volatility (annualized std dev).
//   - K:     order arrival rate. Higher K = more aggressive quotes.
//   - T:     time horizon in years (e.g. 1.0 = 1 year).
//   - DefaultSpreadBps: minimum spread floor in basis points.
//   - OrderSizeUSD: target notional size per order.
//   - RefreshInterval: how often to recompute and reconcile quotes.
//   - StaleBookTimeout: cancel all orders if no book update within this window.
type StrategyConfig struct {
	Gamma            float64       `mapstructure:"gamma"`
	Sigma            float64       `mapstructure:"sigma"`
	K                float64       `mapstructure:"k"`
	T                float64       `mapstructure:"t"`
	DefaultSpreadBps int           `mapstructure:"default_spread_bps"`
	OrderSizeUSD     float64       `mapstructure:"order_size_usd"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	StaleBookTimeout time.Duration `mapstructure:"stale_book_timeout"`
}

// RiskConfig sets hard limits that trigger the kill switch.
//
//   - MaxPositionPerCoin: max USD notional exposure in any single coin.
//   - MaxGlobalExposure: max USD notional exposure across all open positions combined.
//   - MaxCoinsActive: cap on how many coins the engine trades simultaneously.
//   - MaxLeverage: hard cap on per-position leverage.
//   - KillSwitchDropPct: if mark price moves this % within the window, kill switch fires.
//   - KillSwitchWindowSec: time window for measuring rapid price movement.
//   - MaxDailyLoss: max combined (realized + unrealized) loss before kill switch.
//   - CooldownAfterKill: how long the kill switch stays engaged after firing.
type RiskConfig struct {
	MaxPositionPerCoin  float64       `mapstructure:"max_position_per_coin"`
	MaxGlobalExposure   float64       `mapstructure:"max_global_exposure"`
	MaxCoinsActive      int           `mapstructure:"max_coins_active"`
	MaxLeverage         float64       `mapstructure:"max_leverage"`
	KillSwitchDropPct   float64       `mapstructure:"kill_switch_drop_pct"`
	KillSwitchWindowSec int           `mapstructure:"kill_switch_window_sec"`
	MaxDailyLoss        float64       `mapstructure:"max_daily_loss"`
	CooldownAfterKill   time.Duration `mapstructure:"cooldown_after_kill"`
}

// DiscoveryConfig controls how the engine discovers and ranks tradeable
// perpetual markets. The scanner polls venue metadata and ranks coins by
// opportunity score: score = spread * sqrt(volume24h) * min(openInterest/floor, 1).
type DiscoveryConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MinVolume24h float64       `mapstructure:"min_volume_24h"`
	MinSpread    float64       `mapstructure:"min_spread"`
	ExcludeCoins []string      `mapstructure:"exclude_coins"`
}

// BacktestConfig controls historical replay.
type BacktestConfig struct {
	CandleDir      string  `mapstructure:"candle_dir"`
	Interval       string  `mapstructure:"interval"`
	SlippageBps    float64 `mapstructure:"slippage_bps"`
	CommissionBps  float64 `mapstructure:"commission_bps"`
	InitialCapital float64 `mapstructure:"initial_capital"`
}

// PaperConfig controls the live paper-trading simulator.
type PaperConfig struct {
	SlippageBps    float64 `mapstructure:"slippage_bps"`
	CommissionBps  float64 `mapstructure:"commission_bps"`
	InitialCapital float64 `mapstructure:"initial_capital"`
}

// StoreConfig sets where position/order/result data is persisted (JSON files).
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the telemetry HTTP/WS server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: QUANTIS_PRIVATE_KEY, QUANTIS_WALLET_ADDRESS.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("QUANTIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("QUANTIS_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if addr := os.Getenv("QUANTIS_WALLET_ADDRESS"); addr != "" {
		cfg.Wallet.Address = addr
	}
	if os.Getenv("QUANTIS_DRY_RUN") == "true" || os.Getenv("QUANTIS_DRY_RUN") == "1" {
		cfg.DryRun = true
	}
	if os.Getenv("QUANTIS_TESTNET") == "true" || os.Getenv("QUANTIS_TESTNET") == "1" {
		cfg.Exchange.Testnet = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Exchange.Name == "" {
		return fmt.Errorf("exchange.name is required")
	}
	if !c.DryRun {
		if c.Wallet.PrivateKey == "" {
			return fmt.Errorf("wallet.private_key is required for live trading (set QUANTIS_PRIVATE_KEY)")
		}
		if c.Wallet.ChainID == 0 {
			return fmt.Errorf("wallet.chain_id is required")
		}
	}
	if c.Strategy.Gamma <= 0 {
		return fmt.Errorf("strategy.gamma must be > 0")
	}
	if c.Strategy.OrderSizeUSD <= 0 {
		return fmt.Errorf("strategy.order_size_usd must be > 0")
	}
	if c.Risk.MaxPositionPerCoin <= 0 {
		return fmt.Errorf("risk.max_position_per_coin must be > 0")
	}
	if c.Risk.MaxGlobalExposure <= 0 {
		return fmt.Errorf("risk.max_global_exposure must be > 0")
	}
	if c.Risk.MaxCoinsActive <= 0 {
		return fmt.Errorf("risk.max_coins_active must be > 0")
	}
	if c.Risk.MaxLeverage <= 0 {
		return fmt.Errorf("risk.max_leverage must be > 0")
	}
	return nil
}
