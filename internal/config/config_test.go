package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, dir string, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

const minimalYAML = `
dry_run: false
exchange:
  name: hyperliquid
  testnet: true
wallet:
  address: "0xabc"
  chain_id: 421614
strategy:
  gamma: 0.1
  sigma: 0.3
  k: 1.5
  t: 1.0
  default_spread_bps: 5
  order_size_usd: 100
risk:
  max_position_per_coin: 5000
  max_global_exposure: 20000
  max_coins_active: 5
  max_leverage: 10
`

func TestLoadParsesMinimalConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTestConfig(t, dir, minimalYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange.Name != "hyperliquid" {
		t.Fatalf("expected exchange name hyperliquid, got %q", cfg.Exchange.Name)
	}
	if !cfg.Exchange.Testnet {
		t.Fatal("expected testnet true")
	}
	if cfg.Strategy.Gamma != 0.1 {
		t.Fatalf("expected gamma 0.1, got %v", cfg.Strategy.Gamma)
	}
}

func TestLoadEnvOverridesPrivateKey(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, minimalYAML)

	t.Setenv("QUANTIS_PRIVATE_KEY", "0xdeadbeef")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Wallet.PrivateKey != "0xdeadbeef" {
		t.Fatalf("expected env override, got %q", cfg.Wallet.PrivateKey)
	}
}

func TestValidateRequiresPrivateKeyWhenNotDryRun(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		DryRun:   false,
		Exchange: ExchangeConfig{Name: "hyperliquid"},
		Strategy: StrategyConfig{Gamma: 0.1, OrderSizeUSD: 100},
		Risk:     RiskConfig{MaxPositionPerCoin: 1, MaxGlobalExposure: 1, MaxCoinsActive: 1, MaxLeverage: 1},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing private key")
	}
}

func TestValidateAllowsDryRunWithoutWallet(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		DryRun:   true,
		Exchange: ExchangeConfig{Name: "hyperliquid"},
		Strategy: StrategyConfig{Gamma: 0.1, OrderSizeUSD: 100},
		Risk:     RiskConfig{MaxPositionPerCoin: 1, MaxGlobalExposure: 1, MaxCoinsActive: 1, MaxLeverage: 1},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
