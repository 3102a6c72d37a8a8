package dashboardapi

import (
	"io"
	"log/slog"
	"testing"

	"github.com/0xtitan6/quantis/internal/config"
	"github.com/0xtitan6/quantis/internal/discovery"
	"github.com/0xtitan6/quantis/internal/risk"
)

type fakeProvider struct {
	markets []MarketStatus
	risk    *risk.Manager
	scanner *discovery.Scanner
}

func (f *fakeProvider) GetMarketsSnapshot() []MarketStatus    { return f.markets }
func (f *fakeProvider) GetScanner() *discovery.Scanner        { return f.scanner }
func (f *fakeProvider) GetRiskManager() *risk.Manager         { return f.risk }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildSnapshotAggregatesUnrealizedPnL(t *testing.T) {
	t.Parallel()
	rm := risk.NewManager(config.RiskConfig{MaxGlobalExposure: 1000, MaxCoinsActive: 5}, testLogger())
	scanner := discovery.NewScanner(nil, config.DiscoveryConfig{}, 5, testLogger())

	provider := &fakeProvider{
		markets: []MarketStatus{
			{Coin: "BTC", Position: PositionSnapshot{Side: "long", UnrealizedPnL: 50}},
			{Coin: "ETH", Position: PositionSnapshot{Side: "short", UnrealizedPnL: -10}},
		},
		risk:    rm,
		scanner: scanner,
	}

	snap := BuildSnapshot(provider, config.Config{})
	if snap.TotalUnrealizedPnL != 40 {
		t.Errorf("total unrealized = %v, want 40", snap.TotalUnrealizedPnL)
	}
	if len(snap.Markets) != 2 {
		t.Errorf("expected 2 markets in snapshot, got %d", len(snap.Markets))
	}
}
