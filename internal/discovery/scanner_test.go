package discovery

import (
	"testing"

	"github.com/0xtitan6/quantis/internal/config"
	"github.com/0xtitan6/quantis/internal/hyperliquid"
	"github.com/0xtitan6/quantis/pkg/market"
)

func testDiscoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		MinVolume24h: 500,
		MinSpread:    1,
		ExcludeCoins: []string{"JUNK"},
	}
}

func TestFilterExcludesThinAndListedCoins(t *testing.T) {
	t.Parallel()
	s := &Scanner{cfg: testDiscoveryConfig()}
	opps := []Opportunity{
		{Pair: market.NewTradingPair("BTC", "USDC"), SpreadBps: 5, Volume24h: 1_000_000},
		{Pair: market.NewTradingPair("THIN", "USDC"), SpreadBps: 5, Volume24h: 10},
		{Pair: market.NewTradingPair("TIGHT", "USDC"), SpreadBps: 0.1, Volume24h: 1_000_000},
		{Pair: market.NewTradingPair("JUNK", "USDC"), SpreadBps: 5, Volume24h: 1_000_000},
	}
	filtered := s.filter(opps)
	if len(filtered) != 1 || filtered[0].Pair.Base != "BTC" {
		t.Fatalf("expected only BTC to survive filtering, got %+v", filtered)
	}
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	t.Parallel()
	opps := []Opportunity{
		{Pair: market.NewTradingPair("LOW", "USDC"), SpreadBps: 1, Volume24h: 100, OpenInterest: 1_000_000},
		{Pair: market.NewTradingPair("HIGH", "USDC"), SpreadBps: 10, Volume24h: 10_000, OpenInterest: 1_000_000},
	}
	ranked := rank(opps)
	if ranked[0].Pair.Base != "HIGH" {
		t.Errorf("expected HIGH to rank first, got %s", ranked[0].Pair.Base)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Error("expected strictly descending scores")
	}
}

func TestRankCapsOpenInterestFactorAtOne(t *testing.T) {
	t.Parallel()
	opps := []Opportunity{
		{Pair: market.NewTradingPair("A", "USDC"), SpreadBps: 5, Volume24h: 100, OpenInterest: openInterestFloor},
		{Pair: market.NewTradingPair("B", "USDC"), SpreadBps: 5, Volume24h: 100, OpenInterest: openInterestFloor * 10},
	}
	ranked := rank(opps)
	scoreA := ranked[0].Score
	if ranked[0].Pair.Base == "B" {
		scoreA = ranked[1].Score
	}
	var scoreB float64
	for _, o := range ranked {
		if o.Pair.Base == "B" {
			scoreB = o.Score
		}
	}
	if scoreA != scoreB {
		t.Errorf("expected open interest beyond the floor not to add further score: %v != %v", scoreA, scoreB)
	}
}

func TestToOpportunitiesParsesAssetContexts(t *testing.T) {
	t.Parallel()
	resp := &hyperliquid.MetaAndAssetCtxsResponse{
		Meta: hyperliquid.MetaResponse{
			Universe: []hyperliquid.AssetInfo{{Name: "BTC", SzDecimals: 5}},
		},
		AssetCtxs: []hyperliquid.AssetCtxWire{
			{MidPx: "100.5", MarkPx: "100", OraclePx: "100", DayNtlVlm: "2000000", OpenInterest: "500000"},
		},
	}
	opps := toOpportunities(resp)
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}
	o := opps[0]
	if o.Pair.Base != "BTC" || o.Pair.Quote != "USDC" {
		t.Errorf("pair = %v, want BTC-USDC", o.Pair)
	}
	if o.Volume24h != 2_000_000 || o.OpenInterest != 500_000 {
		t.Errorf("volume/oi = %v/%v, want 2000000/500000", o.Volume24h, o.OpenInterest)
	}
	if o.SpreadBps <= 0 {
		t.Error("expected a nonzero spread from mark != mid")
	}
}
