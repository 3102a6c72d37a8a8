// Package discovery periodically polls Hyperliquid venue metadata and ranks
// tradeable perpetual coins by an opportunity score, so the engine can focus
// its limited concurrent-position budget on the most attractive markets.
// Grounded on the teacher's market.Scanner (Gamma API polling, hard filters,
// then a composite spread*sqrt(volume)*liquidityFactor score), generalized
// from Polymarket's per-market Gamma response into Hyperliquid's
// metaAndAssetCtxs response and from a liquidity-USD cap into an
// open-interest-floor cap.
package discovery

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/0xtitan6/quantis/internal/config"
	"github.com/0xtitan6/quantis/internal/hyperliquid"
	"github.com/0xtitan6/quantis/pkg/market"
)

// openInterestFloor saturates the open-interest factor of the opportunity
// score: coins at or above this much open interest get the full factor of 1.
const openInterestFloor = 1_000_000.0

// Opportunity is one ranked, tradeable coin.
type Opportunity struct {
	Pair         market.TradingPair
	SpreadBps    float64
	Volume24h    float64
	OpenInterest float64
	Score        float64
}

// ScanResult is one completed poll.
type ScanResult struct {
	Opportunities []Opportunity
	ScannedAt     time.Time
}

// Scanner periodically polls Hyperliquid's asset universe and asset
// contexts, filters out thin/excluded coins, and ranks the rest.
type Scanner struct {
	info     *hyperliquid.InfoClient
	cfg      config.DiscoveryConfig
	maxCoins int
	logger   *slog.Logger
	resultCh chan ScanResult

	mu   sync.RWMutex
	last ScanResult
}

// NewScanner builds a discovery scanner. maxCoins caps the number of
// opportunities returned per scan (typically config.RiskConfig.MaxCoinsActive).
func NewScanner(info *hyperliquid.InfoClient, cfg config.DiscoveryConfig, maxCoins int, logger *slog.Logger) *Scanner {
	return &Scanner{
		info:     info,
		cfg:      cfg,
		maxCoins: maxCoins,
		logger:   logger.With("component", "discovery"),
		resultCh: make(chan ScanResult, 1),
	}
}

// Results returns the channel the engine reads ranked opportunities from.
func (s *Scanner) Results() <-chan ScanResult {
	return s.resultCh
}

// LastResult returns the most recently completed scan, for dashboard display.
func (s *Scanner) LastResult() ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Run polls immediately, then on cfg.PollInterval, until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	s.scan(ctx)

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *Scanner) scan(ctx context.Context) {
	resp, err := s.info.MetaAndAssetCtxs(ctx)
	if err != nil {
		s.logger.Error("scan failed", "error", err)
		return
	}

	all := toOpportunities(resp)
	filtered := s.filter(all)
	ranked := rank(filtered)
	if s.maxCoins > 0 && len(ranked) > s.maxCoins {
		ranked = ranked[:s.maxCoins]
	}

	s.logger.Info("scan complete", "total", len(all), "filtered", len(filtered), "selected", len(ranked))

	result := ScanResult{Opportunities: ranked, ScannedAt: time.Now()}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	select {
	case s.resultCh <- result:
	default:
		select {
		case <-s.resultCh:
		default:
		}
		s.resultCh <- result
	}
}

func toOpportunities(resp *hyperliquid.MetaAndAssetCtxsResponse) []Opportunity {
	out := make([]Opportunity, 0, len(resp.Meta.Universe))
	for i, asset := range resp.Meta.Universe {
		if i >= len(resp.AssetCtxs) {
			break
		}
		ctx := resp.AssetCtxs[i]
		mid := parseFloat(ctx.MidPx)
		mark := parseFloat(ctx.MarkPx)
		oracle := parseFloat(ctx.OraclePx)
		spreadBps := 0.0
		if mid > 0 && mark > 0 {
			ref := oracle
			if ref == 0 {
				ref = mark
			}
			spreadBps = math.Abs(mark-mid) / ref * 10000
		}
		out = append(out, Opportunity{
			Pair:         market.NewTradingPair(asset.Name, "USDC"),
			SpreadBps:    spreadBps,
			Volume24h:    parseFloat(ctx.DayNtlVlm),
			OpenInterest: parseFloat(ctx.OpenInterest),
		})
	}
	return out
}

func (s *Scanner) filter(all []Opportunity) []Opportunity {
	excluded := make(map[string]bool, len(s.cfg.ExcludeCoins))
	for _, c := range s.cfg.ExcludeCoins {
		excluded[c] = true
	}

	out := make([]Opportunity, 0, len(all))
	for _, o := range all {
		if excluded[o.Pair.Base] {
			continue
		}
		if o.Volume24h < s.cfg.MinVolume24h {
			continue
		}
		if o.SpreadBps < s.cfg.MinSpread {
			continue
		}
		out = append(out, o)
	}
	return out
}

// rank scores and sorts opportunities: score = spread * sqrt(volume24h) *
// min(openInterest/openInterestFloor, 1).
func rank(opps []Opportunity) []Opportunity {
	for i := range opps {
		liquidityFactor := math.Min(opps[i].OpenInterest/openInterestFloor, 1.0)
		opps[i].Score = opps[i].SpreadBps * math.Sqrt(opps[i].Volume24h) * liquidityFactor
	}
	sort.Slice(opps, func(i, j int) bool { return opps[i].Score > opps[j].Score })
	return opps
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
