// Package risk enforces portfolio-level risk limits across all traded coins.
//
// The risk manager runs as a standalone goroutine that receives PositionReports
// built from the account tracker's positions (cmd/quantis sends one per open
// coin every 5 seconds) and checks them against configured limits:
//
//   - Per-coin exposure:    caps USD notional in any single coin
//   - Global exposure:      caps total USD notional across all coins
//   - Leverage:             caps per-position notional/margin ratio
//   - Daily loss:           triggers kill switch if realized+unrealized PnL exceeds threshold
//   - Rapid price movement: triggers kill switch if mark price moves more than
//     KillSwitchDropPct within KillSwitchWindowSec seconds
//
// When a limit is breached, the manager emits a KillSignal on KillCh(). The
// caller reads this signal and cancels all orders (globally or per-coin).
// After a kill, the kill switch stays active for CooldownAfterKill duration,
// during which the strategy layer should skip quoting.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/0xtitan6/quantis/internal/config"
)

// PositionReport is sent for a coin on each reporting tick. It contains the
// current position state and PnL for risk evaluation.
type PositionReport struct {
	Coin          string
	Size          float64 // signed: positive long, negative short
	MarkPrice     float64
	ExposureUSD   float64 // abs(Size) * MarkPrice
	Leverage      float64 // notional / margin committed to this position
	UnrealizedPnL float64
	RealizedPnL   float64
	Timestamp     time.Time
}

// KillSignal tells the caller to cancel all orders. If Coin is empty, it
// means cancel across ALL coins (global kill).
type KillSignal struct {
	Coin   string // empty = kill ALL coins
	Reason string
}

// priceAnchor stores a reference price at a point in time for detecting
// rapid price movements within a rolling window.
type priceAnchor struct {
	price     float64
	timestamp time.Time
}

// Manager enforces risk limits across all active coins. It aggregates
// position reports, checks limits, and emits kill signals when breached.
type Manager struct {
	cfg    config.RiskConfig
	logger *slog.Logger

	mu               sync.RWMutex
	positions        map[string]PositionReport // latest report per coin
	totalExposure    float64                   // sum of all ExposureUSD
	totalRealizedPnL float64                   // sum of all RealizedPnL
	killSwitchActive bool                      // true while in cooldown
	killSwitchUntil  time.Time                 // when cooldown expires
	priceAnchors     map[string]priceAnchor    // reference prices for movement detection

	reportCh chan PositionReport // account tracker writes here
	killCh   chan KillSignal     // execution layer reads kill signals from here
}

// NewManager creates a risk manager.
func NewManager(cfg config.RiskConfig, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:          cfg,
		logger:       logger.With("component", "risk"),
		positions:    make(map[string]PositionReport),
		priceAnchors: make(map[string]priceAnchor),
		reportCh:     make(chan PositionReport, 100),
		killCh:       make(chan KillSignal, 10),
	}
}

// Run starts the risk monitoring loop.
func (rm *Manager) Run(ctx context.Context) {
	// Periodic check clears kill switch even when no reports arrive
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case report := <-rm.reportCh:
			rm.processReport(report)
		case <-ticker.C:
			rm.clearExpiredKillSwitch()
		}
	}
}

// Report submits a position report (non-blocking).
func (rm *Manager) Report(report PositionReport) {
	select {
	case rm.reportCh <- report:
	default:
		rm.logger.Warn("risk report channel full, dropping report", "coin", report.Coin)
	}
}

// KillCh returns the channel for reading kill signals.
func (rm *Manager) KillCh() <-chan KillSignal {
	return rm.killCh
}

// RemoveCoin cleans up state once a coin's position is fully closed.
func (rm *Manager) RemoveCoin(coin string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	delete(rm.positions, coin)
	delete(rm.priceAnchors, coin)

	rm.totalExposure = 0
	rm.totalRealizedPnL = 0
	for _, pos := range rm.positions {
		rm.totalExposure += pos.ExposureUSD
		rm.totalRealizedPnL += pos.RealizedPnL
	}
}

// IsKillSwitchActive returns whether the kill switch is engaged.
func (rm *Manager) IsKillSwitchActive() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if !rm.killSwitchActive {
		return false
	}
	if time.Now().After(rm.killSwitchUntil) {
		rm.killSwitchActive = false
		rm.logger.Info("kill switch cooldown expired")
		return false
	}
	return true
}

// RemainingBudget returns how much additional USD notional is allowed for
// coin. It takes the minimum of:
//   - per-coin headroom: MaxPositionPerCoin − current coin exposure
//   - global headroom:   MaxGlobalExposure − total exposure across all coins
//
// Returns 0 if either limit is already exceeded.
func (rm *Manager) RemainingBudget(coin string) float64 {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var currentExposure float64
	if pos, ok := rm.positions[coin]; ok {
		currentExposure = pos.ExposureUSD
	}

	perCoin := rm.cfg.MaxPositionPerCoin - currentExposure
	global := rm.cfg.MaxGlobalExposure - rm.totalExposure

	remaining := perCoin
	if global < remaining {
		remaining = global
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetRiskSnapshot returns current aggregate risk metrics for the dashboard.
func (rm *Manager) GetRiskSnapshot() RiskSnapshot {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var totalUnrealizedPnL float64
	for _, pos := range rm.positions {
		totalUnrealizedPnL += pos.UnrealizedPnL
	}

	var exposurePct float64
	if rm.cfg.MaxGlobalExposure > 0 {
		exposurePct = (rm.totalExposure / rm.cfg.MaxGlobalExposure) * 100
	}

	var killReason string
	if rm.killSwitchActive {
		killReason = "cooldown"
	}

	return RiskSnapshot{
		GlobalExposure:     rm.totalExposure,
		MaxGlobalExposure:  rm.cfg.MaxGlobalExposure,
		ExposurePct:        exposurePct,
		KillSwitchActive:   rm.killSwitchActive,
		KillSwitchUntil:    rm.killSwitchUntil,
		KillSwitchReason:   killReason,
		TotalRealizedPnL:   rm.totalRealizedPnL,
		TotalUnrealizedPnL: totalUnrealizedPnL,
		MaxPositionPerCoin: rm.cfg.MaxPositionPerCoin,
		MaxDailyLoss:       rm.cfg.MaxDailyLoss,
		MaxCoinsActive:     rm.cfg.MaxCoinsActive,
		CurrentCoinsActive: len(rm.positions),
	}
}

// RiskSnapshot represents aggregate risk metrics for the dashboard.
type RiskSnapshot struct {
	GlobalExposure     float64
	MaxGlobalExposure  float64
	ExposurePct        float64
	KillSwitchActive   bool
	KillSwitchUntil    time.Time
	KillSwitchReason   string
	TotalRealizedPnL   float64
	TotalUnrealizedPnL float64
	MaxPositionPerCoin float64
	MaxDailyLoss       float64
	MaxCoinsActive     int
	CurrentCoinsActive int
}

func (rm *Manager) processReport(report PositionReport) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.positions[report.Coin] = report

	// Recalculate totals
	rm.totalExposure = 0
	rm.totalRealizedPnL = 0
	totalUnrealizedPnL := 0.0
	for _, pos := range rm.positions {
		rm.totalExposure += pos.ExposureUSD
		rm.totalRealizedPnL += pos.RealizedPnL
		totalUnrealizedPnL += pos.UnrealizedPnL
	}

	// Check per-coin limit
	if report.ExposureUSD > rm.cfg.MaxPositionPerCoin {
		rm.emitKill(report.Coin, "per-coin position limit breached")
	}

	// Check global limit
	if rm.totalExposure > rm.cfg.MaxGlobalExposure {
		rm.emitKill("", "global exposure limit breached")
	}

	// Check leverage
	if rm.cfg.MaxLeverage > 0 && report.Leverage > rm.cfg.MaxLeverage {
		rm.emitKill(report.Coin, fmt.Sprintf("leverage %.1fx exceeds max %.1fx", report.Leverage, rm.cfg.MaxLeverage))
	}

	// Check coin count
	if rm.cfg.MaxCoinsActive > 0 && len(rm.positions) > rm.cfg.MaxCoinsActive {
		rm.emitKill("", "max coins active exceeded")
	}

	// Check daily loss
	totalPnL := rm.totalRealizedPnL + totalUnrealizedPnL
	if totalPnL < -rm.cfg.MaxDailyLoss {
		rm.emitKill("", "max daily loss breached")
	}

	// Check rapid price movement (kill switch)
	rm.checkPriceMovement(report)
}

// checkPriceMovement detects rapid price swings using a rolling anchor.
// On each report, it compares mark price to the anchor set at the start of
// the window. If the anchor is older than KillSwitchWindowSec, it resets.
// If price moved more than KillSwitchDropPct from anchor, the kill switch fires.
func (rm *Manager) checkPriceMovement(report PositionReport) {
	window := time.Duration(rm.cfg.KillSwitchWindowSec) * time.Second

	anchor, ok := rm.priceAnchors[report.Coin]
	if !ok || report.Timestamp.Sub(anchor.timestamp) > window {
		// No anchor or anchor expired — reset to current price
		rm.priceAnchors[report.Coin] = priceAnchor{
			price:     report.MarkPrice,
			timestamp: report.Timestamp,
		}
		return
	}

	if anchor.price == 0 {
		return
	}

	pctChange := (report.MarkPrice - anchor.price) / anchor.price
	if pctChange < 0 {
		pctChange = -pctChange
	}

	if pctChange > rm.cfg.KillSwitchDropPct {
		rm.emitKill(report.Coin, fmt.Sprintf(
			"rapid price movement: %.1f%% in %ds",
			pctChange*100, rm.cfg.KillSwitchWindowSec,
		))
	}
}

func (rm *Manager) clearExpiredKillSwitch() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.killSwitchActive && time.Now().After(rm.killSwitchUntil) {
		rm.killSwitchActive = false
		rm.logger.Info("kill switch cooldown expired")
	}
}

// emitKill activates the kill switch, starts the cooldown timer, and sends
// a KillSignal. If the kill channel is full, it drains the stale signal
// first to ensure the latest kill reason is always delivered.
func (rm *Manager) emitKill(coin, reason string) {
	rm.killSwitchActive = true
	rm.killSwitchUntil = time.Now().Add(rm.cfg.CooldownAfterKill)

	rm.logger.Error("kill switch engaged",
		"coin", coin,
		"reason", reason,
		"cooldown_until", rm.killSwitchUntil,
	)

	// Drain stale signal if channel full, then send
	sig := KillSignal{Coin: coin, Reason: reason}
	select {
	case rm.killCh <- sig:
	default:
		select {
		case <-rm.killCh:
		default:
		}
		rm.killCh <- sig
	}
}
