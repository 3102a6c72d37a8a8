package execution

import (
	"math"
	"sync"
	"time"

	"github.com/0xtitan6/quantis/pkg/market"
)

// ToxicityMetrics are the adverse-selection indicators derived from a
// rolling window of recent fills.
type ToxicityMetrics struct {
	DirectionalImbalance float64 // [0,1]: share of fills in the dominant direction
	FillVelocity         float64 // fills per minute
	ToxicityScore        float64 // [0,1]: composite score
	IsAverse             bool
}

// FlowTracker detects toxic order flow (fills consistently going one
// direction right before an adverse price move) so the execution engine can
// widen its risk posture. Adapted from the teacher's strategy.FlowTracker,
// generalized from Polymarket's binary-market Fill onto market.Fill and
// market.Side.
type FlowTracker struct {
	mu sync.RWMutex

	windowDuration    time.Duration
	fills             []market.Fill
	toxicityThreshold float64
	cooldownPeriod    time.Duration
	maxSpreadMultiple float64

	lastToxicTime time.Time
}

// NewFlowTracker builds a tracker over the given window and thresholds.
func NewFlowTracker(windowDuration time.Duration, toxicityThreshold float64, cooldownPeriod time.Duration, maxSpreadMultiple float64) *FlowTracker {
	return &FlowTracker{
		windowDuration:    windowDuration,
		fills:             make([]market.Fill, 0, 100),
		toxicityThreshold: toxicityThreshold,
		cooldownPeriod:    cooldownPeriod,
		maxSpreadMultiple: maxSpreadMultiple,
	}
}

// AddFill records a fill and evicts entries that have aged out of the window.
func (ft *FlowTracker) AddFill(fill market.Fill) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.fills = append(ft.fills, fill)
	ft.evictStaleLocked()
}

func (ft *FlowTracker) evictStaleLocked() {
	if len(ft.fills) == 0 {
		return
	}
	cutoff := time.Now().Add(-ft.windowDuration)
	validIdx := -1
	for i, fill := range ft.fills {
		if fill.Timestamp.Time().After(cutoff) {
			validIdx = i
			break
		}
	}
	if validIdx == -1 {
		ft.fills = ft.fills[:0]
		return
	}
	if validIdx > 0 {
		ft.fills = ft.fills[validIdx:]
	}
}

// CalculateToxicity computes the current window's toxicity metrics.
func (ft *FlowTracker) CalculateToxicity() ToxicityMetrics {
	ft.mu.Lock()
	ft.evictStaleLocked()
	ft.mu.Unlock()

	ft.mu.RLock()
	defer ft.mu.RUnlock()

	if len(ft.fills) == 0 {
		return ToxicityMetrics{}
	}

	var buyCount, sellCount int
	for _, fill := range ft.fills {
		if fill.Side == market.SideBuy {
			buyCount++
		} else {
			sellCount++
		}
	}
	totalFills := len(ft.fills)
	dominant := math.Max(float64(buyCount), float64(sellCount))
	directionalImbalance := dominant / float64(totalFills)

	if len(ft.fills) < 2 {
		return ToxicityMetrics{
			DirectionalImbalance: directionalImbalance,
			ToxicityScore:        directionalImbalance * 0.6,
			IsAverse:             directionalImbalance > ft.toxicityThreshold,
		}
	}

	windowDurationMinutes := ft.windowDuration.Minutes()
	fillVelocity := float64(totalFills) / windowDurationMinutes
	velocityFactor := math.Min(fillVelocity/3.0, 1.0)
	toxicityScore := 0.6*directionalImbalance + 0.4*velocityFactor

	return ToxicityMetrics{
		DirectionalImbalance: directionalImbalance,
		FillVelocity:         fillVelocity,
		ToxicityScore:        toxicityScore,
		IsAverse:             toxicityScore > ft.toxicityThreshold,
	}
}

// GetSpreadMultiplier returns the multiplier execution should apply to its
// quoted spread: 1.0 under normal flow, up to maxSpreadMultiple when toxic,
// decaying back to 1.0 over the cooldown period once toxicity subsides.
func (ft *FlowTracker) GetSpreadMultiplier() float64 {
	metrics := ft.CalculateToxicity()

	if metrics.IsAverse {
		ft.mu.Lock()
		ft.lastToxicTime = time.Now()
		ft.mu.Unlock()
	}

	ft.mu.RLock()
	inCooldown := time.Since(ft.lastToxicTime) < ft.cooldownPeriod
	ft.mu.RUnlock()

	if !metrics.IsAverse && !inCooldown {
		return 1.0
	}

	if metrics.ToxicityScore < ft.toxicityThreshold {
		timeSinceToxic := time.Since(ft.lastToxicTime).Seconds()
		cooldownSeconds := ft.cooldownPeriod.Seconds()
		cooldownProgress := math.Min(timeSinceToxic/cooldownSeconds, 1.0)
		return 1.0 + (ft.maxSpreadMultiple-1.0)*(1.0-cooldownProgress)
	}

	normalizedScore := (metrics.ToxicityScore - ft.toxicityThreshold) / (1.0 - ft.toxicityThreshold)
	return 1.0 + (ft.maxSpreadMultiple-1.0)*math.Min(normalizedScore*2.0, 1.0)
}

// IsFlowToxic reports whether current flow shows adverse selection.
func (ft *FlowTracker) IsFlowToxic() bool {
	return ft.CalculateToxicity().IsAverse
}

// GetFillCount returns the number of fills currently inside the window.
func (ft *FlowTracker) GetFillCount() int {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return len(ft.fills)
}
