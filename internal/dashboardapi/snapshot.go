package dashboardapi

import (
	"time"

	"github.com/0xtitan6/quantis/internal/config"
	"github.com/0xtitan6/quantis/internal/discovery"
	"github.com/0xtitan6/quantis/internal/risk"
)

// SnapshotProvider is the read access the dashboard needs from the running
// engine.
type SnapshotProvider interface {
	GetMarketsSnapshot() []MarketStatus
	GetScanner() *discovery.Scanner
	GetRiskManager() *risk.Manager
}

// BuildSnapshot aggregates state from every component into one Snapshot.
func BuildSnapshot(provider SnapshotProvider, cfg config.Config) Snapshot {
	markets := provider.GetMarketsSnapshot()

	riskSnap := provider.GetRiskManager().GetRiskSnapshot()

	var totalRealized, totalUnrealized float64
	for _, m := range markets {
		totalUnrealized += m.Position.UnrealizedPnL
	}
	totalRealized = riskSnap.TotalRealizedPnL

	last := provider.GetScanner().LastResult()
	scanSummary := ScanSummary{
		LastScanTime:  last.ScannedAt,
		CoinsSelected: len(last.Opportunities),
	}

	return Snapshot{
		Timestamp:          time.Now(),
		Markets:            markets,
		TotalRealizedPnL:   totalRealized,
		TotalUnrealizedPnL: totalUnrealized,
		TotalPnL:           totalRealized + totalUnrealized,
		Risk:               convertRiskSnapshot(riskSnap),
		Config:             NewConfigSummary(cfg),
		Scan:               scanSummary,
	}
}

func convertRiskSnapshot(snap risk.RiskSnapshot) RiskSnapshot {
	return RiskSnapshot{
		GlobalExposure:     snap.GlobalExposure,
		MaxGlobalExposure:  snap.MaxGlobalExposure,
		ExposurePct:        snap.ExposurePct,
		KillSwitchActive:   snap.KillSwitchActive,
		KillSwitchUntil:    snap.KillSwitchUntil,
		KillSwitchReason:   snap.KillSwitchReason,
		TotalRealizedPnL:   snap.TotalRealizedPnL,
		TotalUnrealizedPnL: snap.TotalUnrealizedPnL,
		MaxPositionPerCoin: snap.MaxPositionPerCoin,
		MaxDailyLoss:       snap.MaxDailyLoss,
		MaxCoinsActive:     snap.MaxCoinsActive,
		CurrentCoinsActive: snap.CurrentCoinsActive,
	}
}
