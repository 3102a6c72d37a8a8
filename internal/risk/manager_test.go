package risk

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/0xtitan6/quantis/internal/config"
)

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		MaxPositionPerCoin:  100,
		MaxGlobalExposure:   500,
		MaxCoinsActive:      5,
		MaxLeverage:         10,
		KillSwitchDropPct:   0.10, // 10%
		KillSwitchWindowSec: 60,
		MaxDailyLoss:        50,
		CooldownAfterKill:   5 * time.Minute,
	}
}

func newTestManager() *Manager {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewManager(testRiskConfig(), logger)
}

func TestProcessReportUnderLimits(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.processReport(PositionReport{
		Coin:          "BTC",
		ExposureUSD:   50,
		Leverage:      2,
		RealizedPnL:   0,
		UnrealizedPnL: 0,
		MarkPrice:     65000,
		Timestamp:     time.Now(),
	})

	if rm.killSwitchActive {
		t.Error("kill switch should not fire for report under limits")
	}

	select {
	case sig := <-rm.killCh:
		t.Errorf("unexpected kill signal: %+v", sig)
	default:
	}
}

func TestProcessReportPerCoinBreach(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.processReport(PositionReport{
		Coin:        "BTC",
		ExposureUSD: 150, // exceeds 100 limit
		MarkPrice:   65000,
		Timestamp:   time.Now(),
	})

	if !rm.killSwitchActive {
		t.Error("kill switch should fire for per-coin breach")
	}

	select {
	case sig := <-rm.killCh:
		if sig.Coin != "BTC" {
			t.Errorf("kill signal coin = %q, want BTC", sig.Coin)
		}
	default:
		t.Error("expected kill signal on channel")
	}
}

func TestProcessReportGlobalBreach(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	// Submit multiple coins that together exceed global limit
	rm.processReport(PositionReport{Coin: "BTC", ExposureUSD: 90, MarkPrice: 65000, Timestamp: time.Now()})
	rm.processReport(PositionReport{Coin: "ETH", ExposureUSD: 90, MarkPrice: 3000, Timestamp: time.Now()})
	rm.processReport(PositionReport{Coin: "SOL", ExposureUSD: 90, MarkPrice: 150, Timestamp: time.Now()})
	rm.processReport(PositionReport{Coin: "AVAX", ExposureUSD: 90, MarkPrice: 30, Timestamp: time.Now()})
	rm.processReport(PositionReport{Coin: "ARB", ExposureUSD: 90, MarkPrice: 1, Timestamp: time.Now()})
	rm.processReport(PositionReport{Coin: "OP", ExposureUSD: 90, MarkPrice: 2, Timestamp: time.Now()})

	// Total = 540 > 500 global limit
	if !rm.killSwitchActive {
		t.Error("kill switch should fire for global exposure breach")
	}

	drained := 0
	for {
		select {
		case <-rm.killCh:
			drained++
		default:
			goto done
		}
	}
done:
	if drained == 0 {
		t.Error("expected at least one kill signal")
	}
}

func TestProcessReportLeverageBreach(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.processReport(PositionReport{
		Coin:        "BTC",
		ExposureUSD: 50,
		Leverage:    15, // exceeds MaxLeverage of 10
		MarkPrice:   65000,
		Timestamp:   time.Now(),
	})

	if !rm.killSwitchActive {
		t.Error("kill switch should fire for leverage breach")
	}
}

func TestProcessReportDailyLossBreach(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.processReport(PositionReport{
		Coin:          "BTC",
		ExposureUSD:   10,
		RealizedPnL:   -30,
		UnrealizedPnL: -25,
		MarkPrice:     65000,
		Timestamp:     time.Now(),
	})

	// total PnL = -30 + -25 = -55 < -50 threshold
	if !rm.killSwitchActive {
		t.Error("kill switch should fire for daily loss breach")
	}
}

func TestCheckPriceMovementNormal(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	now := time.Now()

	rm.processReport(PositionReport{
		Coin:      "BTC",
		MarkPrice: 65000,
		Timestamp: now,
	})

	// Small price move within window
	rm.processReport(PositionReport{
		Coin:      "BTC",
		MarkPrice: 67600, // 4% move, below 10% threshold
		Timestamp: now.Add(10 * time.Second),
	})

	select {
	case <-rm.killCh:
		t.Error("should not fire kill for 4% move")
	default:
	}
}

func TestCheckPriceMovementSpike(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	now := time.Now()

	rm.processReport(PositionReport{
		Coin:      "BTC",
		MarkPrice: 65000,
		Timestamp: now,
	})

	// Large price move within window
	rm.processReport(PositionReport{
		Coin:      "BTC",
		MarkPrice: 45500, // 30% drop, exceeds 10% threshold
		Timestamp: now.Add(10 * time.Second),
	})

	if !rm.killSwitchActive {
		t.Error("kill switch should fire for 30% price spike")
	}
}

func TestRemainingBudget(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	// No position -> full budget
	remaining := rm.RemainingBudget("BTC")
	if remaining != 100 { // min(per-coin 100, global 500)
		t.Errorf("remaining = %v, want 100", remaining)
	}

	rm.processReport(PositionReport{
		Coin:        "BTC",
		ExposureUSD: 60,
		MarkPrice:   65000,
		Timestamp:   time.Now(),
	})

	remaining = rm.RemainingBudget("BTC")
	if remaining != 40 { // 100 - 60 = 40 per-coin; 500 - 60 = 440 global; min = 40
		t.Errorf("remaining = %v, want 40", remaining)
	}
}

func TestRemainingBudgetGlobalConstrained(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	// Fill up global exposure with other coins
	for i := 0; i < 5; i++ {
		rm.processReport(PositionReport{
			Coin:        "OTHER-" + string(rune('A'+i)),
			ExposureUSD: 95,
			MarkPrice:   1,
			Timestamp:   time.Now(),
		})
	}
	for {
		select {
		case <-rm.killCh:
		default:
			goto done2
		}
	}
done2:

	// Total exposure = 475. Global remaining = 500 - 475 = 25.
	// Per-coin BTC = 100 (no position). Min(100, 25) = 25.
	remaining := rm.RemainingBudget("BTC")
	if remaining != 25 {
		t.Errorf("remaining = %v, want 25 (global constrained)", remaining)
	}
}

func TestIsKillSwitchCooldown(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.cfg.CooldownAfterKill = 100 * time.Millisecond
	rm.processReport(PositionReport{
		Coin:        "BTC",
		ExposureUSD: 200, // exceeds per-coin limit
		MarkPrice:   65000,
		Timestamp:   time.Now(),
	})

	if !rm.IsKillSwitchActive() {
		t.Error("kill switch should be active immediately after breach")
	}

	time.Sleep(150 * time.Millisecond)

	if rm.IsKillSwitchActive() {
		t.Error("kill switch should expire after cooldown")
	}
}

func TestRemoveCoinRecomputesTotals(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	now := time.Now()
	rm.processReport(PositionReport{Coin: "BTC", ExposureUSD: 60, RealizedPnL: 5, MarkPrice: 65000, Timestamp: now})
	rm.processReport(PositionReport{Coin: "ETH", ExposureUSD: 70, RealizedPnL: 3, MarkPrice: 3000, Timestamp: now})

	if got := rm.totalExposure; got != 130 {
		t.Fatalf("totalExposure before remove = %v, want 130", got)
	}
	if got := rm.totalRealizedPnL; got != 8 {
		t.Fatalf("totalRealizedPnL before remove = %v, want 8", got)
	}

	rm.RemoveCoin("ETH")

	if got := rm.totalExposure; got != 60 {
		t.Fatalf("totalExposure after remove = %v, want 60", got)
	}
	if got := rm.totalRealizedPnL; got != 5 {
		t.Fatalf("totalRealizedPnL after remove = %v, want 5", got)
	}
}
