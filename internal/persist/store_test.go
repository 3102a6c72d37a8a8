package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xtitan6/quantis/internal/backtest"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

func TestSaveAndLoadPosition(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	pos := market.Position{
		Pair:          market.NewTradingPair("BTC", "USDC"),
		Side:          market.PositionSideLong,
		Size:          xdecimal.MustParse("1.5"),
		EntryPrice:    xdecimal.MustParse("100"),
		UnrealizedPnL: xdecimal.MustParse("5"),
	}

	if err := s.SavePosition("BTC", pos); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	loaded, err := s.LoadPosition("BTC")
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadPosition returned nil")
	}
	if !loaded.Size.Equal(pos.Size) {
		t.Errorf("Size = %s, want %s", loaded.Size, pos.Size)
	}
	if loaded.Side != pos.Side {
		t.Errorf("Side = %s, want %s", loaded.Side, pos.Side)
	}
}

func TestLoadPositionMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	loaded, err := s.LoadPosition("nonexistent")
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing position, got %+v", loaded)
	}
}

func TestSavePositionOverwrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	pos1 := market.Position{Pair: market.NewTradingPair("BTC", "USDC"), Size: xdecimal.MustParse("1")}
	pos2 := market.Position{Pair: market.NewTradingPair("BTC", "USDC"), Size: xdecimal.MustParse("2")}

	_ = s.SavePosition("BTC", pos1)
	_ = s.SavePosition("BTC", pos2)

	loaded, err := s.LoadPosition("BTC")
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if !loaded.Size.Equal(xdecimal.MustParse("2")) {
		t.Errorf("Size = %s, want 2 (latest save)", loaded.Size)
	}
}

func TestSaveRunResultWritesJSONAndCSV(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ts := timeutil.FromTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	result := &backtest.Result{
		Trades: []backtest.Trade{
			{Pair: market.NewTradingPair("BTC", "USDC"), Side: market.SideBuy, EntryPrice: xdecimal.MustParse("100"), ExitPrice: xdecimal.MustParse("110"), Size: xdecimal.MustParse("1"), PnL: xdecimal.MustParse("10"), EntryTime: ts, ExitTime: ts},
		},
		EquityCurve: []backtest.EquityPoint{{Timestamp: ts, Equity: xdecimal.MustParse("1000")}},
	}

	if err := s.SaveRunResultJSON("run1", RunResult{Name: "run1", Result: result}); err != nil {
		t.Fatalf("SaveRunResultJSON: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run1.json")); err != nil {
		t.Errorf("expected run1.json to exist: %v", err)
	}

	if err := s.SaveRunResultCSV("run1", result); err != nil {
		t.Fatalf("SaveRunResultCSV: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run1_trades.csv")); err != nil {
		t.Errorf("expected run1_trades.csv to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run1_equity.csv")); err != nil {
		t.Errorf("expected run1_equity.csv to exist: %v", err)
	}
}
