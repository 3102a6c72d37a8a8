package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/0xtitan6/quantis/internal/backtest"
	"github.com/0xtitan6/quantis/internal/config"
	"github.com/0xtitan6/quantis/internal/persist"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/timeutil"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

// flatStrategy never opens a position. It is the framework's stand-in
// default: runBacktest wires it only so the CLI path has a concrete
// backtest.Strategy to replay against, not as a trading strategy in its
// own right. An operator backtesting an actual idea supplies their own
// backtest.Strategy implementation and passes it to backtest.New in place
// of this one.
type flatStrategy struct{}

func (flatStrategy) Entry(history []market.Candle) *backtest.EntrySignal { return nil }
func (flatStrategy) Exit(history []market.Candle, pos market.Position) bool { return false }

// runBacktest replays a CSV candle series through a backtest.Engine and
// persists the resulting trades/equity curve/metrics.
func runBacktest(cfg config.Config, logger *slog.Logger) error {
	coin := flag.Arg(0)
	if coin == "" {
		return fmt.Errorf("backtest: missing coin argument, usage: quantis -backtest <COIN>")
	}
	candlePath := filepath.Join(cfg.Backtest.CandleDir, strings.ToUpper(coin)+".csv")
	candles, err := loadCandles(candlePath, market.NewTradingPair(strings.ToUpper(coin), "USDC"))
	if err != nil {
		return fmt.Errorf("backtest: load candles: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("backtest: %s contains no usable candles", candlePath)
	}

	bcfg := backtest.Config{
		Pair:           market.NewTradingPair(strings.ToUpper(coin), "USDC"),
		InitialCash:    xdecimal.NewFromFloat(cfg.Backtest.InitialCapital),
		SlippagePct:    xdecimal.NewFromFloat(cfg.Backtest.SlippageBps).Div(xdecimal.NewFromInt(10000)),
		CommissionRate: xdecimal.NewFromFloat(cfg.Backtest.CommissionBps).Div(xdecimal.NewFromInt(10000)),
	}
	engine := backtest.New(bcfg, flatStrategy{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	result := engine.Run(ctx, candles)

	logger.Info("backtest complete",
		"coin", coin, "candles", len(candles), "trades", len(result.Trades),
		"total_pnl", result.Metrics.TotalPnL.String(), "win_rate", result.Metrics.WinRate,
		"max_drawdown", result.Metrics.MaxDrawdown)

	store, err := persist.Open(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("backtest: open store: %w", err)
	}
	defer store.Close()

	runName := fmt.Sprintf("backtest_%s_%d", strings.ToLower(coin), time.Now().Unix())
	if err := store.SaveRunResultJSON(runName, persist.RunResult{Name: runName, Config: bcfg, Result: result}); err != nil {
		return fmt.Errorf("backtest: save json: %w", err)
	}
	if err := store.SaveRunResultCSV(runName, result); err != nil {
		return fmt.Errorf("backtest: save csv: %w", err)
	}
	logger.Info("backtest results written", "run", runName, "dir", cfg.Store.DataDir)
	return nil
}

// loadCandles reads a time|timestamp,open,high,low,close,volume CSV.
// Headers are case-insensitive; the time column accepts RFC3339 or UNIX
// seconds.
func loadCandles(path string, pair market.TradingPair) ([]market.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var headers []string
	var out []market.Candle
	rowIdx := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(rec) {
				row[strings.ToLower(strings.TrimSpace(h))] = strings.TrimSpace(rec[j])
			}
		}
		ts := firstNonEmpty(row, "time", "timestamp")
		op := firstNonEmpty(row, "open")
		cp := firstNonEmpty(row, "close")
		if ts == "" || op == "" || cp == "" {
			rowIdx++
			continue
		}
		t, err := parseCandleTime(ts)
		if err != nil {
			rowIdx++
			continue
		}
		out = append(out, market.Candle{
			Pair:      pair,
			Interval:  timeutil.Interval("1h"),
			Open:      xdecimal.MustParse(op),
			High:      xdecimal.MustParse(firstNonEmptyOr(row, "high", op)),
			Low:       xdecimal.MustParse(firstNonEmptyOr(row, "low", op)),
			Close:     xdecimal.MustParse(cp),
			Volume:    xdecimal.MustParse(firstNonEmptyOr(row, "volume", "vol")),
			Timestamp: timeutil.FromTime(t),
		})
		rowIdx++
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func parseCandleTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized candle timestamp: %q", s)
}

func firstNonEmpty(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := row[k]; v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptyOr(row map[string]string, key, fallback string) string {
	if v := row[key]; v != "" {
		return v
	}
	return fallback
}
