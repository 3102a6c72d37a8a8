// Quantis — a perpetual-futures market-making framework targeting
// Hyperliquid, with a pluggable strategy boundary and an identical
// execution/risk/account path shared across live, paper, and backtest
// runs.
//
// Architecture:
//
//	main.go                  — entry point: loads config, wires every
//	                            component, waits for SIGINT/SIGTERM
//	internal/hyperliquid/*   — venue connector: info/exchange/ws/signer
//	internal/orders          — dual-indexed order store + lifecycle manager
//	internal/account         — per-coin position tracker
//	internal/bus             — pub/sub bus + quote/candle cache
//	internal/dataengine      — normalizes WS market data into the cache
//	internal/execution       — pre-trade gatekeeper + strategy plug-in point
//	internal/risk            — kill-switch / exposure risk manager
//	internal/discovery       — coin scanner/ranker
//	internal/paper           — paper-trading simulator (ExecutionClient)
//	internal/backtest        — deterministic historical replay
//	internal/dashboardapi    — HTTP/WS telemetry surface
//	internal/persist         — position snapshots + run result export
//	internal/metrics         — Prometheus counters/gauges
//
// Mode is selected by config.DryRun plus the presence of wallet
// credentials: DryRun routes orders through the paper simulator instead
// of the live connector, without changing any other wiring. Historical
// replay is a separate entry point (see backtest.go).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xtitan6/quantis/internal/account"
	"github.com/0xtitan6/quantis/internal/bus"
	"github.com/0xtitan6/quantis/internal/config"
	"github.com/0xtitan6/quantis/internal/dashboardapi"
	"github.com/0xtitan6/quantis/internal/dataengine"
	"github.com/0xtitan6/quantis/internal/discovery"
	"github.com/0xtitan6/quantis/internal/execution"
	"github.com/0xtitan6/quantis/internal/hyperliquid"
	"github.com/0xtitan6/quantis/internal/metrics"
	"github.com/0xtitan6/quantis/internal/orders"
	"github.com/0xtitan6/quantis/internal/paper"
	"github.com/0xtitan6/quantis/internal/persist"
	"github.com/0xtitan6/quantis/internal/risk"
	"github.com/0xtitan6/quantis/pkg/exchange"
	"github.com/0xtitan6/quantis/pkg/market"
	"github.com/0xtitan6/quantis/pkg/xdecimal"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to config file")
	backtestMode := flag.Bool("backtest", false, "run a historical backtest instead of live/paper trading")
	flag.Parse()

	if p := os.Getenv("QUANTIS_CONFIG"); p != "" {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", *cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	if *backtestMode {
		if err := runBacktest(*cfg, logger); err != nil {
			logger.Error("backtest failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runLive(*cfg, logger); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// app bundles the long-lived components so a single struct can satisfy
// dashboardapi.SnapshotProvider without a package-level global.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	tracker   *account.Tracker
	cache     *bus.Cache
	riskMgr   *risk.Manager
	scanner   *discovery.Scanner
}

func (a *app) GetMarketsSnapshot() []dashboardapi.MarketStatus {
	positions := a.tracker.GetAllPositions()
	out := make([]dashboardapi.MarketStatus, 0, len(positions))
	for _, pos := range positions {
		t, _ := a.cache.Ticker(pos.Pair)

		markPrice := pos.EntryPrice
		if pos.MarkPrice != nil {
			markPrice = *pos.MarkPrice
		}

		out = append(out, dashboardapi.MarketStatus{
			Coin:        pos.Pair.Base,
			MidPrice:    t.Mid().Float64(),
			BestBid:     t.Bid.Float64(),
			BestAsk:     t.Ask.Float64(),
			SpreadBps:   t.SpreadBps().Float64(),
			LastUpdated: t.Timestamp.Time(),
			Position: dashboardapi.PositionSnapshot{
				Side:          string(pos.Side),
				Size:          pos.Size.Float64(),
				EntryPrice:    pos.EntryPrice.Float64(),
				MarkPrice:     markPrice.Float64(),
				UnrealizedPnL: pos.UnrealizedPnL.Float64(),
				ExposureUSD:   pos.Size.Mul(markPrice).Abs().Float64(),
				Leverage:      pos.Leverage.Float64(),
			},
		})
	}
	return out
}

func (a *app) GetScanner() *discovery.Scanner { return a.scanner }
func (a *app) GetRiskManager() *risk.Manager  { return a.riskMgr }

func runLive(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connector, err := hyperliquid.New(hyperliquid.Config{
		Config: exchange.Config{
			Name:    cfg.Exchange.Name,
			Testnet: cfg.Exchange.Testnet,
		},
		WalletAddress: cfg.Wallet.Address,
		PrivateKey:    cfg.Wallet.PrivateKey,
		ChainID:       int64(cfg.Wallet.ChainID),
	}, logger)
	if err != nil {
		return fmt.Errorf("connect hyperliquid: %w", err)
	}

	registry := exchange.NewRegistry(logger)
	registry.SetExchange(connector, exchange.Config{Name: cfg.Exchange.Name, Testnet: cfg.Exchange.Testnet})
	if err := registry.ConnectAll(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer registry.DisconnectAll(context.Background())

	handle, err := registry.GetExchange()
	if err != nil {
		return err
	}

	store, err := persist.Open(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	tracker := account.NewTracker(handle)
	if err := tracker.SyncAccountState(ctx); err != nil {
		logger.Warn("initial account sync failed", "error", err)
	}

	mb := bus.NewMessageBus(logger)
	cache := bus.NewCache(mb, true)

	manager := orders.NewManager(handle, logger)
	manager.OnOrderFill(func(_ *market.Order, fill market.Fill) { tracker.ApplyFill(fill) })

	var client execution.ExecutionClient = manager
	if cfg.DryRun {
		client = paper.New(paper.FromPaperConfig(cfg.Paper), cache, logger)
		logger.Warn("DRY-RUN MODE — orders are simulated by the paper trading engine")
	}

	limits := execution.Limits{
		MaxConcurrentOrders: cfg.Risk.MaxCoinsActive * 2,
	}
	_ = execution.New(client, mb, limits, logger)

	riskMgr := risk.NewManager(cfg.Risk, logger)
	go riskMgr.Run(ctx)
	go watchKillSwitch(ctx, riskMgr, client, logger)

	scanner := discovery.NewScanner(connector.Info(), cfg.Discovery, cfg.Risk.MaxCoinsActive, logger)
	go scanner.Run(ctx)

	dataEng := dataengine.New(connector.WSFeed(), cache, mb, logger)
	if errCh := connector.InitWebSocket(ctx); errCh != nil {
		go func() {
			if err := <-errCh; err != nil {
				logger.Error("websocket feed stopped", "error", err)
			}
		}()
	}
	go dataEng.Run(ctx)
	go routeUserEvents(ctx, connector.WSFeed(), manager, logger)
	go reportPositions(ctx, tracker, riskMgr)

	a := &app{cfg: cfg, logger: logger, tracker: tracker, cache: cache, riskMgr: riskMgr, scanner: scanner}

	var dashboard *dashboardapi.Server
	if cfg.Dashboard.Enabled {
		dashboard = dashboardapi.NewServer(cfg.Dashboard, a, cfg, logger)
		go func() {
			if err := dashboard.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "port", cfg.Dashboard.Port)
	}

	go serveMetrics(ctx, logger)

	logger.Info("quantis started",
		"coins_max", cfg.Risk.MaxCoinsActive,
		"order_size_usd", cfg.Strategy.OrderSizeUSD,
		"dry_run", cfg.DryRun,
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if dashboard != nil {
		if err := dashboard.Stop(); err != nil {
			logger.Error("dashboard shutdown failed", "error", err)
		}
	}
	for _, pos := range tracker.GetAllPositions() {
		if err := store.SavePosition(pos.Pair.Base, pos); err != nil {
			logger.Error("save position failed", "coin", pos.Pair.Base, "error", err)
		}
	}
	return nil
}

// watchKillSwitch cancels every active order (or, for a per-coin signal,
// every active order on that coin) the moment the risk manager trips, the
// same reflex the teacher's risk.Manager triggers against its single
// exchange.Client.
func watchKillSwitch(ctx context.Context, rm *risk.Manager, client execution.ExecutionClient, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-rm.KillCh():
			metrics.IncKillSwitchTrips()
			logger.Warn("kill switch engaged", "coin", sig.Coin, "reason", sig.Reason)
			for _, o := range client.GetActiveOrders() {
				if sig.Coin != "" && o.Request.Pair.Base != sig.Coin {
					continue
				}
				if err := client.CancelOrder(ctx, o.ExchangeOrderID); err != nil {
					logger.Error("kill switch cancel failed", "exchange_order_id", o.ExchangeOrderID, "error", err)
				}
			}
		}
	}
}

// routeUserEvents drains the venue's private fill/order-update channels
// and applies them to manager, mirroring the teacher's
// engine.dispatchUserEvents (a dedicated select loop separate from market
// data dispatch).
func routeUserEvents(ctx context.Context, feed *hyperliquid.WSFeed, manager *orders.Manager, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-feed.UserFillEvents():
			if !ok {
				return
			}
			for _, f := range data.Fills {
				fill, err := hyperliquid.FillFromWire(f)
				if err != nil {
					logger.Warn("decode user fill", "error", err)
					continue
				}
				manager.HandleUserFill(fill)
			}
		case upd, ok := <-feed.OrderUpdateEvents():
			if !ok {
				return
			}
			status, filled, avgPx, err := hyperliquid.OrderUpdateFromWire(upd)
			if err != nil {
				logger.Warn("decode order update", "error", err)
				continue
			}
			manager.HandleOrderUpdate(fmt.Sprintf("%d", upd.Order.Oid), status, filled, avgPx)
		}
	}
}

// reportPositions periodically feeds the risk manager a PositionReport per
// open coin, the live-mode analogue of the teacher's per-market inventory
// report driven from Maker's refresh tick.
func reportPositions(ctx context.Context, tracker *account.Tracker, rm *risk.Manager) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			acct := tracker.Account()
			positions := tracker.GetAllPositions()
			for i, pos := range positions {
				markPrice := pos.EntryPrice
				if pos.MarkPrice != nil {
					markPrice = *pos.MarkPrice
				}
				// The tracker only keeps a single account-wide realized PnL
				// total, not a per-coin breakdown, so it is attributed to
				// the report for the first coin only — every other coin
				// reports 0 — to avoid the risk manager's cross-coin sum
				// multiplying it by the number of open positions.
				realized := xdecimal.Zero
				if i == 0 {
					realized = acct.TotalRealizedPnL
				}
				rm.Report(risk.PositionReport{
					Coin:          pos.Pair.Base,
					Size:          signedSize(pos),
					MarkPrice:     markPrice.Float64(),
					ExposureUSD:   pos.Size.Mul(markPrice).Abs().Float64(),
					Leverage:      pos.Leverage.Float64(),
					UnrealizedPnL: pos.UnrealizedPnL.Float64(),
					RealizedPnL:   realized.Float64(),
					Timestamp:     time.Now(),
				})
				metrics.SetUnrealizedPnL(pos.Pair.Base, pos.UnrealizedPnL.Float64())
				metrics.SetExposure(pos.Pair.Base, pos.Size.Mul(markPrice).Abs().Float64())
			}
			metrics.SetActiveCoins(len(positions))
			metrics.SetRealizedPnL(acct.TotalRealizedPnL.Float64())
		}
	}
}

// signedSize returns pos.Size with a sign reflecting its side, matching
// risk.PositionReport's signed-size convention (positive long, negative
// short).
func signedSize(pos market.Position) float64 {
	size := pos.Size.Float64()
	if pos.Side == market.PositionSideShort {
		return -size
	}
	return size
}

func serveMetrics(ctx context.Context, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ":9090", Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "error", err)
	}
}
