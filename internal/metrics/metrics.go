// Package metrics exposes Prometheus gauges/counters for the running engine
// and for completed backtest/paper runs. Grounded on chidi150c-coinbase's
// metrics.go (package-level prometheus.New*Vec vars registered in init,
// thin Set/Inc helper functions), generalized from a single-symbol spot bot
// into per-coin labeled series and from one registry into an explicit
// *prometheus.Registry so cmd/quantis can wire /metrics without relying on
// the global default registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantis_orders_total",
			Help: "Orders submitted, by coin, side, and status.",
		},
		[]string{"coin", "side", "status"},
	)

	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantis_fills_total",
			Help: "Fills applied, by coin and side.",
		},
		[]string{"coin", "side"},
	)

	EquityUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantis_equity_usd",
			Help: "Current account equity (cash + unrealized PnL) in USD.",
		},
	)

	RealizedPnLUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantis_realized_pnl_usd",
			Help: "Cumulative realized PnL in USD.",
		},
	)

	UnrealizedPnLUSD = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quantis_unrealized_pnl_usd",
			Help: "Unrealized PnL per open coin position, in USD.",
		},
		[]string{"coin"},
	)

	ExposureUSD = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quantis_exposure_usd",
			Help: "Notional exposure per coin, in USD.",
		},
		[]string{"coin"},
	)

	ActiveCoins = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantis_active_coins",
			Help: "Number of coins with an open position.",
		},
	)

	KillSwitchTrips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quantis_kill_switch_trips_total",
			Help: "Number of times the risk kill switch has tripped.",
		},
	)

	ScanCoinsSelected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantis_scan_coins_selected",
			Help: "Number of coins selected by the most recent discovery scan.",
		},
	)

	WSReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantis_ws_reconnects_total",
			Help: "Websocket reconnect attempts, by venue connection.",
		},
		[]string{"connection"},
	)

	BacktestDrawdownPct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantis_backtest_max_drawdown_pct",
			Help: "Max drawdown of the most recently completed backtest/paper run, as a fraction.",
		},
	)
)

// Registry is the process's metrics registry, served at /metrics by
// cmd/quantis. Kept explicit rather than relying on prometheus's global
// default registry, so tests can construct their own isolated Registry.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		OrdersTotal,
		FillsTotal,
		EquityUSD,
		RealizedPnLUSD,
		UnrealizedPnLUSD,
		ExposureUSD,
		ActiveCoins,
		KillSwitchTrips,
		ScanCoinsSelected,
		WSReconnects,
		BacktestDrawdownPct,
	)
}

// RecordOrder increments the order counter for a submitted order.
func RecordOrder(coin, side, status string) {
	OrdersTotal.WithLabelValues(coin, side, status).Inc()
}

// RecordFill increments the fill counter; it does not touch the equity gauge.
func RecordFill(coin, side string) {
	FillsTotal.WithLabelValues(coin, side).Inc()
}

// SetEquity sets the current account equity gauge.
func SetEquity(usd float64) { EquityUSD.Set(usd) }

// SetRealizedPnL sets the cumulative realized PnL gauge.
func SetRealizedPnL(usd float64) { RealizedPnLUSD.Set(usd) }

// SetUnrealizedPnL sets a coin's unrealized PnL gauge.
func SetUnrealizedPnL(coin string, usd float64) { UnrealizedPnLUSD.WithLabelValues(coin).Set(usd) }

// SetExposure sets a coin's notional exposure gauge.
func SetExposure(coin string, usd float64) { ExposureUSD.WithLabelValues(coin).Set(usd) }

// SetActiveCoins sets the count of coins with an open position.
func SetActiveCoins(n int) { ActiveCoins.Set(float64(n)) }

// IncKillSwitchTrips increments the kill switch trip counter.
func IncKillSwitchTrips() { KillSwitchTrips.Inc() }

// SetScanCoinsSelected records how many coins the last discovery scan picked.
func SetScanCoinsSelected(n int) { ScanCoinsSelected.Set(float64(n)) }

// IncWSReconnect increments the reconnect counter for a named connection.
func IncWSReconnect(connection string) { WSReconnects.WithLabelValues(connection).Inc() }

// SetBacktestDrawdown records the max drawdown fraction of the last run.
func SetBacktestDrawdown(pct float64) { BacktestDrawdownPct.Set(pct) }
