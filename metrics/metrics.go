package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SignalsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosmc_signals_emitted_total",
			Help: "Total number of signals emitted (by strategy).",
		},
		[]string{"strategy"},
	)

	SignalsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosmc_signals_rejected_total",
			Help: "Signals dropped after detection because no valid exit plan could be resolved.",
		},
		[]string{"strategy"},
	)

	TradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosmc_trades_closed_total",
			Help: "Simulated trades by final outcome.",
		},
		[]string{"outcome"},
	)

	// EquityGauge is set by the command line backtest only; sweep
	// combinations run many ledgers at once and do not report here.
	EquityGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gosmc_backtest_equity",
			Help: "Final equity of the last backtest run per strategy.",
		},
		[]string{"strategy"},
	)

	SweepCombinations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosmc_sweep_combinations_total",
			Help: "Sweep combinations by status (completed, failed, discarded).",
		},
		[]string{"status"},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gosmc_sweep_combination_seconds",
			Help:    "Wall-clock time of one sweep combination.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(SignalsEmitted, SignalsRejected, TradesClosed, EquityGauge, SweepCombinations, SweepDuration)
}
