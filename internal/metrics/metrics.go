package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grass_claimer_build_info",
			Help: "Build information of the grass claimer",
		},
		[]string{"version"},
	)

	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grass_claimer_attempts_total",
			Help: "Per-wallet attempts by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	AttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grass_claimer_attempt_duration_seconds",
			Help:    "Duration of one per-wallet attempt, excluding the pacing sleep",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~128s
		},
		[]string{"mode"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grass_claimer_submissions_total",
			Help: "Transaction submissions by strategy and result",
		},
		[]string{"strategy", "result"},
	)

	BundlePollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grass_claimer_bundle_polls_total",
			Help: "Bundle status polls by observed status",
		},
		[]string{"status"},
	)

	PendingWallets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grass_claimer_pending_wallets",
			Help: "Wallets not yet done for the running mode",
		},
		[]string{"mode"},
	)
)
