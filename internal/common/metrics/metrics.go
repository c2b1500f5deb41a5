package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "chankeeper"

	LedgerSubsystem = "ledger"
	TellSubsystem   = "tell"
)

// Ledger metrics.
var (
	LedgerPostsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: LedgerSubsystem,
			Name:      "posts_total",
			Help:      "Total number of posted URLs by outcome (created/duplicate)",
		},
		[]string{"outcome"},
	)

	LedgerCommentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: LedgerSubsystem,
			Name:      "comments_total",
			Help:      "Total number of comments added to records",
		},
	)

	LedgerRolloversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: LedgerSubsystem,
			Name:      "rollovers_total",
			Help:      "Total number of day rollovers",
		},
	)

	LedgerRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: LedgerSubsystem,
			Name:      "records",
			Help:      "Number of records in the active day's ledger",
		},
	)
)

// Tell queue metrics.
var (
	TellsQueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: TellSubsystem,
			Name:      "queued_total",
			Help:      "Total number of tells enqueued",
		},
	)

	TellsDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: TellSubsystem,
			Name:      "delivered_total",
			Help:      "Total number of tells delivered to their recipient",
		},
	)

	TellsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: TellSubsystem,
			Name:      "expired_total",
			Help:      "Total number of tells removed by the expiry sweep",
		},
	)

	TellQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: TellSubsystem,
			Name:      "queue_size",
			Help:      "Current number of messages in the tell queue",
		},
	)
)

// Shared metrics.
var (
	PersistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "persistence_failures_total",
			Help:      "Total number of failed snapshot or feed writes",
		},
	)

	DroppedCommandsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dropped_commands_total",
			Help:      "Total number of commands dropped by the per-nick rate limiter",
		},
	)
)
