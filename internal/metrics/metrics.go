package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mirror stage counters and histograms.

var (
	// Backfill
	BackfillRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "backfill",
		Name:      "runs_total",
		Help:      "Total backfill runs by outcome",
	}, []string{"status"})

	BackfillSlotsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "backfill",
		Name:      "slots_fetched_total",
		Help:      "Total on-chain slots fetched during backfill",
	}, []string{"entity"})

	BackfillSlotErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "backfill",
		Name:      "slot_errors_total",
		Help:      "Total failed slot reads during backfill",
	}, []string{"entity"})

	BackfillDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mirror",
		Subsystem: "backfill",
		Name:      "duration_seconds",
		Help:      "Backfill duration from first read to last insert",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	})

	// Reconciler
	ReconcilerEventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "reconciler",
		Name:      "events_applied_total",
		Help:      "Total marketplace events applied to the mirror",
	}, []string{"kind"})

	ReconcilerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "reconciler",
		Name:      "errors_total",
		Help:      "Total events that failed to apply",
	}, []string{"kind"})

	ReconcilerApplyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mirror",
		Subsystem: "reconciler",
		Name:      "apply_duration_seconds",
		Help:      "Event apply duration",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"kind"})

	ReconcilerLastBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mirror",
		Subsystem: "reconciler",
		Name:      "last_block",
		Help:      "Block number of the last applied event",
	})

	// Gateway
	GatewayCallRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "gateway",
		Name:      "call_retries_total",
		Help:      "Total retried contract reads",
	}, []string{"method"})

	GatewayResubscriptions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "gateway",
		Name:      "resubscriptions_total",
		Help:      "Total log subscriptions re-established after an error",
	})

	GatewayLogsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "gateway",
		Name:      "logs_skipped_total",
		Help:      "Total logs not delivered as events",
	}, []string{"reason"})

	// Sink
	SinkLinesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "sink",
		Name:      "lines_written_total",
		Help:      "Total audit lines written",
	}, []string{"sink"})

	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "sink",
		Name:      "errors_total",
		Help:      "Total failed audit line writes",
	}, []string{"sink"})
)
