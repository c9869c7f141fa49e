// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger metrics
	EntriesRecorded    *prometheus.CounterVec
	DuplicatesRejected prometheus.Counter
	ValidationFailures *prometheus.CounterVec
	BroadcastFailures  prometheus.Counter
	LedgerHeadSlot     prometheus.Gauge

	// Replay metrics
	Reconstructions      prometheus.Counter
	ReconstructionErrors prometheus.Counter
	ReplayDuration       prometheus.Histogram
	EntriesFolded        prometheus.Histogram
	SnapshotHits         prometheus.Counter
	SnapshotMisses       prometheus.Counter

	// Snapshot metrics
	SnapshotsCreated  prometheus.Counter
	SnapshotsPruned   prometheus.Counter
	SnapshotFailures  prometheus.Counter
	SnapshotSizeBytes prometheus.Histogram

	// Indexer metrics
	ChainEventsProcessed prometheus.Counter
	ChainEventsSkipped   *prometheus.CounterVec
	IndexerErrors        *prometheus.CounterVec
	BufferSlots          prometheus.Gauge
	HighestSlotSeen      prometheus.Gauge
	LastIndexedSlot      prometheus.Gauge

	// Scheduler metrics
	JobRuns          *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
	VestingReleases  prometheus.Counter
	AnalyticsPoints  prometheus.Counter
	TokensSweptTotal prometheus.Counter

	// Solana client metrics
	RPCCallLatency *prometheus.HistogramVec
	WSReconnects   prometheus.Counter

	// Cache metrics
	StateCacheHits   prometheus.Counter
	StateCacheMisses prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "captable"
	}

	return &Metrics{
		// Ledger metrics
		EntriesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_recorded_total",
			Help:      "Total number of ledger entries recorded by kind",
		}, []string{"kind"}),
		DuplicatesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "duplicates_rejected_total",
			Help:      "Total number of appends rejected as duplicate chain events",
		}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "validation_failures_total",
			Help:      "Total number of record requests failing structural validation by kind",
		}, []string{"kind"}),
		BroadcastFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "broadcast_failures_total",
			Help:      "Total number of best-effort entry broadcasts that failed",
		}),
		LedgerHeadSlot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "head_slot",
			Help:      "Slot of the most recently appended entry",
		}),

		// Replay metrics
		Reconstructions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "reconstructions_total",
			Help:      "Total number of state reconstructions",
		}),
		ReconstructionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "reconstruction_errors_total",
			Help:      "Total number of failed state reconstructions",
		}),
		ReplayDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "duration_seconds",
			Help:      "State reconstruction duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		EntriesFolded: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "entries_folded",
			Help:      "Number of entries folded per reconstruction",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
		SnapshotHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "snapshot_hits_total",
			Help:      "Total number of reconstructions resumed from a snapshot",
		}),
		SnapshotMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "snapshot_misses_total",
			Help:      "Total number of reconstructions replayed from empty state",
		}),

		// Snapshot metrics
		SnapshotsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "created_total",
			Help:      "Total number of snapshots created",
		}),
		SnapshotsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "pruned_total",
			Help:      "Total number of snapshots deleted by pruning",
		}),
		SnapshotFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "failures_total",
			Help:      "Total number of failed snapshot creations (best-effort, non-fatal)",
		}),
		SnapshotSizeBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "size_bytes",
			Help:      "Serialized snapshot size in bytes",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}),

		// Indexer metrics
		ChainEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "chain_events_processed_total",
			Help:      "Total number of chain events recorded as entries",
		}),
		ChainEventsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "chain_events_skipped_total",
			Help:      "Total number of chain events skipped by reason",
		}, []string{"reason"}),
		IndexerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "errors_total",
			Help:      "Total number of indexer errors by stage",
		}, []string{"stage"}),
		BufferSlots: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "buffer_slots",
			Help:      "Current number of slots buffered awaiting finalization",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),
		LastIndexedSlot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "last_indexed_slot",
			Help:      "Last slot fully indexed into the ledger",
		}),

		// Scheduler metrics
		JobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs by job and status",
		}, []string{"job", "status"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"job"}),
		VestingReleases: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "vesting_releases_recorded_total",
			Help:      "Total number of vesting release entries recorded by the sweep",
		}),
		AnalyticsPoints: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "analytics_points_total",
			Help:      "Total number of cap-table history points written",
		}),
		TokensSweptTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tokens_swept_total",
			Help:      "Total number of per-token sweep executions",
		}),

		// Solana client metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

		// Cache metrics
		StateCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "state_hits_total",
			Help:      "Total number of state cache hits",
		}),
		StateCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "state_misses_total",
			Help:      "Total number of state cache misses",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEntryRecorded increments the recorded-entries counter for a kind and
// moves the ledger head gauge.
func RecordEntryRecorded(kind string, slot int64) {
	DefaultMetrics.EntriesRecorded.WithLabelValues(kind).Inc()
	DefaultMetrics.LedgerHeadSlot.Set(float64(slot))
}

// RecordDuplicateRejected increments the duplicate-append counter.
func RecordDuplicateRejected() {
	DefaultMetrics.DuplicatesRejected.Inc()
}

// RecordValidationFailure increments the validation-failure counter for a kind.
func RecordValidationFailure(kind string) {
	DefaultMetrics.ValidationFailures.WithLabelValues(kind).Inc()
}

// RecordBroadcastFailure increments the broadcast-failure counter.
func RecordBroadcastFailure() {
	DefaultMetrics.BroadcastFailures.Inc()
}

// RecordReconstruction records one reconstruction outcome.
func RecordReconstruction(seconds float64, entriesFolded int, err error) {
	DefaultMetrics.Reconstructions.Inc()
	DefaultMetrics.ReplayDuration.Observe(seconds)
	DefaultMetrics.EntriesFolded.Observe(float64(entriesFolded))
	if err != nil {
		DefaultMetrics.ReconstructionErrors.Inc()
	}
}

// RecordSnapshotHit increments the snapshot hit counter.
func RecordSnapshotHit() {
	DefaultMetrics.SnapshotHits.Inc()
}

// RecordSnapshotMiss increments the snapshot miss counter.
func RecordSnapshotMiss() {
	DefaultMetrics.SnapshotMisses.Inc()
}

// RecordSnapshotCreated records a created snapshot and its payload size.
func RecordSnapshotCreated(sizeBytes int) {
	DefaultMetrics.SnapshotsCreated.Inc()
	DefaultMetrics.SnapshotSizeBytes.Observe(float64(sizeBytes))
}

// RecordChainEventSkipped increments the skip counter for a reason.
func RecordChainEventSkipped(reason string) {
	DefaultMetrics.ChainEventsSkipped.WithLabelValues(reason).Inc()
}

// RecordIndexerError increments the indexer error counter for a stage.
func RecordIndexerError(stage string) {
	DefaultMetrics.IndexerErrors.WithLabelValues(stage).Inc()
}

// RecordJobRun records a scheduled job run.
func RecordJobRun(job, status string, seconds float64) {
	DefaultMetrics.JobRuns.WithLabelValues(job, status).Inc()
	DefaultMetrics.JobDuration.WithLabelValues(job).Observe(seconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
