package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the cash book collectors
type Registry struct {
	LedgerMutations *prometheus.CounterVec
	SyncPushes      *prometheus.CounterVec
	SyncPolls       *prometheus.CounterVec
	RemoteApplied   prometheus.Counter
	PushDuration    prometheus.Histogram
	BookStoreOps    *prometheus.CounterVec
}

// NewRegistry creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		LedgerMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashbook_ledger_mutations_total",
				Help: "Ledger mutations applied locally by operation",
			},
			[]string{"op"},
		),
		SyncPushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashbook_sync_pushes_total",
				Help: "Snapshot pushes to the book store by result",
			},
			[]string{"result"},
		),
		SyncPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashbook_sync_polls_total",
				Help: "Book store polls by result (applied, stale, not_found, error)",
			},
			[]string{"result"},
		),
		RemoteApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cashbook_sync_remote_applied_total",
				Help: "Remote snapshots that replaced the local state",
			},
		),
		PushDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cashbook_sync_push_duration_seconds",
				Help:    "Duration of snapshot pushes",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		BookStoreOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashbook_bookstore_requests_total",
				Help: "Book store requests by operation and status",
			},
			[]string{"op", "status"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			r.LedgerMutations,
			r.SyncPushes,
			r.SyncPolls,
			r.RemoteApplied,
			r.PushDuration,
			r.BookStoreOps,
		)
	}
	return r
}
