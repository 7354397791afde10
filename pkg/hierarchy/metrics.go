package hierarchy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

type metrics struct {
	added        prometheus.Counter
	commits      *prometheus.CounterVec
	moves        *prometheus.CounterVec
	movedEntries prometheus.Histogram
	moveDuration prometheus.Histogram
}

// newMetrics creates the hierarchy metrics. A nil reg leaves them
// unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		added: f.NewCounter(prometheus.CounterOpts{
			Name: "nestedtable_entries_added_total",
			Help: "Entries added to a session",
		}),
		commits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nestedtable_commits_total",
			Help: "Session commits by result",
		}, []string{"result"}),
		moves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nestedtable_moves_total",
			Help: "Subtree moves by result",
		}, []string{"result"}),
		movedEntries: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nestedtable_move_entries",
			Help:    "Entries rewritten per subtree move",
			Buckets: []float64{1, 10, 100, 1000, 10000},
		}),
		moveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nestedtable_move_duration_seconds",
			Help:    "Subtree move duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}
}

func (r *metrics) observeMove(d time.Duration, entries int, err error) {
	if err != nil {
		r.moves.WithLabelValues(resultError).Inc()
		return
	}
	r.moves.WithLabelValues(resultSuccess).Inc()
	r.movedEntries.Observe(float64(entries))
	r.moveDuration.Observe(d.Seconds())
}
