package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const bundlerNamespace = "bundler"

// MempoolMetrics contains instrumented metrics incremented by the mempool.
// A nil *MempoolMetrics is valid and records nothing, so callers can leave
// instrumentation out in tests.
type MempoolMetrics struct {
	numOpsProcessed *prometheus.CounterVec
	// degraded reads are query paths that returned an empty result because
	// the storage engine failed underneath; if this counter moves, the
	// engine needs attention even though callers kept working
	numDegradedReads *prometheus.CounterVec
	poolSize         prometheus.Gauge
}

func NewMempoolMetrics(reg prometheus.Registerer) *MempoolMetrics {
	return &MempoolMetrics{
		numOpsProcessed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: bundlerNamespace,
				Name:      "mempool_ops_total",
				Help:      "The number of mempool operations processed, by operation and status",
			}, []string{"op", "status"}),

		numDegradedReads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: bundlerNamespace,
				Name:      "mempool_degraded_reads_total",
				Help:      "The number of read queries that fell back to an empty result because the storage engine errored",
			}, []string{"op"}),

		poolSize: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: bundlerNamespace,
				Name:      "mempool_size",
				Help:      "The number of user operations currently pending in the pool",
			}),
	}
}

func (m *MempoolMetrics) IncOpProcessed(op string, status string) {
	if m == nil {
		return
	}
	m.numOpsProcessed.WithLabelValues(op, status).Inc()
}

func (m *MempoolMetrics) IncDegradedRead(op string) {
	if m == nil {
		return
	}
	m.numDegradedReads.WithLabelValues(op).Inc()
}

func (m *MempoolMetrics) SetPoolSize(n int64) {
	if m == nil {
		return
	}
	m.poolSize.Set(float64(n))
}
