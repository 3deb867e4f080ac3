package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	txnMetricsOnce sync.Once
	txnRegistry    *TxnMetrics
)

// TxnMetrics captures four-packet transaction engine health: state
// transitions, rollback executions, and token-lock contention.
type TxnMetrics struct {
	transitions *prometheus.CounterVec
	rollbacks   *prometheus.CounterVec
	lockWaits   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// Txn exposes the metrics registry for the transaction engine.
func Txn() *TxnMetrics {
	txnMetricsOnce.Do(func() {
		txnRegistry = &TxnMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenmesh",
				Subsystem: "txn",
				Name:      "state_transitions_total",
				Help:      "Count of transaction state transitions segmented by resulting state.",
			}, []string{"state"}),
			rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenmesh",
				Subsystem: "txn",
				Name:      "rollbacks_total",
				Help:      "Count of RetroPak rollback executions segmented by trigger.",
			}, []string{"trigger"}),
			lockWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenmesh",
				Subsystem: "txn",
				Name:      "lock_conflicts_total",
				Help:      "Count of token lock acquisition conflicts.",
			}, []string{"role"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tokenmesh",
				Subsystem: "txn",
				Name:      "commit_duration_seconds",
				Help:      "Latency from INITIATED to a terminal state.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			txnRegistry.transitions,
			txnRegistry.rollbacks,
			txnRegistry.lockWaits,
			txnRegistry.duration,
		)
	})
	return txnRegistry
}

// RecordTransition increments the transition counter for state.
func (m *TxnMetrics) RecordTransition(state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(state).Inc()
}

// RecordRollback increments the rollback counter for trigger ("time_gate",
// "timeout", "validation_failed").
func (m *TxnMetrics) RecordRollback(trigger string) {
	if m == nil {
		return
	}
	m.rollbacks.WithLabelValues(trigger).Inc()
}

// RecordLockConflict increments the lock-conflict counter for role
// ("sender", "receiver").
func (m *TxnMetrics) RecordLockConflict(role string) {
	if m == nil {
		return
	}
	m.lockWaits.WithLabelValues(role).Inc()
}

// RecordDuration records the wall-clock span from INITIATED to a terminal
// state, segmented by outcome ("committed", "aborted", "failed").
func (m *TxnMetrics) RecordDuration(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}
