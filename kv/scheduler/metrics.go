package scheduler

import "github.com/prometheus/client_golang/prometheus"

var (
	lockRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinycalvin",
			Subsystem: "scheduler",
			Name:      "lock_requests_total",
			Help:      "Counter of lock requests.",
		}, []string{"mode", "result"})

	lockReleaseCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinycalvin",
			Subsystem: "scheduler",
			Name:      "lock_releases_total",
			Help:      "Counter of lock releases.",
		})

	txnCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinycalvin",
			Subsystem: "scheduler",
			Name:      "txns_total",
			Help:      "Counter of finished txns.",
		}, []string{"status"})

	txnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tinycalvin",
			Subsystem: "scheduler",
			Name:      "execute_duration_seconds",
			Help:      "Bucketed histogram of execution time (s) of txns.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16),
		})

	readyQueueGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tinycalvin",
			Subsystem: "scheduler",
			Name:      "ready_queue_length",
			Help:      "Number of txns holding all their locks and waiting for a worker.",
		})

	lockedKeysGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tinycalvin",
			Subsystem: "scheduler",
			Name:      "locked_keys",
			Help:      "Number of keys with a non-empty lock queue.",
		})
)

func init() {
	prometheus.MustRegister(lockRequestCounter)
	prometheus.MustRegister(lockReleaseCounter)
	prometheus.MustRegister(txnCounter)
	prometheus.MustRegister(txnDuration)
	prometheus.MustRegister(readyQueueGauge)
	prometheus.MustRegister(lockedKeysGauge)
}
