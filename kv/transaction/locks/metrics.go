package locks

import "github.com/prometheus/client_golang/prometheus"

var (
	lockWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tinytxn",
			Subsystem: "locks",
			Name:      "wait_duration_seconds",
			Help:      "Bucketed histogram of lock acquisition wait time (s).",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 13),
		})

	deadlockCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinytxn",
			Subsystem: "locks",
			Name:      "deadlocks_total",
			Help:      "Counter of detected deadlock cycles.",
		})

	lockTimeoutCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinytxn",
			Subsystem: "locks",
			Name:      "wait_timeouts_total",
			Help:      "Counter of lock waits that timed out.",
		})
)

func init() {
	prometheus.MustRegister(lockWaitDuration)
	prometheus.MustRegister(deadlockCounter)
	prometheus.MustRegister(lockTimeoutCounter)
}
