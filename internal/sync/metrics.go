package sync

import "github.com/prometheus/client_golang/prometheus"

var (
	pushedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_tracker",
		Subsystem: "sync",
		Name:      "records_pushed_total",
		Help:      "Number of local records successfully confirmed by the remote store.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_tracker",
		Subsystem: "sync",
		Name:      "records_failed_total",
		Help:      "Number of push attempts that failed and left the record pending.",
	})

	duplicateCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_tracker",
		Subsystem: "sync",
		Name:      "records_duplicate_total",
		Help:      "Number of records the server rejected as same-day duplicates.",
	})

	passDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "health_tracker",
		Subsystem: "sync",
		Name:      "pass_duration_seconds",
		Help:      "Time spent listing and pushing pending records per sync pass.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(pushedCounter, failedCounter, duplicateCounter, passDuration)
}
