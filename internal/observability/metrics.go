package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "health_tracker",
		Subsystem: "persistence",
		Name:      "last_record_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent health record persisted to Postgres.",
	})

	duplicateRejectedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_tracker",
		Subsystem: "api",
		Name:      "duplicates_rejected_total",
		Help:      "Number of submissions rejected as identical same-day duplicates.",
	})

	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_tracker",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Number of handled API requests, labeled by route and status class.",
	}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(recordPersistGauge, duplicateRejectedCounter, requestCounter)
}

// RecordPersisted updates the persistence watermark gauge.
func RecordPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	recordPersistGauge.Set(float64(ts.Unix()))
}

// RecordDuplicateRejected counts a duplicate rejection.
func RecordDuplicateRejected() {
	duplicateRejectedCounter.Inc()
}

// RecordRequest counts a handled request.
func RecordRequest(route, status string) {
	requestCounter.WithLabelValues(route, status).Inc()
}
