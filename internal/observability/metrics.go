package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TableCallLatency records remote table call latency by operation and table.
	TableCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "footballsocial_table_call_latency_seconds",
		Help:    "Remote table call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// TableCallErrors counts failed remote table calls by operation and table.
	TableCallErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footballsocial_table_call_errors_total",
		Help: "Total number of failed remote table calls",
	}, []string{"operation", "table"})

	// OptimisticRollbacks counts optimistic view updates that were reverted.
	OptimisticRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footballsocial_optimistic_rollbacks_total",
		Help: "Total number of optimistic updates rolled back after a failed write",
	}, []string{"operation"})

	// WebSocketEventsTotal counts view session messages by view and type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footballsocial_websocket_events_total",
		Help: "Total websocket view session messages by type",
	}, []string{"view", "event_type"})
)

// TrackTableCall returns a function that records the call latency when called (e.g. defer).
func TrackTableCall(operation, table string) func() {
	start := time.Now()
	return func() {
		TableCallLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
