package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbox dispatch outcomes (sent / failed / lost_claim).
	DispatchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_dispatch_total",
			Help: "Total number of outbox dispatch attempts by outcome",
		},
		[]string{"outcome", "connector"},
	)

	// Connector send latency (seconds).
	ConnectorSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connector_send_duration_seconds",
			Help:    "Connector send call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"connector", "status"},
	)

	// Matured scheduled tasks handed to the dispatcher.
	ScheduledTasksClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_claimed_total",
			Help: "Total number of matured scheduled tasks claimed",
		},
	)

	// Notification observers that returned an error or panicked.
	ObserverFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_observer_failures_total",
			Help: "Total number of notification observer failures (swallowed)",
		},
		[]string{"event"},
	)

	// Inbound messages pulled through connector Retrieve.
	InboundRetrieved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_retrieved_total",
			Help: "Total number of inbound messages retrieved",
		},
		[]string{"connector", "result"}, // result: new, duplicate, error
	)

	// Queries slower than the configured threshold.
	SlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Total number of queries slower than the slow-query threshold",
		},
	)

	// MQ consumer outcomes per routing key (ok / error / dead_lettered).
	ConsumedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_consumed_events_total",
			Help: "Total number of consumed MQ events by outcome",
		},
		[]string{"routing_key", "outcome"},
	)

	// HTTP request latency (seconds).
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordDispatch increments the dispatch outcome counter.
func RecordDispatch(outcome, connector string) {
	DispatchCount.WithLabelValues(outcome, connector).Inc()
}

// RecordConnectorSend records a connector send call.
func RecordConnectorSend(connector, status string, duration time.Duration) {
	ConnectorSendDuration.WithLabelValues(connector, status).Observe(duration.Seconds())
}

// RecordObserverFailure increments the swallowed observer failure counter.
func RecordObserverFailure(event string) {
	ObserverFailures.WithLabelValues(event).Inc()
}

// RecordInbound increments the inbound retrieval counter.
func RecordInbound(connector, result string) {
	InboundRetrieved.WithLabelValues(connector, result).Inc()
}

// RecordConsumedEvent increments the MQ consumer outcome counter.
func RecordConsumedEvent(routingKey, outcome string) {
	ConsumedEvents.WithLabelValues(routingKey, outcome).Inc()
}

// RecordHTTPRequest records HTTP request latency.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
