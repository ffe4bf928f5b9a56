package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoguard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecoguard_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// Ingestion metrics
	ReadingsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecoguard_readings_ingested_total",
			Help: "Total number of sensor readings persisted",
		},
	)

	ReadingsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoguard_readings_rejected_total",
			Help: "Total number of sensor readings rejected before persistence",
		},
		[]string{"reason"},
	)

	AlertsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoguard_alerts_emitted_total",
			Help: "Total number of threshold alerts emitted",
		},
		[]string{"metric"},
	)

	// Command queue metrics
	CommandsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoguard_commands_issued_total",
			Help: "Total number of device commands enqueued",
		},
		[]string{"type"},
	)

	CommandsAcknowledgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecoguard_commands_acknowledged_total",
			Help: "Total number of device command acknowledgements",
		},
	)

	// Notifier metrics
	NotifierQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecoguard_notifier_queue_depth",
			Help: "Current number of events waiting to be published",
		},
	)

	NotifierDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecoguard_notifier_dropped_total",
			Help: "Total number of events dropped because the queue was full",
		},
	)

	NotifierPublishFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecoguard_notifier_publish_failed_total",
			Help: "Total number of events the message bus refused",
		},
	)

	// Session metrics
	SessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecoguard_sessions_swept_total",
			Help: "Total number of expired sessions removed",
		},
	)
)
