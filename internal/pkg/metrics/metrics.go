package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every fleetpulse metric and is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// MQTTConnected is 1 while the broker session is up.
	MQTTConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetpulse_mqtt_connected",
			Help: "Connectivity to the MQTT broker (1=connected, 0=not connected).",
		},
	)

	// IngestMessagesTotal counts deliveries by topic segment and outcome.
	IngestMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpulse_ingest_messages_total",
			Help: "Total number of MQTT deliveries handled by the ingestor.",
		},
		[]string{"segment", "result"}, // result: stored/rejected/failed
	)

	// IngestEventsTotal counts rows appended to the event logs.
	IngestEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpulse_ingest_events_total",
			Help: "Total number of events appended to the event logs.",
		},
		[]string{"kind"}, // kind: status/heartbeat
	)

	// IngestQueueDepth is the number of deliveries waiting for the consumer.
	IngestQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetpulse_ingest_queue_depth",
			Help: "Deliveries queued for sequential processing.",
		},
	)

	// BalanceChecksTotal counts balance checks by outcome.
	BalanceChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpulse_balance_checks_total",
			Help: "Total number of balance checks by outcome.",
		},
		[]string{"status"}, // status: success/not_found/error
	)

	// BalanceCheckLatency covers all attempts of one check.
	BalanceCheckLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetpulse_balance_check_duration_seconds",
			Help:    "Duration of balance checks including retries.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CommandSentTotal counts status commands published to vehicles.
	CommandSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpulse_command_sent_total",
			Help: "Total number of status commands published.",
		},
		[]string{"result"}, // result: success/failed
	)

	// HTTPRequestsTotal counts API requests by route template and status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetpulse_http_requests_total",
			Help: "Total number of HTTP API requests.",
		},
		[]string{"route", "method", "code"},
	)

	// HTTPRequestLatency records API latency by route template.
	HTTPRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetpulse_http_request_duration_seconds",
			Help:    "Latency of HTTP API requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		MQTTConnected,
		IngestMessagesTotal,
		IngestEventsTotal,
		IngestQueueDepth,
		BalanceChecksTotal,
		BalanceCheckLatency,
		CommandSentTotal,
		HTTPRequestsTotal,
		HTTPRequestLatency,
	)
}
