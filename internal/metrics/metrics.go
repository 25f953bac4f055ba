package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace groups every metric exported by the server.
const namespace = "drowsy_server"

var (
	// EventsReceived counts validated perception events, labeled by state.
	//nolint:gochecknoglobals // Prometheus collectors are registered once per process.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Validated perception events accepted by the ingress listener.",
	}, []string{"state"})

	// EventsDropped counts inbound messages rejected during validation.
	//nolint:gochecknoglobals // Prometheus collectors are registered once per process.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Inbound messages dropped because of malformed payloads or unknown states.",
	})

	// AlertsFired counts escalation episodes that reached the notification sink.
	//nolint:gochecknoglobals // Prometheus collectors are registered once per process.
	AlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_fired_total",
		Help:      "Emergency alerts fired after the drowsy dwell elapsed.",
	})

	// BridgeSkipped counts publishes skipped because the broker was down.
	//nolint:gochecknoglobals // Prometheus collectors are registered once per process.
	BridgeSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bridge_publishes_skipped_total",
		Help:      "Device bridge publishes skipped while the MQTT broker was unreachable.",
	})

	// Subscribers tracks the number of connected dashboard subscribers.
	//nolint:gochecknoglobals // Prometheus collectors are registered once per process.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dashboard_subscribers",
		Help:      "Currently connected dashboard subscribers.",
	})

	// StoreErrors counts record-store operations that failed and were degraded.
	//nolint:gochecknoglobals // Prometheus collectors are registered once per process.
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_errors_total",
		Help:      "Record store operations that failed and fell back to cached state.",
	})
)
