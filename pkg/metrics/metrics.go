package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Certificate lifecycle metrics (component E).
	CertRenewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neco_cert_renewals_total",
			Help: "Total number of certificate renewal attempts by kind and result",
		},
		[]string{"which", "result"},
	)

	CertExpiryDays = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "neco_cert_expiry_days",
			Help: "Days remaining before a managed certificate's renewal margin is hit",
		},
		[]string{"component", "which"},
	)

	// Install / recipe cycle metrics (components F/G).
	InstallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "neco_install_duration_seconds",
			Help:    "Time taken to cook a component's recipe end to end",
			Buckets: prometheus.DefBuckets,
		},
	)

	InstallTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neco_install_total",
			Help: "Total number of install/upgrade cycles by outcome",
		},
		[]string{"outcome"},
	)

	ManifestChecksumMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "neco_manifest_checksum_mismatch_total",
			Help: "Total number of downloaded artifacts rejected for checksum mismatch",
		},
	)

	// MQTT backhaul metrics (component H).
	BrokerConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neco_broker_connections_total",
			Help: "Total number of MQTT (re)connect events by bus and outcome",
		},
		[]string{"bus", "outcome"},
	)

	MessagesPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neco_messages_published_total",
			Help: "Total number of MQTT messages published by bus and topic",
		},
		[]string{"bus", "topic"},
	)

	MessagesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neco_messages_received_total",
			Help: "Total number of MQTT messages received by bus and topic",
		},
		[]string{"bus", "topic"},
	)

	// Command-plane dispatch metrics (component I).
	CommandsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neco_commands_dispatched_total",
			Help: "Total number of inbound commands dispatched by tag and outcome",
		},
		[]string{"command", "outcome"},
	)

	CommandHandlingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neco_command_handling_duration_seconds",
			Help:    "Time taken to handle an inbound command by tag",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// Version-control manifest metrics (component G).
	ManifestRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neco_manifest_refresh_total",
			Help: "Total number of update manifest fetches by outcome",
		},
		[]string{"outcome"},
	)

	RestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "neco_restarts_total",
			Help: "Total number of times the agent has initiated its own restart for a self-upgrade",
		},
	)
)

func init() {
	prometheus.MustRegister(CertRenewalsTotal)
	prometheus.MustRegister(CertExpiryDays)

	prometheus.MustRegister(InstallDuration)
	prometheus.MustRegister(InstallTotal)
	prometheus.MustRegister(ManifestChecksumMismatchTotal)

	prometheus.MustRegister(BrokerConnectionsTotal)
	prometheus.MustRegister(MessagesPublishedTotal)
	prometheus.MustRegister(MessagesReceivedTotal)

	prometheus.MustRegister(CommandsDispatchedTotal)
	prometheus.MustRegister(CommandHandlingDuration)

	prometheus.MustRegister(ManifestRefreshTotal)
	prometheus.MustRegister(RestartsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
