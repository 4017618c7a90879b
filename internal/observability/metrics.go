// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	MessagesReceived   *prometheus.CounterVec
	MessagesDiscarded  prometheus.Counter
	MalformedReports   prometheus.Counter
	ConnectionAttempts *prometheus.CounterVec
	Reconnects         prometheus.Counter
	FeedState          *prometheus.GaugeVec

	// Track store metrics
	PositionsIngested prometheus.Counter
	VesselsTracked    prometheus.Gauge

	// Snapshot metrics
	SnapshotWrites   *prometheus.CounterVec
	SnapshotDuration prometheus.Histogram
	SnapshotBytes    prometheus.Gauge

	// Health metrics
	LastSuccessfulSnapshot prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vessel_track_lab"
	}

	return &Metrics{
		MessagesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_received_total",
			Help:      "Total number of feed messages received by message type",
		}, []string{"message_type"}),
		MessagesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_discarded_total",
			Help:      "Total number of feed messages discarded as not position reports",
		}),
		MalformedReports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "malformed_messages_total",
			Help:      "Total number of malformed feed messages skipped",
		}),
		ConnectionAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connection_attempts_total",
			Help:      "Total number of feed connection attempts by result",
		}, []string{"result"}),
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of reconnects after a stream failure",
		}),
		FeedState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "state",
			Help:      "Current ingestion state (1 for the active state)",
		}, []string{"state"}),

		PositionsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracks",
			Name:      "positions_ingested_total",
			Help:      "Total number of positions appended to the track store",
		}),
		VesselsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracks",
			Name:      "vessels",
			Help:      "Number of vessels with a track",
		}),

		SnapshotWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "writes_total",
			Help:      "Total number of snapshot writes by status",
		}, []string{"status"}),
		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "duration_seconds",
			Help:      "Time to build, encode and write a snapshot",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "size_bytes",
			Help:      "Size of the last written snapshot document",
		}),

		LastSuccessfulSnapshot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of last successful snapshot write",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMessage increments the received counter for a message type.
func RecordMessage(messageType string) {
	if messageType == "" {
		messageType = "unknown"
	}
	DefaultMetrics.MessagesReceived.WithLabelValues(messageType).Inc()
}

// RecordDiscarded increments the discarded messages counter.
func RecordDiscarded() {
	DefaultMetrics.MessagesDiscarded.Inc()
}

// RecordMalformed increments the malformed messages counter.
func RecordMalformed() {
	DefaultMetrics.MalformedReports.Inc()
}

// RecordConnectionAttempt records a feed connection attempt.
func RecordConnectionAttempt(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	DefaultMetrics.ConnectionAttempts.WithLabelValues(result).Inc()
}

// RecordReconnect increments the reconnect counter.
func RecordReconnect() {
	DefaultMetrics.Reconnects.Inc()
}

// SetFeedState marks state as the active one among all known states.
func SetFeedState(state string, known []string) {
	for _, s := range known {
		v := 0.0
		if s == state {
			v = 1
		}
		DefaultMetrics.FeedState.WithLabelValues(s).Set(v)
	}
}

// RecordPositionIngested updates track store metrics after an upsert.
func RecordPositionIngested(vessels int) {
	DefaultMetrics.PositionsIngested.Inc()
	DefaultMetrics.VesselsTracked.Set(float64(vessels))
}

// RecordSnapshot records the outcome of a snapshot write.
func RecordSnapshot(duration time.Duration, size int, err error) {
	DefaultMetrics.SnapshotDuration.Observe(duration.Seconds())
	if err != nil {
		DefaultMetrics.SnapshotWrites.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.SnapshotWrites.WithLabelValues("ok").Inc()
	DefaultMetrics.SnapshotBytes.Set(float64(size))
	DefaultMetrics.LastSuccessfulSnapshot.Set(float64(time.Now().Unix()))
}
