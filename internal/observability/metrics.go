// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	FramesReceived  prometheus.Counter
	MessagesDecoded *prometheus.CounterVec
	DecodeFailures  prometheus.Counter
	ReconnectsTotal prometheus.Counter
	ConnectionState prometheus.Gauge

	// Reconciliation metrics
	TransactionsProcessed *prometheus.CounterVec
	ListingsInserted      prometheus.Counter
	ListingsUpdated       prometheus.Counter
	ReconcileErrors       *prometheus.CounterVec
	ReconcileLatency      prometheus.Histogram
	LastEventTimestamp    prometheus.Gauge

	// Notification metrics
	NotificationsSent    prometheus.Counter
	NotificationFailures prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tensor_listener"
	}

	return &Metrics{
		FramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "frames_received_total",
			Help:      "Total number of raw frames received from the feed",
		}),
		MessagesDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_decoded_total",
			Help:      "Total number of decoded messages by type",
		}, []string{"type"}),
		DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "decode_failures_total",
			Help:      "Total number of frames that failed to decode",
		}),
		ReconnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of reconnection attempts",
		}),
		ConnectionState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connection_state",
			Help:      "Current connection state (0=disconnected, 1=connecting, 2=connected, 3=closing)",
		}),

		TransactionsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "transactions_processed_total",
			Help:      "Total number of transaction events processed by kind",
		}, []string{"kind"}),
		ListingsInserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "listings_inserted_total",
			Help:      "Total number of listing records created",
		}),
		ListingsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "listings_updated_total",
			Help:      "Total number of listing records updated",
		}),
		ReconcileErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "errors_total",
			Help:      "Total number of reconciliation errors by stage",
		}, []string{"stage"}),
		ReconcileLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "latency_seconds",
			Help:      "Transaction reconciliation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LastEventTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "last_event_timestamp",
			Help:      "Unix timestamp of the last reconciled transaction",
		}),

		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total number of notifications dispatched",
		}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Total number of failed notification deliveries",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFrame increments the raw frame counter.
func RecordFrame() {
	DefaultMetrics.FramesReceived.Inc()
}

// RecordDecoded records a decoded message by type.
func RecordDecoded(msgType string) {
	DefaultMetrics.MessagesDecoded.WithLabelValues(msgType).Inc()
}

// RecordDecodeFailure increments the decode failure counter.
func RecordDecodeFailure() {
	DefaultMetrics.DecodeFailures.Inc()
}

// RecordReconnect increments the reconnect counter.
func RecordReconnect() {
	DefaultMetrics.ReconnectsTotal.Inc()
}

// SetConnectionState updates the connection state gauge.
func SetConnectionState(state int) {
	DefaultMetrics.ConnectionState.Set(float64(state))
}

// RecordTransaction records a processed transaction by kind.
func RecordTransaction(kind string) {
	DefaultMetrics.TransactionsProcessed.WithLabelValues(kind).Inc()
}

// RecordListingInserted increments the insert counter.
func RecordListingInserted() {
	DefaultMetrics.ListingsInserted.Inc()
}

// RecordListingUpdated increments the update counter.
func RecordListingUpdated() {
	DefaultMetrics.ListingsUpdated.Inc()
}

// RecordReconcileError records a reconciliation error by stage.
func RecordReconcileError(stage string) {
	DefaultMetrics.ReconcileErrors.WithLabelValues(stage).Inc()
}

// RecordReconcileLatency records reconciliation latency.
func RecordReconcileLatency(seconds float64) {
	DefaultMetrics.ReconcileLatency.Observe(seconds)
	DefaultMetrics.LastEventTimestamp.SetToCurrentTime()
}

// RecordNotification records a notification outcome.
func RecordNotification(err error) {
	if err != nil {
		DefaultMetrics.NotificationFailures.Inc()
		return
	}
	DefaultMetrics.NotificationsSent.Inc()
}
