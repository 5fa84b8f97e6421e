package metrics

import "github.com/prometheus/client_golang/prometheus"

// DeliveryMetrics counts notification delivery outcomes per kind
// (status, reminder, broadcast).
type DeliveryMetrics struct {
	sent   *prometheus.CounterVec
	failed *prometheus.CounterVec
}

// NewDeliveryMetrics registers the delivery counters on the provided registerer.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_sent_total",
		Help: "Notifications handed to the transport successfully.",
	}, []string{"kind"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_failed_total",
		Help: "Notifications the transport could not deliver.",
	}, []string{"kind"})
	reg.MustRegister(sent, failed)
	return &DeliveryMetrics{sent: sent, failed: failed}
}

// IncSent increments the sent counter for the given kind.
func (d *DeliveryMetrics) IncSent(kind string) {
	if d == nil || d.sent == nil {
		return
	}
	d.sent.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailed increments the failed counter for the given kind.
func (d *DeliveryMetrics) IncFailed(kind string) {
	if d == nil || d.failed == nil {
		return
	}
	d.failed.WithLabelValues(normalizeLabel(kind)).Inc()
}
