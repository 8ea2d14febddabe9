package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics exposes counters/histograms for the booking gateway.
type GatewayMetrics struct {
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	bookingsTotal   *prometheus.CounterVec
	contactsTotal   *prometheus.CounterVec
	sweepsTotal     *prometheus.CounterVec
	tasksDropped    prometheus.Counter
}

// NewGatewayMetrics registers the gateway collectors on reg, or on the
// default registerer when reg is nil.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghl",
			Subsystem: "gateway",
			Name:      "upstream_requests_total",
			Help:      "Total requests sent to the GoHighLevel API",
		}, []string{"operation", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ghl",
			Subsystem: "gateway",
			Name:      "upstream_latency_seconds",
			Help:      "Latency of GoHighLevel API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghl",
			Subsystem: "gateway",
			Name:      "bookings_total",
			Help:      "Appointment booking attempts by outcome",
		}, []string{"outcome"}),
		contactsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghl",
			Subsystem: "gateway",
			Name:      "contacts_total",
			Help:      "Contact reconciliations by outcome",
		}, []string{"outcome"}),
		sweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghl",
			Subsystem: "gateway",
			Name:      "ghost_sweeps_total",
			Help:      "Ghost contact sweeps by outcome",
		}, []string{"outcome"}),
		tasksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ghl",
			Subsystem: "gateway",
			Name:      "tasks_dropped_total",
			Help:      "Detached tasks dropped because the queue was full",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.upstreamTotal, m.upstreamLatency, m.bookingsTotal, m.contactsTotal, m.sweepsTotal, m.tasksDropped)
	return m
}

// ObserveUpstream records one GHL round trip. status 0 means a transport failure.
func (m *GatewayMetrics) ObserveUpstream(operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamTotal.WithLabelValues(operation, label).Inc()
	m.upstreamLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveBooking counts one appointment attempt: booked, rejected, invalid or failed.
func (m *GatewayMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveContact counts one contact reconciliation by outcome.
func (m *GatewayMetrics) ObserveContact(outcome string) {
	if m == nil {
		return
	}
	m.contactsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSweep counts one ghost contact sweep by outcome.
func (m *GatewayMetrics) ObserveSweep(outcome string) {
	if m == nil {
		return
	}
	m.sweepsTotal.WithLabelValues(outcome).Inc()
}

// TaskDropped counts a detached task refused by a full queue.
func (m *GatewayMetrics) TaskDropped() {
	if m == nil {
		return
	}
	m.tasksDropped.Inc()
}
