package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking workflow.
type BookingMetrics struct {
	reservationsTotal  *prometheus.CounterVec
	finalizationsTotal *prometheus.CounterVec
	stepFailuresTotal  *prometheus.CounterVec
	finalizeDuration   prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		reservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentoji",
			Subsystem: "bookings",
			Name:      "reservations_total",
			Help:      "Slot reservation attempts by outcome",
		}, []string{"outcome"}),
		finalizationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentoji",
			Subsystem: "bookings",
			Name:      "finalizations_total",
			Help:      "Payment finalization attempts by outcome",
		}, []string{"outcome"}),
		stepFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentoji",
			Subsystem: "bookings",
			Name:      "finalize_step_failures_total",
			Help:      "Best-effort finalize steps that degraded",
		}, []string{"step"}),
		finalizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mentoji",
			Subsystem: "bookings",
			Name:      "finalize_duration_seconds",
			Help:      "End-to-end latency of the finalize flow",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reservationsTotal, m.finalizationsTotal, m.stepFailuresTotal, m.finalizeDuration)
	return m
}

func (m *BookingMetrics) ObserveReservation(outcome string) {
	if m == nil {
		return
	}
	m.reservationsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveFinalization(outcome string) {
	if m == nil {
		return
	}
	m.finalizationsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveStepFailure(step string) {
	if m == nil {
		return
	}
	m.stepFailuresTotal.WithLabelValues(step).Inc()
}

func (m *BookingMetrics) ObserveFinalizeDuration(seconds float64) {
	if m == nil {
		return
	}
	m.finalizeDuration.Observe(seconds)
}
