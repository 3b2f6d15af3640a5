package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the triage flow.
type ConversationMetrics struct {
	turnsTotal       *prometheus.CounterVec
	backendTotal     *prometheus.CounterVec
	backendLatency   *prometheus.HistogramVec
	bookingsTotal    *prometheus.CounterVec
	costMismatches   prometheus.Counter
	activeSessions prometheus.Gauge
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Conversation turns by routing decision",
		}, []string{"route"}),
		backendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend calls by outcome",
		}, []string{"call", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "triage",
			Subsystem: "backend",
			Name:      "latency_seconds",
			Help:      "Latency of backend calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Booking transactions by kind and outcome",
		}, []string{"kind", "outcome"}),
		costMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triage",
			Name:      "cost_mismatch_total",
			Help:      "Test bookings whose server total differed from the displayed total",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "triage",
			Subsystem: "conversation",
			Name:      "active_sessions",
			Help:      "Conversations currently held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.backendTotal, m.backendLatency, m.bookingsTotal, m.costMismatches, m.activeSessions)
	return m
}

func (m *ConversationMetrics) ObserveTurn(route string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(route).Inc()
}

// ObserveBackendCall implements backend.Observer.
func (m *ConversationMetrics) ObserveBackendCall(call, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.backendTotal.WithLabelValues(call, outcome).Inc()
	m.backendLatency.WithLabelValues(call).Observe(seconds)
}

// ObserveBooking implements booking.Recorder.
func (m *ConversationMetrics) ObserveBooking(kind, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *ConversationMetrics) ObserveCostMismatch() {
	if m == nil {
		return
	}
	m.costMismatches.Inc()
}

func (m *ConversationMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
