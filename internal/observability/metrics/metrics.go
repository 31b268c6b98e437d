package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for availability and booking.
type BookingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	availabilityTime *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		availabilityTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "availability",
			Name:      "query_seconds",
			Help:      "Latency of candidate date/time computation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.availabilityTime)
	return m
}

// ObserveBooking counts a booking attempt. Outcomes: created, invalid,
// not_found, slot_taken, error, cancelled, completed.
func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveAvailability(query string, seconds float64) {
	if m == nil {
		return
	}
	m.availabilityTime.WithLabelValues(query).Observe(seconds)
}

// ConversationMetrics exposes counters for the chat flow and its queue.
type ConversationMetrics struct {
	messagesTotal *prometheus.CounterVec
	handoffsTotal prometheus.Counter
	jobsTotal     *prometheus.CounterVec
	jobLatency    prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Inbound chat messages by the stage they were handled in",
		}, []string{"stage"}),
		handoffsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "conversation",
			Name:      "handoffs_total",
			Help:      "Requests to talk to a human",
		}),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "conversation",
			Name:      "jobs_total",
			Help:      "Queued chat messages processed by the worker",
		}, []string{"status"}),
		jobLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "conversation",
			Name:      "job_seconds",
			Help:      "Time spent handling one queued chat message",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.handoffsTotal, m.jobsTotal, m.jobLatency)
	return m
}

func (m *ConversationMetrics) ObserveMessage(stage string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(stage).Inc()
}

func (m *ConversationMetrics) ObserveHandoff() {
	if m == nil {
		return
	}
	m.handoffsTotal.Inc()
}

func (m *ConversationMetrics) ObserveJob(status string, seconds float64) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(status).Inc()
	m.jobLatency.Observe(seconds)
}
