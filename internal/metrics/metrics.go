package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localpro",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "localpro",
			Name:      "bookings_created_total",
			Help:      "Bookings accepted by the conflict detector.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localpro",
			Name:      "booking_transitions_total",
			Help:      "Successful lifecycle transitions by target status.",
		},
		[]string{"to"},
	)

	conflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localpro",
			Name:      "booking_conflicts_total",
			Help:      "Rejected booking attempts by kind.",
		},
		[]string{"kind"},
	)

	overdueCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "localpro",
			Name:      "overdue_completed_total",
			Help:      "Bookings closed by the overdue reconciler.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, transitions, conflicts, overdueCompleted)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated counts an accepted booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncTransition counts a successful transition into the target status.
func IncTransition(to string) {
	transitions.WithLabelValues(to).Inc()
}

// IncConflict counts a rejected booking attempt: "slot_unavailable" or
// "time_conflict".
func IncConflict(kind string) {
	conflicts.WithLabelValues(kind).Inc()
}

// AddOverdueCompleted counts bookings closed by a reconciler run.
func AddOverdueCompleted(n int) {
	overdueCompleted.Add(float64(n))
}
