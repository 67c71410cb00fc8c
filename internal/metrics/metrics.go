package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the booking counters exposed on /metrics.
type Metrics struct {
	BookingsCreated  *prometheus.CounterVec
	BookingConflicts *prometheus.CounterVec
	BookingsCanceled prometheus.Counter
	RevenueTotal     *prometheus.CounterVec
	ICSFailures      prometheus.Counter
	LockWait         prometheus.Histogram
	RequestDuration  *prometheus.HistogramVec
}

// New registers the metrics on reg; pass prometheus.DefaultRegisterer in main.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BookingsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_bookings_created_total",
			Help: "Confirmed bookings by hall",
		}, []string{"hall"}),

		BookingConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_booking_conflicts_total",
			Help: "Booking attempts rejected because the slot was taken",
		}, []string{"hall"}),

		BookingsCanceled: f.NewCounter(prometheus.CounterOpts{
			Name: "studio_bookings_canceled_total",
			Help: "Bookings moved to canceled",
		}),

		RevenueTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_booked_revenue_total",
			Help: "Sum of booking prices at creation, in currency units",
		}, []string{"hall"}),

		ICSFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "studio_ics_write_failures_total",
			Help: "Calendar files that could not be written after commit",
		}),

		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "studio_booking_lock_wait_seconds",
			Help:    "Time spent waiting for the hall+date lock",
			Buckets: prometheus.DefBuckets,
		}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
