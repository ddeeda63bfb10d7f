// Package metrics exposes Prometheus counters for the booking flow.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// OrdersCreated counts processor orders opened by the checkout flow.
	OrdersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ticket_booking",
			Name:      "orders_created_total",
			Help:      "Count of payment orders created.",
		},
	)

	// PaymentsVerified counts verification outcomes by result. The
	// "signature_mismatch" and "seats_exhausted" labels are the two
	// results worth alerting on.
	PaymentsVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticket_booking",
			Name:      "payments_verified_total",
			Help:      "Count of payment verification attempts by result.",
		},
		[]string{"result"},
	)

	// BookingsConfirmed counts bookings persisted with status confirmed.
	BookingsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ticket_booking",
			Name:      "bookings_confirmed_total",
			Help:      "Count of confirmed bookings recorded.",
		},
	)

	// EmailFailures counts confirmation emails that could not be sent.
	EmailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ticket_booking",
			Name:      "confirmation_email_failures_total",
			Help:      "Count of confirmation emails that failed to send.",
		},
	)
)

// Verification result label values.
const (
	ResultSuccess           = "success"
	ResultDuplicate         = "duplicate"
	ResultSignatureMismatch = "signature_mismatch"
	ResultSeatsExhausted    = "seats_exhausted"
	ResultError             = "error"
)

// Register registers metrics on the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			OrdersCreated,
			PaymentsVerified,
			BookingsConfirmed,
			EmailFailures,
		)
	})
}
