// Package metrics exposes prometheus collectors for the booking engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reservation results.
const (
	ResultReserved = "reserved"
	ResultRejected = "rejected"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Notification statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"result"},
	)

	reservationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticketing_reservation_duration_seconds",
			Help:    "Time spent inside the tier check-and-increment, lock wait included",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	seatsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_seats_sold_total",
			Help: "Seats committed by successful reservations",
		},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_notifications_total",
			Help: "Email deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)

	certificates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_certificates_total",
			Help: "Certificate lookups by whether a document was rendered",
		},
		[]string{"outcome"},
	)

	artifactFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_artifact_failures_total",
			Help: "QR and certificate generation failures",
		},
		[]string{"artifact"},
	)
)

// TrackReservation records a reservation attempt.
func TrackReservation(result string, quantity int, took time.Duration) {
	reservations.WithLabelValues(result).Inc()
	reservationDuration.Observe(took.Seconds())
	if result == ResultReserved {
		seatsSold.Add(float64(quantity))
	}
}

// TrackNotification records one email delivery attempt.
func TrackNotification(channel, status string) {
	notifications.WithLabelValues(channel, status).Inc()
}

// TrackCertificate records whether GetOrCreate rendered a new document.
func TrackCertificate(created bool) {
	if created {
		certificates.WithLabelValues("created").Inc()
		return
	}
	certificates.WithLabelValues("existing").Inc()
}

// TrackArtifactFailure records a failed QR or certificate generation.
func TrackArtifactFailure(artifact string) {
	artifactFailures.WithLabelValues(artifact).Inc()
}
