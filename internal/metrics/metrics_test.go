package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackReservation(t *testing.T) {
	before := testutil.ToFloat64(reservations.WithLabelValues(ResultReserved))
	soldBefore := testutil.ToFloat64(seatsSold)

	TrackReservation(ResultReserved, 3, time.Millisecond)
	TrackReservation(ResultRejected, 2, time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(reservations.WithLabelValues(ResultReserved)))
	assert.Equal(t, soldBefore+3, testutil.ToFloat64(seatsSold))
}

func TestTrackNotification(t *testing.T) {
	before := testutil.ToFloat64(notifications.WithLabelValues("certificate", StatusFailed))

	TrackNotification("certificate", StatusFailed)

	assert.Equal(t, before+1, testutil.ToFloat64(notifications.WithLabelValues("certificate", StatusFailed)))
}
