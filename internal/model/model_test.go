package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTicketTier_Available(t *testing.T) {
	tests := []struct {
		name     string
		tier     TicketTier
		expected int
	}{
		{"fresh tier", TicketTier{Capacity: 5}, 5},
		{"partially sold", TicketTier{Capacity: 5, Sold: 3}, 2},
		{"sold out", TicketTier{Capacity: 5, Sold: 5}, 0},
		{"oversold legacy row", TicketTier{Capacity: 5, Sold: 7}, 0},
		{"zero capacity", TicketTier{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.tier.Available())
		})
	}
}

func TestTicketTier_IsFree(t *testing.T) {
	assert.True(t, (&TicketTier{Price: decimal.Zero}).IsFree())
	assert.False(t, (&TicketTier{Price: decimal.RequireFromString("0.01")}).IsFree())
}

func TestEvent_HasEnded(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	morning := time.Date(0, 1, 1, 9, 0, 0, 0, time.UTC)
	evening := time.Date(0, 1, 1, 20, 0, 0, 0, time.UTC)

	yesterday := Event{Date: now.AddDate(0, 0, -1)}
	assert.True(t, yesterday.HasEnded(now))

	tomorrow := Event{Date: now.AddDate(0, 0, 1)}
	assert.False(t, tomorrow.HasEnded(now))

	todayNoTime := Event{Date: now}
	assert.False(t, todayNoTime.HasEnded(now))

	todayStarted := Event{Date: now, StartTime: &morning}
	assert.True(t, todayStarted.HasEnded(now))

	todayLater := Event{Date: now, StartTime: &evening}
	assert.False(t, todayLater.HasEnded(now))
}

func TestTicketDetails_RecipientName(t *testing.T) {
	d := TicketDetails{Ticket: Ticket{Email: "ada@example.com", HolderName: "  "}}
	assert.Equal(t, "ada@example.com", d.RecipientName())

	d.Ticket.HolderName = "Ada Lovelace"
	assert.Equal(t, "Ada Lovelace", d.RecipientName())
}

func TestTicket_Filenames(t *testing.T) {
	tk := Ticket{Code: "abc"}
	assert.Equal(t, "certificate_abc.pdf", tk.CertificateFilename())
	assert.False(t, tk.HasQR())
}

func TestErrors_Unwrap(t *testing.T) {
	err := fmt.Errorf("reserve: %w", &CapacityError{TierID: "t1", Requested: 3, Available: 2})
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	var capErr *CapacityError
	if assert.True(t, errors.As(err, &capErr)) {
		assert.Equal(t, 2, capErr.Available)
	}

	verr := Invalid("quantity", "must be at least 1")
	assert.True(t, errors.Is(verr, ErrValidation))
	assert.Equal(t, "quantity: must be at least 1", verr.Error())
}
