// Package model defines the core domain types for the ticketing engine.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Event is a dated, located happening that owns zero or more ticket tiers.
type Event struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Date        time.Time    `json:"date"`
	StartTime   *time.Time   `json:"start_time,omitempty"`
	Location    string       `json:"location"`
	Tiers       []TicketTier `json:"tiers,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// HasEnded reports whether booking for the event is closed at now.
// An event without a start time stays open for the whole of its date.
func (e *Event) HasEnded(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	ey, em, ed := e.Date.Date()
	day := time.Date(ey, em, ed, 0, 0, 0, 0, now.Location())

	if day.Before(today) {
		return true
	}
	if day.Equal(today) && e.StartTime != nil {
		st := e.StartTime.In(now.Location())
		start := time.Date(ey, em, ed, st.Hour(), st.Minute(), st.Second(), 0, now.Location())
		return start.Before(now)
	}
	return false
}

// TicketTier is a priced capacity bucket within an event.
type TicketTier struct {
	ID       string          `json:"id"`
	EventID  string          `json:"event_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Capacity int             `json:"capacity"`
	Sold     int             `json:"sold"`
}

// Available returns the remaining capacity, never negative.
func (t *TicketTier) Available() int {
	if t.Sold >= t.Capacity {
		return 0
	}
	return t.Capacity - t.Sold
}

// IsFree is true for zero-priced tiers, which skip payment.
func (t *TicketTier) IsFree() bool {
	return t.Price.IsZero()
}

// Ticket is one issued booking, possibly for several seats.
type Ticket struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	EventID     string          `json:"event_id"`
	UserID      string          `json:"user_id,omitempty"`
	Email       string          `json:"email"`
	HolderName  string          `json:"holder_name,omitempty"`
	TierID      string          `json:"tier_id"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	QRImage     []byte          `json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
}

// HasQR reports whether a QR image has been attached.
func (t *Ticket) HasQR() bool {
	return len(t.QRImage) > 0
}

// CertificateFilename is the storage name of the ticket's certificate.
func (t *Ticket) CertificateFilename() string {
	return "certificate_" + t.Code + ".pdf"
}

// TicketDetails bundles a ticket with the event and tier it was issued for.
type TicketDetails struct {
	Ticket Ticket
	Event  Event
	Tier   TicketTier
}

// RecipientName is the name printed on the certificate: the holder's
// display name, or the raw email when none is known.
func (d *TicketDetails) RecipientName() string {
	if name := strings.TrimSpace(d.Ticket.HolderName); name != "" {
		return name
	}
	return d.Ticket.Email
}

// Certificate is the attendance document generated for a ticket, at most one
// per ticket.
type Certificate struct {
	TicketID  string    `json:"ticket_id"`
	Filename  string    `json:"filename"`
	Content   []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// RSVP statuses.
const (
	RSVPGoing    = "going"
	RSVPNotGoing = "not_going"
)

// RSVP is a user's last-written attendance status for an event.
type RSVP struct {
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Purchaser identifies who is booking. UserID is empty for anonymous
// purchases.
type Purchaser struct {
	UserID      string
	Email       string
	DisplayName string
	Staff       bool
}

// Authenticated reports whether the purchaser is tied to an account.
func (p Purchaser) Authenticated() bool {
	return p.UserID != ""
}

// BookRequest is the payload for booking tickets on an event.
type BookRequest struct {
	Email    string `json:"email"`
	TierID   string `json:"tier_id"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name,omitempty"`
}

// VerifyRequest is the payload a gate scanner submits.
type VerifyRequest struct {
	Payload string `json:"payload"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
