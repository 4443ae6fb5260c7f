// Package ticketing turns a committed reservation into a persisted ticket.
package ticketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/codegen"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// codeAttempts bounds retries after a ticket code collision.
const codeAttempts = 3

// TicketStore persists tickets and their QR images.
type TicketStore interface {
	CreateTicket(ctx context.Context, ticket *model.Ticket) error
	AttachQR(ctx context.Context, ticketID string, png []byte) error
}

// RSVPStore records attendance for account holders.
type RSVPStore interface {
	UpsertRSVP(ctx context.Context, rsvp model.RSVP) error
}

// QREncoder renders a payload as a PNG image.
type QREncoder interface {
	Encode(payload string) ([]byte, error)
}

// Request describes a ticket to issue for a reservation that has already
// been committed.
type Request struct {
	Event       model.Event
	Tier        model.TicketTier
	Purchaser   model.Purchaser
	Email       string
	Quantity    int
	TotalAmount decimal.Decimal
}

// Issued is the outcome of a successful Issue. Warnings hold best-effort
// failures that happened after the ticket row was persisted.
type Issued struct {
	Details  model.TicketDetails
	Warnings []error
}

// Issuer is the Ticket Issuer.
type Issuer struct {
	tickets TicketStore
	rsvps   RSVPStore
	qr      QREncoder
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewIssuer constructs an Issuer.
func NewIssuer(tickets TicketStore, rsvps RSVPStore, qr QREncoder, log logrus.FieldLogger) *Issuer {
	return &Issuer{
		tickets: tickets,
		rsvps:   rsvps,
		qr:      qr,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Issue persists exactly one ticket, marks the purchaser as going and
// attaches a QR image. The returned error is non-nil only when the ticket
// row could not be persisted; later failures end up in Issued.Warnings and
// never undo the reservation or the ticket.
func (i *Issuer) Issue(ctx context.Context, req Request) (Issued, error) {
	ticket := model.Ticket{
		ID:          uuid.NewString(),
		EventID:     req.Event.ID,
		UserID:      req.Purchaser.UserID,
		Email:       req.Email,
		HolderName:  req.Purchaser.DisplayName,
		TierID:      req.Tier.ID,
		Quantity:    req.Quantity,
		TotalAmount: req.TotalAmount,
		CreatedAt:   i.now().Truncate(time.Microsecond),
	}

	if err := i.persist(ctx, &ticket); err != nil {
		return Issued{}, err
	}

	log := i.log.WithFields(logrus.Fields{"ticket_code": ticket.Code, "event_id": ticket.EventID})
	log.Info("ticket issued")

	event := req.Event
	event.Tiers = nil
	issued := Issued{Details: model.TicketDetails{Ticket: ticket, Event: event, Tier: req.Tier}}

	if req.Purchaser.Authenticated() {
		err := i.rsvps.UpsertRSVP(ctx, model.RSVP{
			UserID:    req.Purchaser.UserID,
			EventID:   ticket.EventID,
			Status:    model.RSVPGoing,
			UpdatedAt: ticket.CreatedAt,
		})
		if err != nil {
			log.WithError(err).Warn("rsvp update failed")
			issued.Warnings = append(issued.Warnings, fmt.Errorf("update rsvp: %w", err))
		}
	}

	png, err := i.attachQR(ctx, &ticket, req.Tier.Name)
	if err != nil {
		metrics.TrackArtifactFailure("qr")
		log.WithError(err).Warn("qr generation failed, ticket kept without qr")
		issued.Warnings = append(issued.Warnings, err)
	} else {
		issued.Details.Ticket.QRImage = png
	}

	return issued, nil
}

func (i *Issuer) persist(ctx context.Context, ticket *model.Ticket) error {
	var err error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		ticket.Code = codegen.NewTicketCode()
		err = i.tickets.CreateTicket(ctx, ticket)
		if !errors.Is(err, model.ErrDuplicateCode) {
			break
		}
		i.log.WithField("ticket_code", ticket.Code).Warn("ticket code collision, regenerating")
	}
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (i *Issuer) attachQR(ctx context.Context, ticket *model.Ticket, tierName string) ([]byte, error) {
	payload := codegen.QRPayload(codegen.PayloadFields{
		EventID:  ticket.EventID,
		Code:     ticket.Code,
		Email:    ticket.Email,
		TierName: tierName,
		Quantity: ticket.Quantity,
	})
	png, err := i.qr.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: qr for ticket %s: %v", model.ErrArtifactGeneration, ticket.Code, err)
	}
	if err := i.tickets.AttachQR(ctx, ticket.ID, png); err != nil {
		return nil, fmt.Errorf("%w: store qr for ticket %s: %v", model.ErrArtifactGeneration, ticket.Code, err)
	}
	return png, nil
}
