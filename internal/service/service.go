// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the booking components.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/codegen"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/inventory"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/logging"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/notify"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/payment"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/ticketing"
)

// EventStore reads events with their tiers.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
}

// TicketStore reads tickets joined with their event and tier.
type TicketStore interface {
	GetTicketDetails(ctx context.Context, ticketID string) (model.TicketDetails, error)
	GetTicketDetailsByCode(ctx context.Context, code string) (model.TicketDetails, error)
	ListTicketsWithoutCertificate(ctx context.Context, before time.Time) ([]model.TicketDetails, error)
}

// Reserver takes seats from a tier.
type Reserver interface {
	Reserve(ctx context.Context, req inventory.Request) (inventory.Reservation, error)
	Available(ctx context.Context, tierID string) (int, error)
}

// Issuer stores a ticket for a committed reservation.
type Issuer interface {
	Issue(ctx context.Context, req ticketing.Request) (ticketing.Issued, error)
}

// Certificates returns a ticket's certificate, creating it once.
type Certificates interface {
	GetOrCreate(ctx context.Context, d model.TicketDetails) (model.Certificate, error)
}

// Notifier sends booking and certificate emails.
type Notifier interface {
	Dispatch(ctx context.Context, d model.TicketDetails, free bool) notify.Report
	SendCertificate(ctx context.Context, d model.TicketDetails) error
}

// Enqueuer hands notification work to the background worker.
type Enqueuer interface {
	PublishTicketIssued(ctx context.Context, ev notify.TicketIssued) error
}

// Deps are the collaborators of a BookingService. Queue is optional; when
// nil, notifications are sent before Book returns.
type Deps struct {
	Events       EventStore
	Tickets      TicketStore
	Inventory    Reserver
	Issuer       Issuer
	Payments     payment.Authorizer
	Certificates Certificates
	Notifier     Notifier
	Queue        Enqueuer
}

// BookingResult is returned by a successful Book. Warnings list best-effort
// steps that failed after the ticket was issued.
type BookingResult struct {
	Ticket   model.Ticket `json:"ticket"`
	Free     bool         `json:"free"`
	Warnings []string     `json:"warnings,omitempty"`
}

// BookingService orchestrates booking, certificate and gate operations.
type BookingService struct {
	Deps
	log logrus.FieldLogger
	now func() time.Time
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(deps Deps, log logrus.FieldLogger) *BookingService {
	return &BookingService{
		Deps: deps,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// ListEvents returns all events.
func (s *BookingService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.Events.ListEvents(ctx)
}

// GetEvent returns a single event by ID.
func (s *BookingService) GetEvent(ctx context.Context, id string) (model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return model.Event{}, model.Invalid("event_id", "is required")
	}
	event, err := s.Events.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Event{}, err
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// Available reports the remaining seats of a tier.
func (s *BookingService) Available(ctx context.Context, tierID string) (int, error) {
	return s.Inventory.Available(ctx, tierID)
}

// Book validates the request, authorizes payment for paid tiers, reserves
// seats, issues the ticket and sends (or enqueues) the emails.
//
// Once the reservation commits it is never undone: a failure to persist the
// ticket is returned as an error with the seats still counted as sold, and
// later failures only add warnings.
func (s *BookingService) Book(ctx context.Context, p model.Purchaser, eventID string, req model.BookRequest) (BookingResult, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		email = strings.TrimSpace(strings.ToLower(p.Email))
	}
	if email == "" {
		return BookingResult{}, model.Invalid("email", "is required")
	}
	if !isValidEmail(email) {
		return BookingResult{}, model.Invalid("email", "is not a valid email address")
	}
	if req.Quantity < 1 {
		return BookingResult{}, model.Invalid("quantity", "must be at least 1")
	}
	if strings.TrimSpace(req.TierID) == "" {
		return BookingResult{}, model.Invalid("tier_id", "is required")
	}

	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return BookingResult{}, err
	}
	tier, ok := findTier(event, req.TierID)
	if !ok {
		return BookingResult{}, model.Invalid("tier_id", "unknown tier for this event")
	}
	if event.HasEnded(s.now()) {
		return BookingResult{}, model.ErrBookingClosed
	}

	log := logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"event_id": event.ID,
		"tier_id":  tier.ID,
		"quantity": req.Quantity,
	})

	total := tier.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))
	free := tier.IsFree()
	if !free {
		approved, err := s.Payments.Authorize(ctx, payment.Charge{
			Email:    email,
			EventID:  event.ID,
			TierID:   tier.ID,
			Quantity: req.Quantity,
			Amount:   total,
		})
		if err != nil {
			return BookingResult{}, fmt.Errorf("authorize payment: %w", err)
		}
		if !approved {
			log.Info("payment declined")
			return BookingResult{}, model.ErrPaymentDeclined
		}
	}

	res, err := s.Inventory.Reserve(ctx, inventory.Request{EventID: event.ID, TierID: tier.ID, Quantity: req.Quantity})
	if err != nil {
		return BookingResult{}, err
	}

	purchaser := p
	if name := strings.TrimSpace(req.Name); name != "" && purchaser.DisplayName == "" {
		purchaser.DisplayName = name
	}
	issued, err := s.Issuer.Issue(ctx, ticketing.Request{
		Event:       event,
		Tier:        res.Tier,
		Purchaser:   purchaser,
		Email:       email,
		Quantity:    req.Quantity,
		TotalAmount: total,
	})
	if err != nil {
		log.WithError(err).Error("ticket could not be stored after reservation; seats stay sold")
		return BookingResult{}, fmt.Errorf("issue ticket: %w", err)
	}

	result := BookingResult{Ticket: issued.Details.Ticket, Free: free}
	for _, w := range issued.Warnings {
		result.Warnings = append(result.Warnings, issueWarning(w))
	}
	result.Warnings = append(result.Warnings, s.fulfil(ctx, log, issued.Details, free)...)
	return result, nil
}

func (s *BookingService) fulfil(ctx context.Context, log logrus.FieldLogger, d model.TicketDetails, free bool) []string {
	if s.Queue != nil {
		if err := s.Queue.PublishTicketIssued(ctx, notify.TicketIssued{TicketID: d.Ticket.ID, Free: free}); err != nil {
			log.WithError(err).Error("notification could not be queued")
			return []string{"confirmation emails could not be queued"}
		}
		return nil
	}
	return s.Notifier.Dispatch(ctx, d, free).Warnings()
}

func issueWarning(err error) string {
	if errors.Is(err, model.ErrArtifactGeneration) {
		return "QR code could not be generated"
	}
	return "attendance status could not be updated"
}

// DownloadCertificate returns the ticket's certificate, creating it on first
// access. Only the ticket owner (by account or email) and staff may read it.
func (s *BookingService) DownloadCertificate(ctx context.Context, ticketID string, requester model.Purchaser) (model.Certificate, error) {
	d, err := s.Tickets.GetTicketDetails(ctx, ticketID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Certificate{}, err
		}
		return model.Certificate{}, fmt.Errorf("load ticket: %w", err)
	}
	if !mayRead(requester, d.Ticket) {
		return model.Certificate{}, model.ErrForbidden
	}
	return s.Certificates.GetOrCreate(ctx, d)
}

func mayRead(p model.Purchaser, t model.Ticket) bool {
	if p.Staff {
		return true
	}
	if p.UserID != "" && p.UserID == t.UserID {
		return true
	}
	email := strings.TrimSpace(p.Email)
	return email != "" && strings.EqualFold(email, t.Email)
}

// VerifyTicket checks a scanned QR payload against the stored ticket.
func (s *BookingService) VerifyTicket(ctx context.Context, payload string) (model.TicketDetails, error) {
	fields, err := codegen.ParseQRPayload(payload)
	if err != nil {
		return model.TicketDetails{}, model.Invalid("payload", "is not a ticket code")
	}

	d, err := s.Tickets.GetTicketDetailsByCode(ctx, fields.Code)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TicketDetails{}, err
		}
		return model.TicketDetails{}, fmt.Errorf("load ticket: %w", err)
	}

	if fields.EventID != d.Ticket.EventID ||
		!strings.EqualFold(fields.Email, d.Ticket.Email) ||
		fields.TierName != d.Tier.Name ||
		fields.Quantity != d.Ticket.Quantity {
		logging.FromContext(ctx, s.log).WithField("ticket_code", fields.Code).Warn("scanned payload does not match ticket")
		return model.TicketDetails{}, model.Invalid("payload", "does not match the ticket")
	}
	return d, nil
}

// IssueDueCertificates creates and emails certificates for every ticket of
// an event dated before today that has none yet. Events on today's date are
// left for the next run even if they have started. Per-ticket failures are
// logged and skipped; it returns how many certificates were sent.
func (s *BookingService) IssueDueCertificates(ctx context.Context, now time.Time) (int, error) {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	due, err := s.Tickets.ListTicketsWithoutCertificate(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list due tickets: %w", err)
	}

	sent := 0
	for _, d := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.Notifier.SendCertificate(ctx, d); err != nil {
			s.log.WithError(err).WithField("ticket_code", d.Ticket.Code).Warn("certificate not delivered")
			continue
		}
		sent++
	}
	s.log.WithFields(logrus.Fields{"due": len(due), "sent": sent}).Info("certificate batch finished")
	return sent, nil
}

func findTier(e model.Event, tierID string) (model.TicketTier, bool) {
	for _, t := range e.Tiers {
		if t.ID == tierID {
			return t, true
		}
	}
	return model.TicketTier{}, false
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
