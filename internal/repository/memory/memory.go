// Package memory is an in-process implementation of the booking stores.
// Tier updates are serialised by a mutex per tier id, which gives the same
// guarantee as a row lock in PostgreSQL within a single process.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

type rsvpKey struct {
	userID  string
	eventID string
}

// Store keeps every entity in maps guarded by mu. tierLocks is taken before
// mu and held across a whole check-and-increment.
type Store struct {
	mu      sync.RWMutex
	events  map[string]model.Event
	tiers   map[string]model.TicketTier
	tickets map[string]model.Ticket
	codes   map[string]string
	certs   map[string]model.Certificate
	rsvps   map[rsvpKey]model.RSVP

	tierLocks *keyedMutex
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		events:    make(map[string]model.Event),
		tiers:     make(map[string]model.TicketTier),
		tickets:   make(map[string]model.Ticket),
		codes:     make(map[string]string),
		certs:     make(map[string]model.Certificate),
		rsvps:     make(map[rsvpKey]model.RSVP),
		tierLocks: newKeyedMutex(),
	}
}

// SeedEvent stores the event and its tiers. Existing ids are left as they are.
func (s *Store) SeedEvent(_ context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; !ok {
		e := event
		e.Tiers = nil
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		s.events[e.ID] = e
	}
	for _, tier := range event.Tiers {
		if _, ok := s.tiers[tier.ID]; ok {
			continue
		}
		tier.EventID = event.ID
		s.tiers[tier.ID] = tier
	}
	return nil
}

// GetEvent returns the event with its tiers ordered by price.
func (s *Store) GetEvent(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return model.Event{}, model.ErrNotFound
	}
	e.Tiers = s.tiersOf(id)
	return e, nil
}

// ListEvents returns all events, soonest first.
func (s *Store) ListEvents(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.Event, 0, len(s.events))
	for id, e := range s.events {
		e.Tiers = s.tiersOf(id)
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}

func (s *Store) tiersOf(eventID string) []model.TicketTier {
	var tiers []model.TicketTier
	for _, t := range s.tiers {
		if t.EventID == eventID {
			tiers = append(tiers, t)
		}
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Price.LessThan(tiers[j].Price) })
	return tiers
}

// GetTier returns a tier snapshot.
func (s *Store) GetTier(_ context.Context, tierID string) (model.TicketTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tiers[tierID]
	if !ok {
		return model.TicketTier{}, model.ErrNotFound
	}
	return t, nil
}

// UpdateTier runs fn under the tier's lock and stores the result when fn
// succeeds and the row constraints still hold.
func (s *Store) UpdateTier(ctx context.Context, eventID, tierID string, fn func(*model.TicketTier) error) (model.TicketTier, error) {
	unlock := s.tierLocks.Lock(tierID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return model.TicketTier{}, err
	}

	s.mu.RLock()
	tier, ok := s.tiers[tierID]
	s.mu.RUnlock()
	if !ok || tier.EventID != eventID {
		return model.TicketTier{}, model.ErrNotFound
	}

	locked := tier
	if err := fn(&locked); err != nil {
		return model.TicketTier{}, err
	}
	if locked.Sold < tier.Sold || locked.Sold > locked.Capacity {
		return model.TicketTier{}, fmt.Errorf("tier %s: sold %d violates capacity %d", tierID, locked.Sold, locked.Capacity)
	}

	s.mu.Lock()
	tier.Sold = locked.Sold
	s.tiers[tierID] = tier
	s.mu.Unlock()
	return tier, nil
}

// CreateTicket inserts a ticket, rejecting reused ids and codes.
func (s *Store) CreateTicket(_ context.Context, ticket *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[ticket.Code]; ok {
		return model.ErrDuplicateCode
	}
	if _, ok := s.tickets[ticket.ID]; ok {
		return fmt.Errorf("ticket %s already exists", ticket.ID)
	}
	t := *ticket
	t.QRImage = nil
	s.tickets[t.ID] = t
	s.codes[t.Code] = t.ID
	return nil
}

// AttachQR stores the ticket's QR image.
func (s *Store) AttachQR(_ context.Context, ticketID string, png []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return model.ErrNotFound
	}
	t.QRImage = append([]byte(nil), png...)
	s.tickets[ticketID] = t
	return nil
}

// GetTicketDetails loads a ticket with its event and tier.
func (s *Store) GetTicketDetails(_ context.Context, ticketID string) (model.TicketDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return model.TicketDetails{}, model.ErrNotFound
	}
	return s.detailsOf(t), nil
}

// GetTicketDetailsByCode is GetTicketDetails keyed by the public code.
func (s *Store) GetTicketDetailsByCode(ctx context.Context, code string) (model.TicketDetails, error) {
	s.mu.RLock()
	id, ok := s.codes[code]
	s.mu.RUnlock()
	if !ok {
		return model.TicketDetails{}, model.ErrNotFound
	}
	return s.GetTicketDetails(ctx, id)
}

// ListTicketsWithoutCertificate returns tickets for events whose date is
// earlier than the calendar day of `before` and that have no certificate
// yet.
func (s *Store) ListTicketsWithoutCertificate(_ context.Context, before time.Time) ([]model.TicketDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := dayOf(before)
	var out []model.TicketDetails
	for _, t := range s.tickets {
		if _, ok := s.certs[t.ID]; ok {
			continue
		}
		if e, ok := s.events[t.EventID]; ok && dayOf(e.Date).Before(cutoff) {
			out = append(out, s.detailsOf(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket.CreatedAt.Before(out[j].Ticket.CreatedAt) })
	return out, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Store) detailsOf(t model.Ticket) model.TicketDetails {
	e := s.events[t.EventID]
	e.Tiers = nil
	return model.TicketDetails{Ticket: t, Event: e, Tier: s.tiers[t.TierID]}
}

// GetCertificate returns the ticket's certificate or model.ErrNotFound.
func (s *Store) GetCertificate(_ context.Context, ticketID string) (model.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.certs[ticketID]
	if !ok {
		return model.Certificate{}, model.ErrNotFound
	}
	return c, nil
}

// CreateCertificateIfAbsent stores cert unless the ticket already has one,
// and returns whichever certificate is stored afterwards.
func (s *Store) CreateCertificateIfAbsent(_ context.Context, cert model.Certificate) (model.Certificate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[cert.TicketID]; !ok {
		return model.Certificate{}, false, model.ErrNotFound
	}
	if existing, ok := s.certs[cert.TicketID]; ok {
		return existing, false, nil
	}
	s.certs[cert.TicketID] = cert
	return cert, true, nil
}

// UpsertRSVP overwrites the (user, event) RSVP.
func (s *Store) UpsertRSVP(_ context.Context, rsvp model.RSVP) error {
	if strings.TrimSpace(rsvp.UserID) == "" {
		return fmt.Errorf("rsvp requires a user")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rsvps[rsvpKey{rsvp.UserID, rsvp.EventID}] = rsvp
	return nil
}

// RSVPs returns every stored RSVP for an event.
func (s *Store) RSVPs(eventID string) []model.RSVP {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.RSVP
	for k, r := range s.rsvps {
		if k.eventID == eventID {
			out = append(out, r)
		}
	}
	return out
}

// TicketCount returns how many tickets are stored.
func (s *Store) TicketCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}
