// Package inventory turns a tier capacity check and increment into one
// atomic step.
//
// Concurrent reservations against the same tier are serialised by the
// store's tier lock: each attempt reads sold/capacity under the lock and
// either commits the increment or leaves the row untouched. Reservations
// against different tiers never contend. Nothing slow (QR, PDF, email)
// runs while the lock is held.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// TierStore is the persistence the manager needs.
type TierStore interface {
	// GetTier returns the tier or model.ErrNotFound.
	GetTier(ctx context.Context, tierID string) (model.TicketTier, error)

	// UpdateTier locks the tier row of eventID, hands it to fn and persists
	// the new sold count only if fn returns nil, committing before the lock
	// is released. Returns model.ErrNotFound if no such tier belongs to the
	// event.
	UpdateTier(ctx context.Context, eventID, tierID string, fn func(*model.TicketTier) error) (model.TicketTier, error)
}

// Request asks for quantity seats on a tier of an event.
type Request struct {
	EventID  string
	TierID   string
	Quantity int
}

// Reservation is a committed capacity decrement.
type Reservation struct {
	EventID  string
	TierID   string
	Quantity int
	// Tier is the tier as it was right after the increment.
	Tier model.TicketTier
}

// Manager is the Inventory Reservation Manager.
type Manager struct {
	tiers TierStore
	log   logrus.FieldLogger
}

// NewManager constructs a Manager.
func NewManager(tiers TierStore, log logrus.FieldLogger) *Manager {
	return &Manager{tiers: tiers, log: log}
}

// Reserve atomically checks and decrements the tier's remaining capacity.
// It returns a *model.CapacityError when the tier cannot cover the request
// and a *model.ValidationError for malformed requests; neither has side
// effects.
func (m *Manager) Reserve(ctx context.Context, req Request) (Reservation, error) {
	if err := m.validate(ctx, req); err != nil {
		metrics.TrackReservation(metrics.ResultInvalid, req.Quantity, 0)
		return Reservation{}, err
	}

	start := time.Now()
	tier, err := m.tiers.UpdateTier(ctx, req.EventID, req.TierID, func(t *model.TicketTier) error {
		if available := t.Available(); req.Quantity > available {
			return &model.CapacityError{TierID: t.ID, Requested: req.Quantity, Available: available}
		}
		t.Sold += req.Quantity
		return nil
	})
	took := time.Since(start)

	log := m.log.WithFields(logrus.Fields{
		"event_id": req.EventID,
		"tier_id":  req.TierID,
		"quantity": req.Quantity,
	})

	switch {
	case err == nil:
		metrics.TrackReservation(metrics.ResultReserved, req.Quantity, took)
		log.WithField("sold", tier.Sold).Info("reservation committed")
		return Reservation{EventID: req.EventID, TierID: req.TierID, Quantity: req.Quantity, Tier: tier}, nil
	case errors.Is(err, model.ErrCapacityExceeded):
		metrics.TrackReservation(metrics.ResultRejected, req.Quantity, took)
		log.Info("reservation rejected: insufficient capacity")
		return Reservation{}, err
	case errors.Is(err, model.ErrNotFound):
		metrics.TrackReservation(metrics.ResultInvalid, req.Quantity, took)
		return Reservation{}, model.Invalid("tier_id", "unknown tier for this event")
	default:
		metrics.TrackReservation(metrics.ResultError, req.Quantity, took)
		log.WithError(err).Error("reservation aborted")
		return Reservation{}, fmt.Errorf("reserve tier: %w", err)
	}
}

func (m *Manager) validate(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.EventID) == "" {
		return model.Invalid("event_id", "is required")
	}
	if strings.TrimSpace(req.TierID) == "" {
		return model.Invalid("tier_id", "is required")
	}
	if req.Quantity < 1 {
		return model.Invalid("quantity", "must be at least 1")
	}

	tier, err := m.tiers.GetTier(ctx, req.TierID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Invalid("tier_id", "unknown tier")
		}
		return fmt.Errorf("load tier: %w", err)
	}
	if tier.EventID != req.EventID {
		return model.Invalid("tier_id", "tier does not belong to this event")
	}
	return nil
}

// Available returns the tier's remaining capacity for display. It takes no
// lock, so the value may be stale by the time a reservation runs.
func (m *Manager) Available(ctx context.Context, tierID string) (int, error) {
	tier, err := m.tiers.GetTier(ctx, tierID)
	if err != nil {
		return 0, err
	}
	return tier.Available(), nil
}
