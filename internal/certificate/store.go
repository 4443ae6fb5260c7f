// Package certificate renders attendance certificates and keeps at most one
// per ticket.
package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// Repository persists certificates. Implementations must keep at most one
// certificate per ticket.
type Repository interface {
	GetCertificate(ctx context.Context, ticketID string) (model.Certificate, error)
	// CreateCertificateIfAbsent stores cert unless one already exists for
	// the ticket and returns the stored row; created is false when an
	// existing certificate won.
	CreateCertificateIfAbsent(ctx context.Context, cert model.Certificate) (stored model.Certificate, created bool, err error)
}

// Renderer produces the certificate document for a ticket.
type Renderer interface {
	Render(d model.TicketDetails) ([]byte, error)
}

// Store is the idempotent get-or-create cache of certificates.
type Store struct {
	repo     Repository
	renderer Renderer
	log      logrus.FieldLogger
	flight   singleflight.Group
}

// NewStore constructs a Store.
func NewStore(repo Repository, renderer Renderer, log logrus.FieldLogger) *Store {
	return &Store{repo: repo, renderer: renderer, log: log}
}

// GetOrCreate returns the ticket's certificate, rendering and storing it the
// first time. An existing certificate is returned unchanged.
func (s *Store) GetOrCreate(ctx context.Context, d model.TicketDetails) (model.Certificate, error) {
	cert, err := s.repo.GetCertificate(ctx, d.Ticket.ID)
	if err == nil {
		metrics.TrackCertificate(false)
		return cert, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Certificate{}, fmt.Errorf("load certificate: %w", err)
	}

	// Callers share one flight, so it must outlive whichever request
	// started it.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.flight.Do(d.Ticket.ID, func() (any, error) {
		return s.create(flightCtx, d)
	})
	if err != nil {
		return model.Certificate{}, err
	}
	return v.(model.Certificate), nil
}

func (s *Store) create(ctx context.Context, d model.TicketDetails) (model.Certificate, error) {
	log := s.log.WithField("ticket_code", d.Ticket.Code)

	content, err := s.renderer.Render(d)
	if err != nil {
		metrics.TrackArtifactFailure("certificate")
		log.WithError(err).Error("certificate rendering failed")
		return model.Certificate{}, fmt.Errorf("%w: certificate for ticket %s: %v", model.ErrArtifactGeneration, d.Ticket.Code, err)
	}

	stored, created, err := s.repo.CreateCertificateIfAbsent(ctx, model.Certificate{
		TicketID:  d.Ticket.ID,
		Filename:  d.Ticket.CertificateFilename(),
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		metrics.TrackArtifactFailure("certificate")
		return model.Certificate{}, fmt.Errorf("%w: store certificate for ticket %s: %v", model.ErrArtifactGeneration, d.Ticket.Code, err)
	}

	metrics.TrackCertificate(created)
	if created {
		log.Info("certificate created")
	}
	return stored, nil
}
