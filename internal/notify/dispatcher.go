// Package notify delivers ticket and certificate emails, synchronously or
// through a watermill worker.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/logging"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// Channel names.
const (
	ChannelTicket      = "ticket"
	ChannelCertificate = "certificate"
)

// CertificateProvider returns the ticket's certificate, creating it if needed.
type CertificateProvider interface {
	GetOrCreate(ctx context.Context, d model.TicketDetails) (model.Certificate, error)
}

// Failure is one channel that did not deliver.
type Failure struct {
	Channel string
	Err     error
}

// Report summarizes a Dispatch. It never aborts the caller.
type Report struct {
	TicketSent      bool
	CertificateSent bool
	Failures        []Failure
}

// Err joins every channel failure, or returns nil when all channels
// delivered.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s email: %w", f.Channel, f.Err))
	}
	return errors.Join(errs...)
}

// Partial is true when at least one channel delivered and another failed.
func (r Report) Partial() bool {
	return len(r.Failures) > 0 && (r.TicketSent || r.CertificateSent)
}

// Warnings renders each failure as a message for the purchaser.
func (r Report) Warnings() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, fmt.Sprintf("%s email could not be sent", f.Channel))
	}
	return out
}

// Dispatcher sends the ticket email and the certificate email for an issued
// ticket. The channels are independent: a failure in one is recorded and the
// other still runs.
type Dispatcher struct {
	mailer  Mailer
	certs   CertificateProvider
	baseURL string
	log     logrus.FieldLogger
}

// NewDispatcher constructs a Dispatcher. baseURL prefixes event links.
func NewDispatcher(mailer Mailer, certs CertificateProvider, baseURL string, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{mailer: mailer, certs: certs, baseURL: baseURL, log: log}
}

// Dispatch delivers both emails for d on a best-effort basis.
func (d *Dispatcher) Dispatch(ctx context.Context, details model.TicketDetails, free bool) Report {
	log := logging.FromContext(ctx, d.log).WithFields(logrus.Fields{
		"ticket_code": details.Ticket.Code,
		"email":       details.Ticket.Email,
	})

	var report Report
	if err := d.deliver(log, ChannelTicket, func() error { return d.sendTicket(ctx, details, free) }); err != nil {
		report.Failures = append(report.Failures, Failure{Channel: ChannelTicket, Err: err})
	} else {
		report.TicketSent = true
	}
	if err := d.deliver(log, ChannelCertificate, func() error { return d.sendCertificate(ctx, details) }); err != nil {
		report.Failures = append(report.Failures, Failure{Channel: ChannelCertificate, Err: err})
	} else {
		report.CertificateSent = true
	}

	if !details.Ticket.HasQR() {
		log.Warn("ticket has no QR image, emails sent without it")
	}
	return report
}

// SendCertificate delivers only the certificate email, for tickets whose
// event has already taken place.
func (d *Dispatcher) SendCertificate(ctx context.Context, details model.TicketDetails) error {
	log := logging.FromContext(ctx, d.log).WithField("ticket_code", details.Ticket.Code)
	return d.deliver(log, ChannelCertificate, func() error { return d.sendCertificate(ctx, details) })
}

func (d *Dispatcher) deliver(log logrus.FieldLogger, channel string, fn func() error) error {
	if err := d.attempt(fn); err != nil {
		log.WithError(err).Errorf("%s email failed", channel)
		metrics.TrackNotification(channel, metrics.StatusFailed)
		return err
	}
	metrics.TrackNotification(channel, metrics.StatusSent)
	return nil
}

// attempt runs fn and turns a panic into an error so one channel cannot take
// down the other.
func (d *Dispatcher) attempt(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", model.ErrNotification, r)
		}
	}()
	return fn()
}

func (d *Dispatcher) sendTicket(ctx context.Context, details model.TicketDetails, free bool) error {
	msg, err := buildTicketMessage(details, d.baseURL, free)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrNotification, err)
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", model.ErrNotification, err)
	}
	return nil
}

func (d *Dispatcher) sendCertificate(ctx context.Context, details model.TicketDetails) error {
	cert, err := d.certs.GetOrCreate(ctx, details)
	if err != nil {
		return err
	}
	msg, err := buildCertificateMessage(details, cert, d.baseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrNotification, err)
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", model.ErrNotification, err)
	}
	return nil
}
