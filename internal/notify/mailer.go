package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"
	"github.com/sirupsen/logrus"
)

// Mailer delivers one email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	addr     string
	auth     smtp.Auth
	from     string
	fromName string
}

// NewSMTPMailer builds a mailer for the relay at addr (host:port). Empty
// credentials disable SMTP AUTH.
func NewSMTPMailer(addr, host, username, password, from, fromName string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{addr: addr, auth: auth, from: from, fromName: fromName}
}

// Send delivers msg. mailyak has no context support, so ctx is only checked
// before the connection is opened.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.build(msg).Send(); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) *mailyak.MailYak {
	mail := mailyak.New(m.addr, m.auth)
	mail.From(m.from)
	mail.FromName(m.fromName)
	mail.To(msg.To)
	mail.Subject(msg.Subject)
	mail.Plain().Set(msg.Text)
	if msg.HTML != "" {
		mail.HTML().Set(msg.HTML)
	}
	for _, a := range msg.Attachments {
		mail.AttachWithMimeType(a.Filename, bytes.NewReader(a.Data), a.ContentType)
	}
	return mail
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct {
	Log logrus.FieldLogger
}

// Send logs the message headers and drops the message.
func (m LogMailer) Send(_ context.Context, msg Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	m.Log.WithFields(logrus.Fields{
		"to":          msg.To,
		"subject":     msg.Subject,
		"attachments": names,
	}).Info("email not sent: smtp disabled")
	return nil
}
