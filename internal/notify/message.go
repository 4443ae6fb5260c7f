package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// Attachment is a named file carried by a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single outbound email.
type Message struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

const qrAttachmentName = "e-ticket-qr.png"

type templateData struct {
	Name     string
	Event    model.Event
	Date     string
	Tier     string
	Ticket   model.Ticket
	Total    string
	EventURL string
	Free     bool
}

var (
	ticketText = texttemplate.Must(texttemplate.New("ticket").Parse(`Hi {{.Name}},

{{if .Free}}Your free ticket for {{.Event.Title}} is confirmed.{{else}}Thank you for your payment. Your ticket for {{.Event.Title}} is confirmed.{{end}}

Event:    {{.Event.Title}}
Date:     {{.Date}}
Location: {{.Event.Location}}
Tier:     {{.Tier}}
Quantity: {{.Ticket.Quantity}}
{{- if not .Free}}
Total:    {{.Total}}{{end}}
Ticket:   {{.Ticket.Code}}

Show the attached QR code at the entrance.
{{.EventURL}}
`))

	ticketHTML = htmltemplate.Must(htmltemplate.New("ticket").Parse(`<p>Hi {{.Name}},</p>
<p>{{if .Free}}Your free ticket for <strong>{{.Event.Title}}</strong> is confirmed.{{else}}Thank you for your payment. Your ticket for <strong>{{.Event.Title}}</strong> is confirmed.{{end}}</p>
<table>
<tr><td>Date</td><td>{{.Date}}</td></tr>
<tr><td>Location</td><td>{{.Event.Location}}</td></tr>
<tr><td>Tier</td><td>{{.Tier}}</td></tr>
<tr><td>Quantity</td><td>{{.Ticket.Quantity}}</td></tr>
{{- if not .Free}}
<tr><td>Total</td><td>{{.Total}}</td></tr>{{end}}
<tr><td>Ticket</td><td><code>{{.Ticket.Code}}</code></td></tr>
</table>
<p>Show the attached QR code at the entrance. <a href="{{.EventURL}}">Event details</a></p>
`))

	certificateText = texttemplate.Must(texttemplate.New("certificate").Parse(`Hi {{.Name}},

Attached is your certificate of participation for {{.Event.Title}} ({{.Date}}).

Ticket: {{.Ticket.Code}}
`))

	certificateHTML = htmltemplate.Must(htmltemplate.New("certificate").Parse(`<p>Hi {{.Name}},</p>
<p>Attached is your certificate of participation for <strong>{{.Event.Title}}</strong> ({{.Date}}).</p>
<p>Ticket: <code>{{.Ticket.Code}}</code></p>
`))
)

func newTemplateData(d model.TicketDetails, baseURL string, free bool) templateData {
	date := ""
	if !d.Event.Date.IsZero() {
		date = d.Event.Date.Format("January 02, 2006")
	}
	return templateData{
		Name:     d.RecipientName(),
		Event:    d.Event,
		Date:     date,
		Tier:     d.Tier.Name,
		Ticket:   d.Ticket,
		Total:    d.Ticket.TotalAmount.StringFixed(2),
		EventURL: strings.TrimRight(baseURL, "/") + "/events/" + d.Event.ID,
		Free:     free,
	}
}

// TicketSubject is the subject of the ticket confirmation email.
func TicketSubject(title string, free bool) string {
	if free {
		return "Free Ticket Confirmation: " + title
	}
	return "Payment Confirmation & Ticket: " + title
}

// CertificateSubject is the subject of the certificate email.
func CertificateSubject(title string) string {
	return "Your Certificate for " + title
}

func buildTicketMessage(d model.TicketDetails, baseURL string, free bool) (Message, error) {
	data := newTemplateData(d, baseURL, free)
	text, html, err := render(ticketText, ticketHTML, data)
	if err != nil {
		return Message{}, err
	}

	msg := Message{To: d.Ticket.Email, Subject: TicketSubject(d.Event.Title, free), Text: text, HTML: html}
	if d.Ticket.HasQR() {
		msg.Attachments = append(msg.Attachments, Attachment{Filename: qrAttachmentName, ContentType: "image/png", Data: d.Ticket.QRImage})
	}
	return msg, nil
}

func buildCertificateMessage(d model.TicketDetails, cert model.Certificate, baseURL string) (Message, error) {
	data := newTemplateData(d, baseURL, false)
	text, html, err := render(certificateText, certificateHTML, data)
	if err != nil {
		return Message{}, err
	}

	msg := Message{To: d.Ticket.Email, Subject: CertificateSubject(d.Event.Title), Text: text, HTML: html}
	if len(cert.Content) > 0 {
		msg.Attachments = append(msg.Attachments, Attachment{Filename: cert.Filename, ContentType: "application/pdf", Data: cert.Content})
	}
	if d.Ticket.HasQR() {
		msg.Attachments = append(msg.Attachments, Attachment{Filename: qrAttachmentName, ContentType: "image/png", Data: d.Ticket.QRImage})
	}
	return msg, nil
}

func render(text *texttemplate.Template, html *htmltemplate.Template, data templateData) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	if err := html.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	return tb.String(), hb.String(), nil
}
