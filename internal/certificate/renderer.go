package certificate

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

const dateLayout = "January 02, 2006"

// PDFRenderer lays out a landscape A4 certificate of participation.
// The same ticket always renders to the same bytes: document dates are taken
// from the ticket and the catalog is written in sorted order.
type PDFRenderer struct {
	Issuer string
}

// Render produces the PDF document for d.
func (r PDFRenderer) Render(d model.TicketDetails) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(d.Ticket.CreatedAt)
	pdf.SetModificationDate(d.Ticket.CreatedAt)
	pdf.SetTitle("Certificate of Participation", true)
	pdf.SetAuthor(r.Issuer, true)
	pdf.SetCreator("event-ticketing", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width, height := pdf.GetPageSize()

	pdf.SetFillColor(242, 242, 250)
	pdf.Rect(5, 5, width-10, height-10, "F")
	pdf.SetDrawColor(13, 110, 253)
	pdf.SetLineWidth(0.7)
	pdf.Rect(10, 10, width-20, height-20, "D")

	centered := func(y float64, family, style string, size float64, text string) {
		pdf.SetFont(family, style, size)
		pdf.SetXY(0, y)
		pdf.CellFormat(width, size*0.5, tr(text), "", 0, "C", false, 0, "")
	}

	pdf.SetTextColor(13, 51, 115)
	centered(35, "Helvetica", "B", 34, "Certificate of Participation")

	pdf.SetTextColor(38, 38, 38)
	centered(60, "Helvetica", "", 18, "Presented to")
	centered(78, "Helvetica", "B", 26, d.RecipientName())

	eventLine := fmt.Sprintf("For participating in \"%s\"", d.Event.Title)
	if !d.Event.Date.IsZero() {
		eventLine += " on " + d.Event.Date.Format(dateLayout)
	}
	centered(100, "Helvetica", "", 16, eventLine)

	details := fmt.Sprintf("Tickets: %d", d.Ticket.Quantity)
	if d.Tier.Name != "" {
		details = d.Tier.Name + "  -  " + details
	}
	centered(115, "Helvetica", "", 12, details)

	sigY := height - 35
	pdf.SetDrawColor(38, 38, 38)
	pdf.SetLineWidth(0.3)
	pdf.Line(width/2-40, sigY, width/2+40, sigY)
	centered(sigY+4, "Helvetica", "I", 10, "Organizer Signature")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetXY(30, height-25)
	pdf.CellFormat(120, 6, tr("Issued by: "+r.Issuer), "", 0, "L", false, 0, "")
	pdf.SetXY(width-150, height-25)
	pdf.CellFormat(120, 6, tr("Date: "+d.Ticket.CreatedAt.Format(dateLayout)), "", 0, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(30, height-17)
	pdf.CellFormat(width-60, 4, "Ticket "+d.Ticket.Code, "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
