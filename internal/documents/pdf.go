package documents

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
)

const (
	pageWidth  = 300.0
	pageHeight = 450.0
	margin     = 20.0
	qrSide     = 120.0
)

type Generator interface {
	RenderPass(pass *models.Pass) ([]byte, error)
	RenderTicket(ticket *models.Ticket) ([]byte, error)
}

type field struct {
	label string
	value string
}

// PDFGenerator lays out one small card per pass or ticket with its QR code
// centred at the bottom.
type PDFGenerator struct{}

func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

func (g *PDFGenerator) RenderPass(pass *models.Pass) ([]byte, error) {
	if pass == nil {
		return nil, fmt.Errorf("pass is nil")
	}
	fields := []field{
		{"Pass ID", pass.ID.Hex()},
		{"Booking ID", pass.BookingID.Hex()},
		{"Event", pass.Details.EventName},
		{"Guest", pass.Details.GuestName},
		{"Access", pass.Details.AccessLevel},
		{"Status", string(pass.Status)},
	}
	return render("Marriage Garden Pass", fields, pass.QRCode)
}

func (g *PDFGenerator) RenderTicket(ticket *models.Ticket) ([]byte, error) {
	if ticket == nil {
		return nil, fmt.Errorf("ticket is nil")
	}
	fields := []field{
		{"Ticket ID", ticket.ID.Hex()},
		{"Booking ID", ticket.BookingID.Hex()},
		{"Type", ticket.Details.Type},
		{"Price", fmt.Sprintf("%.2f", ticket.Details.Price)},
		{"Status", string(ticket.Status)},
	}
	return render("Water Park Ticket", fields, ticket.QRCode)
}

func render(title string, fields []field, qrDataURL string) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 28, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	for _, f := range fields {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(70, 16, tr(f.label+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 16, tr(f.value), "", "L", false)
	}

	if qrDataURL != "" {
		png, _, err := helpers.DecodeDataURL(qrDataURL)
		if err != nil {
			return nil, fmt.Errorf("invalid qr code: %w", err)
		}
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
		x := (pageWidth - qrSide) / 2
		y := pageHeight - margin - qrSide
		pdf.ImageOptions("qr", x, y, qrSide, qrSide, false, opts, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
