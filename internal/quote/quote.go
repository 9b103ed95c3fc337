// Package quote renders customer quotes for a priced configuration as PDF.
package quote

import (
	"bytes"
	"fmt"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"

	"github.com/bwmarrin/snowflake"
	"github.com/jung-kurt/gofpdf"
)

const (
	companyName = "J Taylor Horseboxes"
	fontName    = "Helvetica"
	// DefaultValidDays is how long a quoted price is honoured.
	DefaultValidDays = 30
)

// Data is everything printed on a quote.
type Data struct {
	Reference    string
	IssuedAt     time.Time
	ValidDays    int
	CustomerName string
	Email        string
	Phone        string
	Postcode     string
	Breakdown    pricing.Breakdown
	Finance      *pricing.FinanceTerms
}

// Renderer produces quote documents. References are snowflake ids so quotes
// issued by different instances never collide.
type Renderer struct {
	node *snowflake.Node
}

func NewRenderer(nodeID int64) (*Renderer, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote id node: %w", err)
	}
	return &Renderer{node: node}, nil
}

// NextReference returns a fresh quote reference, e.g. Q-1790712345678901234.
func (r *Renderer) NextReference() string {
	return "Q-" + r.node.Generate().String()
}

// Render writes the quote as a PDF document.
func (r *Renderer) Render(data Data) ([]byte, error) {
	if data.Reference == "" {
		data.Reference = r.NextReference()
	}
	if data.ValidDays <= 0 {
		data.ValidDays = DefaultValidDays
	}
	if data.IssuedAt.IsZero() {
		data.IssuedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Quote "+data.Reference, false)
	pdf.SetAuthor(companyName, false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont(fontName, "B", 18)
	pdf.CellFormat(0, 10, tr(companyName), "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Quote %s  |  %s", data.Reference, data.IssuedAt.Format("02 Jan 2006"))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Valid until %s", data.IssuedAt.AddDate(0, 0, data.ValidDays).Format("02 Jan 2006"))), "", 1, "L", false, 0, "")
	hr(pdf)

	sectionTitle(pdf, "Customer")
	kvLine(pdf, tr, "Name", data.CustomerName)
	kvLine(pdf, tr, "Email", data.Email)
	if data.Phone != "" {
		kvLine(pdf, tr, "Phone", data.Phone)
	}
	if data.Postcode != "" {
		kvLine(pdf, tr, "Postcode", data.Postcode)
	}
	hr(pdf)

	b := data.Breakdown
	sectionTitle(pdf, "Configuration: "+b.ModelName)
	if b.ContactForPricing {
		pdf.SetFont(fontName, "", 11)
		pdf.MultiCell(0, 6, tr("This model is priced on application. Our sales team will contact you with a personalised quotation for the options below."), "", "L", false)
		pdf.Ln(2)
	}
	optionTable(pdf, tr, b)

	if !b.ContactForPricing {
		pdf.Ln(2)
		totalLine(pdf, tr, "Base vehicle", pounds(b.BasePrice), false)
		totalLine(pdf, tr, "Options", pounds(b.OptionsTotal), false)
		totalLine(pdf, tr, "Subtotal", pounds(b.Subtotal), false)
		totalLine(pdf, tr, fmt.Sprintf("VAT (%s%%)", b.VATRate.Mul(hundredPercent).StringFixed(1)), pounds(b.VAT), false)
		totalLine(pdf, tr, "Total", pounds(b.Total), true)
	}

	if data.Finance != nil && !b.ContactForPricing {
		f := data.Finance.Rounded()
		hr(pdf)
		sectionTitle(pdf, "Representative finance example")
		kvLine(pdf, tr, "Deposit", fmt.Sprintf("%s (%d%%)", pounds(f.Deposit), f.DepositPercent))
		kvLine(pdf, tr, "Amount of credit", pounds(f.Principal))
		kvLine(pdf, tr, "Term", fmt.Sprintf("%d months", f.TermMonths))
		kvLine(pdf, tr, "Monthly payment", pounds(f.MonthlyPayment))
		kvLine(pdf, tr, "Total payable", pounds(f.TotalPayable))
		kvLine(pdf, tr, "Representative APR", f.APR.StringFixed(1)+"%")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render quote %s: %w", data.Reference, err)
	}
	return buf.Bytes(), nil
}

func optionTable(pdf *gofpdf.Fpdf, tr func(string) string, b pricing.Breakdown) {
	pdf.SetFont(fontName, "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(95, 7, "Option", "B", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "B", 0, "R", true, 0, "")
	pdf.CellFormat(27, 7, "Unit", "B", 0, "R", true, 0, "")
	pdf.CellFormat(28, 7, "Total", "B", 1, "R", true, 0, "")

	pdf.SetFont(fontName, "", 10)
	for _, l := range b.Lines {
		qty := fmt.Sprintf("%d", l.Quantity)
		if l.PerFoot {
			qty += " ft"
		}
		unit, total := pounds(l.UnitPrice), pounds(l.Total)
		if l.Included {
			unit, total = "", "Included"
		} else if b.ContactForPricing {
			unit, total = "", ""
		}
		pdf.CellFormat(95, 6, tr(l.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, qty, "", 0, "R", false, 0, "")
		pdf.CellFormat(27, 6, tr(unit), "", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, tr(total), "", 1, "R", false, 0, "")
	}
}

func sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(fontName, "B", 13)
	pdf.CellFormat(0, 8, s, "", 1, "L", false, 0, "")
}

func kvLine(pdf *gofpdf.Fpdf, tr func(string) string, key, val string) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(50, 6, tr(key+":"), "", 0, "L", false, 0, "")
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, tr(val), "", 1, "L", false, 0, "")
}

func totalLine(pdf *gofpdf.Fpdf, tr func(string) string, label, amount string, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont(fontName, style, 11)
	pdf.CellFormat(142, 6, tr(label), "", 0, "R", false, 0, "")
	pdf.CellFormat(28, 6, tr(amount), "", 1, "R", false, 0, "")
}

func hr(pdf *gofpdf.Fpdf) {
	pdf.Ln(2)
	x, y := pdf.GetX(), pdf.GetY()
	pageW, _ := pdf.GetPageSize()
	_, _, right, _ := pdf.GetMargins()
	pdf.SetLineWidth(0.2)
	pdf.Line(x, y, pageW-right, y)
	pdf.Ln(3)
}
