// Package invoice renders order invoices as PDF for the back office and for
// customers downloading from their order history.
package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/example/letterpress-shop/internal/domain/order"
)

// Renderer draws invoices with a fixed letterhead.
type Renderer struct {
	businessName string
}

func NewRenderer(businessName string) *Renderer {
	return &Renderer{businessName: businessName}
}

// Render produces the PDF bytes for one order.
func (r *Renderer) Render(o *order.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(45, 45, 45)
	pdf.AddPage()

	// Header: letterhead left, INVOICE right.
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(26, 26, 26)
	pdf.CellFormat(260, 22, r.businessName, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 24)
	pdf.CellFormat(0, 22, "INVOICE", "", 1, "R", false, 0, "")
	pdf.Ln(20)

	// Ship-to block on the left, order info on the right.
	top := pdf.GetY()
	r.shipTo(pdf, o.ShippingAddress)
	addrBottom := pdf.GetY()

	pdf.SetY(top)
	r.infoRow(pdf, "ORDER NO:", o.OrderNumber)
	r.infoRow(pdf, "ORDER DATE:", formatDate(o.CreatedAt))
	r.infoRow(pdf, "PAYMENT STATUS:", titleCase(string(o.PaymentStatus)))
	r.infoRow(pdf, "ORDER STATUS:", titleCase(string(o.Status)))
	if pdf.GetY() < addrBottom {
		pdf.SetY(addrBottom)
	}
	pdf.Ln(20)

	r.itemsTable(pdf, o.Items)
	r.totals(pdf, o)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice for %s: %w", o.OrderNumber, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) shipTo(pdf *gofpdf.Fpdf, a order.Address) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(250, 12, "SHIP TO", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(26, 26, 26)
	pdf.CellFormat(250, 14, fmt.Sprintf("%s %s", a.FirstName, a.LastName), "", 1, "L", false, 0, "")

	if a.Company != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(250, 13, a.Company, "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(68, 68, 68)
	pdf.CellFormat(250, 13, a.Street1, "", 1, "L", false, 0, "")
	if a.Street2 != "" {
		pdf.CellFormat(250, 13, a.Street2, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(250, 13, fmt.Sprintf("%s, %s %s", a.City, a.State, a.PostalCode), "", 1, "L", false, 0, "")
	pdf.CellFormat(250, 13, a.Country, "", 1, "L", false, 0, "")
	if a.Phone != "" {
		pdf.CellFormat(250, 13, "Tel: "+a.Phone, "", 1, "L", false, 0, "")
	}
}

func (r *Renderer) infoRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetX(330)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(100, 14, label, "", 0, "L", false, 0, "")
	pdf.SetTextColor(26, 26, 26)
	pdf.CellFormat(0, 14, value, "", 1, "L", false, 0, "")
}

const (
	colSKU   = 60.0
	colItem  = 212.0
	colQty   = 50.0
	colPrice = 100.0
	colTotal = 100.0
)

func (r *Renderer) itemsTable(pdf *gofpdf.Fpdf, items []order.Item) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(102, 102, 102)
	pdf.SetDrawColor(221, 221, 221)
	pdf.CellFormat(colSKU, 22, "SKU", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colItem, 22, "ITEM", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colQty, 22, "QTY", "B", 0, "C", false, 0, "")
	pdf.CellFormat(colPrice, 22, "UNIT PRICE", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colTotal, 22, "SUBTOTAL", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetDrawColor(238, 238, 238)
	for _, item := range items {
		sku := item.SKU
		if sku == "" {
			sku = "-"
		}
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(colSKU, 24, sku, "B", 0, "L", false, 0, "")
		pdf.SetTextColor(26, 26, 26)
		pdf.CellFormat(colItem, 24, item.Name, "B", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, 24, fmt.Sprintf("%d", item.Quantity), "B", 0, "C", false, 0, "")
		pdf.CellFormat(colPrice, 24, FormatPrice(item.Price), "B", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, 24, FormatPrice(item.Total), "B", 1, "R", false, 0, "")
	}
}

func (r *Renderer) totals(pdf *gofpdf.Fpdf, o *order.Order) {
	pdf.Ln(10)
	r.totalRow(pdf, "Subtotal", FormatPrice(o.Subtotal), false)
	if o.Discount > 0 {
		r.totalRow(pdf, "Discount", "-"+FormatPrice(o.Discount), false)
	}
	if o.ShippingCost > 0 {
		r.totalRow(pdf, "Shipping", FormatPrice(o.ShippingCost), false)
	}
	if o.Tax > 0 {
		r.totalRow(pdf, "Tax", FormatPrice(o.Tax), false)
	}
	r.totalRow(pdf, "Total", FormatPrice(o.Total), true)
}

func (r *Renderer) totalRow(pdf *gofpdf.Fpdf, label, value string, emphasized bool) {
	style := ""
	if emphasized {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 10)
	pdf.SetX(322)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(100, 16, label, "", 0, "R", false, 0, "")
	pdf.SetTextColor(26, 26, 26)
	pdf.CellFormat(100, 16, value, "", 1, "R", false, 0, "")
}

// FormatPrice renders a minor-unit amount as dollars.
func FormatPrice(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("January 2, 2006")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
