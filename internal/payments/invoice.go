// internal/payments/invoice.go
package payments

import (
	"bytes"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/lewismosage/acna-sub005/internal/tiers"
)

var (
	invoiceHeaderColor = [3]int{30, 58, 95}
	invoiceMutedColor  = [3]int{127, 140, 141}
)

type invoiceData struct {
	Number      string
	Date        time.Time
	MemberName  string
	MemberEmail string
	Description string
	Amount      tiers.Cents
}

// renderInvoice produces a single-page A4 invoice PDF.
func renderInvoice(data invoiceData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetTextColor(invoiceHeaderColor[0], invoiceHeaderColor[1], invoiceHeaderColor[2])
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 12, "ACNA Membership Invoice")
	pdf.Ln(16)

	pdf.SetTextColor(invoiceMutedColor[0], invoiceMutedColor[1], invoiceMutedColor[2])
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Invoice "+data.Number)
	pdf.Ln(6)
	pdf.Cell(0, 6, data.Date.Format("2 January 2006"))
	pdf.Ln(12)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Billed to")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, data.MemberName)
	pdf.Ln(6)
	pdf.Cell(0, 6, data.MemberEmail)
	pdf.Ln(14)

	pdf.SetFillColor(invoiceHeaderColor[0], invoiceHeaderColor[1], invoiceHeaderColor[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(130, 8, "Description", "", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Amount", "", 1, "R", true, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(130, 8, data.Description, "B", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, data.Amount.String(), "B", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(130, 8, "Total", "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, data.Amount.String(), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
