/*
Package report renders invoices and transaction statements to PDF and
XLSX for the paperwork trail the fiscal process requires.

PURPOSE:
  The PDF is the human-facing invoice document: header with the parties,
  a line per member fill, and the gross/fee/net totals. The XLSX is the
  machine-facing statement accountants reconcile against.

  Rendering is pure: callers pass fully-loaded records, the package
  never reaches into a store.
*/
package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/frotagov/fuel-ledger/directory"
	"github.com/frotagov/fuel-ledger/ledger"
)

// InvoicePDF renders one invoice with its member transactions.
func InvoicePDF(inv ledger.Invoice, members []ledger.Transaction, station directory.FuelStation, org directory.Organization) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Invoice %s", inv.DocumentNumber), false)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Fuel Supply Invoice")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	headerRow := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
	}
	headerRow("Document", inv.DocumentNumber)
	headerRow("Issued", inv.IssueDate.Format("2006-01-02"))
	headerRow("Station", fmt.Sprintf("%s (%s)", station.Name, station.TaxID))
	headerRow("Organization", fmt.Sprintf("%s (%s)", org.Name, org.TaxID))
	headerRow("Status", string(inv.Status))
	if inv.IsAdvance {
		headerRow("Settlement", "ADVANCE")
	}
	pdf.Ln(4)

	// Member table
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	cols := []struct {
		width float64
		title string
	}{
		{28, "Voucher"},
		{22, "Date"},
		{26, "Vehicle"},
		{22, "Fuel"},
		{18, "Liters"},
		{20, "Price/L"},
		{27, "Gross"},
		{27, "Net"},
	}
	for _, c := range cols {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, m := range members {
		date := ""
		if m.ValidationDate != nil {
			date = m.ValidationDate.Format("2006-01-02")
		}
		cells := []string{
			m.VoucherCode,
			date,
			m.VehicleID,
			string(m.FuelType),
			m.FilledLiters.StringFixed(2),
			m.PricePerLiter.StringFixed(2),
			m.TotalValue.StringFixed(2),
			m.NetValue.StringFixed(2),
		}
		for i, c := range cols {
			align := "L"
			if i >= 4 {
				align = "R"
			}
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	// Totals
	totalRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(140, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, value, "", 1, "R", false, 0, "")
	}
	totalRow("Gross total:", inv.TotalValue.StringFixed(2), false)
	totalRow("Platform fee:", inv.FeeAmount.StringFixed(2), false)
	totalRow("Net payable to station:", inv.NetValue.StringFixed(2), true)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
