/*
xlsx.go - Transaction statement spreadsheet

PURPOSE:
  Flat sheet of transactions for accounting reconciliation, one row per
  fuel event with every monetary field. Decimals are written as strings
  to keep the exact ledger values; accountants can cast in-sheet.
*/
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/frotagov/fuel-ledger/ledger"
)

const statementSheet = "Transactions"

// TransactionsXLSX renders a transaction statement workbook.
func TransactionsXLSX(txs []ledger.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), statementSheet)

	headers := []string{
		"ID", "Voucher", "Organization", "Station", "Vehicle", "Driver",
		"Fuel", "Status", "Requested At", "Validated At",
		"Liters", "Price/L", "Gross", "Fee %", "Fee", "Net", "Paid At",
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(statementSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, t := range txs {
		validated := ""
		if t.ValidationDate != nil {
			validated = t.ValidationDate.Format("2006-01-02 15:04")
		}
		paid := ""
		if t.PaymentDate != nil {
			paid = t.PaymentDate.Format("2006-01-02 15:04")
		}
		values := []any{
			t.ID, t.VoucherCode, t.OrgID, t.StationID, t.VehicleID, t.DriverName,
			string(t.FuelType), string(t.Status),
			t.RequestDate.Format("2006-01-02 15:04"), validated,
			t.FilledLiters.StringFixed(2), t.PricePerLiter.StringFixed(2),
			t.TotalValue.StringFixed(2), t.FeePercentageApplied.String(),
			t.FeeAmount.StringFixed(2), t.NetValue.StringFixed(2), paid,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(statementSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("render statement xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
