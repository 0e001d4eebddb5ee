package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"mailparser/internal/domain"
)

// Sheet names in the XLSX workbook.
const (
	SheetInvoices  = "Invoices"
	SheetLineItems = "Line Items"
)

// WriteXLSX writes records as a workbook with an Invoices sheet and a Line Items sheet.
// Amount columns are stored as numbers.
func WriteXLSX(w io.Writer, records []domain.ExtractionRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet rather than leaving an empty "Sheet1".
	if err := f.SetSheetName("Sheet1", SheetInvoices); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	if _, err := f.NewSheet(SheetLineItems); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	if err := writeHeader(f, SheetInvoices, recordColumns); err != nil {
		return err
	}
	if err := writeHeader(f, SheetLineItems, lineItemColumns); err != nil {
		return err
	}

	invRow, itemRow := 2, 2
	for i := range records {
		rec := &records[i]
		var amounts map[int]*float64
		if rec.Invoice != nil {
			amounts = map[int]*float64{
				colSubtotal:    rec.Invoice.Subtotal,
				colTax:         rec.Invoice.Tax,
				colShipping:    rec.Invoice.Shipping,
				colTotalAmount: rec.Invoice.TotalAmount,
			}
		}
		if err := writeRow(f, SheetInvoices, invRow, recordToRow(rec), amounts); err != nil {
			return err
		}
		invRow++

		if rec.Invoice == nil {
			continue
		}
		for j, cells := range lineItemRows(rec) {
			item := rec.Invoice.LineItems[j]
			numeric := map[int]*float64{
				colItemQuantity:  item.Quantity,
				colItemUnitPrice: item.UnitPrice,
				colItemTotal:     item.Total,
			}
			if err := writeRow(f, SheetLineItems, itemRow, cells, numeric); err != nil {
				return err
			}
			itemRow++
		}
	}

	_ = f.SetColWidth(SheetInvoices, "A", "B", 38)
	_ = f.SetColWidth(SheetInvoices, "H", "K", 22)
	_ = f.SetColWidth(SheetInvoices, "X", "X", 60)
	_ = f.SetColWidth(SheetInvoices, "Y", "Y", 22)
	_ = f.SetColWidth(SheetLineItems, "A", "A", 38)
	_ = f.SetColWidth(SheetLineItems, "E", "E", 48)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export.WriteXLSX: write: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
	}
	return nil
}

// writeRow writes text cells, replacing the indexes in numeric with number cells.
func writeRow(f *excelize.File, sheet string, row int, cells []string, numeric map[int]*float64) error {
	for col, v := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
		var value any = v
		if p, ok := numeric[col]; ok {
			if p == nil {
				continue
			}
			value = *p
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
	}
	return nil
}
