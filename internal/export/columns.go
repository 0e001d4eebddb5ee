// Package export renders extraction records as CSV or XLSX spreadsheets.
package export

import (
	"strconv"
	"strings"
	"time"

	"mailparser/internal/domain"
)

// recordColumns is the header of the one-row-per-record sheet.
var recordColumns = []string{
	"Record ID",
	"Request ID",
	"Source",
	"Filename",
	"Status",
	"Tier",
	"Variant",
	"PO Number",
	"PO Date",
	"Billing Company",
	"Shipping Company",
	"Subtotal",
	"Tax",
	"Tax Rate",
	"Shipping",
	"Total Amount",
	"Payment Terms",
	"Delivery Date",
	"Manager Approval",
	"Budget Code",
	"Line Item Count",
	"Warnings",
	"Failure Category",
	"Failure Message",
	"Timestamp",
}

// lineItemColumns is the header of the one-row-per-line-item sheet.
var lineItemColumns = []string{
	"Record ID",
	"PO Number",
	"Line",
	"Item Code",
	"Description",
	"Quantity",
	"Unit Price",
	"Total",
}

// Column indexes of the amount cells in recordColumns.
const (
	colSubtotal    = 11
	colTax         = 12
	colShipping    = 14
	colTotalAmount = 15
)

// Column indexes of the amount cells in lineItemColumns.
const (
	colItemQuantity  = 5
	colItemUnitPrice = 6
	colItemTotal     = 7
)

// recordToRow converts a record to a row matching recordColumns. Invoice
// columns are left empty for failed records.
func recordToRow(rec *domain.ExtractionRecord) []string {
	row := make([]string, len(recordColumns))

	row[0] = rec.ID
	row[1] = rec.RequestID
	row[2] = rec.Source
	row[3] = rec.Filename
	row[4] = string(rec.Status)
	if rec.TierRank > 0 {
		row[5] = strconv.Itoa(rec.TierRank)
	}
	row[6] = string(rec.TierVariant)
	row[21] = strings.Join(rec.Warnings, "; ")
	if rec.Failure != nil {
		row[22] = string(rec.Failure.Category)
		row[23] = rec.Failure.Message
	}
	row[24] = rec.CreatedAt.UTC().Format(time.RFC3339)

	inv := rec.Invoice
	if inv == nil {
		return row
	}
	row[7] = inv.PONumber
	row[8] = inv.PODate
	if inv.BillingInfo != nil {
		row[9] = inv.BillingInfo.Company
	}
	if inv.ShippingInfo != nil {
		row[10] = inv.ShippingInfo.Company
	}
	row[colSubtotal] = formatMoney(inv.Subtotal)
	row[colTax] = formatMoney(inv.Tax)
	row[13] = inv.TaxRate
	row[colShipping] = formatMoney(inv.Shipping)
	row[colTotalAmount] = formatMoney(inv.TotalAmount)
	row[16] = inv.PaymentTerms
	row[17] = inv.DeliveryDate
	row[18] = inv.ManagerApproval.String()
	row[19] = inv.BudgetCode
	row[20] = strconv.Itoa(len(inv.LineItems))
	return row
}

// lineItemRows converts the record's line items to rows matching lineItemColumns.
func lineItemRows(rec *domain.ExtractionRecord) [][]string {
	if rec.Invoice == nil {
		return nil
	}
	rows := make([][]string, 0, len(rec.Invoice.LineItems))
	for i, item := range rec.Invoice.LineItems {
		rows = append(rows, []string{
			rec.ID,
			rec.Invoice.PONumber,
			strconv.Itoa(i + 1),
			item.ItemCode,
			item.Description,
			formatQuantity(item.Quantity),
			formatMoney(item.UnitPrice),
			formatMoney(item.Total),
		})
	}
	return rows
}

func formatMoney(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatQuantity(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
