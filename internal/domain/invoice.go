package domain

// Address is a party block on a purchase order.
type Address struct {
	Company       string `json:"company,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
	Attention     string `json:"attention,omitempty"`
}

// LineItem is a single ordered item. A nil amount means none was stated.
type LineItem struct {
	ItemCode    string   `json:"item_code,omitempty"`
	Description string   `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Total       *float64 `json:"total,omitempty"`
}

// StructuredInvoice is the validated, normalized purchase-order record.
type StructuredInvoice struct {
	PONumber            string         `json:"po_number,omitempty"`
	PODate              string         `json:"po_date,omitempty"`
	BillingInfo         *Address       `json:"billing_info,omitempty"`
	ShippingInfo        *Address       `json:"shipping_info,omitempty"`
	LineItems           []LineItem     `json:"line_items"`
	Subtotal            *float64       `json:"subtotal,omitempty"`
	Tax                 *float64       `json:"tax,omitempty"`
	TaxRate             string         `json:"tax_rate,omitempty"`
	Shipping            *float64       `json:"shipping,omitempty"`
	TotalAmount         *float64       `json:"total_amount,omitempty"`
	PaymentTerms        string         `json:"payment_terms,omitempty"`
	DeliveryDate        string         `json:"delivery_date,omitempty"`
	SpecialInstructions string         `json:"special_instructions,omitempty"`
	ManagerApproval     *Approval      `json:"manager_approval,omitempty"`
	BudgetCode          string         `json:"budget_code,omitempty"`
	VendorInfo          map[string]any `json:"vendor_info,omitempty"`
	BuyerInfo           map[string]any `json:"buyer_info,omitempty"`

	// Extras holds keys the model emitted outside the known field set.
	Extras map[string]any `json:"extras,omitempty"`
}

// Float returns a pointer to v. Used where amounts are built by hand.
func Float(v float64) *float64 {
	return &v
}
