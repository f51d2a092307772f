package billing

import "time"

// SupplierInvoiceStatus is derived from paidAmount versus nettAmount.
type SupplierInvoiceStatus string

const (
	SupplierInvoiceUnpaid        SupplierInvoiceStatus = "UNPAID"
	SupplierInvoicePartiallyPaid SupplierInvoiceStatus = "PARTIALLY_PAID"
	SupplierInvoicePaid          SupplierInvoiceStatus = "PAID"
)

// Invoice is a buyer-side invoice. PaidAmount is derived state written
// only by the reconciler. Adjustments are applied algebraically:
// positive increases the payable, negative decreases it.
type Invoice struct {
	ID              int64
	InvoiceNumber   string // BI-YYYYMMDD-NNN, daily sequential
	BuyerID         int64
	Items           []InvoiceItem
	TotalQuantities float64
	TotalAmount     float64
	Wages           float64
	Adjustments     float64
	NettAmount      float64
	PaidAmount      float64
	Discount        float64
	CreatedAt       time.Time
}

// Debt is the amount the buyer owes on this invoice before payments.
func (i Invoice) Debt() float64 {
	return i.NettAmount - i.Discount
}

// InvoiceItem is a snapshot of an auctioned entry item. EntryItemID is
// the back-reference used to unlink on invoice deletion.
type InvoiceItem struct {
	ID              int64
	InvoiceID       int64
	EntryItemID     int64
	ProductID       int64
	ProductName     string
	Quantity        float64
	RatePerQuantity float64
	SubTotal        float64
}

// SupplierInvoice settles one or more entries with the supplier.
// PaidAmount, AdvancePaid, FinalPayable and Status are derived state.
type SupplierInvoice struct {
	ID               int64
	InvoiceNumber    string // SI-YYYYMMDD-NNN, daily sequential
	SupplierID       int64
	EntryIDs         []int64
	Items            []SupplierInvoiceItem
	TotalQuantities  float64
	GrossTotal       float64
	CommissionRate   float64
	CommissionAmount float64
	Wages            float64
	Adjustments      float64
	NettAmount       float64
	AdvancePaid      float64
	FinalPayable     float64
	PaidAmount       float64
	Status           SupplierInvoiceStatus
	CreatedAt        time.Time
}

// SupplierInvoiceItem is one aggregated line: the same product sold at
// the same rate across the invoice's entries merges into one row.
type SupplierInvoiceItem struct {
	ID              int64
	ProductID       int64
	ProductName     string
	RatePerQuantity float64
	Quantity        float64
	GrossWeight     float64
	ShuteWeight     float64
	NettWeight      float64
	SubTotal        float64
}

// --- Input DTOs ---

// CreateInvoiceInput selects sold entry items onto a buyer invoice.
// NettAmount is optional; when supplied it must agree with the computed
// value within the float tolerance.
type CreateInvoiceInput struct {
	BuyerID      int64
	EntryItemIDs []int64
	Wages        float64
	Adjustments  float64
	Discount     float64
	NettAmount   *float64
}

// UpdateInvoiceInput revises the financial fields of a buyer invoice.
type UpdateInvoiceInput struct {
	InvoiceID   int64
	Wages       float64
	Adjustments float64
	Discount    float64
}

// CreateSupplierInvoiceInput settles the given entries. Wages is
// auto-calculated from the entry items when nil.
type CreateSupplierInvoiceInput struct {
	SupplierID     int64
	EntryIDs       []int64
	CommissionRate float64
	Wages          *float64
	Adjustments    float64
}

// UpdateSupplierInvoiceInput revises the financial fields of a supplier invoice.
type UpdateSupplierInvoiceInput struct {
	InvoiceID      int64
	CommissionRate float64
	Wages          float64
	Adjustments    float64
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	BuyerID    int64
	SupplierID int64
	From       time.Time
	To         time.Time
}
