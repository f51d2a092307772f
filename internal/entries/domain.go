package entries

import "time"

// Status enumerates entry lifecycle states.
type Status string

const (
	// StatusPending: not all items sold yet.
	StatusPending Status = "PENDING"
	// StatusDraft: every item sold (buyer + rate fixed) but none placed on a buyer invoice.
	StatusDraft Status = "DRAFT"
	// StatusAuctioned: every item placed on a buyer invoice.
	StatusAuctioned Status = "AUCTIONED"
	// StatusInvoiced: at least one item placed on a supplier invoice.
	StatusInvoiced Status = "INVOICED"
	// StatusCancelled is terminal and only ever set manually.
	StatusCancelled Status = "CANCELLED"
)

// Entry is one supplier's delivery batch for one calendar day.
// The (supplier, entry date) pair is unique.
type Entry struct {
	ID              int64
	SerialNumber    string // MMDD-NNN, daily sequential
	SupplierID      int64
	EntryDate       time.Time
	Items           []Item
	TotalQuantities float64
	TotalAmount     float64
	Status          Status
	LastSubSerial   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is a sub-unit of an entry. Rate, buyer and subtotal are fixed at
// auction time and never recomputed by later passes; invoice linkage
// fields are written by the billing module.
type Item struct {
	ID                int64
	EntryID           int64
	SubSerialNumber   int
	ProductID         int64
	Quantity          float64
	GrossWeight       float64
	ShuteWeight       float64
	NettWeight        float64
	RatePerQuantity   *float64
	BuyerID           *int64
	SubTotal          float64
	InvoiceID         *int64
	SupplierInvoiceID *int64
}

// Sold reports whether the item has been auctioned off.
func (i Item) Sold() bool {
	return i.BuyerID != nil && i.RatePerQuantity != nil
}

// --- Input DTOs ---

// ItemInput describes one delivered lot.
type ItemInput struct {
	ProductID   int64
	Quantity    float64
	GrossWeight float64
	ShuteWeight float64
}

// CreateEntryInput for registering a delivery.
type CreateEntryInput struct {
	SupplierID int64
	EntryDate  time.Time
	Items      []ItemInput
}

// UpdateEntryInput replaces an entry's item list.
type UpdateEntryInput struct {
	EntryID int64
	Items   []ItemInput
}

// AuctionInput fixes a sale on a single item.
type AuctionInput struct {
	EntryID         int64
	ItemID          int64
	BuyerID         int64
	RatePerQuantity float64
}

// ListFilter narrows entry listings.
type ListFilter struct {
	SupplierID int64
	Status     Status
	From       time.Time
	To         time.Time
}
