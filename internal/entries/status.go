package entries

// ResolveStatus derives an entry's lifecycle state from its items.
// Pure function; rules evaluated in order, first match wins:
//
//  1. Cancelled stays Cancelled (terminal, manual-only transition).
//  2. No items: Pending.
//  3. Any item on a supplier invoice: Invoiced. A single invoiced item
//     drags the whole entry, even if others were never sold.
//  4. Every item on a buyer invoice: Auctioned.
//  5. Every item sold (buyer + rate fixed): Draft.
//  6. Otherwise: Pending.
func ResolveStatus(current Status, items []Item) Status {
	if current == StatusCancelled {
		return StatusCancelled
	}
	if len(items) == 0 {
		return StatusPending
	}

	anyOnSupplierInvoice := false
	allOnBuyerInvoice := true
	allSold := true
	for _, it := range items {
		if it.SupplierInvoiceID != nil {
			anyOnSupplierInvoice = true
		}
		if it.InvoiceID == nil {
			allOnBuyerInvoice = false
		}
		if !it.Sold() {
			allSold = false
		}
	}

	switch {
	case anyOnSupplierInvoice:
		return StatusInvoiced
	case allOnBuyerInvoice:
		return StatusAuctioned
	case allSold:
		return StatusDraft
	default:
		return StatusPending
	}
}
