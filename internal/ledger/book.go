package ledger

import (
	"github.com/mandi-erp/mandi-erp/internal/billing"
	"github.com/mandi-erp/mandi-erp/internal/cashflow"
	"github.com/mandi-erp/mandi-erp/internal/entries"
	"github.com/mandi-erp/mandi-erp/internal/masterdata"
)

// Book is an in-memory snapshot of everything the reconciler needs:
// all parties, entries, invoices and transactions. The reconciler
// mutates only derived state; recorded facts are never touched.
// Transactions must be in insertion order.
type Book struct {
	Buyers           []*masterdata.Buyer
	Suppliers        []*masterdata.Supplier
	Entries          []*entries.Entry
	Invoices         []*billing.Invoice
	SupplierInvoices []*billing.SupplierInvoice
	Transactions     []*cashflow.Transaction
}

// InvoicesByBuyer returns the buyer's invoices in book order.
func (b *Book) InvoicesByBuyer(buyerID int64) []*billing.Invoice {
	var out []*billing.Invoice
	for _, inv := range b.Invoices {
		if inv.BuyerID == buyerID {
			out = append(out, inv)
		}
	}
	return out
}

// SupplierInvoicesBySupplier returns the supplier's invoices in book order.
func (b *Book) SupplierInvoicesBySupplier(supplierID int64) []*billing.SupplierInvoice {
	var out []*billing.SupplierInvoice
	for _, inv := range b.SupplierInvoices {
		if inv.SupplierID == supplierID {
			out = append(out, inv)
		}
	}
	return out
}

// SupplierInvoiceCoveringEntries finds the supplier invoice whose entry
// set covers every one of the given entries, or nil. An invoice that
// settles only part of the set does not qualify.
func (b *Book) SupplierInvoiceCoveringEntries(supplierID int64, entryIDs []int64) *billing.SupplierInvoice {
	if len(entryIDs) == 0 {
		return nil
	}
	for _, inv := range b.SupplierInvoices {
		if inv.SupplierID != supplierID {
			continue
		}
		covered := make(map[int64]bool, len(inv.EntryIDs))
		for _, entryID := range inv.EntryIDs {
			covered[entryID] = true
		}
		all := true
		for _, entryID := range entryIDs {
			if !covered[entryID] {
				all = false
				break
			}
		}
		if all {
			return inv
		}
	}
	return nil
}

// Buyer finds a buyer by id, or nil.
func (b *Book) Buyer(id int64) *masterdata.Buyer {
	for _, buyer := range b.Buyers {
		if buyer.ID == id {
			return buyer
		}
	}
	return nil
}

// Supplier finds a supplier by id, or nil.
func (b *Book) Supplier(id int64) *masterdata.Supplier {
	for _, supplier := range b.Suppliers {
		if supplier.ID == id {
			return supplier
		}
	}
	return nil
}

// Invoice finds a buyer invoice by id, or nil.
func (b *Book) Invoice(id int64) *billing.Invoice {
	for _, inv := range b.Invoices {
		if inv.ID == id {
			return inv
		}
	}
	return nil
}

// SupplierInvoice finds a supplier invoice by id, or nil.
func (b *Book) SupplierInvoice(id int64) *billing.SupplierInvoice {
	for _, inv := range b.SupplierInvoices {
		if inv.ID == id {
			return inv
		}
	}
	return nil
}
