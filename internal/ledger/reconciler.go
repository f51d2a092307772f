package ledger

import (
	"math"
	"sort"

	"github.com/mandi-erp/mandi-erp/internal/billing"
	"github.com/mandi-erp/mandi-erp/internal/cashflow"
	"github.com/mandi-erp/mandi-erp/internal/entries"
)

func sortTransactionsByDate(txns []*cashflow.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
}

// Recalculate rebuilds every derived figure in the book from scratch:
// paid amounts, advances, invoice statuses, entry statuses and party
// outstandings. It is a pure function of the recorded facts, so running
// it twice in a row changes nothing.
//
// Sign convention: buyer outstanding is positive when the buyer owes
// the business; supplier outstanding is negative when the business owes
// the supplier. An unabsorbed advance leaves a supplier positive, i.e.
// prepaid.
//
// Passes, strictly in order:
//  1. reset all derived state
//  2. base debt: each buyer invoice adds its debt, each supplier
//     invoice subtracts its nett
//  3. replay payments in (date, insertion) order; every payment moves
//     its party's outstanding by its full amount, then settles invoices
//  4. derive statuses, round outstandings
func Recalculate(b *Book) {
	resetDerived(b)
	applyBaseDebts(b)
	replayPayments(b)
	deriveStatuses(b)
	roundOutstandings(b)
}

func resetDerived(b *Book) {
	for _, inv := range b.Invoices {
		inv.PaidAmount = 0
	}
	for _, inv := range b.SupplierInvoices {
		inv.PaidAmount = 0
		inv.AdvancePaid = 0
		inv.FinalPayable = inv.NettAmount
		inv.Status = billing.SupplierInvoiceUnpaid
	}
	for _, buyer := range b.Buyers {
		buyer.Outstanding = 0
	}
	for _, supplier := range b.Suppliers {
		supplier.Outstanding = 0
	}
}

func applyBaseDebts(b *Book) {
	for _, inv := range b.Invoices {
		if buyer := b.Buyer(inv.BuyerID); buyer != nil {
			buyer.Outstanding += inv.Debt()
		}
	}
	for _, inv := range b.SupplierInvoices {
		if supplier := b.Supplier(inv.SupplierID); supplier != nil {
			supplier.Outstanding -= inv.NettAmount
		}
	}
}

func replayPayments(b *Book) {
	txns := make([]*cashflow.Transaction, len(b.Transactions))
	copy(txns, b.Transactions)
	// book order is insertion order, the stable sort keeps it for
	// same-day transactions
	sortTransactionsByDate(txns)

	for _, txn := range txns {
		switch txn.Category {
		case cashflow.CategoryBuyerPayment:
			applyBuyerPayment(b, txn)
		case cashflow.CategorySupplierPayment:
			applySupplierPayment(b, txn)
		case cashflow.CategoryAdvancePayment:
			applyAdvancePayment(b, txn)
		}
	}
}

func applyBuyerPayment(b *Book, txn *cashflow.Transaction) {
	if txn.BuyerID == nil {
		return
	}
	if buyer := b.Buyer(*txn.BuyerID); buyer != nil {
		// a discount forgiven alongside the payment settles debt
		// like cash; surplus over the invoiced total stays as a
		// negative balance, never silently dropped
		buyer.Outstanding -= txn.Amount + txn.Discount
	}
	invoices := selectInvoices(b.InvoicesByBuyer(*txn.BuyerID), txn.InvoiceIDs)
	targets := make([]cashflow.Target, len(invoices))
	for i, inv := range invoices {
		targets[i] = cashflow.Target{
			InvoiceID: inv.ID,
			CreatedAt: inv.CreatedAt,
			Seq:       inv.ID,
			Debt:      inv.Debt(),
			Paid:      inv.PaidAmount,
		}
	}
	cashflow.Allocate(txn.Amount+txn.Discount, targets)
	for _, target := range targets {
		b.Invoice(target.InvoiceID).PaidAmount = target.Paid
	}
}

func applySupplierPayment(b *Book, txn *cashflow.Transaction) {
	if txn.SupplierID == nil {
		return
	}
	if supplier := b.Supplier(*txn.SupplierID); supplier != nil {
		supplier.Outstanding += txn.Amount
	}
	invoices := selectSupplierInvoices(b.SupplierInvoicesBySupplier(*txn.SupplierID), txn.SupplierInvoiceIDs)
	targets := make([]cashflow.Target, len(invoices))
	for i, inv := range invoices {
		targets[i] = cashflow.Target{
			InvoiceID: inv.ID,
			CreatedAt: inv.CreatedAt,
			Seq:       inv.ID,
			Debt:      inv.NettAmount,
			Paid:      inv.PaidAmount,
		}
	}
	cashflow.Allocate(txn.Amount, targets)
	for _, target := range targets {
		b.SupplierInvoice(target.InvoiceID).PaidAmount = target.Paid
	}
}

// applyAdvancePayment folds an advance into the one supplier invoice
// whose entries cover all of the advance's entries. Until such an
// invoice exists the money only moves the supplier's outstanding,
// leaving the supplier prepaid.
func applyAdvancePayment(b *Book, txn *cashflow.Transaction) {
	if txn.SupplierID == nil {
		return
	}
	if supplier := b.Supplier(*txn.SupplierID); supplier != nil {
		supplier.Outstanding += txn.Amount
	}
	inv := b.SupplierInvoiceCoveringEntries(*txn.SupplierID, txn.EntryIDs)
	if inv == nil {
		return
	}
	share := math.Min(txn.Amount, inv.NettAmount-inv.PaidAmount)
	if share <= 0 {
		return
	}
	inv.AdvancePaid += share
	inv.PaidAmount += share
}

// selectInvoices narrows the party's invoices to the explicitly
// targeted ones; an empty target list means auto-select all, in book
// (oldest-first) order.
func selectInvoices(invoices []*billing.Invoice, ids []int64) []*billing.Invoice {
	if len(ids) == 0 {
		return invoices
	}
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []*billing.Invoice
	for _, inv := range invoices {
		if wanted[inv.ID] {
			out = append(out, inv)
		}
	}
	return out
}

func selectSupplierInvoices(invoices []*billing.SupplierInvoice, ids []int64) []*billing.SupplierInvoice {
	if len(ids) == 0 {
		return invoices
	}
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []*billing.SupplierInvoice
	for _, inv := range invoices {
		if wanted[inv.ID] {
			out = append(out, inv)
		}
	}
	return out
}

func deriveStatuses(b *Book) {
	for _, inv := range b.SupplierInvoices {
		inv.FinalPayable = round2(inv.NettAmount - inv.AdvancePaid)
		inv.Status = billing.ResolveSupplierInvoiceStatus(inv.PaidAmount, inv.NettAmount)
	}
	for _, e := range b.Entries {
		e.Status = entries.ResolveStatus(e.Status, e.Items)
	}
}

func roundOutstandings(b *Book) {
	for _, buyer := range b.Buyers {
		buyer.Outstanding = round2(buyer.Outstanding)
	}
	for _, supplier := range b.Suppliers {
		supplier.Outstanding = round2(supplier.Outstanding)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
