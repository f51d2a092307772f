package ledger

import (
	"context"
	"sync"

	"github.com/mandi-erp/mandi-erp/internal/entries"
)

// MemoryStore keeps the book in process memory. Used by tests and by
// deployments running without PostgreSQL.
type MemoryStore struct {
	mu   sync.Mutex
	book *Book
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore wraps an existing book.
func NewMemoryStore(book *Book) *MemoryStore {
	return &MemoryStore{book: book}
}

func (s *MemoryStore) WithBook(ctx context.Context, fn func(b *Book) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.book)
}

// ReadBook runs fn over a deep copy, so scans and reports never leak
// writes into the shared book.
func (s *MemoryStore) ReadBook(ctx context.Context, fn func(b *Book) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(copyBook(s.book))
}

func copyBook(b *Book) *Book {
	out := &Book{}
	for _, buyer := range b.Buyers {
		c := *buyer
		out.Buyers = append(out.Buyers, &c)
	}
	for _, supplier := range b.Suppliers {
		c := *supplier
		out.Suppliers = append(out.Suppliers, &c)
	}
	for _, e := range b.Entries {
		c := *e
		c.Items = append([]entries.Item(nil), e.Items...)
		out.Entries = append(out.Entries, &c)
	}
	for _, inv := range b.Invoices {
		c := *inv
		out.Invoices = append(out.Invoices, &c)
	}
	for _, inv := range b.SupplierInvoices {
		c := *inv
		c.EntryIDs = append([]int64(nil), inv.EntryIDs...)
		out.SupplierInvoices = append(out.SupplierInvoices, &c)
	}
	for _, txn := range b.Transactions {
		c := *txn
		c.InvoiceIDs = append([]int64(nil), txn.InvoiceIDs...)
		c.SupplierInvoiceIDs = append([]int64(nil), txn.SupplierInvoiceIDs...)
		c.EntryIDs = append([]int64(nil), txn.EntryIDs...)
		out.Transactions = append(out.Transactions, &c)
	}
	return out
}
