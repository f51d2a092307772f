package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/mandi-erp/mandi-erp/internal/cashflow"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// Store loads the book and runs fn over it under the single-writer book
// lock. WithBook persists the derived state fn wrote; ReadBook discards
// it, for reports and integrity scans.
type Store interface {
	WithBook(ctx context.Context, fn func(b *Book) error) error
	ReadBook(ctx context.Context, fn func(b *Book) error) error
}

// Service is the balance reconciler. Mutating modules call Reconcile
// after every write; the whole book is recomputed each time rather than
// patched incrementally.
type Service struct {
	logger *slog.Logger
	store  Store
}

var _ shared.Reconciler = (*Service)(nil)

// NewService builds a Service instance.
func NewService(logger *slog.Logger, store Store) *Service {
	return &Service{logger: logger, store: store}
}

// Reconcile recomputes all derived state from the recorded facts.
func (s *Service) Reconcile(ctx context.Context) error {
	err := s.store.WithBook(ctx, func(b *Book) error {
		Recalculate(b)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	s.logger.Debug("book reconciled")
	return nil
}

// CheckIntegrity recomputes the book in memory and reports both drift
// between stored and recomputed figures and invariant violations.
// Nothing is written back; repairing is Reconcile's job.
func (s *Service) CheckIntegrity(ctx context.Context) ([]string, error) {
	var issues []string
	err := s.store.ReadBook(ctx, func(b *Book) error {
		stored := snapshotDerived(b)
		Recalculate(b)
		issues = append(issues, diffDerived(stored, b)...)
		issues = append(issues, verify(b)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("integrity check: %w", err)
	}
	return issues, nil
}

type derivedSnapshot struct {
	invoicePaid     map[int64]float64
	supplierInvPaid map[int64]float64
	buyerOut        map[int64]float64
	supplierOut     map[int64]float64
}

func snapshotDerived(b *Book) derivedSnapshot {
	snap := derivedSnapshot{
		invoicePaid:     make(map[int64]float64, len(b.Invoices)),
		supplierInvPaid: make(map[int64]float64, len(b.SupplierInvoices)),
		buyerOut:        make(map[int64]float64, len(b.Buyers)),
		supplierOut:     make(map[int64]float64, len(b.Suppliers)),
	}
	for _, inv := range b.Invoices {
		snap.invoicePaid[inv.ID] = inv.PaidAmount
	}
	for _, inv := range b.SupplierInvoices {
		snap.supplierInvPaid[inv.ID] = inv.PaidAmount
	}
	for _, buyer := range b.Buyers {
		snap.buyerOut[buyer.ID] = buyer.Outstanding
	}
	for _, supplier := range b.Suppliers {
		snap.supplierOut[supplier.ID] = supplier.Outstanding
	}
	return snap
}

// diffDerived flags stored figures that no longer match a fresh
// recompute, i.e. a reconciliation was missed somewhere.
func diffDerived(stored derivedSnapshot, b *Book) []string {
	var issues []string
	for _, inv := range b.Invoices {
		if was := stored.invoicePaid[inv.ID]; math.Abs(was-inv.PaidAmount) > 0.01 {
			issues = append(issues, fmt.Sprintf("invoice %s: stored paid %.2f, recomputed %.2f",
				inv.InvoiceNumber, was, inv.PaidAmount))
		}
	}
	for _, inv := range b.SupplierInvoices {
		if was := stored.supplierInvPaid[inv.ID]; math.Abs(was-inv.PaidAmount) > 0.01 {
			issues = append(issues, fmt.Sprintf("supplier invoice %s: stored paid %.2f, recomputed %.2f",
				inv.InvoiceNumber, was, inv.PaidAmount))
		}
	}
	for _, buyer := range b.Buyers {
		if was := stored.buyerOut[buyer.ID]; math.Abs(was-buyer.Outstanding) > 0.01 {
			issues = append(issues, fmt.Sprintf("buyer %d: stored outstanding %.2f, recomputed %.2f",
				buyer.ID, was, buyer.Outstanding))
		}
	}
	for _, supplier := range b.Suppliers {
		if was := stored.supplierOut[supplier.ID]; math.Abs(was-supplier.Outstanding) > 0.01 {
			issues = append(issues, fmt.Sprintf("supplier %d: stored outstanding %.2f, recomputed %.2f",
				supplier.ID, was, supplier.Outstanding))
		}
	}
	return issues
}

// verify cross-checks a recomputed book against its own invariants: no
// invoice paid past its debt, and every outstanding equal to the
// invoiced total minus payments for that party.
func verify(b *Book) []string {
	var issues []string
	for _, inv := range b.Invoices {
		if inv.PaidAmount > inv.Debt()+0.01 {
			issues = append(issues, fmt.Sprintf("invoice %s: paid %.2f exceeds debt %.2f",
				inv.InvoiceNumber, inv.PaidAmount, inv.Debt()))
		}
	}
	for _, inv := range b.SupplierInvoices {
		if inv.PaidAmount > inv.NettAmount+0.01 {
			issues = append(issues, fmt.Sprintf("supplier invoice %s: paid %.2f exceeds nett %.2f",
				inv.InvoiceNumber, inv.PaidAmount, inv.NettAmount))
		}
		if inv.AdvancePaid > inv.PaidAmount+0.01 {
			issues = append(issues, fmt.Sprintf("supplier invoice %s: advance %.2f exceeds paid %.2f",
				inv.InvoiceNumber, inv.AdvancePaid, inv.PaidAmount))
		}
	}
	for _, buyer := range b.Buyers {
		var expected float64
		for _, inv := range b.InvoicesByBuyer(buyer.ID) {
			expected += inv.Debt()
		}
		for _, txn := range b.Transactions {
			if txn.Category == cashflow.CategoryBuyerPayment && txn.BuyerID != nil && *txn.BuyerID == buyer.ID {
				expected -= txn.Amount + txn.Discount
			}
		}
		if math.Abs(buyer.Outstanding-round2(expected)) > 0.01 {
			issues = append(issues, fmt.Sprintf("buyer %d: outstanding %.2f, expected %.2f from invoices and payments",
				buyer.ID, buyer.Outstanding, expected))
		}
	}
	for _, supplier := range b.Suppliers {
		var expected float64
		for _, inv := range b.SupplierInvoicesBySupplier(supplier.ID) {
			expected -= inv.NettAmount
		}
		for _, txn := range b.Transactions {
			if txn.SupplierID == nil || *txn.SupplierID != supplier.ID {
				continue
			}
			if txn.Category == cashflow.CategorySupplierPayment || txn.Category == cashflow.CategoryAdvancePayment {
				expected += txn.Amount
			}
		}
		if math.Abs(supplier.Outstanding-round2(expected)) > 0.01 {
			issues = append(issues, fmt.Sprintf("supplier %d: outstanding %.2f, expected %.2f from invoices and payments",
				supplier.ID, supplier.Outstanding, expected))
		}
	}
	return issues
}
