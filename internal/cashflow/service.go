package cashflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mandi-erp/mandi-erp/internal/billing"
	"github.com/mandi-erp/mandi-erp/internal/entries"
	"github.com/mandi-erp/mandi-erp/internal/masterdata"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// paymentTolerance absorbs float drift when capping a payment against
// the open balance.
const paymentTolerance = 0.01

// Repository defines transaction data access.
type Repository interface {
	CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, error)
}

// BillingReader is the slice of the billing module payments validate against.
type BillingReader interface {
	ListInvoices(ctx context.Context, filter billing.ListFilter) ([]billing.Invoice, error)
	ListSupplierInvoices(ctx context.Context, filter billing.ListFilter) ([]billing.SupplierInvoice, error)
}

// EntryReader resolves the entries an advance payment covers.
type EntryReader interface {
	GetEntry(ctx context.Context, id int64) (entries.Entry, error)
}

// Service records cash movements and validates them against the open
// balances kept by the billing module.
type Service struct {
	repo       Repository
	masterdata *masterdata.Service
	billing    BillingReader
	entries    EntryReader
	reconciler shared.Reconciler
}

// NewService builds a Service instance.
func NewService(repo Repository, md *masterdata.Service, bill BillingReader, ent EntryReader) *Service {
	return &Service{repo: repo, masterdata: md, billing: bill, entries: ent}
}

// SetReconciler injects the post-mutation reconciliation hook.
func (s *Service) SetReconciler(r shared.Reconciler) {
	s.reconciler = r
}

func (s *Service) reconcile(ctx context.Context) error {
	if s.reconciler == nil {
		return nil
	}
	return s.reconciler.Reconcile(ctx)
}

// RecordBuyerPayment books money received from a buyer. The payment may
// not exceed the buyer's total open invoice balance; allocation across
// invoices happens oldest-first during reconciliation.
func (s *Service) RecordBuyerPayment(ctx context.Context, input BuyerPaymentInput) (Transaction, error) {
	if input.Amount <= 0 {
		return Transaction{}, shared.Validationf("amount must be positive")
	}
	if input.Discount < 0 {
		return Transaction{}, shared.Validationf("discount must not be negative")
	}
	if _, err := s.masterdata.GetBuyer(ctx, masterdata.RefByID(input.BuyerID)); err != nil {
		return Transaction{}, err
	}

	invoices, err := s.billing.ListInvoices(ctx, billing.ListFilter{BuyerID: input.BuyerID})
	if err != nil {
		return Transaction{}, err
	}
	var open float64
	known := make(map[int64]bool, len(invoices))
	for _, inv := range invoices {
		known[inv.ID] = true
		if balance := inv.Debt() - inv.PaidAmount; balance > paymentTolerance {
			open += balance
		}
	}
	for _, invoiceID := range input.InvoiceIDs {
		if !known[invoiceID] {
			return Transaction{}, shared.Validationf("invoice %d does not belong to buyer %d", invoiceID, input.BuyerID)
		}
	}
	if input.Amount+input.Discount > open+paymentTolerance {
		return Transaction{}, shared.Validationf("payment %.2f with discount %.2f exceeds open balance %.2f", input.Amount, input.Discount, open)
	}

	txn := Transaction{
		Type:        TypeIncome,
		Category:    CategoryBuyerPayment,
		Amount:      input.Amount,
		Discount:    input.Discount,
		Method:      input.Method,
		Reference:   input.Reference,
		Description: input.Description,
		BuyerID:     &input.BuyerID,
		Date:        input.Date,
		InvoiceIDs:  input.InvoiceIDs,
	}
	return s.create(ctx, txn)
}

// RecordSupplierPayment books money paid out to a supplier. Advance
// payments precede any supplier invoice and link to the delivery
// entries instead; regular payments are capped by the open payable.
func (s *Service) RecordSupplierPayment(ctx context.Context, input SupplierPaymentInput) (Transaction, error) {
	if input.Amount <= 0 {
		return Transaction{}, shared.Validationf("amount must be positive")
	}
	if _, err := s.masterdata.GetSupplier(ctx, masterdata.RefByID(input.SupplierID)); err != nil {
		return Transaction{}, err
	}

	txn := Transaction{
		Type:        TypeExpense,
		Amount:      input.Amount,
		Method:      input.Method,
		Reference:   input.Reference,
		Description: input.Description,
		SupplierID:  &input.SupplierID,
		Date:        input.Date,
	}

	if input.Advance {
		txn.Category = CategoryAdvancePayment
		for _, entryID := range input.EntryIDs {
			entry, err := s.entries.GetEntry(ctx, entryID)
			if err != nil {
				return Transaction{}, err
			}
			if entry.SupplierID != input.SupplierID {
				return Transaction{}, shared.Validationf("entry %s belongs to a different supplier", entry.SerialNumber)
			}
		}
		txn.EntryIDs = input.EntryIDs
		return s.create(ctx, txn)
	}

	txn.Category = CategorySupplierPayment
	invoices, err := s.billing.ListSupplierInvoices(ctx, billing.ListFilter{SupplierID: input.SupplierID})
	if err != nil {
		return Transaction{}, err
	}
	var open float64
	known := make(map[int64]bool, len(invoices))
	for _, inv := range invoices {
		known[inv.ID] = true
		if balance := inv.NettAmount - inv.PaidAmount; balance > paymentTolerance {
			open += balance
		}
	}
	for _, invoiceID := range input.SupplierInvoiceIDs {
		if !known[invoiceID] {
			return Transaction{}, shared.Validationf("supplier invoice %d does not belong to supplier %d", invoiceID, input.SupplierID)
		}
	}
	if input.Amount > open+paymentTolerance {
		return Transaction{}, shared.Validationf("payment %.2f exceeds open payable %.2f", input.Amount, open)
	}
	txn.SupplierInvoiceIDs = input.SupplierInvoiceIDs
	return s.create(ctx, txn)
}

// RecordExpense books a general business expense outside the invoice
// cycle, e.g. rent or fuel.
func (s *Service) RecordExpense(ctx context.Context, input ExpenseInput) (Transaction, error) {
	if input.Amount <= 0 {
		return Transaction{}, shared.Validationf("amount must be positive")
	}
	txn := Transaction{
		Type:        TypeExpense,
		Category:    CategoryOther,
		Amount:      input.Amount,
		Method:      input.Method,
		Reference:   input.Reference,
		Description: input.Description,
		Date:        input.Date,
	}
	return s.create(ctx, txn)
}

func (s *Service) create(ctx context.Context, txn Transaction) (Transaction, error) {
	if txn.Reference == "" {
		txn.Reference = uuid.NewString()
	}
	if txn.Date.IsZero() {
		txn.Date = time.Now()
	}
	if txn.Method == "" {
		txn.Method = MethodCash
	}
	created, err := s.repo.CreateTransaction(ctx, txn)
	if err != nil {
		return Transaction{}, err
	}
	if err := s.reconcile(ctx); err != nil {
		return Transaction{}, err
	}
	return created, nil
}

// DeleteTransaction removes a cash movement; balances are rebuilt from
// the remaining transactions on the next reconciliation.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := s.repo.GetTransaction(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	return s.reconcile(ctx)
}

func (s *Service) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}
