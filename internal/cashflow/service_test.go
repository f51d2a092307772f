package cashflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mandi-erp/mandi-erp/internal/billing"
	"github.com/mandi-erp/mandi-erp/internal/entries"
	"github.com/mandi-erp/mandi-erp/internal/masterdata"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

type memoryTransactionRepo struct {
	transactions map[int64]Transaction
	nextID       int64
}

func newMemoryTransactionRepo() *memoryTransactionRepo {
	return &memoryTransactionRepo{transactions: make(map[int64]Transaction)}
}

func (r *memoryTransactionRepo) CreateTransaction(ctx context.Context, txn Transaction) (Transaction, error) {
	r.nextID++
	txn.ID = r.nextID
	txn.CreatedAt = time.Now()
	r.transactions[txn.ID] = txn
	return txn, nil
}

func (r *memoryTransactionRepo) DeleteTransaction(ctx context.Context, id int64) error {
	if _, ok := r.transactions[id]; !ok {
		return shared.NotFoundf("transaction %d", id)
	}
	delete(r.transactions, id)
	return nil
}

func (r *memoryTransactionRepo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	txn, ok := r.transactions[id]
	if !ok {
		return Transaction{}, shared.NotFoundf("transaction %d", id)
	}
	return txn, nil
}

func (r *memoryTransactionRepo) ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	var out []Transaction
	for _, txn := range r.transactions {
		if filter.Type != "" && txn.Type != filter.Type {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

// fakeBillingReader serves canned invoices for balance validation.
type fakeBillingReader struct {
	invoices         []billing.Invoice
	supplierInvoices []billing.SupplierInvoice
}

func (f *fakeBillingReader) ListInvoices(ctx context.Context, filter billing.ListFilter) ([]billing.Invoice, error) {
	var out []billing.Invoice
	for _, inv := range f.invoices {
		if filter.BuyerID != 0 && inv.BuyerID != filter.BuyerID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (f *fakeBillingReader) ListSupplierInvoices(ctx context.Context, filter billing.ListFilter) ([]billing.SupplierInvoice, error) {
	var out []billing.SupplierInvoice
	for _, inv := range f.supplierInvoices {
		if filter.SupplierID != 0 && inv.SupplierID != filter.SupplierID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

type fakeEntryReader struct {
	entries map[int64]entries.Entry
}

func (f *fakeEntryReader) GetEntry(ctx context.Context, id int64) (entries.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return entries.Entry{}, shared.NotFoundf("entry %d", id)
	}
	return e, nil
}

type cashflowFixture struct {
	svc        *Service
	repo       *memoryTransactionRepo
	bill       *fakeBillingReader
	ent        *fakeEntryReader
	buyerID    int64
	supplierID int64
}

func newCashflowFixture(t *testing.T) *cashflowFixture {
	t.Helper()
	ctx := context.Background()
	md := masterdata.NewService(masterdata.NewMemoryRepository())
	buyer, err := md.CreateBuyer(ctx, masterdata.BuyerInput{Name: "Ravi Traders"})
	require.NoError(t, err)
	supplier, err := md.CreateSupplier(ctx, masterdata.SupplierInput{Name: "Green Farms"})
	require.NoError(t, err)

	repo := newMemoryTransactionRepo()
	bill := &fakeBillingReader{}
	ent := &fakeEntryReader{entries: make(map[int64]entries.Entry)}
	return &cashflowFixture{
		svc:        NewService(repo, md, bill, ent),
		repo:       repo,
		bill:       bill,
		ent:        ent,
		buyerID:    buyer.ID,
		supplierID: supplier.ID,
	}
}

func TestRecordBuyerPaymentCapsAtOpenBalance(t *testing.T) {
	f := newCashflowFixture(t)
	ctx := context.Background()
	f.bill.invoices = []billing.Invoice{
		{ID: 1, BuyerID: f.buyerID, NettAmount: 500, PaidAmount: 0},
		{ID: 2, BuyerID: f.buyerID, NettAmount: 300, PaidAmount: 100},
	}

	// open balance is 700; more than that is rejected
	_, err := f.svc.RecordBuyerPayment(ctx, BuyerPaymentInput{BuyerID: f.buyerID, Amount: 700.50})
	require.ErrorIs(t, err, shared.ErrValidation)

	txn, err := f.svc.RecordBuyerPayment(ctx, BuyerPaymentInput{BuyerID: f.buyerID, Amount: 700})
	require.NoError(t, err)
	require.Equal(t, TypeIncome, txn.Type)
	require.Equal(t, CategoryBuyerPayment, txn.Category)
	require.Empty(t, txn.InvoiceIDs)   // untargeted, allocation is oldest-first
	require.NotEmpty(t, txn.Reference) // generated when omitted
	require.Equal(t, MethodCash, txn.Method)
}

func TestRecordBuyerPaymentWithTargetedInvoices(t *testing.T) {
	f := newCashflowFixture(t)
	ctx := context.Background()
	f.bill.invoices = []billing.Invoice{
		{ID: 1, BuyerID: f.buyerID, NettAmount: 500},
		{ID: 2, BuyerID: f.buyerID, NettAmount: 300},
	}

	// invoice 9 belongs to nobody here
	_, err := f.svc.RecordBuyerPayment(ctx, BuyerPaymentInput{
		BuyerID: f.buyerID, Amount: 300, InvoiceIDs: []int64{9},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	txn, err := f.svc.RecordBuyerPayment(ctx, BuyerPaymentInput{
		BuyerID: f.buyerID, Amount: 300, InvoiceIDs: []int64{2},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{2}, txn.InvoiceIDs)
}

func TestRecordBuyerPaymentRejectsNonPositive(t *testing.T) {
	f := newCashflowFixture(t)
	_, err := f.svc.RecordBuyerPayment(context.Background(), BuyerPaymentInput{BuyerID: f.buyerID, Amount: 0})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordBuyerPaymentHonoursDiscount(t *testing.T) {
	f := newCashflowFixture(t)
	ctx := context.Background()
	f.bill.invoices = []billing.Invoice{
		{ID: 1, BuyerID: f.buyerID, NettAmount: 500, Discount: 100},
	}

	// the open balance is the debt after discount
	_, err := f.svc.RecordBuyerPayment(ctx, BuyerPaymentInput{BuyerID: f.buyerID, Amount: 450})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.RecordBuyerPayment(ctx, BuyerPaymentInput{BuyerID: f.buyerID, Amount: 400})
	require.NoError(t, err)
}

func TestRecordBuyerPaymentWithSettlementDiscount(t *testing.T) {
	f := newCashflowFixture(t)
	ctx := context.Background()
	f.bill.invoices = []billing.Invoice{
		{ID: 1, BuyerID: f.buyerID, NettAmount: 1000},
	}

	// amount plus forgiven discount may not exceed the open balance
	_, err := f.svc.RecordBuyerPayment(ctx, BuyerPaymentInput{BuyerID: f.buyerID, Amount: 950, Discount: 100})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.RecordBuyerPayment(ctx, BuyerPaymentInput{BuyerID: f.buyerID, Amount: 900, Discount: -5})
	require.ErrorIs(t, err, shared.ErrValidation)

	txn, err := f.svc.RecordBuyerPayment(ctx, BuyerPaymentInput{BuyerID: f.buyerID, Amount: 900, Discount: 100})
	require.NoError(t, err)
	require.Equal(t, 900.0, txn.Amount)
	require.Equal(t, 100.0, txn.Discount)
}

func TestRecordSupplierPaymentCapsAtPayable(t *testing.T) {
	f := newCashflowFixture(t)
	ctx := context.Background()
	f.bill.supplierInvoices = []billing.SupplierInvoice{
		{ID: 7, SupplierID: f.supplierID, NettAmount: 1000, PaidAmount: 400},
	}

	_, err := f.svc.RecordSupplierPayment(ctx, SupplierPaymentInput{SupplierID: f.supplierID, Amount: 601})
	require.ErrorIs(t, err, shared.ErrValidation)

	txn, err := f.svc.RecordSupplierPayment(ctx, SupplierPaymentInput{SupplierID: f.supplierID, Amount: 600})
	require.NoError(t, err)
	require.Equal(t, TypeExpense, txn.Type)
	require.Equal(t, CategorySupplierPayment, txn.Category)
	require.Empty(t, txn.SupplierInvoiceIDs)
}

func TestRecordSupplierPaymentWithTargetedInvoices(t *testing.T) {
	f := newCashflowFixture(t)
	ctx := context.Background()
	f.bill.supplierInvoices = []billing.SupplierInvoice{
		{ID: 7, SupplierID: f.supplierID, NettAmount: 1000},
		{ID: 8, SupplierID: f.supplierID, NettAmount: 400},
	}

	_, err := f.svc.RecordSupplierPayment(ctx, SupplierPaymentInput{
		SupplierID: f.supplierID, Amount: 400, SupplierInvoiceIDs: []int64{99},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	txn, err := f.svc.RecordSupplierPayment(ctx, SupplierPaymentInput{
		SupplierID: f.supplierID, Amount: 400, SupplierInvoiceIDs: []int64{8},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{8}, txn.SupplierInvoiceIDs)
}

func TestRecordAdvancePaymentBypassesPayableCap(t *testing.T) {
	f := newCashflowFixture(t)
	ctx := context.Background()
	f.ent.entries[3] = entries.Entry{ID: 3, SupplierID: f.supplierID, SerialNumber: "0412-001"}

	// no supplier invoice exists yet, advance is still allowed
	txn, err := f.svc.RecordSupplierPayment(ctx, SupplierPaymentInput{
		SupplierID: f.supplierID,
		Amount:     500,
		Advance:    true,
		EntryIDs:   []int64{3},
	})
	require.NoError(t, err)
	require.Equal(t, CategoryAdvancePayment, txn.Category)
	require.Equal(t, []int64{3}, txn.EntryIDs)
}

func TestRecordAdvancePaymentChecksEntryOwnership(t *testing.T) {
	f := newCashflowFixture(t)
	ctx := context.Background()
	f.ent.entries[3] = entries.Entry{ID: 3, SupplierID: f.supplierID + 99, SerialNumber: "0412-001"}

	_, err := f.svc.RecordSupplierPayment(ctx, SupplierPaymentInput{
		SupplierID: f.supplierID,
		Amount:     500,
		Advance:    true,
		EntryIDs:   []int64{3},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordExpense(t *testing.T) {
	f := newCashflowFixture(t)
	txn, err := f.svc.RecordExpense(context.Background(), ExpenseInput{
		Amount:      250,
		Method:      MethodBank,
		Description: "shop rent",
	})
	require.NoError(t, err)
	require.Equal(t, TypeExpense, txn.Type)
	require.Equal(t, CategoryOther, txn.Category)
	require.False(t, txn.Date.IsZero())
}

func TestDeleteTransaction(t *testing.T) {
	f := newCashflowFixture(t)
	ctx := context.Background()
	txn, err := f.svc.RecordExpense(ctx, ExpenseInput{Amount: 100})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTransaction(ctx, txn.ID))
	err = f.svc.DeleteTransaction(ctx, txn.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
