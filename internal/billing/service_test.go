package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mandi-erp/mandi-erp/internal/entries"
	"github.com/mandi-erp/mandi-erp/internal/masterdata"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

type memoryBillingRepo struct {
	entries          map[int64]*entries.Entry
	invoices         map[int64]Invoice
	supplierInvoices map[int64]SupplierInvoice
	nextID           int64
}

func newMemoryBillingRepo() *memoryBillingRepo {
	return &memoryBillingRepo{
		entries:          make(map[int64]*entries.Entry),
		invoices:         make(map[int64]Invoice),
		supplierInvoices: make(map[int64]SupplierInvoice),
	}
}

func (r *memoryBillingRepo) addEntry(e entries.Entry) *entries.Entry {
	r.nextID++
	e.ID = r.nextID
	for i := range e.Items {
		r.nextID++
		e.Items[i].ID = r.nextID
		e.Items[i].EntryID = e.ID
	}
	r.entries[e.ID] = &e
	return &e
}

func (r *memoryBillingRepo) findItem(id int64) *entries.Item {
	for _, e := range r.entries {
		for i := range e.Items {
			if e.Items[i].ID == id {
				return &e.Items[i]
			}
		}
	}
	return nil
}

func (r *memoryBillingRepo) GetEntryItems(ctx context.Context, ids []int64) ([]entries.Item, error) {
	var out []entries.Item
	for _, id := range ids {
		if it := r.findItem(id); it != nil {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *memoryBillingRepo) GetEntriesWithItems(ctx context.Context, ids []int64) ([]entries.Entry, error) {
	var out []entries.Entry
	for _, id := range ids {
		if e, ok := r.entries[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memoryBillingRepo) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	r.nextID++
	inv.ID = r.nextID
	inv.InvoiceNumber = fmt.Sprintf("BI-20260412-%03d", len(r.invoices)+1)
	inv.CreatedAt = time.Now()
	for i := range inv.Items {
		inv.Items[i].InvoiceID = inv.ID
		if it := r.findItem(inv.Items[i].EntryItemID); it != nil {
			it.InvoiceID = &inv.ID
		}
	}
	r.invoices[inv.ID] = inv
	return inv, nil
}

func (r *memoryBillingRepo) UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	stored, ok := r.invoices[inv.ID]
	if !ok {
		return Invoice{}, shared.NotFoundf("invoice %d", inv.ID)
	}
	stored.Wages = inv.Wages
	stored.Adjustments = inv.Adjustments
	stored.Discount = inv.Discount
	stored.NettAmount = inv.NettAmount
	r.invoices[inv.ID] = stored
	return stored, nil
}

func (r *memoryBillingRepo) DeleteInvoice(ctx context.Context, id int64) error {
	inv, ok := r.invoices[id]
	if !ok {
		return shared.NotFoundf("invoice %d", id)
	}
	for _, line := range inv.Items {
		if it := r.findItem(line.EntryItemID); it != nil {
			it.InvoiceID = nil
		}
	}
	delete(r.invoices, id)
	return nil
}

func (r *memoryBillingRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, shared.NotFoundf("invoice %d", id)
	}
	return inv, nil
}

func (r *memoryBillingRepo) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if filter.BuyerID != 0 && inv.BuyerID != filter.BuyerID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (r *memoryBillingRepo) CreateSupplierInvoice(ctx context.Context, inv SupplierInvoice) (SupplierInvoice, error) {
	r.nextID++
	inv.ID = r.nextID
	inv.InvoiceNumber = fmt.Sprintf("SI-20260412-%03d", len(r.supplierInvoices)+1)
	inv.CreatedAt = time.Now()
	for _, entryID := range inv.EntryIDs {
		e := r.entries[entryID]
		for i := range e.Items {
			e.Items[i].SupplierInvoiceID = &inv.ID
		}
	}
	r.supplierInvoices[inv.ID] = inv
	return inv, nil
}

func (r *memoryBillingRepo) UpdateSupplierInvoice(ctx context.Context, inv SupplierInvoice) (SupplierInvoice, error) {
	stored, ok := r.supplierInvoices[inv.ID]
	if !ok {
		return SupplierInvoice{}, shared.NotFoundf("supplier invoice %d", inv.ID)
	}
	stored.CommissionRate = inv.CommissionRate
	stored.CommissionAmount = inv.CommissionAmount
	stored.Wages = inv.Wages
	stored.Adjustments = inv.Adjustments
	stored.NettAmount = inv.NettAmount
	r.supplierInvoices[inv.ID] = stored
	return stored, nil
}

func (r *memoryBillingRepo) DeleteSupplierInvoice(ctx context.Context, id int64) error {
	if _, ok := r.supplierInvoices[id]; !ok {
		return shared.NotFoundf("supplier invoice %d", id)
	}
	for _, e := range r.entries {
		for i := range e.Items {
			if e.Items[i].SupplierInvoiceID != nil && *e.Items[i].SupplierInvoiceID == id {
				e.Items[i].SupplierInvoiceID = nil
			}
		}
	}
	delete(r.supplierInvoices, id)
	return nil
}

func (r *memoryBillingRepo) GetSupplierInvoice(ctx context.Context, id int64) (SupplierInvoice, error) {
	inv, ok := r.supplierInvoices[id]
	if !ok {
		return SupplierInvoice{}, shared.NotFoundf("supplier invoice %d", id)
	}
	return inv, nil
}

func (r *memoryBillingRepo) ListSupplierInvoices(ctx context.Context, filter ListFilter) ([]SupplierInvoice, error) {
	var out []SupplierInvoice
	for _, inv := range r.supplierInvoices {
		if filter.SupplierID != 0 && inv.SupplierID != filter.SupplierID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

type billingFixture struct {
	svc        *Service
	repo       *memoryBillingRepo
	supplierID int64
	buyerID    int64
	productID  int64
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	ctx := context.Background()
	md := masterdata.NewService(masterdata.NewMemoryRepository())
	supplier, err := md.CreateSupplier(ctx, masterdata.SupplierInput{Name: "Green Farms"})
	require.NoError(t, err)
	buyer, err := md.CreateBuyer(ctx, masterdata.BuyerInput{Name: "Ravi Traders"})
	require.NoError(t, err)
	product, err := md.CreateProduct(ctx, masterdata.ProductInput{Name: "Alphonso"})
	require.NoError(t, err)

	repo := newMemoryBillingRepo()
	return &billingFixture{
		svc:        NewService(repo, md),
		repo:       repo,
		supplierID: supplier.ID,
		buyerID:    buyer.ID,
		productID:  product.ID,
	}
}

// soldEntry registers an entry whose items were all auctioned off to the
// fixture's buyer at the given rate.
func (f *billingFixture) soldEntry(rate float64, quantities ...float64) *entries.Entry {
	e := entries.Entry{SupplierID: f.supplierID, Status: entries.StatusDraft}
	for i, qty := range quantities {
		e.Items = append(e.Items, entries.Item{
			SubSerialNumber: i + 1,
			ProductID:       f.productID,
			Quantity:        qty,
			NettWeight:      qty * 45, // light lots, wage-eligible
			RatePerQuantity: ptr(rate),
			BuyerID:         ptr(f.buyerID),
			SubTotal:        qty * rate,
		})
		e.TotalQuantities += qty
		e.TotalAmount += qty * rate
	}
	return f.repo.addEntry(e)
}

func TestCreateInvoiceComputesNett(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	entry := f.soldEntry(100, 10, 5)

	inv, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		BuyerID:      f.buyerID,
		EntryItemIDs: []int64{entry.Items[0].ID, entry.Items[1].ID},
		Wages:        50,
		Discount:     25,
	})
	require.NoError(t, err)
	require.Equal(t, 1500.0, inv.TotalAmount)
	require.Equal(t, 15.0, inv.TotalQuantities)
	require.Equal(t, 1550.0, inv.NettAmount)
	require.Equal(t, 1525.0, inv.Debt())
	require.Len(t, inv.Items, 2)
	require.Equal(t, "Alphonso", inv.Items[0].ProductName)

	// items are now linked
	require.NotNil(t, f.repo.findItem(entry.Items[0].ID).InvoiceID)
}

func TestCreateInvoiceRejectsBadItems(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	unsold := f.repo.addEntry(entries.Entry{
		SupplierID: f.supplierID,
		Items:      []entries.Item{{SubSerialNumber: 1, ProductID: f.productID, Quantity: 5}},
	})
	_, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		BuyerID: f.buyerID, EntryItemIDs: []int64{unsold.Items[0].ID},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	entry := f.soldEntry(100, 10)
	_, err = f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		BuyerID: f.buyerID, EntryItemIDs: []int64{entry.Items[0].ID, 99999},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)

	// wrong buyer
	otherBuyer := f.buyerID + 1000
	entry.Items[0].BuyerID = &otherBuyer
	_, err = f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		BuyerID: f.buyerID, EntryItemIDs: []int64{entry.Items[0].ID},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	entry.Items[0].BuyerID = &f.buyerID

	// double invoicing
	_, err = f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		BuyerID: f.buyerID, EntryItemIDs: []int64{entry.Items[0].ID},
	})
	require.NoError(t, err)
	_, err = f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		BuyerID: f.buyerID, EntryItemIDs: []int64{entry.Items[0].ID},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateInvoiceChecksCallerNett(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	entry := f.soldEntry(100, 10)

	_, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		BuyerID:      f.buyerID,
		EntryItemIDs: []int64{entry.Items[0].ID},
		NettAmount:   ptr(999.0), // computed value is 1000
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	inv, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		BuyerID:      f.buyerID,
		EntryItemIDs: []int64{entry.Items[0].ID},
		NettAmount:   ptr(1000.004), // within tolerance
	})
	require.NoError(t, err)
	require.Equal(t, 1000.0, inv.NettAmount)
}

func TestDeleteInvoiceUnlinksItems(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	entry := f.soldEntry(100, 10)

	inv, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		BuyerID: f.buyerID, EntryItemIDs: []int64{entry.Items[0].ID},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteInvoice(ctx, inv.ID))
	require.Nil(t, f.repo.findItem(entry.Items[0].ID).InvoiceID)

	err = f.svc.DeleteInvoice(ctx, inv.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateSupplierInvoiceAggregatesAndStamps(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	first := f.soldEntry(100, 10)
	second := f.soldEntry(100, 10)

	inv, err := f.svc.CreateSupplierInvoice(ctx, CreateSupplierInvoiceInput{
		SupplierID:     f.supplierID,
		EntryIDs:       []int64{first.ID, second.ID},
		CommissionRate: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 2000.0, inv.GrossTotal)
	require.Equal(t, 200.0, inv.CommissionAmount)
	require.Equal(t, 100.0, inv.Wages) // auto: 20 units at the fixed rate
	require.Equal(t, 1700.0, inv.NettAmount)
	require.Equal(t, SupplierInvoiceUnpaid, inv.Status)

	// same product, same rate across two entries: one aggregated line
	require.Len(t, inv.Items, 1)
	require.Equal(t, 20.0, inv.Items[0].Quantity)

	// every item of the covered entries is stamped
	require.NotNil(t, f.repo.findItem(first.Items[0].ID).SupplierInvoiceID)
	require.NotNil(t, f.repo.findItem(second.Items[0].ID).SupplierInvoiceID)

	// a second settlement over the same entries is rejected
	_, err = f.svc.CreateSupplierInvoice(ctx, CreateSupplierInvoiceInput{
		SupplierID: f.supplierID, EntryIDs: []int64{first.ID}, CommissionRate: 10,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateSupplierInvoiceHonoursExplicitWages(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	entry := f.soldEntry(100, 10)

	inv, err := f.svc.CreateSupplierInvoice(ctx, CreateSupplierInvoiceInput{
		SupplierID:     f.supplierID,
		EntryIDs:       []int64{entry.ID},
		CommissionRate: 10,
		Wages:          ptr(0.0),
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, inv.Wages)
	require.Equal(t, 900.0, inv.NettAmount)
}

func TestCreateSupplierInvoiceRejectsForeignEntries(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	entry := f.soldEntry(100, 10)
	entry.SupplierID = f.supplierID + 1000

	_, err := f.svc.CreateSupplierInvoice(ctx, CreateSupplierInvoiceInput{
		SupplierID: f.supplierID, EntryIDs: []int64{entry.ID}, CommissionRate: 10,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateSupplierInvoiceRecomputesDeductions(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	entry := f.soldEntry(100, 10)

	inv, err := f.svc.CreateSupplierInvoice(ctx, CreateSupplierInvoiceInput{
		SupplierID: f.supplierID, EntryIDs: []int64{entry.ID}, CommissionRate: 10,
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateSupplierInvoice(ctx, UpdateSupplierInvoiceInput{
		InvoiceID:      inv.ID,
		CommissionRate: 5,
		Wages:          20,
		Adjustments:    -10,
	})
	require.NoError(t, err)
	require.Equal(t, 50.0, updated.CommissionAmount)
	require.Equal(t, 920.0, updated.NettAmount)
}
