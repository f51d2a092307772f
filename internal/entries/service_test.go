package entries

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mandi-erp/mandi-erp/internal/masterdata"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

type memoryEntryRepo struct {
	entries    map[int64]Entry
	nextID     int64
	nextItemID int64
}

func newMemoryEntryRepo() *memoryEntryRepo {
	return &memoryEntryRepo{entries: make(map[int64]Entry)}
}

func (r *memoryEntryRepo) CreateEntry(ctx context.Context, entry Entry) (Entry, error) {
	for _, e := range r.entries {
		if e.SupplierID == entry.SupplierID && e.EntryDate.Equal(entry.EntryDate) {
			return Entry{}, shared.Validationf("supplier %d already has an entry for %s",
				entry.SupplierID, entry.EntryDate.Format("2006-01-02"))
		}
	}
	r.nextID++
	entry.ID = r.nextID
	daySeq := 0
	for _, e := range r.entries {
		if e.EntryDate.Equal(entry.EntryDate) {
			daySeq++
		}
	}
	entry.SerialNumber = fmt.Sprintf("%02d%02d-%03d", entry.EntryDate.Month(), entry.EntryDate.Day(), daySeq+1)
	for i := range entry.Items {
		r.nextItemID++
		entry.Items[i].ID = r.nextItemID
		entry.Items[i].EntryID = entry.ID
	}
	entry.CreatedAt = time.Now()
	r.entries[entry.ID] = entry
	return entry, nil
}

func (r *memoryEntryRepo) ReplaceItems(ctx context.Context, entry Entry) (Entry, error) {
	stored, ok := r.entries[entry.ID]
	if !ok {
		return Entry{}, shared.NotFoundf("entry %d", entry.ID)
	}
	for i := range entry.Items {
		if entry.Items[i].ID == 0 {
			r.nextItemID++
			entry.Items[i].ID = r.nextItemID
			entry.Items[i].EntryID = entry.ID
		}
	}
	stored.Items = entry.Items
	stored.TotalQuantities = entry.TotalQuantities
	stored.TotalAmount = entry.TotalAmount
	stored.Status = entry.Status
	stored.LastSubSerial = entry.LastSubSerial
	r.entries[entry.ID] = stored
	return stored, nil
}

func (r *memoryEntryRepo) UpdateItemSale(ctx context.Context, item Item) error {
	e, ok := r.entries[item.EntryID]
	if !ok {
		return shared.NotFoundf("entry %d", item.EntryID)
	}
	for i := range e.Items {
		if e.Items[i].ID == item.ID {
			e.Items[i] = item
			r.entries[item.EntryID] = e
			return nil
		}
	}
	return shared.NotFoundf("entry item %d", item.ID)
}

func (r *memoryEntryRepo) UpdateTotals(ctx context.Context, entryID int64, quantities, amount float64, status Status) error {
	e, ok := r.entries[entryID]
	if !ok {
		return shared.NotFoundf("entry %d", entryID)
	}
	e.TotalQuantities = quantities
	e.TotalAmount = amount
	e.Status = status
	r.entries[entryID] = e
	return nil
}

func (r *memoryEntryRepo) SetStatus(ctx context.Context, entryID int64, status Status) error {
	e, ok := r.entries[entryID]
	if !ok {
		return shared.NotFoundf("entry %d", entryID)
	}
	e.Status = status
	r.entries[entryID] = e
	return nil
}

func (r *memoryEntryRepo) DeleteEntry(ctx context.Context, id int64) error {
	if _, ok := r.entries[id]; !ok {
		return shared.NotFoundf("entry %d", id)
	}
	delete(r.entries, id)
	return nil
}

func (r *memoryEntryRepo) GetEntry(ctx context.Context, id int64) (Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, shared.NotFoundf("entry %d", id)
	}
	return e, nil
}

func (r *memoryEntryRepo) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if filter.SupplierID != 0 && e.SupplierID != filter.SupplierID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func newTestServices(t *testing.T) (*Service, *memoryEntryRepo, *masterdata.Service, int64, int64) {
	t.Helper()
	md := masterdata.NewService(masterdata.NewMemoryRepository())
	ctx := context.Background()
	supplier, err := md.CreateSupplier(ctx, masterdata.SupplierInput{Name: "Green Farms"})
	require.NoError(t, err)
	buyer, err := md.CreateBuyer(ctx, masterdata.BuyerInput{Name: "Ravi Traders"})
	require.NoError(t, err)

	repo := newMemoryEntryRepo()
	svc := NewService(repo, md)
	return svc, repo, md, supplier.ID, buyer.ID
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestCreateEntryRejectsDuplicateSameDay(t *testing.T) {
	svc, _, _, supplierID, _ := newTestServices(t)
	ctx := context.Background()

	input := CreateEntryInput{
		SupplierID: supplierID,
		EntryDate:  day("2026-04-12"),
		Items:      []ItemInput{{ProductID: 1, Quantity: 10, GrossWeight: 500, ShuteWeight: 20}},
	}
	first, err := svc.CreateEntry(ctx, input)
	require.NoError(t, err)
	require.Equal(t, "0412-001", first.SerialNumber)
	require.Equal(t, StatusPending, first.Status)
	require.Equal(t, 480.0, first.Items[0].NettWeight)

	_, err = svc.CreateEntry(ctx, input)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteEntryRejectsAuctionedItems(t *testing.T) {
	svc, _, _, supplierID, buyerID := newTestServices(t)
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, CreateEntryInput{
		SupplierID: supplierID,
		EntryDate:  day("2026-04-12"),
		Items:      []ItemInput{{ProductID: 1, Quantity: 10, GrossWeight: 100}},
	})
	require.NoError(t, err)

	_, err = svc.AuctionItem(ctx, AuctionInput{
		EntryID: entry.ID, ItemID: entry.Items[0].ID, BuyerID: buyerID, RatePerQuantity: 100,
	})
	require.NoError(t, err)

	err = svc.DeleteEntry(ctx, entry.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAuctionItemFixesSale(t *testing.T) {
	svc, _, _, supplierID, buyerID := newTestServices(t)
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, CreateEntryInput{
		SupplierID: supplierID,
		EntryDate:  day("2026-04-12"),
		Items: []ItemInput{
			{ProductID: 1, Quantity: 10, GrossWeight: 100},
			{ProductID: 2, Quantity: 5, GrossWeight: 50},
		},
	})
	require.NoError(t, err)

	entry, err = svc.AuctionItem(ctx, AuctionInput{
		EntryID: entry.ID, ItemID: entry.Items[0].ID, BuyerID: buyerID, RatePerQuantity: 100,
	})
	require.NoError(t, err)
	require.Equal(t, 1000.0, entry.Items[0].SubTotal)
	require.Equal(t, StatusPending, entry.Status) // second item still unsold

	entry, err = svc.AuctionItem(ctx, AuctionInput{
		EntryID: entry.ID, ItemID: entry.Items[1].ID, BuyerID: buyerID, RatePerQuantity: 200,
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, entry.Status)
	require.Equal(t, 2000.0, entry.TotalAmount)
	require.Equal(t, 15.0, entry.TotalQuantities)
}

func TestUpdateEntryResequencesBeforeAuction(t *testing.T) {
	svc, _, _, supplierID, buyerID := newTestServices(t)
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, CreateEntryInput{
		SupplierID: supplierID,
		EntryDate:  day("2026-04-12"),
		Items: []ItemInput{
			{ProductID: 1, Quantity: 10},
			{ProductID: 2, Quantity: 5},
		},
	})
	require.NoError(t, err)

	// before auction: full re-sequence
	entry, err = svc.UpdateEntry(ctx, UpdateEntryInput{
		EntryID: entry.ID,
		Items:   []ItemInput{{ProductID: 3, Quantity: 7}},
	})
	require.NoError(t, err)
	require.Len(t, entry.Items, 1)
	require.Equal(t, 1, entry.Items[0].SubSerialNumber)

	// after auction: sold item pinned, new items continue the counter
	entry, err = svc.AuctionItem(ctx, AuctionInput{
		EntryID: entry.ID, ItemID: entry.Items[0].ID, BuyerID: buyerID, RatePerQuantity: 50,
	})
	require.NoError(t, err)

	entry, err = svc.UpdateEntry(ctx, UpdateEntryInput{
		EntryID: entry.ID,
		Items:   []ItemInput{{ProductID: 4, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Len(t, entry.Items, 2)
	require.Equal(t, 1, entry.Items[0].SubSerialNumber)
	require.True(t, entry.Items[0].Sold())
	require.Equal(t, 2, entry.Items[1].SubSerialNumber)
}

func TestCancelEntryIsTerminal(t *testing.T) {
	svc, repo, _, supplierID, _ := newTestServices(t)
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, CreateEntryInput{
		SupplierID: supplierID,
		EntryDate:  day("2026-04-12"),
		Items:      []ItemInput{{ProductID: 1, Quantity: 10}},
	})
	require.NoError(t, err)

	entry, err = svc.CancelEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, entry.Status)

	// resolver never moves it out of cancelled
	stored := repo.entries[entry.ID]
	require.Equal(t, StatusCancelled, ResolveStatus(stored.Status, stored.Items))

	_, err = svc.UpdateEntry(ctx, UpdateEntryInput{EntryID: entry.ID})
	require.ErrorIs(t, err, shared.ErrValidation)
}
