package entries

import (
	"context"
	"time"

	"github.com/mandi-erp/mandi-erp/internal/masterdata"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// Repository defines entry data access.
type Repository interface {
	CreateEntry(ctx context.Context, entry Entry) (Entry, error)
	ReplaceItems(ctx context.Context, entry Entry) (Entry, error)
	UpdateItemSale(ctx context.Context, item Item) error
	UpdateTotals(ctx context.Context, entryID int64, quantities, amount float64, status Status) error
	SetStatus(ctx context.Context, entryID int64, status Status) error
	DeleteEntry(ctx context.Context, id int64) error
	GetEntry(ctx context.Context, id int64) (Entry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error)
}

// Service handles entry business logic.
type Service struct {
	repo       Repository
	masterdata *masterdata.Service
	reconciler shared.Reconciler
}

// NewService builds a Service instance.
func NewService(repo Repository, md *masterdata.Service) *Service {
	return &Service{repo: repo, masterdata: md}
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

// CreateEntry registers a supplier delivery. At most one entry per
// supplier per calendar day; a duplicate is rejected.
func (s *Service) CreateEntry(ctx context.Context, input CreateEntryInput) (Entry, error) {
	if input.SupplierID == 0 {
		return Entry{}, shared.Validationf("supplier required")
	}
	if _, err := s.masterdata.GetSupplier(ctx, masterdata.RefByID(input.SupplierID)); err != nil {
		return Entry{}, err
	}

	entryDate := input.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now()
	}
	entryDate = entryDate.Truncate(24 * time.Hour)

	entry := Entry{
		SupplierID: input.SupplierID,
		EntryDate:  entryDate,
		Status:     StatusPending,
	}
	for i, in := range input.Items {
		item, err := buildItem(in, i+1)
		if err != nil {
			return Entry{}, err
		}
		entry.Items = append(entry.Items, item)
	}
	entry.LastSubSerial = len(entry.Items)
	entry.TotalQuantities, entry.TotalAmount = totals(entry.Items)
	entry.Status = ResolveStatus(entry.Status, entry.Items)

	created, err := s.repo.CreateEntry(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	if err := s.reconcile(ctx); err != nil {
		return Entry{}, err
	}
	return s.repo.GetEntry(ctx, created.ID)
}

// UpdateEntry replaces the entry's unsold items. Sold items are carried
// over unchanged: their rate, buyer, subtotal and sub serial are fixed.
// Before the auction starts the whole list is re-sequenced from 1; once
// any item is sold, new items continue the monotonic counter instead.
func (s *Service) UpdateEntry(ctx context.Context, input UpdateEntryInput) (Entry, error) {
	entry, err := s.repo.GetEntry(ctx, input.EntryID)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status == StatusCancelled {
		return Entry{}, shared.Validationf("entry %s is cancelled", entry.SerialNumber)
	}
	if entry.Status == StatusInvoiced {
		return Entry{}, shared.Validationf("entry %s is already on a supplier invoice", entry.SerialNumber)
	}

	var kept []Item
	for _, it := range entry.Items {
		if it.Sold() {
			kept = append(kept, it)
		}
	}

	if len(kept) == 0 {
		// auction not started: free re-sequence
		entry.Items = nil
		for i, in := range input.Items {
			item, err := buildItem(in, i+1)
			if err != nil {
				return Entry{}, err
			}
			entry.Items = append(entry.Items, item)
		}
		entry.LastSubSerial = len(entry.Items)
	} else {
		entry.Items = kept
		for _, in := range input.Items {
			entry.LastSubSerial++
			item, err := buildItem(in, entry.LastSubSerial)
			if err != nil {
				return Entry{}, err
			}
			entry.Items = append(entry.Items, item)
		}
	}

	entry.TotalQuantities, entry.TotalAmount = totals(entry.Items)
	entry.Status = ResolveStatus(entry.Status, entry.Items)

	updated, err := s.repo.ReplaceItems(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	if err := s.reconcile(ctx); err != nil {
		return Entry{}, err
	}
	return updated, nil
}

// DeleteEntry removes an entry. Rejected once any item has been sold.
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	for _, it := range entry.Items {
		if it.BuyerID != nil || it.RatePerQuantity != nil {
			return shared.Validationf("entry %s has auctioned items", entry.SerialNumber)
		}
	}
	if err := s.repo.DeleteEntry(ctx, id); err != nil {
		return err
	}
	return s.reconcile(ctx)
}

// AuctionItem fixes a sale on one item: buyer, rate and subtotal. These
// fields are immutable once the item lands on an invoice.
func (s *Service) AuctionItem(ctx context.Context, input AuctionInput) (Entry, error) {
	entry, err := s.repo.GetEntry(ctx, input.EntryID)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status == StatusCancelled {
		return Entry{}, shared.Validationf("entry %s is cancelled", entry.SerialNumber)
	}
	if input.RatePerQuantity <= 0 {
		return Entry{}, shared.Validationf("rate must be positive")
	}
	if _, err := s.masterdata.GetBuyer(ctx, masterdata.RefByID(input.BuyerID)); err != nil {
		return Entry{}, err
	}

	var target *Item
	for i := range entry.Items {
		if entry.Items[i].ID == input.ItemID {
			target = &entry.Items[i]
			break
		}
	}
	if target == nil {
		return Entry{}, shared.NotFoundf("item %d on entry %s", input.ItemID, entry.SerialNumber)
	}
	if target.InvoiceID != nil || target.SupplierInvoiceID != nil {
		return Entry{}, shared.Validationf("item %d is already invoiced", target.SubSerialNumber)
	}

	rate := input.RatePerQuantity
	buyerID := input.BuyerID
	target.RatePerQuantity = &rate
	target.BuyerID = &buyerID
	target.SubTotal = target.Quantity * rate

	if err := s.repo.UpdateItemSale(ctx, *target); err != nil {
		return Entry{}, err
	}

	quantities, amount := totals(entry.Items)
	status := ResolveStatus(entry.Status, entry.Items)
	if err := s.repo.UpdateTotals(ctx, entry.ID, quantities, amount, status); err != nil {
		return Entry{}, err
	}
	if err := s.reconcile(ctx); err != nil {
		return Entry{}, err
	}
	return s.repo.GetEntry(ctx, entry.ID)
}

// CancelEntry performs the manual terminal transition.
func (s *Service) CancelEntry(ctx context.Context, id int64) (Entry, error) {
	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status == StatusInvoiced {
		return Entry{}, shared.Validationf("entry %s is already on a supplier invoice", entry.SerialNumber)
	}
	if err := s.repo.SetStatus(ctx, id, StatusCancelled); err != nil {
		return Entry{}, err
	}
	if err := s.reconcile(ctx); err != nil {
		return Entry{}, err
	}
	return s.repo.GetEntry(ctx, id)
}

func (s *Service) GetEntry(ctx context.Context, id int64) (Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

func (s *Service) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}

func buildItem(in ItemInput, subSerial int) (Item, error) {
	if in.ProductID == 0 {
		return Item{}, shared.Validationf("item %d: product required", subSerial)
	}
	if in.Quantity <= 0 {
		return Item{}, shared.Validationf("item %d: quantity must be positive", subSerial)
	}
	return Item{
		SubSerialNumber: subSerial,
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		GrossWeight:     in.GrossWeight,
		ShuteWeight:     in.ShuteWeight,
		NettWeight:      in.GrossWeight - in.ShuteWeight,
	}, nil
}

func totals(items []Item) (quantities, amount float64) {
	for _, it := range items {
		quantities += it.Quantity
		amount += it.SubTotal
	}
	return quantities, amount
}
