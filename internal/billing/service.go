package billing

import (
	"context"
	"math"

	"github.com/mandi-erp/mandi-erp/internal/entries"
	"github.com/mandi-erp/mandi-erp/internal/masterdata"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// nettTolerance is the float tolerance for caller-supplied nett amounts.
const nettTolerance = 0.01

// Repository defines billing data access. Creating or deleting an
// invoice also maintains the linkage fields on entry items.
type Repository interface {
	GetEntryItems(ctx context.Context, ids []int64) ([]entries.Item, error)
	GetEntriesWithItems(ctx context.Context, ids []int64) ([]entries.Entry, error)

	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	DeleteInvoice(ctx context.Context, id int64) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error)

	CreateSupplierInvoice(ctx context.Context, inv SupplierInvoice) (SupplierInvoice, error)
	UpdateSupplierInvoice(ctx context.Context, inv SupplierInvoice) (SupplierInvoice, error)
	DeleteSupplierInvoice(ctx context.Context, id int64) error
	GetSupplierInvoice(ctx context.Context, id int64) (SupplierInvoice, error)
	ListSupplierInvoices(ctx context.Context, filter ListFilter) ([]SupplierInvoice, error)
}

// Service handles invoice aggregation and lifecycle.
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

// CreateInvoice builds a buyer invoice from already-sold entry items.
// Item financial fields are read, never recomputed.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	if input.BuyerID == 0 {
		return Invoice{}, shared.Validationf("buyer required")
	}
	if len(input.EntryItemIDs) == 0 {
		return Invoice{}, shared.Validationf("at least one item required")
	}
	if _, err := s.masterdata.GetBuyer(ctx, masterdata.RefByID(input.BuyerID)); err != nil {
		return Invoice{}, err
	}

	items, err := s.repo.GetEntryItems(ctx, input.EntryItemIDs)
	if err != nil {
		return Invoice{}, err
	}
	if len(items) != len(input.EntryItemIDs) {
		return Invoice{}, shared.NotFoundf("one or more entry items")
	}

	inv := Invoice{
		BuyerID:     input.BuyerID,
		Wages:       input.Wages,
		Adjustments: input.Adjustments,
		Discount:    input.Discount,
	}
	for _, it := range items {
		if !it.Sold() {
			return Invoice{}, shared.Validationf("item %d has not been auctioned", it.ID)
		}
		if *it.BuyerID != input.BuyerID {
			return Invoice{}, shared.Validationf("item %d was sold to a different buyer", it.ID)
		}
		if it.InvoiceID != nil {
			return Invoice{}, shared.Validationf("item %d is already invoiced", it.ID)
		}
		name, err := s.productName(ctx, it.ProductID)
		if err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, InvoiceItem{
			EntryItemID:     it.ID,
			ProductID:       it.ProductID,
			ProductName:     name,
			Quantity:        it.Quantity,
			RatePerQuantity: *it.RatePerQuantity,
			SubTotal:        it.SubTotal,
		})
		inv.TotalQuantities += it.Quantity
		inv.TotalAmount += it.SubTotal
	}

	inv.NettAmount = BuyerNett(inv.TotalAmount, inv.Wages, inv.Adjustments)
	if input.NettAmount != nil && math.Abs(*input.NettAmount-inv.NettAmount) > nettTolerance {
		return Invoice{}, shared.Validationf("nettAmount %.2f does not match computed %.2f",
			*input.NettAmount, inv.NettAmount)
	}

	created, err := s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	if err := s.reconcile(ctx); err != nil {
		return Invoice{}, err
	}
	return s.repo.GetInvoice(ctx, created.ID)
}

// UpdateInvoice revises wages, adjustments and discount; the item set
// and the per-item financials stay untouched.
func (s *Service) UpdateInvoice(ctx context.Context, input UpdateInvoiceInput) (Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		return Invoice{}, err
	}
	inv.Wages = input.Wages
	inv.Adjustments = input.Adjustments
	inv.Discount = input.Discount
	inv.NettAmount = BuyerNett(inv.TotalAmount, inv.Wages, inv.Adjustments)

	updated, err := s.repo.UpdateInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	if err := s.reconcile(ctx); err != nil {
		return Invoice{}, err
	}
	return updated, nil
}

// DeleteInvoice removes a buyer invoice. Items return to their unlinked
// state; related cash-flow transactions are detached, not deleted.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	if _, err := s.repo.GetInvoice(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	return s.reconcile(ctx)
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

// CreateSupplierInvoice settles entries with their supplier. Every item
// of the covered entries is stamped with the invoice id, sold or not,
// which is what drives entry status to Invoiced.
func (s *Service) CreateSupplierInvoice(ctx context.Context, input CreateSupplierInvoiceInput) (SupplierInvoice, error) {
	if input.SupplierID == 0 {
		return SupplierInvoice{}, shared.Validationf("supplier required")
	}
	if len(input.EntryIDs) == 0 {
		return SupplierInvoice{}, shared.Validationf("at least one entry required")
	}
	if input.CommissionRate < 0 || input.CommissionRate > 100 {
		return SupplierInvoice{}, shared.Validationf("commission rate must be between 0 and 100")
	}
	if _, err := s.masterdata.GetSupplier(ctx, masterdata.RefByID(input.SupplierID)); err != nil {
		return SupplierInvoice{}, err
	}

	entryList, err := s.repo.GetEntriesWithItems(ctx, input.EntryIDs)
	if err != nil {
		return SupplierInvoice{}, err
	}
	if len(entryList) != len(input.EntryIDs) {
		return SupplierInvoice{}, shared.NotFoundf("one or more entries")
	}

	var allItems []entries.Item
	for _, e := range entryList {
		if e.SupplierID != input.SupplierID {
			return SupplierInvoice{}, shared.Validationf("entry %s belongs to a different supplier", e.SerialNumber)
		}
		if e.Status == entries.StatusCancelled {
			return SupplierInvoice{}, shared.Validationf("entry %s is cancelled", e.SerialNumber)
		}
		for _, it := range e.Items {
			if it.SupplierInvoiceID != nil {
				return SupplierInvoice{}, shared.Validationf("entry %s is already on a supplier invoice", e.SerialNumber)
			}
			allItems = append(allItems, it)
		}
	}

	inv := SupplierInvoice{
		SupplierID:     input.SupplierID,
		EntryIDs:       input.EntryIDs,
		CommissionRate: input.CommissionRate,
		Adjustments:    input.Adjustments,
		Items:          AggregateLines(allItems),
	}
	for i := range inv.Items {
		if inv.Items[i].ProductName, err = s.productName(ctx, inv.Items[i].ProductID); err != nil {
			return SupplierInvoice{}, err
		}
	}
	for _, it := range allItems {
		inv.TotalQuantities += it.Quantity
	}
	inv.GrossTotal = GrossTotal(inv.Items)
	inv.CommissionAmount = CommissionAmount(inv.GrossTotal, inv.CommissionRate)
	if input.Wages != nil {
		inv.Wages = *input.Wages
	} else {
		inv.Wages = AutoWages(allItems)
	}
	inv.NettAmount = SupplierNett(inv.GrossTotal, inv.CommissionAmount, inv.Wages, inv.Adjustments)
	inv.FinalPayable = inv.NettAmount
	inv.Status = SupplierInvoiceUnpaid

	created, err := s.repo.CreateSupplierInvoice(ctx, inv)
	if err != nil {
		return SupplierInvoice{}, err
	}
	if err := s.reconcile(ctx); err != nil {
		return SupplierInvoice{}, err
	}
	return s.repo.GetSupplierInvoice(ctx, created.ID)
}

// UpdateSupplierInvoice revises the financial fields and re-runs the
// deduction arithmetic over the stored lines.
func (s *Service) UpdateSupplierInvoice(ctx context.Context, input UpdateSupplierInvoiceInput) (SupplierInvoice, error) {
	if input.CommissionRate < 0 || input.CommissionRate > 100 {
		return SupplierInvoice{}, shared.Validationf("commission rate must be between 0 and 100")
	}
	inv, err := s.repo.GetSupplierInvoice(ctx, input.InvoiceID)
	if err != nil {
		return SupplierInvoice{}, err
	}
	inv.CommissionRate = input.CommissionRate
	inv.Wages = input.Wages
	inv.Adjustments = input.Adjustments
	inv.CommissionAmount = CommissionAmount(inv.GrossTotal, inv.CommissionRate)
	inv.NettAmount = SupplierNett(inv.GrossTotal, inv.CommissionAmount, inv.Wages, inv.Adjustments)

	updated, err := s.repo.UpdateSupplierInvoice(ctx, inv)
	if err != nil {
		return SupplierInvoice{}, err
	}
	if err := s.reconcile(ctx); err != nil {
		return SupplierInvoice{}, err
	}
	return updated, nil
}

// DeleteSupplierInvoice removes a supplier invoice and clears the stamp
// from its entries' items; related transactions are detached.
func (s *Service) DeleteSupplierInvoice(ctx context.Context, id int64) error {
	if _, err := s.repo.GetSupplierInvoice(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteSupplierInvoice(ctx, id); err != nil {
		return err
	}
	return s.reconcile(ctx)
}

func (s *Service) GetSupplierInvoice(ctx context.Context, id int64) (SupplierInvoice, error) {
	return s.repo.GetSupplierInvoice(ctx, id)
}

func (s *Service) ListSupplierInvoices(ctx context.Context, filter ListFilter) ([]SupplierInvoice, error) {
	return s.repo.ListSupplierInvoices(ctx, filter)
}

func (s *Service) productName(ctx context.Context, productID int64) (string, error) {
	p, err := s.masterdata.GetProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	if p.DisplayName != "" {
		return p.DisplayName, nil
	}
	return p.Name, nil
}
