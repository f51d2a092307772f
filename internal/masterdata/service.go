package masterdata

import (
	"context"
	"math"

	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// balanceTolerance is the float tolerance below which an outstanding
// balance is considered settled.
const balanceTolerance = 0.01

// Repository defines master data access.
type Repository interface {
	CreateBuyer(ctx context.Context, input BuyerInput) (Buyer, error)
	UpdateBuyer(ctx context.Context, id int64, input BuyerInput) (Buyer, error)
	DeleteBuyer(ctx context.Context, id int64) error
	GetBuyer(ctx context.Context, ref EntityRef) (Buyer, error)
	ListBuyers(ctx context.Context) ([]Buyer, error)

	CreateSupplier(ctx context.Context, input SupplierInput) (Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
	GetSupplier(ctx context.Context, ref EntityRef) (Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	CreateProduct(ctx context.Context, input ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, input ProductInput) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// EntityRef addresses an entity by canonical id or external alias.
// Exactly one of the two fields is set; lookups try the id first.
type EntityRef struct {
	ID    int64
	Alias string
}

// RefByID builds a canonical id reference.
func RefByID(id int64) EntityRef { return EntityRef{ID: id} }

// RefByAlias builds an external alias reference.
func RefByAlias(alias string) EntityRef { return EntityRef{Alias: alias} }

// Service handles master data business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateBuyer(ctx context.Context, input BuyerInput) (Buyer, error) {
	if input.Name == "" {
		return Buyer{}, shared.Validationf("buyer name required")
	}
	return s.repo.CreateBuyer(ctx, input)
}

func (s *Service) UpdateBuyer(ctx context.Context, id int64, input BuyerInput) (Buyer, error) {
	if input.Name == "" {
		return Buyer{}, shared.Validationf("buyer name required")
	}
	return s.repo.UpdateBuyer(ctx, id, input)
}

// DeleteBuyer removes a buyer. Rejected while the buyer still carries an
// outstanding balance.
func (s *Service) DeleteBuyer(ctx context.Context, id int64) error {
	buyer, err := s.repo.GetBuyer(ctx, RefByID(id))
	if err != nil {
		return err
	}
	if math.Abs(buyer.Outstanding) > balanceTolerance {
		return shared.Validationf("buyer %s has outstanding balance %.2f", buyer.Name, buyer.Outstanding)
	}
	return s.repo.DeleteBuyer(ctx, id)
}

func (s *Service) GetBuyer(ctx context.Context, ref EntityRef) (Buyer, error) {
	return s.repo.GetBuyer(ctx, ref)
}

func (s *Service) ListBuyers(ctx context.Context) ([]Buyer, error) {
	return s.repo.ListBuyers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, input SupplierInput) (Supplier, error) {
	if input.Name == "" {
		return Supplier{}, shared.Validationf("supplier name required")
	}
	return s.repo.CreateSupplier(ctx, input)
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (Supplier, error) {
	if input.Name == "" {
		return Supplier{}, shared.Validationf("supplier name required")
	}
	return s.repo.UpdateSupplier(ctx, id, input)
}

// DeleteSupplier removes a supplier. Rejected while a payable remains.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	supplier, err := s.repo.GetSupplier(ctx, RefByID(id))
	if err != nil {
		return err
	}
	if math.Abs(supplier.Outstanding) > balanceTolerance {
		return shared.Validationf("supplier %s has outstanding balance %.2f", supplier.Name, supplier.Outstanding)
	}
	return s.repo.DeleteSupplier(ctx, id)
}

func (s *Service) GetSupplier(ctx context.Context, ref EntityRef) (Supplier, error) {
	return s.repo.GetSupplier(ctx, ref)
}

func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	if input.Name == "" {
		return Product{}, shared.Validationf("product name required")
	}
	return s.repo.CreateProduct(ctx, input)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, input ProductInput) (Product, error) {
	if input.Name == "" {
		return Product{}, shared.Validationf("product name required")
	}
	return s.repo.UpdateProduct(ctx, id, input)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.repo.ListProducts(ctx)
}
