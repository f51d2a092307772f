package masterdata

import (
	"context"
	"sync"

	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// MemoryRepository is an in-memory Repository used by tests and the seed
// tooling. It mirrors the PostgreSQL repository's behaviour including the
// alias fallback on lookups.
type MemoryRepository struct {
	mu        sync.Mutex
	buyers    map[int64]Buyer
	suppliers map[int64]Supplier
	products  map[int64]Product
	nextID    int64
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository constructs an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		buyers:    make(map[int64]Buyer),
		suppliers: make(map[int64]Supplier),
		products:  make(map[int64]Product),
	}
}

func (r *MemoryRepository) id() int64 {
	r.nextID++
	return r.nextID
}

// SetBuyerOutstanding overwrites the derived balance, standing in for the
// reconciler's derived-state write in tests.
func (r *MemoryRepository) SetBuyerOutstanding(id int64, outstanding float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buyers[id]; ok {
		b.Outstanding = outstanding
		r.buyers[id] = b
	}
}

// SetSupplierOutstanding overwrites the derived balance.
func (r *MemoryRepository) SetSupplierOutstanding(id int64, outstanding float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.suppliers[id]; ok {
		s.Outstanding = outstanding
		r.suppliers[id] = s
	}
}

func (r *MemoryRepository) CreateBuyer(ctx context.Context, input BuyerInput) (Buyer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := Buyer{
		ID:          r.id(),
		Name:        input.Name,
		DisplayName: input.DisplayName,
		Alias:       input.Alias,
		TokenNumber: input.TokenNumber,
		Contact:     input.Contact,
		Place:       input.Place,
	}
	r.buyers[b.ID] = b
	return b, nil
}

func (r *MemoryRepository) UpdateBuyer(ctx context.Context, id int64, input BuyerInput) (Buyer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buyers[id]
	if !ok {
		return Buyer{}, shared.NotFoundf("buyer %d", id)
	}
	b.Name = input.Name
	b.DisplayName = input.DisplayName
	b.Alias = input.Alias
	b.TokenNumber = input.TokenNumber
	b.Contact = input.Contact
	b.Place = input.Place
	r.buyers[id] = b
	return b, nil
}

func (r *MemoryRepository) DeleteBuyer(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buyers[id]; !ok {
		return shared.NotFoundf("buyer %d", id)
	}
	delete(r.buyers, id)
	return nil
}

func (r *MemoryRepository) GetBuyer(ctx context.Context, ref EntityRef) (Buyer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref.ID != 0 {
		if b, ok := r.buyers[ref.ID]; ok {
			return b, nil
		}
		return Buyer{}, shared.NotFoundf("buyer %d", ref.ID)
	}
	for _, b := range r.buyers {
		if b.Alias == ref.Alias {
			return b, nil
		}
	}
	return Buyer{}, shared.NotFoundf("buyer %s", ref.Alias)
}

func (r *MemoryRepository) ListBuyers(ctx context.Context) ([]Buyer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Buyer, 0, len(r.buyers))
	for _, b := range r.buyers {
		out = append(out, b)
	}
	return out, nil
}

func (r *MemoryRepository) CreateSupplier(ctx context.Context, input SupplierInput) (Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Supplier{
		ID:          r.id(),
		Name:        input.Name,
		DisplayName: input.DisplayName,
		Alias:       input.Alias,
		Contact:     input.Contact,
		Place:       input.Place,
		BankName:    input.BankName,
		BankAccount: input.BankAccount,
		BankIFSC:    input.BankIFSC,
	}
	r.suppliers[s.ID] = s
	return s, nil
}

func (r *MemoryRepository) UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, shared.NotFoundf("supplier %d", id)
	}
	s.Name = input.Name
	s.DisplayName = input.DisplayName
	s.Alias = input.Alias
	s.Contact = input.Contact
	s.Place = input.Place
	s.BankName = input.BankName
	s.BankAccount = input.BankAccount
	s.BankIFSC = input.BankIFSC
	r.suppliers[id] = s
	return s, nil
}

func (r *MemoryRepository) DeleteSupplier(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.suppliers[id]; !ok {
		return shared.NotFoundf("supplier %d", id)
	}
	delete(r.suppliers, id)
	return nil
}

func (r *MemoryRepository) GetSupplier(ctx context.Context, ref EntityRef) (Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref.ID != 0 {
		if s, ok := r.suppliers[ref.ID]; ok {
			return s, nil
		}
		return Supplier{}, shared.NotFoundf("supplier %d", ref.ID)
	}
	for _, s := range r.suppliers {
		if s.Alias == ref.Alias {
			return s, nil
		}
	}
	return Supplier{}, shared.NotFoundf("supplier %s", ref.Alias)
}

func (r *MemoryRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Supplier, 0, len(r.suppliers))
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryRepository) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Product{ID: r.id(), Name: input.Name, DisplayName: input.DisplayName}
	r.products[p.ID] = p
	return p, nil
}

func (r *MemoryRepository) UpdateProduct(ctx context.Context, id int64, input ProductInput) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.NotFoundf("product %d", id)
	}
	p.Name = input.Name
	p.DisplayName = input.DisplayName
	r.products[id] = p
	return p, nil
}

func (r *MemoryRepository) DeleteProduct(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
	return nil
}

func (r *MemoryRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return Product{}, shared.NotFoundf("product %d", id)
}

func (r *MemoryRepository) ListProducts(ctx context.Context) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}
