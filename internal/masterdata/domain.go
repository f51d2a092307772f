package masterdata

import "time"

// Buyer is a trade buyer bidding at the daily auction. Outstanding is
// derived state: positive means the buyer owes money. It is written only
// by the reconciler, never by handlers.
type Buyer struct {
	ID          int64
	Name        string
	DisplayName string
	Alias       string
	TokenNumber string
	Contact     string
	Place       string
	Outstanding float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Supplier delivers produce batches. Outstanding is derived: negative
// means the business owes the supplier (payable).
type Supplier struct {
	ID          int64
	Name        string
	DisplayName string
	Alias       string
	Contact     string
	Place       string
	BankName    string
	BankAccount string
	BankIFSC    string
	Outstanding float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Product carries no financial state; entry items and invoice lines
// reference it by id.
type Product struct {
	ID          int64
	Name        string
	DisplayName string
	CreatedAt   time.Time
}

// --- Input DTOs ---

// BuyerInput for creating or updating buyers.
type BuyerInput struct {
	Name        string
	DisplayName string
	Alias       string
	TokenNumber string
	Contact     string
	Place       string
}

// SupplierInput for creating or updating suppliers.
type SupplierInput struct {
	Name        string
	DisplayName string
	Alias       string
	Contact     string
	Place       string
	BankName    string
	BankAccount string
	BankIFSC    string
}

// ProductInput for creating or updating products.
type ProductInput struct {
	Name        string
	DisplayName string
}
