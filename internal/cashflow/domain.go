package cashflow

import "time"

// Type classifies the direction of a transaction.
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

// Category classifies what a transaction settles.
type Category string

const (
	CategoryBuyerPayment    Category = "BUYER_PAYMENT"
	CategorySupplierPayment Category = "SUPPLIER_PAYMENT"
	CategoryAdvancePayment  Category = "ADVANCE_PAYMENT"
	CategoryOther           Category = "OTHER"
)

// Method is the settlement channel.
type Method string

const (
	MethodCash Method = "CASH"
	MethodBank Method = "BANK"
)

// Transaction is one cash movement. Links to invoices and entries are
// informational snapshots; the authoritative paid amounts come from the
// reconciler's full recompute.
type Transaction struct {
	ID          int64
	Type        Type
	Category    Category
	Amount      float64
	Discount    float64 // forgiven alongside a buyer payment, settles debt like cash
	Method      Method
	Reference   string // free text, defaults to a generated uuid
	Description string
	BuyerID     *int64
	SupplierID  *int64
	Date        time.Time

	// Linked documents, maintained through join tables.
	InvoiceIDs         []int64
	SupplierInvoiceIDs []int64
	EntryIDs           []int64

	CreatedAt time.Time
}

// --- Input DTOs ---

// BuyerPaymentInput records money received from a buyer.
type BuyerPaymentInput struct {
	BuyerID     int64
	Amount      float64
	Discount    float64
	Method      Method
	Reference   string
	Description string
	Date        time.Time
	// InvoiceIDs pins the payment to specific invoices. Empty means
	// the reconciler allocates oldest-first across all of them.
	InvoiceIDs  []int64
}

// SupplierPaymentInput records money paid out to a supplier. Advance
// payments are made before any supplier invoice exists and link to the
// delivery entries they cover instead.
type SupplierPaymentInput struct {
	SupplierID  int64
	Amount      float64
	Method      Method
	Reference   string
	Description string
	Date        time.Time
	Advance     bool
	EntryIDs    []int64

	// SupplierInvoiceIDs pins a regular payment to specific supplier
	// invoices. Ignored for advances.
	SupplierInvoiceIDs []int64
}

// ExpenseInput records a general business expense.
type ExpenseInput struct {
	Amount      float64
	Method      Method
	Reference   string
	Description string
	Date        time.Time
}

// ListFilter narrows transaction listings.
type ListFilter struct {
	Type       Type
	Category   Category
	BuyerID    int64
	SupplierID int64
	From       time.Time
	To         time.Time
}
