package reports

import "time"

// CashBookReport summarises cash movements over a period.
type CashBookReport struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	TotalIncome  float64         `json:"totalIncome"`
	TotalExpense float64         `json:"totalExpense"`
	Net          float64         `json:"net"`
	ByCategory   []CategoryTotal `json:"byCategory"`
	ByMethod     []MethodTotal   `json:"byMethod"`
}

// CategoryTotal is one cash-book line per transaction category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// MethodTotal splits the period's volume by settlement channel.
type MethodTotal struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

// LedgerRow is one movement in a party ledger: an invoice raising the
// balance or a payment settling it, with the balance after the row.
type LedgerRow struct {
	Date      time.Time `json:"date"`
	Kind      string    `json:"kind"` // INVOICE or PAYMENT
	Reference string    `json:"reference"`
	Debit     float64   `json:"debit"`
	Credit    float64   `json:"credit"`
	Balance   float64   `json:"balance"`
}

// LedgerReport replays a single party's invoices and payments in
// chronological order with a running balance that starts at zero.
type LedgerReport struct {
	From           time.Time   `json:"from"`
	To             time.Time   `json:"to"`
	BuyerID        *int64      `json:"buyerId,omitempty"`
	SupplierID     *int64      `json:"supplierId,omitempty"`
	Name           string      `json:"name"`
	Rows           []LedgerRow `json:"rows"`
	ClosingBalance float64     `json:"closingBalance"`
}

// AgingBuckets splits an open balance by invoice age in days.
type AgingBuckets struct {
	Current    float64 `json:"current"`    // 0-30
	ThirtyPlus float64 `json:"thirtyPlus"` // 31-60
	SixtyPlus  float64 `json:"sixtyPlus"`  // 61-90
	NinetyPlus float64 `json:"ninetyPlus"` // over 90
}

// BuyerBalance is one row of the receivables balance sheet.
type BuyerBalance struct {
	BuyerID     int64        `json:"buyerId"`
	Name        string       `json:"name"`
	Outstanding float64      `json:"outstanding"`
	Aging       AgingBuckets `json:"aging"`
}

// SupplierBalance is one row of the payables balance sheet.
type SupplierBalance struct {
	SupplierID  int64        `json:"supplierId"`
	Name        string       `json:"name"`
	Outstanding float64      `json:"outstanding"`
	Aging       AgingBuckets `json:"aging"`
}

// BalanceSheet is both sides of the book at a point in time.
type BalanceSheet struct {
	Buyers          []BuyerBalance    `json:"buyers"`
	Suppliers       []SupplierBalance `json:"suppliers"`
	TotalReceivable float64           `json:"totalReceivable"`
	TotalPayable    float64           `json:"totalPayable"`
}

// EarningsReport sums the business's own income streams over a period:
// commission and wages charged, less discounts granted.
type EarningsReport struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Commission     float64   `json:"commission"`
	SupplierWages  float64   `json:"supplierWages"`
	BuyerWages     float64   `json:"buyerWages"`
	DiscountsGiven float64   `json:"discountsGiven"`
	NetEarnings    float64   `json:"netEarnings"`
}
