package reports

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/mandi-erp/mandi-erp/internal/cashflow"
	"github.com/mandi-erp/mandi-erp/internal/ledger"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// Service renders financial reports as projections over the book. All
// figures come from the same snapshot the reconciler maintains, so a
// report can never disagree with the balances it summarises.
type Service struct {
	logger *slog.Logger
	store  ledger.Store
	cache  *Cache
	now    func() time.Time
}

// NewService builds a Service instance. cache may be nil.
func NewService(logger *slog.Logger, store ledger.Store, cache *Cache) *Service {
	return &Service{logger: logger, store: store, cache: cache, now: time.Now}
}

// CashBook summarises the period's cash movements by category and
// settlement method.
func (s *Service) CashBook(ctx context.Context, dr shared.DateRange) (CashBookReport, error) {
	var report CashBookReport
	key := fmt.Sprintf("cash-book:%d:%d", dr.From.Unix(), dr.To.Unix())
	err := s.cache.GetOrCompute(ctx, key, &report, func() (any, error) {
		return s.buildCashBook(ctx, dr)
	})
	return report, err
}

func (s *Service) buildCashBook(ctx context.Context, dr shared.DateRange) (CashBookReport, error) {
	report := CashBookReport{From: dr.From, To: dr.To}
	byCategory := make(map[string]float64)
	byMethod := make(map[string]float64)

	err := s.store.ReadBook(ctx, func(b *ledger.Book) error {
		for _, txn := range b.Transactions {
			if !dr.Contains(txn.Date) {
				continue
			}
			switch txn.Type {
			case cashflow.TypeIncome:
				report.TotalIncome += txn.Amount
			case cashflow.TypeExpense:
				report.TotalExpense += txn.Amount
			}
			byCategory[string(txn.Category)] += txn.Amount
			byMethod[string(txn.Method)] += txn.Amount
		}
		return nil
	})
	if err != nil {
		return CashBookReport{}, err
	}

	report.Net = report.TotalIncome - report.TotalExpense
	for category, amount := range byCategory {
		report.ByCategory = append(report.ByCategory, CategoryTotal{Category: category, Amount: amount})
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		return report.ByCategory[i].Category < report.ByCategory[j].Category
	})
	for method, amount := range byMethod {
		report.ByMethod = append(report.ByMethod, MethodTotal{Method: method, Amount: amount})
	}
	sort.Slice(report.ByMethod, func(i, j int) bool {
		return report.ByMethod[i].Method < report.ByMethod[j].Method
	})
	return report, nil
}

// LedgerQuery selects the party whose statement the ledger replays.
// Exactly one of BuyerID or SupplierID must be set.
type LedgerQuery struct {
	BuyerID    int64
	SupplierID int64
	Range      shared.DateRange
}

// Ledger replays one party's invoices and payments chronologically with
// a running balance that starts at zero at the window's opening.
func (s *Service) Ledger(ctx context.Context, q LedgerQuery) (LedgerReport, error) {
	if (q.BuyerID == 0) == (q.SupplierID == 0) {
		return LedgerReport{}, shared.Validationf("exactly one of buyerId or supplierId is required")
	}
	var report LedgerReport
	key := fmt.Sprintf("ledger:b%d:s%d:%d:%d", q.BuyerID, q.SupplierID, q.Range.From.Unix(), q.Range.To.Unix())
	err := s.cache.GetOrCompute(ctx, key, &report, func() (any, error) {
		return s.buildLedger(ctx, q)
	})
	return report, err
}

// ledgerEvent is one candidate row before sorting. Payments carry the
// transaction id so same-day rows keep insertion order.
type ledgerEvent struct {
	date time.Time
	seq  int64
	row  LedgerRow
}

func (s *Service) buildLedger(ctx context.Context, q LedgerQuery) (LedgerReport, error) {
	report := LedgerReport{From: q.Range.From, To: q.Range.To}
	var events []ledgerEvent

	err := s.store.ReadBook(ctx, func(b *ledger.Book) error {
		if q.BuyerID != 0 {
			buyer := b.Buyer(q.BuyerID)
			if buyer == nil {
				return shared.NotFoundf("buyer %d not found", q.BuyerID)
			}
			report.BuyerID = &buyer.ID
			report.Name = buyer.Name
			events = buyerLedgerEvents(b, q)
			return nil
		}
		supplier := b.Supplier(q.SupplierID)
		if supplier == nil {
			return shared.NotFoundf("supplier %d not found", q.SupplierID)
		}
		report.SupplierID = &supplier.ID
		report.Name = supplier.Name
		events = supplierLedgerEvents(b, q)
		return nil
	})
	if err != nil {
		return LedgerReport{}, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].date.Equal(events[j].date) {
			return events[i].date.Before(events[j].date)
		}
		return events[i].seq < events[j].seq
	})
	var balance float64
	for _, ev := range events {
		ev.row.Balance = round2(balance + ev.row.Debit - ev.row.Credit)
		balance = ev.row.Balance
		report.Rows = append(report.Rows, ev.row)
	}
	report.ClosingBalance = balance
	return report, nil
}

// buyerLedgerEvents debits each invoice for its nett after invoice
// discount and credits each payment for cash plus settlement discount.
func buyerLedgerEvents(b *ledger.Book, q LedgerQuery) []ledgerEvent {
	var events []ledgerEvent
	for _, inv := range b.InvoicesByBuyer(q.BuyerID) {
		if !q.Range.Contains(inv.CreatedAt) {
			continue
		}
		events = append(events, ledgerEvent{date: inv.CreatedAt, seq: inv.ID, row: LedgerRow{
			Date:      inv.CreatedAt,
			Kind:      "INVOICE",
			Reference: inv.InvoiceNumber,
			Debit:     inv.Debt(),
		}})
	}
	for _, txn := range b.Transactions {
		if txn.Category != cashflow.CategoryBuyerPayment || txn.BuyerID == nil || *txn.BuyerID != q.BuyerID {
			continue
		}
		if !q.Range.Contains(txn.Date) {
			continue
		}
		events = append(events, ledgerEvent{date: txn.Date, seq: txn.ID, row: LedgerRow{
			Date:      txn.Date,
			Kind:      "PAYMENT",
			Reference: txn.Reference,
			Credit:    txn.Amount + txn.Discount,
		}})
	}
	return events
}

// supplierLedgerEvents credits each supplier invoice for its nett and
// debits every payout, advances included. The balance goes negative
// while the business owes the supplier.
func supplierLedgerEvents(b *ledger.Book, q LedgerQuery) []ledgerEvent {
	var events []ledgerEvent
	for _, inv := range b.SupplierInvoicesBySupplier(q.SupplierID) {
		if !q.Range.Contains(inv.CreatedAt) {
			continue
		}
		events = append(events, ledgerEvent{date: inv.CreatedAt, seq: inv.ID, row: LedgerRow{
			Date:      inv.CreatedAt,
			Kind:      "INVOICE",
			Reference: inv.InvoiceNumber,
			Credit:    inv.NettAmount,
		}})
	}
	for _, txn := range b.Transactions {
		if txn.SupplierID == nil || *txn.SupplierID != q.SupplierID {
			continue
		}
		if txn.Category != cashflow.CategorySupplierPayment && txn.Category != cashflow.CategoryAdvancePayment {
			continue
		}
		if !q.Range.Contains(txn.Date) {
			continue
		}
		events = append(events, ledgerEvent{date: txn.Date, seq: txn.ID, row: LedgerRow{
			Date:      txn.Date,
			Kind:      "PAYMENT",
			Reference: txn.Reference,
			Debit:     txn.Amount,
		}})
	}
	return events
}

// BalanceSheet lists every party with its outstanding, both sides aged
// by invoice date.
func (s *Service) BalanceSheet(ctx context.Context) (BalanceSheet, error) {
	var sheet BalanceSheet
	err := s.cache.GetOrCompute(ctx, "balance-sheet", &sheet, func() (any, error) {
		return s.buildBalanceSheet(ctx)
	})
	return sheet, err
}

func (s *Service) buildBalanceSheet(ctx context.Context) (BalanceSheet, error) {
	var sheet BalanceSheet
	now := s.now()

	err := s.store.ReadBook(ctx, func(b *ledger.Book) error {
		for _, buyer := range b.Buyers {
			row := BuyerBalance{BuyerID: buyer.ID, Name: buyer.Name, Outstanding: buyer.Outstanding}
			for _, inv := range b.InvoicesByBuyer(buyer.ID) {
				ageBalance(&row.Aging, inv.Debt()-inv.PaidAmount, inv.CreatedAt, now)
			}
			sheet.Buyers = append(sheet.Buyers, row)
			sheet.TotalReceivable += buyer.Outstanding
		}
		for _, supplier := range b.Suppliers {
			row := SupplierBalance{SupplierID: supplier.ID, Name: supplier.Name, Outstanding: supplier.Outstanding}
			for _, inv := range b.SupplierInvoicesBySupplier(supplier.ID) {
				ageBalance(&row.Aging, inv.NettAmount-inv.PaidAmount, inv.CreatedAt, now)
			}
			sheet.Suppliers = append(sheet.Suppliers, row)
			// Supplier outstanding is negative while the business
			// owes; the payable total reports it as a positive sum.
			sheet.TotalPayable -= supplier.Outstanding
		}
		return nil
	})
	if err != nil {
		return BalanceSheet{}, err
	}
	return sheet, nil
}

func ageBalance(buckets *AgingBuckets, balance float64, createdAt, now time.Time) {
	if balance <= 0 {
		return
	}
	switch age := int(now.Sub(createdAt).Hours() / 24); {
	case age <= 30:
		buckets.Current += balance
	case age <= 60:
		buckets.ThirtyPlus += balance
	case age <= 90:
		buckets.SixtyPlus += balance
	default:
		buckets.NinetyPlus += balance
	}
}

// Earnings sums the business's own income over the period: commission
// and wages charged, less discounts granted.
func (s *Service) Earnings(ctx context.Context, dr shared.DateRange) (EarningsReport, error) {
	var report EarningsReport
	key := fmt.Sprintf("earnings:%d:%d", dr.From.Unix(), dr.To.Unix())
	err := s.cache.GetOrCompute(ctx, key, &report, func() (any, error) {
		return s.buildEarnings(ctx, dr)
	})
	return report, err
}

func (s *Service) buildEarnings(ctx context.Context, dr shared.DateRange) (EarningsReport, error) {
	report := EarningsReport{From: dr.From, To: dr.To}

	err := s.store.ReadBook(ctx, func(b *ledger.Book) error {
		for _, inv := range b.SupplierInvoices {
			if !dr.Contains(inv.CreatedAt) {
				continue
			}
			report.Commission += inv.CommissionAmount
			report.SupplierWages += inv.Wages
		}
		for _, inv := range b.Invoices {
			if !dr.Contains(inv.CreatedAt) {
				continue
			}
			report.BuyerWages += inv.Wages
			report.DiscountsGiven += inv.Discount
		}
		for _, txn := range b.Transactions {
			if txn.Category != cashflow.CategoryBuyerPayment {
				continue
			}
			if !dr.Contains(txn.Date) {
				continue
			}
			report.DiscountsGiven += txn.Discount
		}
		return nil
	})
	if err != nil {
		return EarningsReport{}, err
	}

	report.NetEarnings = report.Commission + report.SupplierWages + report.BuyerWages - report.DiscountsGiven
	return report, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// InvalidateCache drops memoised reports, called after reconciliation.
func (s *Service) InvalidateCache(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}
