package reports

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mandi-erp/mandi-erp/internal/billing"
	"github.com/mandi-erp/mandi-erp/internal/cashflow"
	"github.com/mandi-erp/mandi-erp/internal/ledger"
	"github.com/mandi-erp/mandi-erp/internal/masterdata"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func testBook() *ledger.Book {
	return &ledger.Book{
		Buyers:    []*masterdata.Buyer{{ID: 1, Name: "Ravi Traders", Outstanding: 400}},
		Suppliers: []*masterdata.Supplier{{ID: 1, Name: "Green Farms", Outstanding: -1725}},
		Invoices: []*billing.Invoice{
			{ID: 10, InvoiceNumber: "BI-20260101-001", BuyerID: 1, NettAmount: 500, Wages: 50, Discount: 25, CreatedAt: day("2026-01-01")},
			{ID: 11, InvoiceNumber: "BI-20260410-001", BuyerID: 1, NettAmount: 325, CreatedAt: day("2026-04-10")},
		},
		SupplierInvoices: []*billing.SupplierInvoice{
			{ID: 20, InvoiceNumber: "SI-20260412-001", SupplierID: 1, CommissionAmount: 200, Wages: 75, NettAmount: 1725, CreatedAt: day("2026-04-12")},
		},
		Transactions: []*cashflow.Transaction{
			{ID: 1, Type: cashflow.TypeIncome, Category: cashflow.CategoryBuyerPayment, Reference: "rcpt-1",
				Amount: 400, Method: cashflow.MethodCash, BuyerID: ptr(int64(1)), Date: day("2026-04-13")},
			{ID: 2, Type: cashflow.TypeExpense, Category: cashflow.CategoryOther,
				Amount: 150, Method: cashflow.MethodBank, Date: day("2026-04-14")},
		},
	}
}

func newReportsService(book *ledger.Book) *Service {
	svc := NewService(testLogger(), ledger.NewMemoryStore(book), nil)
	svc.now = func() time.Time { return day("2026-04-15") }
	return svc
}

func TestCashBookTotals(t *testing.T) {
	svc := newReportsService(testBook())

	report, err := svc.CashBook(context.Background(), shared.DateRange{})
	require.NoError(t, err)
	require.Equal(t, 400.0, report.TotalIncome)
	require.Equal(t, 150.0, report.TotalExpense)
	require.Equal(t, 250.0, report.Net)
	require.Len(t, report.ByCategory, 2)
	require.Len(t, report.ByMethod, 2)
}

func TestCashBookHonoursDateRange(t *testing.T) {
	svc := newReportsService(testBook())

	report, err := svc.CashBook(context.Background(), shared.DateRange{
		From: day("2026-04-14"),
		To:   day("2026-04-14").Add(24*time.Hour - time.Nanosecond),
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, report.TotalIncome)
	require.Equal(t, 150.0, report.TotalExpense)
}

func TestCashBookInvertedRangeMatchesNothing(t *testing.T) {
	svc := newReportsService(testBook())

	report, err := svc.CashBook(context.Background(), shared.DateRange{
		From: day("2026-05-01"),
		To:   day("2026-04-01"),
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, report.TotalIncome)
	require.Equal(t, 0.0, report.TotalExpense)
	require.Empty(t, report.ByCategory)
}

func TestLedgerRequiresExactlyOneParty(t *testing.T) {
	svc := newReportsService(testBook())
	ctx := context.Background()

	_, err := svc.Ledger(ctx, LedgerQuery{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Ledger(ctx, LedgerQuery{BuyerID: 1, SupplierID: 1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLedgerReplaysBuyerStatement(t *testing.T) {
	svc := newReportsService(testBook())

	report, err := svc.Ledger(context.Background(), LedgerQuery{BuyerID: 1})
	require.NoError(t, err)
	require.Equal(t, "Ravi Traders", report.Name)
	require.Len(t, report.Rows, 3)

	// invoices debit the balance up, the payment settles it down
	require.Equal(t, "BI-20260101-001", report.Rows[0].Reference)
	require.Equal(t, 475.0, report.Rows[0].Debit) // nett less invoice discount
	require.Equal(t, 475.0, report.Rows[0].Balance)
	require.Equal(t, 800.0, report.Rows[1].Balance)
	require.Equal(t, "PAYMENT", report.Rows[2].Kind)
	require.Equal(t, 400.0, report.Rows[2].Credit)
	require.Equal(t, 400.0, report.Rows[2].Balance)
	require.Equal(t, 400.0, report.ClosingBalance)
}

func TestLedgerReplaysSupplierStatement(t *testing.T) {
	svc := newReportsService(testBook())

	report, err := svc.Ledger(context.Background(), LedgerQuery{SupplierID: 1})
	require.NoError(t, err)
	require.Equal(t, "Green Farms", report.Name)
	require.Len(t, report.Rows, 1)
	require.Equal(t, "SI-20260412-001", report.Rows[0].Reference)
	require.Equal(t, 1725.0, report.Rows[0].Credit)
	require.Equal(t, -1725.0, report.ClosingBalance)
}

func TestLedgerWindowStartsAtZero(t *testing.T) {
	svc := newReportsService(testBook())

	// only the April movements fall inside the window
	report, err := svc.Ledger(context.Background(), LedgerQuery{
		BuyerID: 1,
		Range:   shared.DateRange{From: day("2026-04-01"), To: day("2026-04-30")},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	require.Equal(t, 325.0, report.Rows[0].Balance)
	require.Equal(t, -75.0, report.ClosingBalance)
}

func TestLedgerUnknownPartyIsNotFound(t *testing.T) {
	svc := newReportsService(testBook())

	_, err := svc.Ledger(context.Background(), LedgerQuery{BuyerID: 99})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBalanceSheetAgesBothSides(t *testing.T) {
	svc := newReportsService(testBook())

	sheet, err := svc.BalanceSheet(context.Background())
	require.NoError(t, err)
	require.Len(t, sheet.Buyers, 1)
	require.Equal(t, 400.0, sheet.TotalReceivable)
	// supplier outstanding is negative, the payable total is positive
	require.Equal(t, 1725.0, sheet.TotalPayable)

	// invoice 11 is 5 days old, invoice 10 over 100 days
	aging := sheet.Buyers[0].Aging
	require.Equal(t, 325.0, aging.Current)
	require.Equal(t, 475.0, aging.NinetyPlus) // 500 nett less 25 discount
	require.Equal(t, 0.0, aging.ThirtyPlus)

	require.Len(t, sheet.Suppliers, 1)
	require.Equal(t, 1725.0, sheet.Suppliers[0].Aging.Current)
}

func TestEarningsReport(t *testing.T) {
	svc := newReportsService(testBook())

	report, err := svc.Earnings(context.Background(), shared.DateRange{})
	require.NoError(t, err)
	require.Equal(t, 200.0, report.Commission)
	require.Equal(t, 75.0, report.SupplierWages)
	require.Equal(t, 50.0, report.BuyerWages)
	require.Equal(t, 25.0, report.DiscountsGiven)
	require.Equal(t, 300.0, report.NetEarnings)
}

func TestEarningsInvertedRangeMatchesNothing(t *testing.T) {
	svc := newReportsService(testBook())

	report, err := svc.Earnings(context.Background(), shared.DateRange{
		From: day("2026-05-01"),
		To:   day("2026-04-01"),
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, report.NetEarnings)
	require.Equal(t, 0.0, report.Commission)
}