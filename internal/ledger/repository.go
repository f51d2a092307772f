package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandi-erp/mandi-erp/internal/billing"
	"github.com/mandi-erp/mandi-erp/internal/cashflow"
	"github.com/mandi-erp/mandi-erp/internal/entries"
	"github.com/mandi-erp/mandi-erp/internal/masterdata"
	"github.com/mandi-erp/mandi-erp/internal/platform/db"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// PgStore loads and persists the book against PostgreSQL. The whole
// cycle runs inside one serializable transaction holding the book lock,
// so a reconciliation never observes a half-written mutation.
type PgStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PgStore)(nil)

// NewStore constructs a store.
func NewStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) WithBook(ctx context.Context, fn func(b *Book) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}
		book, err := loadBook(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(book); err != nil {
			return err
		}
		return saveDerived(ctx, tx, book)
	})
}

// ReadBook serves a consistent snapshot without persisting whatever fn
// computed over it. Still takes the book lock so it never observes a
// half-written mutation.
func (s *PgStore) ReadBook(ctx context.Context, fn func(b *Book) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}
		book, err := loadBook(ctx, tx)
		if err != nil {
			return err
		}
		return fn(book)
	})
}

func loadBook(ctx context.Context, tx pgx.Tx) (*Book, error) {
	book := &Book{}
	if err := loadBuyers(ctx, tx, book); err != nil {
		return nil, err
	}
	if err := loadSuppliers(ctx, tx, book); err != nil {
		return nil, err
	}
	if err := loadEntries(ctx, tx, book); err != nil {
		return nil, err
	}
	if err := loadInvoices(ctx, tx, book); err != nil {
		return nil, err
	}
	if err := loadSupplierInvoices(ctx, tx, book); err != nil {
		return nil, err
	}
	if err := loadTransactions(ctx, tx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func loadBuyers(ctx context.Context, tx pgx.Tx, book *Book) error {
	rows, err := tx.Query(ctx, `SELECT id, name, outstanding FROM buyers ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var b masterdata.Buyer
		if err := rows.Scan(&b.ID, &b.Name, &b.Outstanding); err != nil {
			return err
		}
		book.Buyers = append(book.Buyers, &b)
	}
	return rows.Err()
}

func loadSuppliers(ctx context.Context, tx pgx.Tx, book *Book) error {
	rows, err := tx.Query(ctx, `SELECT id, name, outstanding FROM suppliers ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var s masterdata.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Outstanding); err != nil {
			return err
		}
		book.Suppliers = append(book.Suppliers, &s)
	}
	return rows.Err()
}

func loadEntries(ctx context.Context, tx pgx.Tx, book *Book) error {
	rows, err := tx.Query(ctx,
		`SELECT id, serial_number, supplier_id, entry_date, status FROM entries ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	index := make(map[int64]*entries.Entry)
	for rows.Next() {
		var e entries.Entry
		if err := rows.Scan(&e.ID, &e.SerialNumber, &e.SupplierID, &e.EntryDate, &e.Status); err != nil {
			return err
		}
		book.Entries = append(book.Entries, &e)
		index[e.ID] = book.Entries[len(book.Entries)-1]
	}
	if err := rows.Err(); err != nil {
		return err
	}

	itemRows, err := tx.Query(ctx, `
		SELECT id, entry_id, sub_serial_number, product_id, quantity, nett_weight,
		       rate_per_quantity, buyer_id, sub_total, invoice_id, supplier_invoice_id
		FROM entry_items ORDER BY entry_id, sub_serial_number`)
	if err != nil {
		return err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it entries.Item
		if err := itemRows.Scan(&it.ID, &it.EntryID, &it.SubSerialNumber, &it.ProductID, &it.Quantity,
			&it.NettWeight, &it.RatePerQuantity, &it.BuyerID, &it.SubTotal,
			&it.InvoiceID, &it.SupplierInvoiceID); err != nil {
			return err
		}
		if e, ok := index[it.EntryID]; ok {
			e.Items = append(e.Items, it)
		}
	}
	return itemRows.Err()
}

func loadInvoices(ctx context.Context, tx pgx.Tx, book *Book) error {
	rows, err := tx.Query(ctx, `
		SELECT id, invoice_number, buyer_id, total_amount, wages, adjustments, nett_amount, paid_amount, discount, created_at
		FROM invoices ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var inv billing.Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.BuyerID, &inv.TotalAmount,
			&inv.Wages, &inv.Adjustments, &inv.NettAmount, &inv.PaidAmount, &inv.Discount, &inv.CreatedAt); err != nil {
			return err
		}
		book.Invoices = append(book.Invoices, &inv)
	}
	return rows.Err()
}

func loadSupplierInvoices(ctx context.Context, tx pgx.Tx, book *Book) error {
	rows, err := tx.Query(ctx, `
		SELECT id, invoice_number, supplier_id, gross_total, commission_rate, commission_amount,
		       wages, adjustments, nett_amount, advance_paid, final_payable, paid_amount, status, created_at
		FROM supplier_invoices ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	index := make(map[int64]*billing.SupplierInvoice)
	for rows.Next() {
		var inv billing.SupplierInvoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.SupplierID, &inv.GrossTotal,
			&inv.CommissionRate, &inv.CommissionAmount, &inv.Wages, &inv.Adjustments, &inv.NettAmount,
			&inv.AdvancePaid, &inv.FinalPayable, &inv.PaidAmount, &inv.Status, &inv.CreatedAt); err != nil {
			return err
		}
		book.SupplierInvoices = append(book.SupplierInvoices, &inv)
		index[inv.ID] = book.SupplierInvoices[len(book.SupplierInvoices)-1]
	}
	if err := rows.Err(); err != nil {
		return err
	}

	linkRows, err := tx.Query(ctx,
		`SELECT supplier_invoice_id, entry_id FROM supplier_invoice_entries ORDER BY supplier_invoice_id, entry_id`)
	if err != nil {
		return err
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var invoiceID, entryID int64
		if err := linkRows.Scan(&invoiceID, &entryID); err != nil {
			return err
		}
		if inv, ok := index[invoiceID]; ok {
			inv.EntryIDs = append(inv.EntryIDs, entryID)
		}
	}
	return linkRows.Err()
}

func loadTransactions(ctx context.Context, tx pgx.Tx, book *Book) error {
	rows, err := tx.Query(ctx, `
		SELECT id, type, category, amount, discount, method, reference, buyer_id, supplier_id, date
		FROM transactions ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	index := make(map[int64]*cashflow.Transaction)
	for rows.Next() {
		var txn cashflow.Transaction
		if err := rows.Scan(&txn.ID, &txn.Type, &txn.Category, &txn.Amount, &txn.Discount, &txn.Method,
			&txn.Reference, &txn.BuyerID, &txn.SupplierID, &txn.Date); err != nil {
			return err
		}
		book.Transactions = append(book.Transactions, &txn)
		index[txn.ID] = book.Transactions[len(book.Transactions)-1]
	}
	if err := rows.Err(); err != nil {
		return err
	}

	links := []struct {
		query string
		apply func(txn *cashflow.Transaction, id int64)
	}{
		{`SELECT transaction_id, invoice_id FROM transaction_invoices ORDER BY transaction_id, invoice_id`,
			func(txn *cashflow.Transaction, id int64) { txn.InvoiceIDs = append(txn.InvoiceIDs, id) }},
		{`SELECT transaction_id, supplier_invoice_id FROM transaction_supplier_invoices ORDER BY transaction_id, supplier_invoice_id`,
			func(txn *cashflow.Transaction, id int64) { txn.SupplierInvoiceIDs = append(txn.SupplierInvoiceIDs, id) }},
		{`SELECT transaction_id, entry_id FROM transaction_entries ORDER BY transaction_id, entry_id`,
			func(txn *cashflow.Transaction, id int64) { txn.EntryIDs = append(txn.EntryIDs, id) }},
	}
	for _, link := range links {
		if err := loadTransactionLinks(ctx, tx, index, link.query, link.apply); err != nil {
			return err
		}
	}
	return nil
}

func loadTransactionLinks(ctx context.Context, tx pgx.Tx, index map[int64]*cashflow.Transaction,
	query string, apply func(txn *cashflow.Transaction, id int64)) error {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var txnID, linkedID int64
		if err := rows.Scan(&txnID, &linkedID); err != nil {
			return err
		}
		if txn, ok := index[txnID]; ok {
			apply(txn, linkedID)
		}
	}
	return rows.Err()
}

func saveDerived(ctx context.Context, tx pgx.Tx, book *Book) error {
	for _, inv := range book.Invoices {
		if _, err := tx.Exec(ctx,
			`UPDATE invoices SET paid_amount = $2 WHERE id = $1`, inv.ID, inv.PaidAmount); err != nil {
			return err
		}
	}
	for _, inv := range book.SupplierInvoices {
		if _, err := tx.Exec(ctx, `
			UPDATE supplier_invoices
			SET paid_amount = $2, advance_paid = $3, final_payable = $4, status = $5
			WHERE id = $1`,
			inv.ID, inv.PaidAmount, inv.AdvancePaid, inv.FinalPayable, inv.Status); err != nil {
			return err
		}
	}
	for _, e := range book.Entries {
		if _, err := tx.Exec(ctx,
			`UPDATE entries SET status = $2, updated_at = NOW() WHERE id = $1`, e.ID, e.Status); err != nil {
			return err
		}
	}
	for _, buyer := range book.Buyers {
		if _, err := tx.Exec(ctx,
			`UPDATE buyers SET outstanding = $2 WHERE id = $1`, buyer.ID, buyer.Outstanding); err != nil {
			return err
		}
	}
	for _, supplier := range book.Suppliers {
		if _, err := tx.Exec(ctx,
			`UPDATE suppliers SET outstanding = $2 WHERE id = $1`, supplier.ID, supplier.Outstanding); err != nil {
			return err
		}
	}
	return nil
}
