package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandi-erp/mandi-erp/internal/entries"
	"github.com/mandi-erp/mandi-erp/internal/platform/db"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// PgRepository provides PostgreSQL backed persistence for invoices.
type PgRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PgRepository)(nil)

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const entryItemColumns = `id, entry_id, sub_serial_number, product_id, quantity, gross_weight, shute_weight, nett_weight,
	rate_per_quantity, buyer_id, sub_total, invoice_id, supplier_invoice_id`

func scanEntryItems(rows pgx.Rows) ([]entries.Item, error) {
	defer rows.Close()
	var items []entries.Item
	for rows.Next() {
		var it entries.Item
		if err := rows.Scan(&it.ID, &it.EntryID, &it.SubSerialNumber, &it.ProductID, &it.Quantity,
			&it.GrossWeight, &it.ShuteWeight, &it.NettWeight,
			&it.RatePerQuantity, &it.BuyerID, &it.SubTotal, &it.InvoiceID, &it.SupplierInvoiceID); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PgRepository) GetEntryItems(ctx context.Context, ids []int64) ([]entries.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryItemColumns+` FROM entry_items WHERE id = ANY($1) ORDER BY entry_id, sub_serial_number`, ids)
	if err != nil {
		return nil, err
	}
	return scanEntryItems(rows)
}

func (r *PgRepository) GetEntriesWithItems(ctx context.Context, ids []int64) ([]entries.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, serial_number, supplier_id, entry_date, total_quantities, total_amount, status, last_sub_serial, created_at, updated_at
		FROM entries WHERE id = ANY($1) ORDER BY entry_date, serial_number`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entries.Entry
	for rows.Next() {
		var e entries.Entry
		if err := rows.Scan(&e.ID, &e.SerialNumber, &e.SupplierID, &e.EntryDate,
			&e.TotalQuantities, &e.TotalAmount, &e.Status, &e.LastSubSerial, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		itemRows, err := r.pool.Query(ctx,
			`SELECT `+entryItemColumns+` FROM entry_items WHERE entry_id = $1 ORDER BY sub_serial_number`, out[i].ID)
		if err != nil {
			return nil, err
		}
		if out[i].Items, err = scanEntryItems(itemRows); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CreateInvoice inserts the invoice with a daily sequential BI number,
// snapshots the lines and stamps invoice_id on the entry items.
func (r *PgRepository) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}
		number, err := nextInvoiceNumber(ctx, tx, "invoices", "BI")
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		err = tx.QueryRow(ctx, `
			INSERT INTO invoices (invoice_number, buyer_id, total_quantities, total_amount, wages, adjustments, nett_amount, paid_amount, discount, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, NOW())
			RETURNING id, created_at`,
			inv.InvoiceNumber, inv.BuyerID, inv.TotalQuantities, inv.TotalAmount,
			inv.Wages, inv.Adjustments, inv.NettAmount, inv.Discount).
			Scan(&inv.ID, &inv.CreatedAt)
		if err != nil {
			return err
		}

		for i := range inv.Items {
			item := &inv.Items[i]
			item.InvoiceID = inv.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO invoice_items (invoice_id, entry_item_id, product_id, product_name, quantity, rate_per_quantity, sub_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id`,
				inv.ID, item.EntryItemID, item.ProductID, item.ProductName,
				item.Quantity, item.RatePerQuantity, item.SubTotal).
				Scan(&item.ID)
			if err != nil {
				return err
			}
			tag, err := tx.Exec(ctx,
				`UPDATE entry_items SET invoice_id = $2 WHERE id = $1 AND invoice_id IS NULL`,
				item.EntryItemID, inv.ID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return shared.Conflictf("entry item %d was invoiced concurrently", item.EntryItemID)
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (r *PgRepository) UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices SET wages = $2, adjustments = $3, discount = $4, nett_amount = $5
		WHERE id = $1`,
		inv.ID, inv.Wages, inv.Adjustments, inv.Discount, inv.NettAmount)
	if err != nil {
		return Invoice{}, err
	}
	if tag.RowsAffected() == 0 {
		return Invoice{}, shared.NotFoundf("invoice %d", inv.ID)
	}
	return r.GetInvoice(ctx, inv.ID)
}

// DeleteInvoice unlinks the entry items and detaches related cash-flow
// transactions before removing the invoice rows. Transactions survive.
func (r *PgRepository) DeleteInvoice(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE entry_items SET invoice_id = NULL
			WHERE id IN (SELECT entry_item_id FROM invoice_items WHERE invoice_id = $1)`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM transaction_invoices WHERE invoice_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.NotFoundf("invoice %d", id)
		}
		return nil
	})
}

const invoiceColumns = `id, invoice_number, buyer_id, total_quantities, total_amount, wages, adjustments, nett_amount, paid_amount, discount, created_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.BuyerID, &inv.TotalQuantities, &inv.TotalAmount,
		&inv.Wages, &inv.Adjustments, &inv.NettAmount, &inv.PaidAmount, &inv.Discount, &inv.CreatedAt)
	return inv, err
}

func (r *PgRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.NotFoundf("invoice %d", id)
	}
	if err != nil {
		return Invoice{}, err
	}
	inv.Items, err = r.listInvoiceItems(ctx, id)
	return inv, err
}

func (r *PgRepository) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := []any{}
	n := 0
	if filter.BuyerID != 0 {
		n++
		query += fmt.Sprintf(" AND buyer_id = $%d", n)
		args = append(args, filter.BuyerID)
	}
	if !filter.From.IsZero() {
		n++
		query += fmt.Sprintf(" AND created_at >= $%d", n)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		n++
		query += fmt.Sprintf(" AND created_at <= $%d", n)
		args = append(args, filter.To)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.listInvoiceItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PgRepository) listInvoiceItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, entry_item_id, product_id, product_name, quantity, rate_per_quantity, sub_total
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.EntryItemID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.RatePerQuantity, &it.SubTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateSupplierInvoice inserts the invoice with a daily sequential SI
// number and stamps supplier_invoice_id on every item of the covered
// entries, sold or not.
func (r *PgRepository) CreateSupplierInvoice(ctx context.Context, inv SupplierInvoice) (SupplierInvoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}
		number, err := nextInvoiceNumber(ctx, tx, "supplier_invoices", "SI")
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		err = tx.QueryRow(ctx, `
			INSERT INTO supplier_invoices (invoice_number, supplier_id, total_quantities, gross_total,
				commission_rate, commission_amount, wages, adjustments, nett_amount,
				advance_paid, final_payable, paid_amount, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, 0, $11, NOW())
			RETURNING id, created_at`,
			inv.InvoiceNumber, inv.SupplierID, inv.TotalQuantities, inv.GrossTotal,
			inv.CommissionRate, inv.CommissionAmount, inv.Wages, inv.Adjustments, inv.NettAmount,
			inv.FinalPayable, inv.Status).
			Scan(&inv.ID, &inv.CreatedAt)
		if err != nil {
			return err
		}

		for _, entryID := range inv.EntryIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO supplier_invoice_entries (supplier_invoice_id, entry_id) VALUES ($1, $2)`,
				inv.ID, entryID); err != nil {
				return err
			}
		}
		for i := range inv.Items {
			item := &inv.Items[i]
			err := tx.QueryRow(ctx, `
				INSERT INTO supplier_invoice_items (supplier_invoice_id, product_id, product_name, rate_per_quantity,
					quantity, gross_weight, shute_weight, nett_weight, sub_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING id`,
				inv.ID, item.ProductID, item.ProductName, item.RatePerQuantity,
				item.Quantity, item.GrossWeight, item.ShuteWeight, item.NettWeight, item.SubTotal).
				Scan(&item.ID)
			if err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `
			UPDATE entry_items SET supplier_invoice_id = $2
			WHERE entry_id = ANY($1) AND supplier_invoice_id IS NULL`, inv.EntryIDs, inv.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return SupplierInvoice{}, err
	}
	return inv, nil
}

func (r *PgRepository) UpdateSupplierInvoice(ctx context.Context, inv SupplierInvoice) (SupplierInvoice, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE supplier_invoices
		SET commission_rate = $2, commission_amount = $3, wages = $4, adjustments = $5, nett_amount = $6
		WHERE id = $1`,
		inv.ID, inv.CommissionRate, inv.CommissionAmount, inv.Wages, inv.Adjustments, inv.NettAmount)
	if err != nil {
		return SupplierInvoice{}, err
	}
	if tag.RowsAffected() == 0 {
		return SupplierInvoice{}, shared.NotFoundf("supplier invoice %d", inv.ID)
	}
	return r.GetSupplierInvoice(ctx, inv.ID)
}

func (r *PgRepository) DeleteSupplierInvoice(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE entry_items SET supplier_invoice_id = NULL WHERE supplier_invoice_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM transaction_supplier_invoices WHERE supplier_invoice_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM supplier_invoice_items WHERE supplier_invoice_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM supplier_invoice_entries WHERE supplier_invoice_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM supplier_invoices WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.NotFoundf("supplier invoice %d", id)
		}
		return nil
	})
}

const supplierInvoiceColumns = `id, invoice_number, supplier_id, total_quantities, gross_total, commission_rate, commission_amount,
	wages, adjustments, nett_amount, advance_paid, final_payable, paid_amount, status, created_at`

func scanSupplierInvoice(row pgx.Row) (SupplierInvoice, error) {
	var inv SupplierInvoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.SupplierID, &inv.TotalQuantities, &inv.GrossTotal,
		&inv.CommissionRate, &inv.CommissionAmount, &inv.Wages, &inv.Adjustments, &inv.NettAmount,
		&inv.AdvancePaid, &inv.FinalPayable, &inv.PaidAmount, &inv.Status, &inv.CreatedAt)
	return inv, err
}

func (r *PgRepository) GetSupplierInvoice(ctx context.Context, id int64) (SupplierInvoice, error) {
	inv, err := scanSupplierInvoice(r.pool.QueryRow(ctx,
		`SELECT `+supplierInvoiceColumns+` FROM supplier_invoices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return SupplierInvoice{}, shared.NotFoundf("supplier invoice %d", id)
	}
	if err != nil {
		return SupplierInvoice{}, err
	}
	return r.loadSupplierInvoiceDetails(ctx, inv)
}

func (r *PgRepository) ListSupplierInvoices(ctx context.Context, filter ListFilter) ([]SupplierInvoice, error) {
	query := `SELECT ` + supplierInvoiceColumns + ` FROM supplier_invoices WHERE 1=1`
	args := []any{}
	n := 0
	if filter.SupplierID != 0 {
		n++
		query += fmt.Sprintf(" AND supplier_id = $%d", n)
		args = append(args, filter.SupplierID)
	}
	if !filter.From.IsZero() {
		n++
		query += fmt.Sprintf(" AND created_at >= $%d", n)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		n++
		query += fmt.Sprintf(" AND created_at <= $%d", n)
		args = append(args, filter.To)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SupplierInvoice
	for rows.Next() {
		inv, err := scanSupplierInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i], err = r.loadSupplierInvoiceDetails(ctx, out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PgRepository) loadSupplierInvoiceDetails(ctx context.Context, inv SupplierInvoice) (SupplierInvoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT entry_id FROM supplier_invoice_entries WHERE supplier_invoice_id = $1 ORDER BY entry_id`, inv.ID)
	if err != nil {
		return SupplierInvoice{}, err
	}
	defer rows.Close()
	inv.EntryIDs = nil
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return SupplierInvoice{}, err
		}
		inv.EntryIDs = append(inv.EntryIDs, id)
	}
	if err := rows.Err(); err != nil {
		return SupplierInvoice{}, err
	}

	itemRows, err := r.pool.Query(ctx, `
		SELECT id, product_id, product_name, rate_per_quantity, quantity, gross_weight, shute_weight, nett_weight, sub_total
		FROM supplier_invoice_items WHERE supplier_invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return SupplierInvoice{}, err
	}
	defer itemRows.Close()
	inv.Items = nil
	for itemRows.Next() {
		var it SupplierInvoiceItem
		if err := itemRows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.RatePerQuantity,
			&it.Quantity, &it.GrossWeight, &it.ShuteWeight, &it.NettWeight, &it.SubTotal); err != nil {
			return SupplierInvoice{}, err
		}
		inv.Items = append(inv.Items, it)
	}
	return inv, itemRows.Err()
}

// nextInvoiceNumber generates PREFIX-YYYYMMDD-NNN, sequential within the
// current day. Must run inside a transaction holding the book lock.
func nextInvoiceNumber(ctx context.Context, tx pgx.Tx, table, prefix string) (string, error) {
	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE created_at::date = CURRENT_DATE`).Scan(&count); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%03d", prefix, time.Now().Format("20060102"), count+1), nil
}
