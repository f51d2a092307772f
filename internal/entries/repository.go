package entries

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandi-erp/mandi-erp/internal/platform/db"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// PgRepository provides PostgreSQL backed persistence for entries.
type PgRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PgRepository)(nil)

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// CreateEntry inserts the entry and its items, generating the daily
// sequential MMDD-NNN serial. The unique (supplier_id, entry_date) index
// rejects a second same-day delivery for the supplier.
func (r *PgRepository) CreateEntry(ctx context.Context, entry Entry) (Entry, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}

		var daySeq int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) + 1 FROM entries WHERE entry_date = $1`, entry.EntryDate).Scan(&daySeq); err != nil {
			return err
		}
		entry.SerialNumber = fmt.Sprintf("%02d%02d-%03d", entry.EntryDate.Month(), entry.EntryDate.Day(), daySeq)

		err := tx.QueryRow(ctx, `
			INSERT INTO entries (serial_number, supplier_id, entry_date, total_quantities, total_amount, status, last_sub_serial, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			entry.SerialNumber, entry.SupplierID, entry.EntryDate,
			entry.TotalQuantities, entry.TotalAmount, entry.Status, entry.LastSubSerial).
			Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return shared.Validationf("supplier %d already has an entry for %s",
					entry.SupplierID, entry.EntryDate.Format("2006-01-02"))
			}
			return err
		}

		for i := range entry.Items {
			if err := insertItem(ctx, tx, entry.ID, &entry.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// ReplaceItems rewrites the entry's item list together with the
// denormalised totals, counter and status.
func (r *PgRepository) ReplaceItems(ctx context.Context, entry Entry) (Entry, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM entry_items WHERE entry_id = $1`, entry.ID); err != nil {
			return err
		}
		for i := range entry.Items {
			entry.Items[i].ID = 0
			if err := insertItem(ctx, tx, entry.ID, &entry.Items[i]); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, `
			UPDATE entries
			SET total_quantities = $2, total_amount = $3, status = $4, last_sub_serial = $5, updated_at = NOW()
			WHERE id = $1`,
			entry.ID, entry.TotalQuantities, entry.TotalAmount, entry.Status, entry.LastSubSerial)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.NotFoundf("entry %d", entry.ID)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return r.GetEntry(ctx, entry.ID)
}

func (r *PgRepository) UpdateItemSale(ctx context.Context, item Item) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE entry_items
		SET rate_per_quantity = $2, buyer_id = $3, sub_total = $4
		WHERE id = $1`,
		item.ID, item.RatePerQuantity, item.BuyerID, item.SubTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("entry item %d", item.ID)
	}
	return nil
}

func (r *PgRepository) UpdateTotals(ctx context.Context, entryID int64, quantities, amount float64, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE entries SET total_quantities = $2, total_amount = $3, status = $4, updated_at = NOW()
		WHERE id = $1`,
		entryID, quantities, amount, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("entry %d", entryID)
	}
	return nil
}

func (r *PgRepository) SetStatus(ctx context.Context, entryID int64, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE entries SET status = $2, updated_at = NOW() WHERE id = $1`, entryID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("entry %d", entryID)
	}
	return nil
}

func (r *PgRepository) DeleteEntry(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM entry_items WHERE entry_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.NotFoundf("entry %d", id)
		}
		return nil
	})
}

const entryColumns = `id, serial_number, supplier_id, entry_date, total_quantities, total_amount, status, last_sub_serial, created_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.SerialNumber, &e.SupplierID, &e.EntryDate,
		&e.TotalQuantities, &e.TotalAmount, &e.Status, &e.LastSubSerial, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *PgRepository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, shared.NotFoundf("entry %d", id)
	}
	if err != nil {
		return Entry{}, err
	}
	entry.Items, err = r.listItems(ctx, id)
	return entry, err
}

func (r *PgRepository) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE 1=1`
	args := []any{}
	n := 0
	if filter.SupplierID != 0 {
		n++
		query += fmt.Sprintf(" AND supplier_id = $%d", n)
		args = append(args, filter.SupplierID)
	}
	if filter.Status != "" {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		n++
		query += fmt.Sprintf(" AND entry_date >= $%d", n)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		n++
		query += fmt.Sprintf(" AND entry_date <= $%d", n)
		args = append(args, filter.To)
	}
	query += ` ORDER BY entry_date DESC, serial_number DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.listItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PgRepository) listItems(ctx context.Context, entryID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, entry_id, sub_serial_number, product_id, quantity, gross_weight, shute_weight, nett_weight,
		       rate_per_quantity, buyer_id, sub_total, invoice_id, supplier_invoice_id
		FROM entry_items WHERE entry_id = $1 ORDER BY sub_serial_number`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.EntryID, &it.SubSerialNumber, &it.ProductID, &it.Quantity,
			&it.GrossWeight, &it.ShuteWeight, &it.NettWeight,
			&it.RatePerQuantity, &it.BuyerID, &it.SubTotal, &it.InvoiceID, &it.SupplierInvoiceID); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func insertItem(ctx context.Context, tx pgx.Tx, entryID int64, item *Item) error {
	item.EntryID = entryID
	return tx.QueryRow(ctx, `
		INSERT INTO entry_items (entry_id, sub_serial_number, product_id, quantity, gross_weight, shute_weight, nett_weight,
		                         rate_per_quantity, buyer_id, sub_total, invoice_id, supplier_invoice_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		entryID, item.SubSerialNumber, item.ProductID, item.Quantity,
		item.GrossWeight, item.ShuteWeight, item.NettWeight,
		item.RatePerQuantity, item.BuyerID, item.SubTotal, item.InvoiceID, item.SupplierInvoiceID).
		Scan(&item.ID)
}
