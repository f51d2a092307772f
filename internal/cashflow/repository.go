package cashflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandi-erp/mandi-erp/internal/platform/db"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// PgRepository provides PostgreSQL backed persistence for transactions.
type PgRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PgRepository)(nil)

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) CreateTransaction(ctx context.Context, txn Transaction) (Transaction, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO transactions (type, category, amount, discount, method, reference, description, buyer_id, supplier_id, date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
			RETURNING id, created_at`,
			txn.Type, txn.Category, txn.Amount, txn.Discount, txn.Method, txn.Reference,
			txn.Description, txn.BuyerID, txn.SupplierID, txn.Date).
			Scan(&txn.ID, &txn.CreatedAt)
		if err != nil {
			return err
		}
		for _, id := range txn.InvoiceIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO transaction_invoices (transaction_id, invoice_id) VALUES ($1, $2)`,
				txn.ID, id); err != nil {
				return err
			}
		}
		for _, id := range txn.SupplierInvoiceIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO transaction_supplier_invoices (transaction_id, supplier_invoice_id) VALUES ($1, $2)`,
				txn.ID, id); err != nil {
				return err
			}
		}
		for _, id := range txn.EntryIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO transaction_entries (transaction_id, entry_id) VALUES ($1, $2)`,
				txn.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

func (r *PgRepository) DeleteTransaction(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireBookLock(ctx, tx); err != nil {
			return err
		}
		for _, table := range []string{"transaction_invoices", "transaction_supplier_invoices", "transaction_entries"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE transaction_id = $1`, id); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.NotFoundf("transaction %d", id)
		}
		return nil
	})
}

const transactionColumns = `id, type, category, amount, discount, method, reference, description, buyer_id, supplier_id, date, created_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var txn Transaction
	err := row.Scan(&txn.ID, &txn.Type, &txn.Category, &txn.Amount, &txn.Discount, &txn.Method, &txn.Reference,
		&txn.Description, &txn.BuyerID, &txn.SupplierID, &txn.Date, &txn.CreatedAt)
	return txn, err
}

func (r *PgRepository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	txn, err := scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, shared.NotFoundf("transaction %d", id)
	}
	if err != nil {
		return Transaction{}, err
	}
	return r.loadLinks(ctx, txn)
}

func (r *PgRepository) ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	args := []any{}
	n := 0
	if filter.Type != "" {
		n++
		query += fmt.Sprintf(" AND type = $%d", n)
		args = append(args, filter.Type)
	}
	if filter.Category != "" {
		n++
		query += fmt.Sprintf(" AND category = $%d", n)
		args = append(args, filter.Category)
	}
	if filter.BuyerID != 0 {
		n++
		query += fmt.Sprintf(" AND buyer_id = $%d", n)
		args = append(args, filter.BuyerID)
	}
	if filter.SupplierID != 0 {
		n++
		query += fmt.Sprintf(" AND supplier_id = $%d", n)
		args = append(args, filter.SupplierID)
	}
	if !filter.From.IsZero() {
		n++
		query += fmt.Sprintf(" AND date >= $%d", n)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		n++
		query += fmt.Sprintf(" AND date <= $%d", n)
		args = append(args, filter.To)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i], err = r.loadLinks(ctx, out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PgRepository) loadLinks(ctx context.Context, txn Transaction) (Transaction, error) {
	load := func(query string, id int64) ([]int64, error) {
		rows, err := r.pool.Query(ctx, query, id)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var ids []int64
		for rows.Next() {
			var linked int64
			if err := rows.Scan(&linked); err != nil {
				return nil, err
			}
			ids = append(ids, linked)
		}
		return ids, rows.Err()
	}

	var err error
	if txn.InvoiceIDs, err = load(
		`SELECT invoice_id FROM transaction_invoices WHERE transaction_id = $1 ORDER BY invoice_id`, txn.ID); err != nil {
		return Transaction{}, err
	}
	if txn.SupplierInvoiceIDs, err = load(
		`SELECT supplier_invoice_id FROM transaction_supplier_invoices WHERE transaction_id = $1 ORDER BY supplier_invoice_id`, txn.ID); err != nil {
		return Transaction{}, err
	}
	if txn.EntryIDs, err = load(
		`SELECT entry_id FROM transaction_entries WHERE transaction_id = $1 ORDER BY entry_id`, txn.ID); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}
