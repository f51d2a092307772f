package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// PgRepository provides PostgreSQL backed persistence for master data.
type PgRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PgRepository)(nil)

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const buyerColumns = `id, name, display_name, alias, token_number, contact, place, outstanding, created_at, updated_at`

func scanBuyer(row pgx.Row) (Buyer, error) {
	var b Buyer
	err := row.Scan(&b.ID, &b.Name, &b.DisplayName, &b.Alias, &b.TokenNumber,
		&b.Contact, &b.Place, &b.Outstanding, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *PgRepository) CreateBuyer(ctx context.Context, input BuyerInput) (Buyer, error) {
	query := `
		INSERT INTO buyers (name, display_name, alias, token_number, contact, place, outstanding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, NOW(), NOW())
		RETURNING ` + buyerColumns
	b, err := scanBuyer(r.pool.QueryRow(ctx, query,
		input.Name, input.DisplayName, input.Alias, input.TokenNumber, input.Contact, input.Place))
	if err != nil {
		return Buyer{}, mapUniqueViolation(err, "buyer alias already in use")
	}
	return b, nil
}

func (r *PgRepository) UpdateBuyer(ctx context.Context, id int64, input BuyerInput) (Buyer, error) {
	query := `
		UPDATE buyers
		SET name = $2, display_name = $3, alias = $4, token_number = $5, contact = $6, place = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + buyerColumns
	b, err := scanBuyer(r.pool.QueryRow(ctx, query,
		id, input.Name, input.DisplayName, input.Alias, input.TokenNumber, input.Contact, input.Place))
	if errors.Is(err, pgx.ErrNoRows) {
		return Buyer{}, shared.NotFoundf("buyer %d", id)
	}
	if err != nil {
		return Buyer{}, mapUniqueViolation(err, "buyer alias already in use")
	}
	return b, nil
}

func (r *PgRepository) DeleteBuyer(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM buyers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("buyer %d", id)
	}
	return nil
}

// GetBuyer resolves a buyer by canonical id, falling back to the external
// alias when no id is given.
func (r *PgRepository) GetBuyer(ctx context.Context, ref EntityRef) (Buyer, error) {
	var row pgx.Row
	if ref.ID != 0 {
		row = r.pool.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE id = $1`, ref.ID)
	} else {
		row = r.pool.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE alias = $1`, ref.Alias)
	}
	b, err := scanBuyer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Buyer{}, shared.NotFoundf("buyer %d%s", ref.ID, ref.Alias)
	}
	return b, err
}

func (r *PgRepository) ListBuyers(ctx context.Context) ([]Buyer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+buyerColumns+` FROM buyers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Buyer
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const supplierColumns = `id, name, display_name, alias, contact, place, bank_name, bank_account, bank_ifsc, outstanding, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.DisplayName, &s.Alias, &s.Contact, &s.Place,
		&s.BankName, &s.BankAccount, &s.BankIFSC, &s.Outstanding, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *PgRepository) CreateSupplier(ctx context.Context, input SupplierInput) (Supplier, error) {
	query := `
		INSERT INTO suppliers (name, display_name, alias, contact, place, bank_name, bank_account, bank_ifsc, outstanding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, NOW(), NOW())
		RETURNING ` + supplierColumns
	s, err := scanSupplier(r.pool.QueryRow(ctx, query,
		input.Name, input.DisplayName, input.Alias, input.Contact, input.Place,
		input.BankName, input.BankAccount, input.BankIFSC))
	if err != nil {
		return Supplier{}, mapUniqueViolation(err, "supplier alias already in use")
	}
	return s, nil
}

func (r *PgRepository) UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (Supplier, error) {
	query := `
		UPDATE suppliers
		SET name = $2, display_name = $3, alias = $4, contact = $5, place = $6,
		    bank_name = $7, bank_account = $8, bank_ifsc = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + supplierColumns
	s, err := scanSupplier(r.pool.QueryRow(ctx, query,
		id, input.Name, input.DisplayName, input.Alias, input.Contact, input.Place,
		input.BankName, input.BankAccount, input.BankIFSC))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.NotFoundf("supplier %d", id)
	}
	if err != nil {
		return Supplier{}, mapUniqueViolation(err, "supplier alias already in use")
	}
	return s, nil
}

func (r *PgRepository) DeleteSupplier(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("supplier %d", id)
	}
	return nil
}

func (r *PgRepository) GetSupplier(ctx context.Context, ref EntityRef) (Supplier, error) {
	var row pgx.Row
	if ref.ID != 0 {
		row = r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, ref.ID)
	} else {
		row = r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE alias = $1`, ref.Alias)
	}
	s, err := scanSupplier(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.NotFoundf("supplier %d%s", ref.ID, ref.Alias)
	}
	return s, err
}

func (r *PgRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PgRepository) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, display_name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, name, display_name, created_at`,
		input.Name, input.DisplayName).Scan(&p.ID, &p.Name, &p.DisplayName, &p.CreatedAt)
	if err != nil {
		return Product{}, mapUniqueViolation(err, "product name already in use")
	}
	return p, nil
}

func (r *PgRepository) UpdateProduct(ctx context.Context, id int64, input ProductInput) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `
		UPDATE products SET name = $2, display_name = $3 WHERE id = $1
		RETURNING id, name, display_name, created_at`,
		id, input.Name, input.DisplayName).Scan(&p.ID, &p.Name, &p.DisplayName, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.NotFoundf("product %d", id)
	}
	return p, err
}

func (r *PgRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("product %d", id)
	}
	return nil
}

func (r *PgRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, display_name, created_at FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.DisplayName, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.NotFoundf("product %d", id)
	}
	return p, err
}

func (r *PgRepository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, display_name, created_at FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.DisplayName, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func mapUniqueViolation(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrConflict, msg)
	}
	return err
}
