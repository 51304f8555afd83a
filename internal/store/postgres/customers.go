package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/shopledger/shopledger/internal/customers"
)

type customerRepo struct{ q dbtx }

const customerColumns = `id, mobile, name, type, city, created_at, updated_at`

func scanCustomer(row pgx.Row) (customers.Customer, error) {
	var c customers.Customer
	var typ string
	if err := row.Scan(&c.ID, &c.Mobile, &c.Name, &typ, &c.City, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return customers.Customer{}, customers.ErrCustomerNotFound
		}
		return customers.Customer{}, translate(err)
	}
	c.Type = customers.Type(typ)
	return c, nil
}

func (r customerRepo) FindByMobile(ctx context.Context, mobile string) (customers.Customer, error) {
	return scanCustomer(r.q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE mobile = $1`, mobile))
}

func (r customerRepo) FindByID(ctx context.Context, id int64) (customers.Customer, error) {
	return scanCustomer(r.q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r customerRepo) Create(ctx context.Context, c customers.Customer) (customers.Customer, error) {
	out, err := scanCustomer(r.q.QueryRow(ctx, `INSERT INTO customers (mobile, name, type, city)
VALUES ($1, $2, $3, $4)
ON CONFLICT ON CONSTRAINT customers_mobile_uniq DO NOTHING
RETURNING `+customerColumns, c.Mobile, c.Name, string(c.Type), c.City))
	if errors.Is(err, customers.ErrCustomerNotFound) {
		return customers.Customer{}, customers.ErrDuplicateMobile
	}
	return out, err
}

func (r customerRepo) Update(ctx context.Context, c customers.Customer) (customers.Customer, error) {
	return scanCustomer(r.q.QueryRow(ctx, `UPDATE customers
SET name = $2, type = $3, city = $4, updated_at = NOW()
WHERE id = $1
RETURNING `+customerColumns, c.ID, c.Name, string(c.Type), c.City))
}

func (r customerRepo) List(ctx context.Context, filter customers.ListFilter) ([]customers.Customer, error) {
	rows, err := r.q.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR mobile LIKE '%' || $1 || '%'
ORDER BY name LIMIT $2`, filter.Search, filter.Limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []customers.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
