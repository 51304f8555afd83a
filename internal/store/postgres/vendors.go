package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/vendors"
)

type vendorRepo struct{ q dbtx }

func scanVendor(row pgx.Row) (vendors.Vendor, error) {
	var v vendors.Vendor
	if err := row.Scan(&v.ID, &v.Name, &v.Mobile, &v.City, &v.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return vendors.Vendor{}, vendors.ErrVendorNotFound
		}
		return vendors.Vendor{}, translate(err)
	}
	return v, nil
}

func (r vendorRepo) CreateVendor(ctx context.Context, v vendors.Vendor) (vendors.Vendor, error) {
	out, err := scanVendor(r.q.QueryRow(ctx, `INSERT INTO vendors (name, mobile, city, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT ON CONSTRAINT vendors_mobile_uniq DO NOTHING
RETURNING id, name, mobile, city, created_at`, v.Name, v.Mobile, v.City, v.CreatedAt))
	if errors.Is(err, vendors.ErrVendorNotFound) {
		return vendors.Vendor{}, vendors.ErrDuplicateVendor
	}
	return out, err
}

func (r vendorRepo) FindVendor(ctx context.Context, id int64) (vendors.Vendor, error) {
	return scanVendor(r.q.QueryRow(ctx, `SELECT id, name, mobile, city, created_at FROM vendors WHERE id = $1`, id))
}

func (r vendorRepo) ListVendors(ctx context.Context) ([]vendors.Vendor, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, mobile, city, created_at FROM vendors ORDER BY name`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []vendors.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r vendorRepo) CreatePurchase(ctx context.Context, p vendors.Purchase) (vendors.Purchase, error) {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return vendors.Purchase{}, err
	}
	_, err = r.q.Exec(ctx, `INSERT INTO vendor_purchases (id, vendor_id, items, total, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, p.ID, p.VendorID, items, p.Total, p.Note, p.CreatedAt)
	if isUniqueViolation(err, "vendor_purchases_pkey") {
		return vendors.Purchase{}, fmt.Errorf("%w: purchase %s", shared.ErrDuplicate, p.ID)
	}
	if err != nil {
		return vendors.Purchase{}, translate(err)
	}
	return p, nil
}

func (r vendorRepo) ListPurchases(ctx context.Context, vendorID int64) ([]vendors.Purchase, error) {
	rows, err := r.q.Query(ctx, `SELECT id, vendor_id, items, total, note, created_at
FROM vendor_purchases WHERE vendor_id = $1 ORDER BY created_at`, vendorID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []vendors.Purchase
	for rows.Next() {
		var p vendors.Purchase
		var items []byte
		if err := rows.Scan(&p.ID, &p.VendorID, &items, &p.Total, &p.Note, &p.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &p.Items); err != nil {
			return nil, fmt.Errorf("store/postgres: decode purchase %s items: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r vendorRepo) CreatePayment(ctx context.Context, p vendors.Payment) (vendors.Payment, error) {
	err := r.q.QueryRow(ctx, `INSERT INTO vendor_payments (vendor_id, amount, mode, note, created_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, p.VendorID, p.Amount, string(p.Mode), p.Note, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return vendors.Payment{}, translate(err)
	}
	return p, nil
}

func (r vendorRepo) ListPayments(ctx context.Context, vendorID int64) ([]vendors.Payment, error) {
	rows, err := r.q.Query(ctx, `SELECT id, vendor_id, amount, mode, note, created_at
FROM vendor_payments WHERE vendor_id = $1 ORDER BY created_at`, vendorID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []vendors.Payment
	for rows.Next() {
		var p vendors.Payment
		var mode string
		if err := rows.Scan(&p.ID, &p.VendorID, &p.Amount, &mode, &p.Note, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Mode = vendors.PaymentMode(mode)
		out = append(out, p)
	}
	return out, rows.Err()
}
