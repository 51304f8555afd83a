package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/shared"
)

type billRepo struct{ q dbtx }

const billSelect = `SELECT b.id, b.number, b.customer_id, c.mobile, b.items, b.grand_total, b.discount,
b.final_total, b.cash_amount, b.upi_amount, b.due_amount, b.payment_mode, b.deleted, b.created_at, b.updated_at
FROM bills b JOIN customers c ON c.id = b.customer_id`

func scanBill(row pgx.Row) (billing.Bill, error) {
	var b billing.Bill
	var items []byte
	var mode string
	err := row.Scan(&b.ID, &b.Number, &b.CustomerID, &b.CustomerMobile, &items, &b.GrandTotal, &b.Discount,
		&b.FinalTotal, &b.CashAmount, &b.UPIAmount, &b.DueAmount, &mode, &b.Deleted, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return billing.Bill{}, billing.ErrBillNotFound
		}
		return billing.Bill{}, translate(err)
	}
	if err := json.Unmarshal(items, &b.Items); err != nil {
		return billing.Bill{}, fmt.Errorf("store/postgres: decode bill %s items: %w", b.ID, err)
	}
	b.PaymentMode = billing.PaymentMode(mode)
	return b, nil
}

func (r billRepo) Create(ctx context.Context, bill billing.Bill) (billing.Bill, error) {
	items, err := json.Marshal(bill.Items)
	if err != nil {
		return billing.Bill{}, err
	}
	err = r.q.QueryRow(ctx, `INSERT INTO bills
(id, customer_id, items, grand_total, discount, final_total, cash_amount, upi_amount, due_amount, payment_mode, deleted, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO NOTHING
RETURNING number`,
		bill.ID, bill.CustomerID, items, bill.GrandTotal, bill.Discount, bill.FinalTotal, bill.CashAmount,
		bill.UPIAmount, bill.DueAmount, string(bill.PaymentMode), bill.Deleted, bill.CreatedAt, bill.UpdatedAt).
		Scan(&bill.Number)
	if errors.Is(err, pgx.ErrNoRows) {
		return billing.Bill{}, fmt.Errorf("%w: bill %s", shared.ErrDuplicate, bill.ID)
	}
	if err != nil {
		return billing.Bill{}, translate(err)
	}
	return bill, nil
}

func (r billRepo) FindByID(ctx context.Context, id uuid.UUID) (billing.Bill, error) {
	return scanBill(r.q.QueryRow(ctx, billSelect+` WHERE b.id = $1`, id))
}

func (r billRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (billing.Bill, error) {
	return scanBill(r.q.QueryRow(ctx, billSelect+` WHERE b.id = $1 FOR UPDATE OF b`, id))
}

func (r billRepo) Update(ctx context.Context, bill billing.Bill) (billing.Bill, error) {
	items, err := json.Marshal(bill.Items)
	if err != nil {
		return billing.Bill{}, err
	}
	err = r.q.QueryRow(ctx, `UPDATE bills
SET items = $2, grand_total = $3, discount = $4, final_total = $5, cash_amount = $6, upi_amount = $7,
    due_amount = $8, payment_mode = $9, deleted = $10, updated_at = $11
WHERE id = $1
RETURNING number, created_at`,
		bill.ID, items, bill.GrandTotal, bill.Discount, bill.FinalTotal, bill.CashAmount, bill.UPIAmount,
		bill.DueAmount, string(bill.PaymentMode), bill.Deleted, bill.UpdatedAt).
		Scan(&bill.Number, &bill.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return billing.Bill{}, billing.ErrBillNotFound
	}
	if err != nil {
		return billing.Bill{}, translate(err)
	}
	return bill, nil
}

func (r billRepo) List(ctx context.Context, filter billing.ListFilter) ([]billing.Bill, error) {
	rows, err := r.q.Query(ctx, billSelect+`
WHERE ($1 OR NOT b.deleted) AND ($2 = 0 OR b.customer_id = $2)
ORDER BY b.number DESC LIMIT $3`, filter.IncludeDeleted, filter.CustomerID, filter.Limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []billing.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
