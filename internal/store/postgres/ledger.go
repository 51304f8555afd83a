package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/stock"
)

type ledgerRepo struct{ q dbtx }

const entryColumns = `item_name, available_qty, rate, last_updated`

func scanEntry(row pgx.Row) (stock.Entry, error) {
	var e stock.Entry
	if err := row.Scan(&e.ItemName, &e.AvailableQty, &e.Rate, &e.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stock.Entry{}, stock.ErrEntryNotFound
		}
		return stock.Entry{}, translate(err)
	}
	return e, nil
}

func (r ledgerRepo) FindByName(ctx context.Context, name string) (stock.Entry, error) {
	return scanEntry(r.q.QueryRow(ctx, `SELECT `+entryColumns+` FROM stock_entries WHERE item_name = $1`, name))
}

func (r ledgerRepo) FindForUpdate(ctx context.Context, name string) (stock.Entry, error) {
	return scanEntry(r.q.QueryRow(ctx, `SELECT `+entryColumns+` FROM stock_entries WHERE item_name = $1 FOR UPDATE`, name))
}

func (r ledgerRepo) List(ctx context.Context, filter stock.ListFilter) ([]stock.Entry, error) {
	rows, err := r.q.Query(ctx, `SELECT e.item_name, e.available_qty, e.rate, e.last_updated
FROM stock_entries e
LEFT JOIN items i ON i.name = e.item_name
WHERE ($1 = '' OR COALESCE(i.name_key, LOWER(e.item_name)) LIKE '%' || $1 || '%')
  AND (NOT $2 OR e.available_qty <= $3)
ORDER BY e.item_name
LIMIT $4`, filter.Search, filter.OnlyLow, filter.Threshold, filter.Limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []stock.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r ledgerRepo) Movements(ctx context.Context, name string, limit int) ([]stock.Movement, error) {
	rows, err := r.q.Query(ctx, `SELECT id, item_name, kind, qty_change, balance_after, rate, ref_type, ref_id, note, created_at
FROM stock_movements WHERE item_name = $1 ORDER BY id DESC LIMIT $2`, name, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []stock.Movement
	for rows.Next() {
		var mv stock.Movement
		var kind string
		if err := rows.Scan(&mv.ID, &mv.ItemName, &kind, &mv.QtyChange, &mv.BalanceAfter, &mv.Rate, &mv.RefType, &mv.RefID, &mv.Note, &mv.CreatedAt); err != nil {
			return nil, err
		}
		mv.Kind = stock.MovementKind(kind)
		out = append(out, mv)
	}
	return out, rows.Err()
}

func (r ledgerRepo) Drifts(ctx context.Context) ([]stock.Drift, error) {
	rows, err := r.q.Query(ctx, `SELECT e.item_name, e.available_qty, COALESCE(SUM(m.qty_change), 0)
FROM stock_entries e
LEFT JOIN stock_movements m ON m.item_name = e.item_name
GROUP BY e.item_name, e.available_qty
HAVING e.available_qty <> COALESCE(SUM(m.qty_change), 0)
ORDER BY e.item_name`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []stock.Drift
	for rows.Next() {
		var d stock.Drift
		if err := rows.Scan(&d.ItemName, &d.AvailableQty, &d.MovementSum); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ApplyDelta upserts the entry. xmax is zero only on a freshly inserted row.
func (r ledgerRepo) ApplyDelta(ctx context.Context, name string, delta, seedRate decimal.Decimal) (stock.Entry, bool, error) {
	var e stock.Entry
	var created bool
	err := r.q.QueryRow(ctx, `INSERT INTO stock_entries (item_name, available_qty, rate, last_updated)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (item_name) DO UPDATE
SET available_qty = stock_entries.available_qty + EXCLUDED.available_qty,
    last_updated = CASE WHEN EXCLUDED.available_qty = 0 THEN stock_entries.last_updated ELSE NOW() END
RETURNING `+entryColumns+`, (xmax = 0)`, name, delta, seedRate).
		Scan(&e.ItemName, &e.AvailableQty, &e.Rate, &e.LastUpdated, &created)
	if err != nil {
		return stock.Entry{}, false, translate(err)
	}
	return e, created, nil
}

// DeductIfAvailable guards on the row value at write time, so it holds even
// without a surrounding transaction.
func (r ledgerRepo) DeductIfAvailable(ctx context.Context, name string, qty decimal.Decimal) (stock.Entry, bool, error) {
	e, err := scanEntry(r.q.QueryRow(ctx, `UPDATE stock_entries
SET available_qty = available_qty - $2, last_updated = NOW()
WHERE item_name = $1 AND available_qty >= $2
RETURNING `+entryColumns, name, qty))
	if errors.Is(err, stock.ErrEntryNotFound) {
		return stock.Entry{}, false, nil
	}
	if err != nil {
		return stock.Entry{}, false, err
	}
	return e, true, nil
}

func (r ledgerRepo) SetAbsolute(ctx context.Context, name string, qty, rate decimal.Decimal) (stock.Entry, error) {
	return scanEntry(r.q.QueryRow(ctx, `INSERT INTO stock_entries (item_name, available_qty, rate, last_updated)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (item_name) DO UPDATE
SET available_qty = EXCLUDED.available_qty, rate = EXCLUDED.rate, last_updated = NOW()
RETURNING `+entryColumns, name, qty, rate))
}

func (r ledgerRepo) SetRate(ctx context.Context, name string, rate decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE stock_entries SET rate = $2, last_updated = NOW() WHERE item_name = $1`, name, rate)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return stock.ErrEntryNotFound
	}
	return nil
}

func (r ledgerRepo) AppendMovement(ctx context.Context, mv stock.Movement) error {
	_, err := r.q.Exec(ctx, `INSERT INTO stock_movements
(item_name, kind, qty_change, balance_after, rate, ref_type, ref_id, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		mv.ItemName, string(mv.Kind), mv.QtyChange, mv.BalanceAfter, mv.Rate, mv.RefType, mv.RefID, mv.Note, mv.CreatedAt)
	return translate(err)
}
