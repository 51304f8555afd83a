package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopledger/shopledger/internal/manufacturing"
	"github.com/shopledger/shopledger/internal/shared"
)

type recordRepo struct{ q dbtx }

const recordSelect = `SELECT id, product_name, produced_qty, inputs, total_cost, cost_per_unit, note, created_at
FROM manufacturing_records`

func scanRecord(row pgx.Row) (manufacturing.Record, error) {
	var rec manufacturing.Record
	var inputs []byte
	err := row.Scan(&rec.ID, &rec.ProductName, &rec.ProducedQty, &inputs, &rec.TotalCost, &rec.CostPerUnit, &rec.Note, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return manufacturing.Record{}, manufacturing.ErrRecordNotFound
		}
		return manufacturing.Record{}, translate(err)
	}
	if err := json.Unmarshal(inputs, &rec.Inputs); err != nil {
		return manufacturing.Record{}, fmt.Errorf("store/postgres: decode record %s inputs: %w", rec.ID, err)
	}
	return rec, nil
}

func (r recordRepo) Create(ctx context.Context, rec manufacturing.Record) (manufacturing.Record, error) {
	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return manufacturing.Record{}, err
	}
	_, err = r.q.Exec(ctx, `INSERT INTO manufacturing_records
(id, product_name, produced_qty, inputs, total_cost, cost_per_unit, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.ProductName, rec.ProducedQty, inputs, rec.TotalCost, rec.CostPerUnit, rec.Note, rec.CreatedAt)
	if isUniqueViolation(err, "manufacturing_records_pkey") {
		return manufacturing.Record{}, fmt.Errorf("%w: manufacturing record %s", shared.ErrDuplicate, rec.ID)
	}
	if err != nil {
		return manufacturing.Record{}, translate(err)
	}
	return rec, nil
}

func (r recordRepo) FindByID(ctx context.Context, id uuid.UUID) (manufacturing.Record, error) {
	return scanRecord(r.q.QueryRow(ctx, recordSelect+` WHERE id = $1`, id))
}

func (r recordRepo) List(ctx context.Context, limit int) ([]manufacturing.Record, error) {
	rows, err := r.q.Query(ctx, recordSelect+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []manufacturing.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
