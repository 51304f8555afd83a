package postgres

import (
	"context"

	"github.com/shopledger/shopledger/jobs"
)

type reviewRepo struct{ q dbtx }

func (r reviewRepo) RecordFallback(ctx context.Context, review jobs.FallbackReview) error {
	_, err := r.q.Exec(ctx, `INSERT INTO uow_events (op, state, error, created_at)
VALUES ($1, $2, $3, COALESCE($4, NOW()))`, review.Op, review.State, review.Error, nullTime(review))
	return translate(err)
}

func (r reviewRepo) ListFallbacks(ctx context.Context, limit int) ([]jobs.FallbackReview, error) {
	rows, err := r.q.Query(ctx, `SELECT op, state, error, created_at FROM uow_events ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []jobs.FallbackReview
	for rows.Next() {
		var rv jobs.FallbackReview
		if err := rows.Scan(&rv.Op, &rv.State, &rv.Error, &rv.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func nullTime(review jobs.FallbackReview) any {
	if review.OccurredAt.IsZero() {
		return nil
	}
	return review.OccurredAt
}
