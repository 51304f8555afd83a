package memory

import (
	"context"
	"slices"

	"github.com/shopledger/shopledger/jobs"
)

type reviewRepo struct{ base }

func (r reviewRepo) RecordFallback(ctx context.Context, review jobs.FallbackReview) error {
	return r.write("reviews.record", func(st *state) error {
		st.reviews = append(st.reviews, review)
		return nil
	})
}

func (r reviewRepo) ListFallbacks(ctx context.Context, limit int) ([]jobs.FallbackReview, error) {
	var out []jobs.FallbackReview
	err := r.read(func(st *state) error {
		out = slices.Clone(st.reviews)
		return nil
	})
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
