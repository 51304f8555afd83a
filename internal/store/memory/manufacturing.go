package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/shopledger/shopledger/internal/manufacturing"
)

type recordRepo struct{ base }

func (r recordRepo) Create(ctx context.Context, rec manufacturing.Record) (manufacturing.Record, error) {
	rec.Inputs = slices.Clone(rec.Inputs)
	err := r.write("manufacturing.create", func(st *state) error {
		st.records[rec.ID] = rec
		return nil
	})
	if err != nil {
		return manufacturing.Record{}, err
	}
	return rec, nil
}

func (r recordRepo) FindByID(ctx context.Context, id uuid.UUID) (manufacturing.Record, error) {
	var out manufacturing.Record
	err := r.read(func(st *state) error {
		rec, ok := st.records[id]
		if !ok {
			return manufacturing.ErrRecordNotFound
		}
		out = rec
		return nil
	})
	return out, err
}

func (r recordRepo) List(ctx context.Context, limit int) ([]manufacturing.Record, error) {
	var out []manufacturing.Record
	err := r.read(func(st *state) error {
		for _, rec := range st.records {
			out = append(out, rec)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
