package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/stock"
)

type ledgerRepo struct{ base }

func (r ledgerRepo) FindByName(ctx context.Context, name string) (stock.Entry, error) {
	var out stock.Entry
	err := r.read(func(st *state) error {
		entry, ok := st.entries[name]
		if !ok {
			return stock.ErrEntryNotFound
		}
		out = entry
		return nil
	})
	return out, err
}

func (r ledgerRepo) FindForUpdate(ctx context.Context, name string) (stock.Entry, error) {
	return r.FindByName(ctx, name)
}

func (r ledgerRepo) List(ctx context.Context, filter stock.ListFilter) ([]stock.Entry, error) {
	var out []stock.Entry
	err := r.read(func(st *state) error {
		for _, entry := range st.entries {
			if filter.Search != "" && !strings.Contains(catalog.FoldKey(entry.ItemName), filter.Search) {
				continue
			}
			if filter.OnlyLow && entry.AvailableQty.GreaterThan(filter.Threshold) {
				continue
			}
			out = append(out, entry)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}

func (r ledgerRepo) Movements(ctx context.Context, name string, limit int) ([]stock.Movement, error) {
	var out []stock.Movement
	err := r.read(func(st *state) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			if st.movements[i].ItemName != name {
				continue
			}
			out = append(out, st.movements[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r ledgerRepo) Drifts(ctx context.Context) ([]stock.Drift, error) {
	var out []stock.Drift
	err := r.read(func(st *state) error {
		sums := make(map[string]decimal.Decimal, len(st.entries))
		for _, mv := range st.movements {
			sums[mv.ItemName] = sums[mv.ItemName].Add(mv.QtyChange)
		}
		for name, entry := range st.entries {
			if !entry.AvailableQty.Equal(sums[name]) {
				out = append(out, stock.Drift{ItemName: name, AvailableQty: entry.AvailableQty, MovementSum: sums[name]})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	return out, err
}

func (r ledgerRepo) ApplyDelta(ctx context.Context, name string, delta, seedRate decimal.Decimal) (stock.Entry, bool, error) {
	var (
		out     stock.Entry
		created bool
	)
	if delta.IsZero() {
		var found bool
		if err := r.read(func(st *state) error {
			out, found = st.entries[name]
			return nil
		}); err != nil {
			return stock.Entry{}, false, err
		}
		if found {
			return out, false, nil
		}
	}
	err := r.write("stock.apply", func(st *state) error {
		entry, ok := st.entries[name]
		if !ok {
			entry = stock.Entry{ItemName: name, AvailableQty: decimal.Zero, Rate: seedRate}
			created = true
		}
		entry.AvailableQty = entry.AvailableQty.Add(delta)
		entry.LastUpdated = r.now()
		st.entries[name] = entry
		out = entry
		return nil
	})
	return out, created, err
}

func (r ledgerRepo) DeductIfAvailable(ctx context.Context, name string, qty decimal.Decimal) (stock.Entry, bool, error) {
	var (
		out stock.Entry
		ok  bool
	)
	err := r.write("stock.deduct", func(st *state) error {
		entry, found := st.entries[name]
		if !found || entry.AvailableQty.LessThan(qty) {
			return nil
		}
		entry.AvailableQty = entry.AvailableQty.Sub(qty)
		entry.LastUpdated = r.now()
		st.entries[name] = entry
		out, ok = entry, true
		return nil
	})
	return out, ok, err
}

func (r ledgerRepo) SetAbsolute(ctx context.Context, name string, qty, rate decimal.Decimal) (stock.Entry, error) {
	out := stock.Entry{ItemName: name, AvailableQty: qty, Rate: rate, LastUpdated: r.now()}
	err := r.write("stock.set", func(st *state) error {
		st.entries[name] = out
		return nil
	})
	return out, err
}

func (r ledgerRepo) SetRate(ctx context.Context, name string, rate decimal.Decimal) error {
	return r.write("stock.rate", func(st *state) error {
		entry, ok := st.entries[name]
		if !ok {
			return stock.ErrEntryNotFound
		}
		entry.Rate = rate
		entry.LastUpdated = r.now()
		st.entries[name] = entry
		return nil
	})
}

func (r ledgerRepo) AppendMovement(ctx context.Context, mv stock.Movement) error {
	return r.write("stock.movement", func(st *state) error {
		st.nextMove++
		mv.ID = st.nextMove
		st.movements = append(st.movements, mv)
		return nil
	})
}
