package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/shared"
)

type billRepo struct{ base }

func (r billRepo) Create(ctx context.Context, bill billing.Bill) (billing.Bill, error) {
	err := r.write("bills.create", func(st *state) error {
		if _, ok := st.bills[bill.ID]; ok {
			return fmt.Errorf("%w: bill %s", shared.ErrDuplicate, bill.ID)
		}
		st.nextBill++
		bill.Number = st.nextBill
		bill.Items = slices.Clone(bill.Items)
		st.bills[bill.ID] = bill
		return nil
	})
	if err != nil {
		return billing.Bill{}, err
	}
	return bill, nil
}

func (r billRepo) FindByID(ctx context.Context, id uuid.UUID) (billing.Bill, error) {
	var out billing.Bill
	err := r.read(func(st *state) error {
		bill, ok := st.bills[id]
		if !ok {
			return billing.ErrBillNotFound
		}
		out = bill
		out.Items = slices.Clone(bill.Items)
		return nil
	})
	return out, err
}

func (r billRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (billing.Bill, error) {
	return r.FindByID(ctx, id)
}

func (r billRepo) Update(ctx context.Context, bill billing.Bill) (billing.Bill, error) {
	err := r.write("bills.update", func(st *state) error {
		existing, ok := st.bills[bill.ID]
		if !ok {
			return billing.ErrBillNotFound
		}
		bill.Number = existing.Number
		bill.CreatedAt = existing.CreatedAt
		bill.Items = slices.Clone(bill.Items)
		st.bills[bill.ID] = bill
		return nil
	})
	if err != nil {
		return billing.Bill{}, err
	}
	return bill, nil
}

func (r billRepo) List(ctx context.Context, filter billing.ListFilter) ([]billing.Bill, error) {
	var out []billing.Bill
	err := r.read(func(st *state) error {
		for _, bill := range st.bills {
			if bill.Deleted && !filter.IncludeDeleted {
				continue
			}
			if filter.CustomerID != 0 && bill.CustomerID != filter.CustomerID {
				continue
			}
			out = append(out, bill)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}
