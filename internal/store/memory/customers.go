package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/shopledger/shopledger/internal/customers"
)

type customerRepo struct{ base }

func (r customerRepo) FindByMobile(ctx context.Context, mobile string) (customers.Customer, error) {
	var out customers.Customer
	err := r.read(func(st *state) error {
		for _, c := range st.customers {
			if c.Mobile == mobile {
				out = c
				return nil
			}
		}
		return customers.ErrCustomerNotFound
	})
	return out, err
}

func (r customerRepo) FindByID(ctx context.Context, id int64) (customers.Customer, error) {
	var out customers.Customer
	err := r.read(func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return customers.ErrCustomerNotFound
		}
		out = c
		return nil
	})
	return out, err
}

func (r customerRepo) Create(ctx context.Context, c customers.Customer) (customers.Customer, error) {
	err := r.write("customers.create", func(st *state) error {
		for _, existing := range st.customers {
			if existing.Mobile == c.Mobile {
				return customers.ErrDuplicateMobile
			}
		}
		st.nextCust++
		c.ID = st.nextCust
		c.CreatedAt = r.now()
		c.UpdatedAt = c.CreatedAt
		st.customers[c.ID] = c
		return nil
	})
	if err != nil {
		return customers.Customer{}, err
	}
	return c, nil
}

func (r customerRepo) Update(ctx context.Context, c customers.Customer) (customers.Customer, error) {
	err := r.write("customers.update", func(st *state) error {
		if _, ok := st.customers[c.ID]; !ok {
			return customers.ErrCustomerNotFound
		}
		c.UpdatedAt = r.now()
		st.customers[c.ID] = c
		return nil
	})
	if err != nil {
		return customers.Customer{}, err
	}
	return c, nil
}

func (r customerRepo) List(ctx context.Context, filter customers.ListFilter) ([]customers.Customer, error) {
	var out []customers.Customer
	search := strings.ToLower(filter.Search)
	err := r.read(func(st *state) error {
		for _, c := range st.customers {
			if search != "" && !strings.Contains(strings.ToLower(c.Name), search) && !strings.Contains(c.Mobile, search) {
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}
