package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/shopledger/shopledger/internal/vendors"
)

type vendorRepo struct{ base }

func (r vendorRepo) CreateVendor(ctx context.Context, v vendors.Vendor) (vendors.Vendor, error) {
	err := r.write("vendors.create", func(st *state) error {
		for _, existing := range st.vendors {
			if existing.Mobile == v.Mobile {
				return vendors.ErrDuplicateVendor
			}
		}
		st.nextVendor++
		v.ID = st.nextVendor
		st.vendors[v.ID] = v
		return nil
	})
	if err != nil {
		return vendors.Vendor{}, err
	}
	return v, nil
}

func (r vendorRepo) FindVendor(ctx context.Context, id int64) (vendors.Vendor, error) {
	var out vendors.Vendor
	err := r.read(func(st *state) error {
		v, ok := st.vendors[id]
		if !ok {
			return vendors.ErrVendorNotFound
		}
		out = v
		return nil
	})
	return out, err
}

func (r vendorRepo) ListVendors(ctx context.Context) ([]vendors.Vendor, error) {
	var out []vendors.Vendor
	err := r.read(func(st *state) error {
		for _, v := range st.vendors {
			out = append(out, v)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r vendorRepo) CreatePurchase(ctx context.Context, p vendors.Purchase) (vendors.Purchase, error) {
	p.Items = slices.Clone(p.Items)
	err := r.write("vendors.purchase", func(st *state) error {
		st.purchases = append(st.purchases, p)
		return nil
	})
	if err != nil {
		return vendors.Purchase{}, err
	}
	return p, nil
}

func (r vendorRepo) ListPurchases(ctx context.Context, vendorID int64) ([]vendors.Purchase, error) {
	var out []vendors.Purchase
	err := r.read(func(st *state) error {
		for _, p := range st.purchases {
			if p.VendorID == vendorID {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (r vendorRepo) CreatePayment(ctx context.Context, p vendors.Payment) (vendors.Payment, error) {
	err := r.write("vendors.payment", func(st *state) error {
		st.nextPay++
		p.ID = st.nextPay
		st.payments = append(st.payments, p)
		return nil
	})
	if err != nil {
		return vendors.Payment{}, err
	}
	return p, nil
}

func (r vendorRepo) ListPayments(ctx context.Context, vendorID int64) ([]vendors.Payment, error) {
	var out []vendors.Payment
	err := r.read(func(st *state) error {
		for _, p := range st.payments {
			if p.VendorID == vendorID {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}
