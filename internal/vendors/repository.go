package vendors

import "context"

// Repository persists vendors and their purchase ledger.
type Repository interface {
	CreateVendor(ctx context.Context, v Vendor) (Vendor, error)
	FindVendor(ctx context.Context, id int64) (Vendor, error)
	ListVendors(ctx context.Context) ([]Vendor, error)
	CreatePurchase(ctx context.Context, p Purchase) (Purchase, error)
	ListPurchases(ctx context.Context, vendorID int64) ([]Purchase, error)
	CreatePayment(ctx context.Context, p Payment) (Payment, error)
	ListPayments(ctx context.Context, vendorID int64) ([]Payment, error)
}
