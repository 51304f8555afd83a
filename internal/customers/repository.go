package customers

import "context"

// Repository persists customers.
type Repository interface {
	FindByMobile(ctx context.Context, mobile string) (Customer, error)
	FindByID(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) (Customer, error)
	List(ctx context.Context, filter ListFilter) ([]Customer, error)
}
