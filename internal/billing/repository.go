package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists bills. Items are stored with the bill and replaced wholesale.
type Repository interface {
	Create(ctx context.Context, bill Bill) (Bill, error)
	FindByID(ctx context.Context, id uuid.UUID) (Bill, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (Bill, error)
	Update(ctx context.Context, bill Bill) (Bill, error)
	List(ctx context.Context, filter ListFilter) ([]Bill, error)
}
