package manufacturing

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists production runs.
type Repository interface {
	Create(ctx context.Context, rec Record) (Record, error)
	FindByID(ctx context.Context, id uuid.UUID) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
}
