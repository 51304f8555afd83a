package stock

import (
	"context"

	"github.com/shopspring/decimal"
)

// Reader is the read-only view of the ledger.
type Reader interface {
	FindByName(ctx context.Context, name string) (Entry, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
	Movements(ctx context.Context, name string, limit int) ([]Movement, error)
	Drifts(ctx context.Context) ([]Drift, error)
}

// Repository is the ledger persistence port. Only Engine writes through it.
type Repository interface {
	Reader
	// FindForUpdate reads an entry and, inside a transaction, locks it.
	FindForUpdate(ctx context.Context, name string) (Entry, error)
	// ApplyDelta adds delta to the entry, creating it at zero first when absent.
	// seedRate is stored only when the entry is created. Negative results are legal.
	ApplyDelta(ctx context.Context, name string, delta, seedRate decimal.Decimal) (Entry, bool, error)
	// DeductIfAvailable subtracts qty only when available_qty >= qty at write time.
	// ok is false when the guard rejected the write.
	DeductIfAvailable(ctx context.Context, name string, qty decimal.Decimal) (entry Entry, ok bool, err error)
	// SetAbsolute overwrites quantity and rate, creating the entry when absent.
	SetAbsolute(ctx context.Context, name string, qty, rate decimal.Decimal) (Entry, error)
	SetRate(ctx context.Context, name string, rate decimal.Decimal) error
	AppendMovement(ctx context.Context, mv Movement) error
}
