package manufacturing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/stock"
)

// Scope is the slice of a unit of work production runs need.
type Scope interface {
	Stock() *stock.Engine
	Catalog() *catalog.Resolver
	Manufacturing() Repository
}

// Processor records production runs: it consumes stock-backed inputs at ledger
// rate, costs the run and credits the product.
type Processor struct {
	uow    uow.Runner[Scope]
	logger *slog.Logger
	now    func() time.Time
}

// NewProcessor builds Processor.
func NewProcessor(runner uow.Runner[Scope], logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{uow: runner, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create runs one production entry in a single unit of work.
func (p *Processor) Create(ctx context.Context, req CreateRequest) (Record, error) {
	if err := req.Validate(); err != nil {
		return Record{}, err
	}
	id := uuid.New()
	var created Record
	err := p.uow.Do(ctx, "manufacturing.create", func(ctx context.Context, scope Scope) error {
		ref := stock.Ref{Type: "manufacturing", ID: id.String(), Note: req.Note}
		product, err := scope.Catalog().Resolve(ctx, req.ProductName)
		if err != nil {
			return err
		}
		rec := Record{
			ID:          id,
			ProductName: product,
			ProducedQty: req.ProducedQty,
			Inputs:      make([]Input, 0, len(req.Inputs)),
			TotalCost:   decimal.Zero,
			Note:        req.Note,
			CreatedAt:   p.now(),
		}
		for _, in := range req.Inputs {
			name, err := scope.Catalog().Resolve(ctx, in.Name)
			if err != nil {
				return err
			}
			rate := in.Rate
			if in.FromStock {
				entry, err := scope.Stock().ConsumeStrict(ctx, name, in.QtyUsed, ref)
				if err != nil {
					return err
				}
				rate = entry.Rate
			}
			cost := InputCost(in.QtyUsed, rate)
			rec.Inputs = append(rec.Inputs, Input{Name: name, QtyUsed: in.QtyUsed, Rate: rate, Cost: cost, FromStock: in.FromStock})
			rec.TotalCost = rec.TotalCost.Add(cost)
		}
		rec.CostPerUnit = CostPerUnit(rec.TotalCost, rec.ProducedQty)
		if _, _, err := scope.Stock().Produce(ctx, product, rec.ProducedQty, rec.CostPerUnit, ref); err != nil {
			return err
		}
		created, err = scope.Manufacturing().Create(ctx, rec)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	return created, nil
}

// Get returns one production run.
func (p *Processor) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	return p.uow.Direct().Manufacturing().FindByID(ctx, id)
}

// List returns production runs, newest first.
func (p *Processor) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return p.uow.Direct().Manufacturing().List(ctx, limit)
}
