package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
)

const idempotencyModule = "bill.create"

// Scope is the slice of a unit of work bill flows need.
type Scope interface {
	Stock() *stock.Engine
	Catalog() *catalog.Resolver
	Customers() customers.Repository
	Bills() Repository
}

// Service owns the bill lifecycle. Every mutation reconciles the ledger and
// writes the bill inside one unit of work.
type Service struct {
	uow         uow.Runner[Scope]
	idempotency *shared.IdempotencyStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. idem may be nil, which disables Idempotency-Key support.
func NewService(runner uow.Runner[Scope], idem *shared.IdempotencyStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:         runner,
		idempotency: idem,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create records a sale. The customer must already exist; unknown item names are
// registered and given an empty ledger entry before stock is checked and deducted.
// A non-empty idempotencyKey is reserved first and released again if creation fails.
func (s *Service) Create(ctx context.Context, idempotencyKey string, req CreateBillRequest) (Bill, error) {
	if err := req.Validate(); err != nil {
		return Bill{}, err
	}
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.Reserve(ctx, idempotencyKey, idempotencyModule); err != nil {
			return Bill{}, err
		}
	}
	bill, err := s.create(ctx, req)
	if err != nil && idempotencyKey != "" && s.idempotency != nil {
		if rerr := s.idempotency.Release(context.WithoutCancel(ctx), idempotencyKey, idempotencyModule); rerr != nil {
			s.logger.WarnContext(ctx, "release idempotency key", slog.Any("error", rerr))
		}
	}
	return bill, err
}

func (s *Service) create(ctx context.Context, req CreateBillRequest) (Bill, error) {
	id := uuid.New()
	var created Bill
	err := s.uow.Do(ctx, "bill.create", func(ctx context.Context, scope Scope) error {
		customer, err := scope.Customers().FindByMobile(ctx, customers.NormalizeMobile(req.CustomerMobile))
		if err != nil {
			return err
		}
		items, err := resolveItems(ctx, scope, req.Items)
		if err != nil {
			return err
		}
		totals, err := ComputeTotals(items, req.Discount, req.CashAmount, req.UPIAmount)
		if err != nil {
			return err
		}
		if _, err := scope.Stock().Consume(ctx, itemLines(items), stock.Ref{Type: "bill", ID: id.String()}); err != nil {
			return err
		}
		now := s.now()
		bill := Bill{
			ID:             id,
			CustomerID:     customer.ID,
			CustomerMobile: customer.Mobile,
			Items:          items,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		bill.applyTotals(totals)
		created, err = scope.Bills().Create(ctx, bill)
		return err
	})
	if err != nil {
		return Bill{}, err
	}
	return created, nil
}

// Update replaces the items and payment of a bill, moving the ledger by the
// difference between the old and new item sets.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateBillRequest) (Bill, error) {
	if err := req.Validate(); err != nil {
		return Bill{}, err
	}
	var updated Bill
	err := s.uow.Do(ctx, "bill.update", func(ctx context.Context, scope Scope) error {
		bill, err := loadLive(ctx, scope.Bills(), id)
		if err != nil {
			return err
		}
		items, err := resolveItems(ctx, scope, req.Items)
		if err != nil {
			return err
		}
		totals, err := ComputeTotals(items, req.Discount, req.CashAmount, req.UPIAmount)
		if err != nil {
			return err
		}
		if _, err := scope.Stock().Reconcile(ctx, bill.StockLines(), itemLines(items), stock.Ref{Type: "bill", ID: id.String()}); err != nil {
			return err
		}
		if req.Customer != nil {
			if _, err := customers.ApplyPatch(ctx, scope.Customers(), bill.CustomerMobile, *req.Customer); err != nil {
				return err
			}
		}
		bill.Items = items
		bill.applyTotals(totals)
		bill.UpdatedAt = s.now()
		updated, err = scope.Bills().Update(ctx, bill)
		return err
	})
	if err != nil {
		return Bill{}, err
	}
	return updated, nil
}

// Delete soft-deletes a bill and returns its stock.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.uow.Do(ctx, "bill.delete", func(ctx context.Context, scope Scope) error {
		bill, err := loadLive(ctx, scope.Bills(), id)
		if err != nil {
			return err
		}
		ref := stock.Ref{Type: "bill", ID: id.String(), Note: "bill deleted"}
		if _, err := scope.Stock().Reconcile(ctx, bill.StockLines(), nil, ref); err != nil {
			return err
		}
		bill.Deleted = true
		bill.UpdatedAt = s.now()
		_, err = scope.Bills().Update(ctx, bill)
		return err
	})
}

// Get returns a bill, including soft-deleted ones.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Bill, error) {
	return s.uow.Direct().Bills().FindByID(ctx, id)
}

// List returns bills, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Bill, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.uow.Direct().Bills().List(ctx, filter)
}

func loadLive(ctx context.Context, repo Repository, id uuid.UUID) (Bill, error) {
	bill, err := repo.FindForUpdate(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if bill.Deleted {
		return Bill{}, ErrBillNotFound
	}
	return bill, nil
}

// resolveItems canonicalises names, makes sure each item has a ledger entry and
// fixes line totals.
func resolveItems(ctx context.Context, scope Scope, inputs []ItemInput) ([]Item, error) {
	items := make([]Item, 0, len(inputs))
	for _, in := range inputs {
		name, err := scope.Catalog().Resolve(ctx, in.Name)
		if err != nil {
			return nil, err
		}
		if _, err := scope.Stock().Ensure(ctx, name); err != nil {
			return nil, err
		}
		items = append(items, Item{Name: name, Qty: in.Qty, Rate: in.Rate, Total: LineTotal(in.Qty, in.Rate)})
	}
	return items, nil
}
