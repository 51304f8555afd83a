package app

import (
	"context"
	"log/slog"

	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/manufacturing"
	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/internal/vendors"
	"github.com/shopledger/shopledger/jobs"
)

// domainScope is what a store scope must expose to back every service.
type domainScope interface {
	billing.Scope
	manufacturing.Scope
	vendors.Scope
	Items() catalog.Repository
	Reviews() jobs.ReviewLog
}

// Services groups the domain services of one process.
type Services struct {
	Catalog       *catalog.Service
	Stock         *stock.Service
	Customers     *customers.Service
	Billing       *billing.Service
	Manufacturing *manufacturing.Processor
	Vendors       *vendors.Service
	Reviews       jobs.ReviewLog
}

type serviceDeps struct {
	classify    func(error) bool
	observer    uow.Observer
	idempotency *shared.IdempotencyStore
	logger      *slog.Logger
}

// buildServices gives each service its own unit of work over a narrowed view of store.
func buildServices[T domainScope](store uow.Store[T], deps serviceDeps) *Services {
	opts := []uow.Option{uow.WithLogger(deps.logger)}
	if deps.classify != nil {
		opts = append(opts, uow.WithClassifier(deps.classify))
	}
	if deps.observer != nil {
		opts = append(opts, uow.WithObserver(deps.observer))
	}
	direct := store.Direct()
	return &Services{
		Catalog:   catalog.NewService(direct.Items()),
		Customers: customers.NewService(direct.Customers()),
		Stock: stock.NewService(
			uow.New(uow.Narrow(store, func(s T) stock.Scope { return s }), opts...),
			deps.logger),
		Billing: billing.NewService(
			uow.New(uow.Narrow(store, func(s T) billing.Scope { return s }), opts...),
			deps.idempotency, deps.logger),
		Manufacturing: manufacturing.NewProcessor(
			uow.New(uow.Narrow(store, func(s T) manufacturing.Scope { return s }), opts...),
			deps.logger),
		Vendors: vendors.NewService(
			uow.New(uow.Narrow(store, func(s T) vendors.Scope { return s }), opts...),
			deps.idempotency, deps.logger),
		Reviews: direct.Reviews(),
	}
}

// inlineReviews records fallback reviews synchronously when no job queue is configured.
type inlineReviews struct {
	log jobs.ReviewLog
}

func (i inlineReviews) EnqueueFallbackReview(ctx context.Context, review jobs.FallbackReview) error {
	return i.log.RecordFallback(ctx, review)
}
