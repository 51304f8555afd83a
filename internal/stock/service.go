package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/platform/uow"
)

// Scope is the slice of a unit of work the stock service needs.
type Scope interface {
	Stock() *Engine
	Catalog() *catalog.Resolver
}

const (
	defaultListLimit = 200
	defaultCardLimit = 100
)

// Service answers ledger queries and books direct intake and opening stock.
type Service struct {
	uow    uow.Runner[Scope]
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds Service.
func NewService(runner uow.Runner[Scope], logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: runner, logger: logger}
}

// GetAvailableQty resolves raw to its canonical item and returns its balance.
// Unknown or untracked items report zero; nothing is created.
func (s *Service) GetAvailableQty(ctx context.Context, raw string) (Availability, error) {
	key := catalog.FoldKey(raw)
	if key == "" {
		return Availability{}, catalog.ErrBlankName
	}
	ch := s.group.DoChan(key, func() (any, error) {
		return s.lookupAvailability(ctx, raw)
	})
	select {
	case <-ctx.Done():
		return Availability{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Availability{}, res.Err
		}
		return res.Val.(Availability), nil
	}
}

func (s *Service) lookupAvailability(ctx context.Context, raw string) (Availability, error) {
	scope := s.uow.Direct()
	name, known, err := scope.Catalog().Lookup(ctx, raw)
	if err != nil {
		return Availability{}, err
	}
	out := Availability{ItemName: name, AvailableQty: decimal.Zero, Known: known}
	entry, err := scope.Stock().Reader().FindByName(ctx, name)
	switch {
	case err == nil:
		out.AvailableQty = entry.AvailableQty
		out.Tracked = entry.Tracked()
		out.Known = true
	case !errors.Is(err, ErrEntryNotFound):
		return Availability{}, fmt.Errorf("stock: availability %q: %w", name, err)
	}
	return out, nil
}

// List returns ledger entries.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = defaultListLimit
	}
	filter.Search = catalog.FoldKey(filter.Search)
	return s.uow.Direct().Stock().Reader().List(ctx, filter)
}

// Card returns the most recent movements of an item, newest first.
func (s *Service) Card(ctx context.Context, raw string, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 1000 {
		limit = defaultCardLimit
	}
	scope := s.uow.Direct()
	name, _, err := scope.Catalog().Lookup(ctx, raw)
	if err != nil {
		return nil, err
	}
	return scope.Stock().Reader().Movements(ctx, name, limit)
}

// Drifts lists entries whose balance disagrees with their stock card.
func (s *Service) Drifts(ctx context.Context) ([]Drift, error) {
	return s.uow.Direct().Stock().Reader().Drifts(ctx)
}

// Intake books received stock in one unit of work.
func (s *Service) Intake(ctx context.Context, req IntakeRequest) ([]Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var entries []Entry
	err := s.uow.Do(ctx, "stock.intake", func(ctx context.Context, scope Scope) error {
		receipts := make([]Receipt, 0, len(req.Items))
		for _, line := range req.Items {
			name, err := scope.Catalog().Resolve(ctx, line.Name)
			if err != nil {
				return err
			}
			receipts = append(receipts, Receipt{Name: name, Qty: line.Qty, Rate: line.Rate})
		}
		var err error
		entries, err = scope.Stock().Receive(ctx, receipts, Ref{Type: "intake", Note: req.Note})
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ImportOpening overwrites balances and rates for every row in one unit of work.
// A later row for the same item wins.
func (s *Service) ImportOpening(ctx context.Context, req OpeningRequest) (OpeningResult, error) {
	if err := req.Validate(); err != nil {
		return OpeningResult{}, err
	}
	var result OpeningResult
	err := s.uow.Do(ctx, "stock.opening", func(ctx context.Context, scope Scope) error {
		result = OpeningResult{Entries: make([]Entry, 0, len(req.Rows))}
		for _, row := range req.Rows {
			name, err := scope.Catalog().Resolve(ctx, row.Name)
			if err != nil {
				return err
			}
			entry, err := scope.Stock().SetOpening(ctx, name, row.Qty, row.Rate, Ref{Type: "opening"})
			if err != nil {
				return err
			}
			result.Entries = append(result.Entries, entry)
		}
		return nil
	})
	if err != nil {
		return OpeningResult{}, err
	}
	s.logger.InfoContext(ctx, "opening stock imported", slog.Int("rows", len(result.Entries)))
	return result, nil
}
