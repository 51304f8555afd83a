package customers

import (
	"context"
	"strings"

	"github.com/shopledger/shopledger/internal/shared"
)

// Service handles customer business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new customer. Mobile numbers are unique.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (Customer, error) {
	req.Mobile = NormalizeMobile(req.Mobile)
	req.Name = strings.TrimSpace(req.Name)
	if err := shared.ValidateStruct(req).OrNil(); err != nil {
		return Customer{}, err
	}
	if req.Type == "" {
		req.Type = TypeRetail
	}
	return s.repo.Create(ctx, Customer{
		Mobile: req.Mobile,
		Name:   req.Name,
		Type:   req.Type,
		City:   strings.TrimSpace(req.City),
	})
}

// GetByMobile returns the customer registered under mobile.
func (s *Service) GetByMobile(ctx context.Context, mobile string) (Customer, error) {
	return s.repo.FindByMobile(ctx, NormalizeMobile(mobile))
}

// List returns customers ordered by name.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// Update applies a patch to the customer registered under mobile.
func (s *Service) Update(ctx context.Context, mobile string, patch Patch) (Customer, error) {
	if err := shared.ValidateStruct(patch).OrNil(); err != nil {
		return Customer{}, err
	}
	return ApplyPatch(ctx, s.repo, NormalizeMobile(mobile), patch)
}

// ApplyPatch loads, patches and saves a customer through repo. Bill edits use it
// inside their unit of work.
func ApplyPatch(ctx context.Context, repo Repository, mobile string, patch Patch) (Customer, error) {
	c, err := repo.FindByMobile(ctx, mobile)
	if err != nil {
		return Customer{}, err
	}
	if patch.Empty() {
		return c, nil
	}
	patch.Apply(&c)
	return repo.Update(ctx, c)
}
