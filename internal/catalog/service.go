package catalog

import (
	"context"
	"fmt"
	"strings"
)

const defaultSearchLimit = 50

// CreateItemRequest registers an item with an optional short code.
type CreateItemRequest struct {
	Name string `json:"name" validate:"required,max=160"`
	Code string `json:"code" validate:"omitempty,max=40"`
}

// Service exposes catalog maintenance outside of stock flows.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new item. A name or code that already matches an item,
// in either field, is a duplicate.
func (s *Service) Create(ctx context.Context, req CreateItemRequest) (Item, error) {
	name := strings.TrimSpace(req.Name)
	code := strings.TrimSpace(req.Code)
	if name == "" {
		return Item{}, ErrBlankName
	}
	for _, key := range []string{FoldKey(name), FoldKey(code)} {
		if key == "" {
			continue
		}
		if existing, err := s.repo.FindByKey(ctx, key); err == nil {
			return Item{}, fmt.Errorf("%w: %q already matches item %q", ErrDuplicateItem, key, existing.Name)
		}
	}
	return s.repo.Create(ctx, name, code)
}

// Search lists items whose name or code contains query, ignoring case.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Item, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultSearchLimit
	}
	return s.repo.Search(ctx, FoldKey(query), limit)
}
