package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopledger/shopledger/internal/shared"
)

// Resolver maps raw user-entered names onto canonical item names.
type Resolver struct {
	repo Repository
}

// NewResolver binds a Resolver to a repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the stored name of the item whose name or code equals raw,
// ignoring case. Unknown names are trimmed and registered as new items.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	name, found, err := r.Lookup(ctx, raw)
	if err != nil || found {
		return name, err
	}
	item, err := r.repo.Create(ctx, name, "")
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			// registered concurrently under the same key
			existing, ferr := r.repo.FindByKey(ctx, FoldKey(name))
			if ferr == nil {
				return existing.Name, nil
			}
		}
		return "", fmt.Errorf("catalog: register %q: %w", name, err)
	}
	return item.Name, nil
}

// Lookup is Resolve without registration. When nothing matches it returns the
// trimmed input and found=false.
func (r *Resolver) Lookup(ctx context.Context, raw string) (string, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false, ErrBlankName
	}
	item, err := r.repo.FindByKey(ctx, FoldKey(trimmed))
	switch {
	case err == nil:
		return item.Name, true, nil
	case errors.Is(err, ErrItemNotFound):
		return trimmed, false, nil
	default:
		return "", false, fmt.Errorf("catalog: lookup %q: %w", trimmed, err)
	}
}
