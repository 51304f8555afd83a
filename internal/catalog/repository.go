package catalog

import "context"

// Repository persists catalog items. Implementations match keys produced by FoldKey
// against both the folded name and the folded code, returning the oldest match.
type Repository interface {
	FindByKey(ctx context.Context, key string) (Item, error)
	Create(ctx context.Context, name, code string) (Item, error)
	Search(ctx context.Context, query string, limit int) ([]Item, error)
}
