package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/shopledger/shopledger/internal/catalog"
)

type itemRepo struct{ base }

func matchesKey(item catalog.Item, key string) bool {
	return catalog.FoldKey(item.Name) == key || (item.Code != "" && catalog.FoldKey(item.Code) == key)
}

func (r itemRepo) FindByKey(ctx context.Context, key string) (catalog.Item, error) {
	var out catalog.Item
	err := r.read(func(st *state) error {
		for _, item := range st.items {
			if matchesKey(item, key) {
				out = item
				return nil
			}
		}
		return catalog.ErrItemNotFound
	})
	return out, err
}

func (r itemRepo) Create(ctx context.Context, name, code string) (catalog.Item, error) {
	var out catalog.Item
	err := r.write("items.create", func(st *state) error {
		nameKey := catalog.FoldKey(name)
		for _, item := range st.items {
			if catalog.FoldKey(item.Name) == nameKey {
				return catalog.ErrDuplicateItem
			}
		}
		st.nextItem++
		out = catalog.Item{ID: st.nextItem, Name: name, Code: code, CreatedAt: r.now()}
		st.items = append(st.items, out)
		return nil
	})
	return out, err
}

func (r itemRepo) Search(ctx context.Context, query string, limit int) ([]catalog.Item, error) {
	var out []catalog.Item
	err := r.read(func(st *state) error {
		for _, item := range st.items {
			if query == "" || strings.Contains(catalog.FoldKey(item.Name), query) || strings.Contains(catalog.FoldKey(item.Code), query) {
				out = append(out, item)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
