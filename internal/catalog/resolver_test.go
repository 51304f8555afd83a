package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	items []Item
}

func (r *memoryRepo) FindByKey(ctx context.Context, key string) (Item, error) {
	for _, item := range r.items {
		if FoldKey(item.Name) == key || (item.Code != "" && FoldKey(item.Code) == key) {
			return item, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (r *memoryRepo) Create(ctx context.Context, name, code string) (Item, error) {
	item := Item{ID: int64(len(r.items) + 1), Name: name, Code: code, CreatedAt: time.Now()}
	r.items = append(r.items, item)
	return item, nil
}

func (r *memoryRepo) Search(ctx context.Context, query string, limit int) ([]Item, error) {
	var out []Item
	for _, item := range r.items {
		if strings.Contains(FoldKey(item.Name), query) || strings.Contains(FoldKey(item.Code), query) {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestResolveMatchesNameOrCodeIgnoringCase(t *testing.T) {
	repo := &memoryRepo{}
	_, err := repo.Create(context.Background(), "Sugar 1kg", "SG1")
	require.NoError(t, err)
	resolver := NewResolver(repo)

	for _, raw := range []string{"sg1", "SG1", "sugar 1KG", "  Sugar 1kg "} {
		name, err := resolver.Resolve(context.Background(), raw)
		require.NoError(t, err, raw)
		require.Equal(t, "Sugar 1kg", name, raw)
	}
	require.Len(t, repo.items, 1)
}

func TestResolveRegistersUnknownNames(t *testing.T) {
	repo := &memoryRepo{}
	resolver := NewResolver(repo)

	name, err := resolver.Resolve(context.Background(), "  Green Tea ")
	require.NoError(t, err)
	require.Equal(t, "Green Tea", name)
	require.Len(t, repo.items, 1)

	name, err = resolver.Resolve(context.Background(), "GREEN TEA")
	require.NoError(t, err)
	require.Equal(t, "Green Tea", name)
	require.Len(t, repo.items, 1)
}

func TestLookupDoesNotRegister(t *testing.T) {
	repo := &memoryRepo{}
	resolver := NewResolver(repo)

	name, found, err := resolver.Lookup(context.Background(), "Rice")
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, "Rice", name)
	require.Empty(t, repo.items)

	_, _, err = resolver.Lookup(context.Background(), "   ")
	require.ErrorIs(t, err, ErrBlankName)
}

func TestFoldKeyHandlesUnicode(t *testing.T) {
	require.Equal(t, FoldKey("Straße"), FoldKey("STRASSE"))
	require.Empty(t, FoldKey("  "))
}

func TestServiceCreateRejectsCollisions(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateItemRequest{Name: "Sugar 1kg", Code: "SG1"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateItemRequest{Name: "sg1"})
	require.ErrorIs(t, err, ErrDuplicateItem)

	_, err = svc.Create(context.Background(), CreateItemRequest{Name: "Salt", Code: "SUGAR 1KG"})
	require.ErrorIs(t, err, ErrDuplicateItem)

	items, err := svc.Search(context.Background(), "SUG", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
}
