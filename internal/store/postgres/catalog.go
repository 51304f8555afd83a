package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/shopledger/shopledger/internal/catalog"
)

type itemRepo struct{ q dbtx }

func (r itemRepo) FindByKey(ctx context.Context, key string) (catalog.Item, error) {
	var it catalog.Item
	err := r.q.QueryRow(ctx, `SELECT id, name, code, created_at FROM items
WHERE name_key = $1 OR code_key = $1 ORDER BY id LIMIT 1`, key).Scan(&it.ID, &it.Name, &it.Code, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Item{}, catalog.ErrItemNotFound
	}
	return it, translate(err)
}

// Create skips conflicting rows instead of raising, so a lost race does not
// abort the surrounding transaction.
func (r itemRepo) Create(ctx context.Context, name, code string) (catalog.Item, error) {
	it := catalog.Item{Name: name, Code: code}
	err := r.q.QueryRow(ctx, `INSERT INTO items (name, code, name_key, code_key)
VALUES ($1, $2, $3, NULLIF($4, ''))
ON CONFLICT (name_key) DO NOTHING
RETURNING id, created_at`, name, code, catalog.FoldKey(name), catalog.FoldKey(code)).Scan(&it.ID, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Item{}, catalog.ErrDuplicateItem
	}
	if err != nil {
		return catalog.Item{}, translate(err)
	}
	return it, nil
}

func (r itemRepo) Search(ctx context.Context, query string, limit int) ([]catalog.Item, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, code, created_at FROM items
WHERE $1 = '' OR name_key LIKE '%' || $1 || '%' OR code_key LIKE '%' || $1 || '%'
ORDER BY name LIMIT $2`, query, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []catalog.Item
	for rows.Next() {
		var it catalog.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Code, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
