// Package postgres is the PostgreSQL store. Each Scope is bound either to a
// repeatable-read transaction or to the pool directly.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/manufacturing"
	"github.com/shopledger/shopledger/internal/platform/db"
	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/internal/vendors"
	"github.com/shopledger/shopledger/jobs"
)

//go:embed schema.sql
var schema string

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store opens units of work against a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	direct *Scope
}

// New constructs Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, direct: newScope(pool)}
}

// migrateLock serialises concurrent Migrate calls across processes.
const migrateLock int64 = 0x73686f706c6467

// Migrate applies the embedded schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	opts := db.TxOptions{IsoLevel: pgx.ReadCommitted, AdvisoryLock: migrateLock}
	return db.WithTx(ctx, s.pool, opts, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, schema); err != nil {
			return fmt.Errorf("store/postgres: apply schema: %w", err)
		}
		return nil
	})
}

// Begin opens a repeatable-read transaction.
func (s *Store) Begin(ctx context.Context) (uow.Tx[*Scope], error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, translate(txBoundary(err))
	}
	return &pgTx{tx: tx, scope: newScope(tx)}, nil
}

// Direct returns a scope running each statement in autocommit mode.
func (s *Store) Direct() *Scope {
	return s.direct
}

type pgTx struct {
	tx    pgx.Tx
	scope *Scope
}

func (t *pgTx) Scope() *Scope { return t.scope }

func (t *pgTx) Commit(ctx context.Context) error {
	return translate(txBoundary(t.tx.Commit(ctx)))
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// Scope exposes the repositories bound to one connection or transaction.
type Scope struct {
	engine    *stock.Engine
	resolver  *catalog.Resolver
	ledger    ledgerRepo
	items     itemRepo
	customers customerRepo
	bills     billRepo
	records   recordRepo
	vendors   vendorRepo
	reviews   reviewRepo
}

func newScope(q dbtx) *Scope {
	sc := &Scope{
		ledger:    ledgerRepo{q},
		items:     itemRepo{q},
		customers: customerRepo{q},
		bills:     billRepo{q},
		records:   recordRepo{q},
		vendors:   vendorRepo{q},
		reviews:   reviewRepo{q},
	}
	sc.engine = stock.NewEngine(sc.ledger)
	sc.resolver = catalog.NewResolver(sc.items)
	return sc
}

func (s *Scope) Stock() *stock.Engine                    { return s.engine }
func (s *Scope) Catalog() *catalog.Resolver              { return s.resolver }
func (s *Scope) Items() catalog.Repository               { return s.items }
func (s *Scope) Customers() customers.Repository         { return s.customers }
func (s *Scope) Bills() billing.Repository               { return s.bills }
func (s *Scope) Manufacturing() manufacturing.Repository { return s.records }
func (s *Scope) Vendors() vendors.Repository             { return s.vendors }
func (s *Scope) Reviews() jobs.ReviewLog                 { return s.reviews }
