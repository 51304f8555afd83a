// Package memory is an in-process store with snapshot transactions. It backs the
// memory driver and lets tests switch transactions off or inject write failures.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/manufacturing"
	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/internal/vendors"
	"github.com/shopledger/shopledger/jobs"
)

var errTxClosed = errors.New("memory: transaction already closed")

// Options configures a Store.
type Options struct {
	// Transactions false makes Begin fail with uow.ErrTransactionsUnsupported.
	Transactions bool
	// BeginHook and CommitHook may fail the respective step.
	BeginHook  func(ctx context.Context) error
	CommitHook func(ctx context.Context) error
	// WriteHook runs before every write with an operation name such as "bills.create".
	WriteHook func(op string) error
}

type state struct {
	items      []catalog.Item
	entries    map[string]stock.Entry
	movements  []stock.Movement
	customers  map[int64]customers.Customer
	bills      map[uuid.UUID]billing.Bill
	records    map[uuid.UUID]manufacturing.Record
	vendors    map[int64]vendors.Vendor
	purchases  []vendors.Purchase
	payments   []vendors.Payment
	reviews    []jobs.FallbackReview
	nextItem   int64
	nextMove   int64
	nextCust   int64
	nextBill   int64
	nextVendor int64
	nextPay    int64
}

func newState() *state {
	return &state{
		entries:   make(map[string]stock.Entry),
		customers: make(map[int64]customers.Customer),
		bills:     make(map[uuid.UUID]billing.Bill),
		records:   make(map[uuid.UUID]manufacturing.Record),
		vendors:   make(map[int64]vendors.Vendor),
	}
}

func (s *state) clone() *state {
	c := *s
	c.items = slices.Clone(s.items)
	c.entries = maps.Clone(s.entries)
	c.movements = slices.Clone(s.movements)
	c.customers = maps.Clone(s.customers)
	c.bills = maps.Clone(s.bills)
	c.records = maps.Clone(s.records)
	c.vendors = maps.Clone(s.vendors)
	c.purchases = slices.Clone(s.purchases)
	c.payments = slices.Clone(s.payments)
	c.reviews = slices.Clone(s.reviews)
	return &c
}

// access runs fn against a state, serialised the way the caller requires.
type access func(fn func(*state) error) error

// Store holds all collections in memory. An open transaction excludes every
// other transaction and direct operation until it commits or rolls back.
type Store struct {
	mu     sync.Mutex
	st     *state
	opts   Options
	now    func() time.Time
	direct *Scope
}

// New constructs an empty Store.
func New(opts Options) *Store {
	s := &Store{st: newState(), opts: opts, now: func() time.Time { return time.Now().UTC() }}
	s.direct = newScope(func(fn func(*state) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.st)
	}, opts.WriteHook, s.now)
	return s
}

// Begin opens a snapshot transaction.
func (s *Store) Begin(ctx context.Context) (uow.Tx[*Scope], error) {
	if !s.opts.Transactions {
		return nil, uow.ErrTransactionsUnsupported
	}
	if s.opts.BeginHook != nil {
		if err := s.opts.BeginHook(ctx); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	t := &tx{store: s, st: s.st.clone()}
	t.scope = newScope(func(fn func(*state) error) error {
		if t.done {
			return errTxClosed
		}
		return fn(t.st)
	}, s.opts.WriteHook, s.now)
	return t, nil
}

// Direct returns a scope whose every call is applied immediately.
func (s *Store) Direct() *Scope {
	return s.direct
}

type tx struct {
	store *Store
	st    *state
	scope *Scope
	done  bool
}

func (t *tx) Scope() *Scope { return t.scope }

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxClosed
	}
	if t.store.opts.CommitHook != nil {
		if err := t.store.opts.CommitHook(ctx); err != nil {
			return err
		}
	}
	t.store.st = t.st
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

// Scope exposes the repositories bound to a transaction or to the store directly.
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

func newScope(run access, hook func(string) error, now func() time.Time) *Scope {
	b := base{run: run, hook: hook, now: now}
	sc := &Scope{
		ledger:    ledgerRepo{b},
		items:     itemRepo{b},
		customers: customerRepo{b},
		bills:     billRepo{b},
		records:   recordRepo{b},
		vendors:   vendorRepo{b},
		reviews:   reviewRepo{b},
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

type base struct {
	run  access
	hook func(string) error
	now  func() time.Time
}

func (b base) read(fn func(*state) error) error {
	return b.run(fn)
}

func (b base) write(op string, fn func(*state) error) error {
	if b.hook != nil {
		if err := b.hook(op); err != nil {
			return err
		}
	}
	return b.run(fn)
}
