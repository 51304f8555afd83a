// Package uow runs multi-step store mutations atomically when the backing store
// supports transactions, and falls back to a single non-transactional re-run
// when it does not.
package uow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrTransactionsUnsupported signals that the deployment cannot open multi-statement
// transactions (for example a standalone node or a statement-pooling proxy).
var ErrTransactionsUnsupported = errors.New("uow: transactions unsupported by this deployment")

// State enumerates the lifecycle of one unit of work.
type State string

const (
	StateStart                  State = "START"
	StateInTransaction          State = "IN_TRANSACTION"
	StateCommitted              State = "COMMITTED"
	StateTransactionUnsupported State = "TRANSACTION_UNSUPPORTED"
	StateFallbackRunning        State = "FALLBACK_RUNNING"
	StateFallbackDone           State = "FALLBACK_DONE"
	StateFallbackFailed         State = "FALLBACK_FAILED"
	StateAborted                State = "ABORTED"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	switch s {
	case StateCommitted, StateFallbackDone, StateFallbackFailed, StateAborted:
		return true
	}
	return false
}

// Tx is an open store transaction exposing a scope bound to it.
type Tx[S any] interface {
	Scope() S
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens transactions and exposes a scope that writes without one.
type Store[S any] interface {
	Begin(ctx context.Context) (Tx[S], error)
	Direct() S
}

// Runner is what services depend on.
type Runner[S any] interface {
	Do(ctx context.Context, op string, fn func(context.Context, S) error) error
	Direct() S
}

// Event describes the outcome of one unit of work.
type Event struct {
	Op       string
	State    State
	Err      error
	Duration time.Duration
}

// Observer receives every terminal event.
type Observer interface {
	Observe(ctx context.Context, evt Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, evt Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, evt Event) { f(ctx, evt) }

// Observers fans an event out to several observers.
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(ctx context.Context, evt Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, evt)
		}
	}
}

// Option customises a UnitOfWork.
type Option func(*options)

type options struct {
	classify func(error) bool
	observer Observer
	logger   *slog.Logger
}

// WithClassifier replaces the default "transactions unsupported" detection.
func WithClassifier(fn func(error) bool) Option {
	return func(o *options) { o.classify = fn }
}

// WithObserver registers an outcome observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithLogger sets the logger used for the fallback path.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// IsTransactionsUnsupported is the default classifier.
func IsTransactionsUnsupported(err error) bool {
	return errors.Is(err, ErrTransactionsUnsupported)
}

// UnitOfWork executes mutation bodies against a Store.
type UnitOfWork[S any] struct {
	store    Store[S]
	classify func(error) bool
	observer Observer
	logger   *slog.Logger
}

// New constructs a UnitOfWork.
func New[S any](store Store[S], opts ...Option) *UnitOfWork[S] {
	o := options{classify: IsTransactionsUnsupported}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &UnitOfWork[S]{store: store, classify: o.classify, observer: o.observer, logger: o.logger}
}

// Direct returns a scope that is not bound to any transaction; use it for reads.
func (u *UnitOfWork[S]) Direct() S {
	return u.store.Direct()
}

// Do runs fn atomically, or via the documented fallback, and returns its error.
func (u *UnitOfWork[S]) Do(ctx context.Context, op string, fn func(context.Context, S) error) error {
	_, err := u.Execute(ctx, op, fn)
	return err
}

// Execute is Do that also reports the terminal state.
//
// When the store rejects transactions the body is re-run exactly once without a
// transaction. Writes made by that re-run are not compensated if it fails.
func (u *UnitOfWork[S]) Execute(ctx context.Context, op string, fn func(context.Context, S) error) (State, error) {
	if fn == nil {
		return StateAborted, errors.New("uow: body required")
	}
	start := time.Now()
	u.trace(ctx, op, StateStart)
	state, err := u.attempt(ctx, op, fn)
	if state == StateTransactionUnsupported {
		u.trace(ctx, op, state)
		u.logger.Warn("transactions unsupported, re-running without transaction",
			slog.String("op", op),
			slog.Any("cause", err))
		state, err = u.fallback(ctx, op, fn)
	}
	u.trace(ctx, op, state)
	if u.observer != nil {
		u.observer.Observe(ctx, Event{Op: op, State: state, Err: err, Duration: time.Since(start)})
	}
	return state, err
}

func (u *UnitOfWork[S]) attempt(ctx context.Context, op string, fn func(context.Context, S) error) (State, error) {
	tx, err := u.store.Begin(ctx)
	if err != nil {
		if u.classify(err) {
			return StateTransactionUnsupported, err
		}
		return StateAborted, fmt.Errorf("uow: begin: %w", err)
	}
	u.trace(ctx, op, StateInTransaction)
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(ctx, tx.Scope()); err != nil {
		if u.classify(err) {
			return StateTransactionUnsupported, err
		}
		return StateAborted, err
	}
	if err := tx.Commit(ctx); err != nil {
		if u.classify(err) {
			return StateTransactionUnsupported, err
		}
		return StateAborted, fmt.Errorf("uow: commit: %w", err)
	}
	committed = true
	return StateCommitted, nil
}

func (u *UnitOfWork[S]) fallback(ctx context.Context, op string, fn func(context.Context, S) error) (State, error) {
	u.trace(ctx, op, StateFallbackRunning)
	if err := fn(ctx, u.store.Direct()); err != nil {
		u.logger.Error("non-transactional fallback failed, earlier writes are not rolled back",
			slog.String("op", op),
			slog.Any("error", err))
		return StateFallbackFailed, err
	}
	u.logger.Warn("non-transactional fallback completed", slog.String("op", op))
	return StateFallbackDone, nil
}

func (u *UnitOfWork[S]) trace(ctx context.Context, op string, state State) {
	u.logger.DebugContext(ctx, "uow transition", slog.String("op", op), slog.String("state", string(state)))
}

// Narrow adapts a Store over a concrete scope to a Store over an interface it satisfies.
func Narrow[S, T any](store Store[T], view func(T) S) Store[S] {
	return narrowed[S, T]{store: store, view: view}
}

type narrowed[S, T any] struct {
	store Store[T]
	view  func(T) S
}

func (n narrowed[S, T]) Begin(ctx context.Context) (Tx[S], error) {
	tx, err := n.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return narrowedTx[S, T]{tx: tx, view: n.view}, nil
}

func (n narrowed[S, T]) Direct() S {
	return n.view(n.store.Direct())
}

type narrowedTx[S, T any] struct {
	tx   Tx[T]
	view func(T) S
}

func (t narrowedTx[S, T]) Scope() S                           { return t.view(t.tx.Scope()) }
func (t narrowedTx[S, T]) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t narrowedTx[S, T]) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
