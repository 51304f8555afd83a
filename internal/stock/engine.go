package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Engine is the single write path into the ledger. Every flow that changes stock
// goes through it so that checks, writes and the stock card stay consistent.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine binds an Engine to a repository, usually one scoped to a unit of work.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Reader exposes read access to the bound repository.
func (e *Engine) Reader() Reader {
	return e.repo
}

// Aggregate sums quantities per item name. Duplicate names collapse into one line.
func Aggregate(lines []Line) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(lines))
	for _, line := range lines {
		if line.Name == "" {
			continue
		}
		out[line.Name] = out[line.Name].Add(line.Qty)
	}
	return out
}

// ComputeDeltas returns newQty-oldQty per item across both sets, skipping zero
// changes. The result is ordered by item name so row locks are always taken in
// the same order.
func ComputeDeltas(oldLines, newLines []Line) []Delta {
	oldQty := Aggregate(oldLines)
	newQty := Aggregate(newLines)
	names := make(map[string]struct{}, len(oldQty)+len(newQty))
	for name := range oldQty {
		names[name] = struct{}{}
	}
	for name := range newQty {
		names[name] = struct{}{}
	}
	deltas := make([]Delta, 0, len(names))
	for name := range names {
		d := newQty[name].Sub(oldQty[name])
		if d.IsZero() {
			continue
		}
		deltas = append(deltas, Delta{ItemName: name, Qty: d})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].ItemName < deltas[j].ItemName })
	return deltas
}

// Ensure creates a zero-balance entry for name when none exists.
func (e *Engine) Ensure(ctx context.Context, name string) (Entry, error) {
	entry, _, err := e.repo.ApplyDelta(ctx, name, decimal.Zero, decimal.Zero)
	if err != nil {
		return Entry{}, fmt.Errorf("stock: ensure %q: %w", name, err)
	}
	return entry, nil
}

// Consume applies a brand-new line set, as if the previous set was empty.
func (e *Engine) Consume(ctx context.Context, lines []Line, ref Ref) ([]Delta, error) {
	return e.Reconcile(ctx, nil, lines, ref)
}

// Reconcile moves the ledger from oldLines to newLines.
//
// Every delta is checked before anything is written. Only tracked items (balance > 0)
// can fail with InsufficientStockError; untracked items are always allowed and may
// go negative. Returned stock is credited only to entries that already exist.
func (e *Engine) Reconcile(ctx context.Context, oldLines, newLines []Line, ref Ref) ([]Delta, error) {
	deltas := ComputeDeltas(oldLines, newLines)
	if len(deltas) == 0 {
		return nil, nil
	}

	existing := make(map[string]bool, len(deltas))
	for _, d := range deltas {
		entry, err := e.repo.FindForUpdate(ctx, d.ItemName)
		if err != nil && !errors.Is(err, ErrEntryNotFound) {
			return nil, fmt.Errorf("stock: load %q: %w", d.ItemName, err)
		}
		found := err == nil
		existing[d.ItemName] = found
		if d.Qty.IsPositive() && found && entry.Tracked() && entry.AvailableQty.LessThan(d.Qty) {
			return nil, &InsufficientStockError{ItemName: d.ItemName, Available: entry.AvailableQty, Requested: d.Qty}
		}
	}

	applied := make([]Delta, 0, len(deltas))
	for _, d := range deltas {
		kind := MovementSale
		change := d.Qty.Neg()
		if d.Qty.IsNegative() {
			if !existing[d.ItemName] {
				continue
			}
			kind = MovementRestore
		}
		entry, _, err := e.repo.ApplyDelta(ctx, d.ItemName, change, decimal.Zero)
		if err != nil {
			return nil, fmt.Errorf("stock: apply %q: %w", d.ItemName, err)
		}
		if err := e.record(ctx, entry, kind, change, ref); err != nil {
			return nil, err
		}
		applied = append(applied, d)
	}
	return applied, nil
}

// Receive books incoming stock, creating entries as needed and recording the
// receipt rate as the item's last known cost.
func (e *Engine) Receive(ctx context.Context, receipts []Receipt, ref Ref) ([]Entry, error) {
	entries := make([]Entry, 0, len(receipts))
	for _, r := range receipts {
		if !r.Qty.IsPositive() {
			return nil, fmt.Errorf("stock: receive %q: %w", r.Name, ErrInvalidQuantity)
		}
		if r.Rate.IsNegative() {
			return nil, fmt.Errorf("stock: receive %q: %w", r.Name, ErrInvalidRate)
		}
	}
	for _, r := range receipts {
		entry, created, err := e.repo.ApplyDelta(ctx, r.Name, r.Qty, r.Rate)
		if err != nil {
			return nil, fmt.Errorf("stock: receive %q: %w", r.Name, err)
		}
		if !created && r.Rate.IsPositive() && !entry.Rate.Equal(r.Rate) {
			if err := e.repo.SetRate(ctx, r.Name, r.Rate); err != nil {
				return nil, fmt.Errorf("stock: set rate %q: %w", r.Name, err)
			}
			entry.Rate = r.Rate
		}
		if err := e.record(ctx, entry, MovementIntake, r.Qty, ref); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ConsumeStrict deducts raw material that must be tracked: the entry has to exist
// and hold at least qty, both when read and when written. It returns the entry as
// read before the deduction so callers can cost at the ledger rate.
func (e *Engine) ConsumeStrict(ctx context.Context, name string, qty decimal.Decimal, ref Ref) (Entry, error) {
	if !qty.IsPositive() {
		return Entry{}, fmt.Errorf("stock: consume %q: %w", name, ErrInvalidQuantity)
	}
	entry, err := e.repo.FindForUpdate(ctx, name)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return Entry{}, &InsufficientStockError{ItemName: name, Available: decimal.Zero, Requested: qty}
		}
		return Entry{}, fmt.Errorf("stock: load %q: %w", name, err)
	}
	if entry.AvailableQty.LessThan(qty) {
		return Entry{}, &InsufficientStockError{ItemName: name, Available: entry.AvailableQty, Requested: qty}
	}
	updated, ok, err := e.repo.DeductIfAvailable(ctx, name, qty)
	if err != nil {
		return Entry{}, fmt.Errorf("stock: deduct %q: %w", name, err)
	}
	if !ok {
		current := entry.AvailableQty
		if latest, err := e.repo.FindByName(ctx, name); err == nil {
			current = latest.AvailableQty
		}
		return Entry{}, &InsufficientStockError{ItemName: name, Available: current, Requested: qty}
	}
	if err := e.record(ctx, updated, MovementConsumption, qty.Neg(), ref); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Produce credits manufactured output. seedRate becomes the entry's rate only
// when this call creates the entry.
func (e *Engine) Produce(ctx context.Context, name string, qty, seedRate decimal.Decimal, ref Ref) (Entry, bool, error) {
	if !qty.IsPositive() {
		return Entry{}, false, fmt.Errorf("stock: produce %q: %w", name, ErrInvalidQuantity)
	}
	entry, created, err := e.repo.ApplyDelta(ctx, name, qty, seedRate)
	if err != nil {
		return Entry{}, false, fmt.Errorf("stock: produce %q: %w", name, err)
	}
	if err := e.record(ctx, entry, MovementProduction, qty, ref); err != nil {
		return Entry{}, false, err
	}
	return entry, created, nil
}

// SetOpening overwrites the balance of name. The stock card receives the
// difference so that movements still sum to the balance.
func (e *Engine) SetOpening(ctx context.Context, name string, qty, rate decimal.Decimal, ref Ref) (Entry, error) {
	if rate.IsNegative() {
		return Entry{}, fmt.Errorf("stock: opening %q: %w", name, ErrInvalidRate)
	}
	previous := decimal.Zero
	current, err := e.repo.FindForUpdate(ctx, name)
	switch {
	case err == nil:
		previous = current.AvailableQty
	case !errors.Is(err, ErrEntryNotFound):
		return Entry{}, fmt.Errorf("stock: load %q: %w", name, err)
	}
	entry, err := e.repo.SetAbsolute(ctx, name, qty, rate)
	if err != nil {
		return Entry{}, fmt.Errorf("stock: opening %q: %w", name, err)
	}
	if err := e.record(ctx, entry, MovementOpening, qty.Sub(previous), ref); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (e *Engine) record(ctx context.Context, entry Entry, kind MovementKind, change decimal.Decimal, ref Ref) error {
	if change.IsZero() {
		return nil
	}
	mv := Movement{
		ItemName:     entry.ItemName,
		Kind:         kind,
		QtyChange:    change,
		BalanceAfter: entry.AvailableQty,
		Rate:         entry.Rate,
		RefType:      ref.Type,
		RefID:        ref.ID,
		Note:         ref.Note,
		CreatedAt:    e.now(),
	}
	if err := e.repo.AppendMovement(ctx, mv); err != nil {
		return fmt.Errorf("stock: movement %q: %w", entry.ItemName, err)
	}
	return nil
}
