package stock

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/shared"
)

type memoryRepo struct {
	entries   map[string]Entry
	movements []Movement
	failApply string
	clock     time.Time
}

// stamp advances the fake clock so every real write leaves a distinct timestamp.
func (r *memoryRepo) stamp() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{entries: make(map[string]Entry)}
}

func (r *memoryRepo) seed(name string, qty, rate string) {
	r.entries[name] = Entry{ItemName: name, AvailableQty: decimal.RequireFromString(qty), Rate: decimal.RequireFromString(rate)}
}

func (r *memoryRepo) FindByName(ctx context.Context, name string) (Entry, error) {
	entry, ok := r.entries[name]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

func (r *memoryRepo) FindForUpdate(ctx context.Context, name string) (Entry, error) {
	return r.FindByName(ctx, name)
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	return out, nil
}

func (r *memoryRepo) Movements(ctx context.Context, name string, limit int) ([]Movement, error) {
	var out []Movement
	for _, mv := range r.movements {
		if mv.ItemName == name {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (r *memoryRepo) Drifts(ctx context.Context) ([]Drift, error) { return nil, nil }

func (r *memoryRepo) ApplyDelta(ctx context.Context, name string, delta, seedRate decimal.Decimal) (Entry, bool, error) {
	if name == r.failApply {
		return Entry{}, false, errors.New("write failed")
	}
	entry, ok := r.entries[name]
	if ok && delta.IsZero() {
		return entry, false, nil
	}
	if !ok {
		entry = Entry{ItemName: name, Rate: seedRate}
	}
	entry.AvailableQty = entry.AvailableQty.Add(delta)
	entry.LastUpdated = r.stamp()
	r.entries[name] = entry
	return entry, !ok, nil
}

func (r *memoryRepo) DeductIfAvailable(ctx context.Context, name string, qty decimal.Decimal) (Entry, bool, error) {
	entry, ok := r.entries[name]
	if !ok || entry.AvailableQty.LessThan(qty) {
		return Entry{}, false, nil
	}
	entry.AvailableQty = entry.AvailableQty.Sub(qty)
	entry.LastUpdated = r.stamp()
	r.entries[name] = entry
	return entry, true, nil
}

func (r *memoryRepo) SetAbsolute(ctx context.Context, name string, qty, rate decimal.Decimal) (Entry, error) {
	entry := Entry{ItemName: name, AvailableQty: qty, Rate: rate, LastUpdated: r.stamp()}
	r.entries[name] = entry
	return entry, nil
}

func (r *memoryRepo) SetRate(ctx context.Context, name string, rate decimal.Decimal) error {
	entry := r.entries[name]
	entry.Rate = rate
	entry.LastUpdated = r.stamp()
	r.entries[name] = entry
	return nil
}

func (r *memoryRepo) AppendMovement(ctx context.Context, mv Movement) error {
	mv.ID = int64(len(r.movements) + 1)
	r.movements = append(r.movements, mv)
	return nil
}

func (r *memoryRepo) qty(name string) string {
	return r.entries[name].AvailableQty.String()
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lines(pairs ...any) []Line {
	out := make([]Line, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Line{Name: pairs[i].(string), Qty: dec(pairs[i+1].(string))})
	}
	return out
}

func TestComputeDeltasAggregatesAndSorts(t *testing.T) {
	deltas := ComputeDeltas(
		lines("Sugar", "2", "Rice", "1", "Sugar", "3"),
		lines("Sugar", "4", "Tea", "1", "Rice", "1"),
	)
	require.Len(t, deltas, 2)
	require.Equal(t, "Sugar", deltas[0].ItemName)
	require.True(t, deltas[0].Qty.Equal(dec("-1")))
	require.Equal(t, "Tea", deltas[1].ItemName)
	require.True(t, deltas[1].Qty.Equal(dec("1")))
}

func TestReconcileSameSetIsNoop(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Sugar", "10", "40")
	engine := NewEngine(repo)

	ctx := context.Background()
	before := repo.entries["Sugar"]

	set := lines("Sugar", "3")
	for _, line := range set {
		_, err := engine.Ensure(ctx, line.Name)
		require.NoError(t, err)
	}
	applied, err := engine.Reconcile(ctx, set, set, Ref{})
	require.NoError(t, err)
	require.Empty(t, applied)
	require.Equal(t, before, repo.entries["Sugar"])
	require.Empty(t, repo.movements)
}

func TestReconcileConservesStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Sugar", "10", "40")
	repo.seed("Rice", "20", "60")
	engine := NewEngine(repo)
	ctx := context.Background()

	first := lines("Sugar", "3", "Rice", "5")
	_, err := engine.Consume(ctx, first, Ref{Type: "bill", ID: "b1"})
	require.NoError(t, err)
	require.Equal(t, "7", repo.qty("Sugar"))
	require.Equal(t, "15", repo.qty("Rice"))

	second := lines("Sugar", "1", "Rice", "8")
	_, err = engine.Reconcile(ctx, first, second, Ref{Type: "bill", ID: "b1"})
	require.NoError(t, err)
	require.Equal(t, "9", repo.qty("Sugar"))
	require.Equal(t, "12", repo.qty("Rice"))

	for _, name := range []string{"Sugar", "Rice"} {
		sum := decimal.Zero
		for _, mv := range repo.movements {
			if mv.ItemName == name {
				sum = sum.Add(mv.QtyChange)
			}
		}
		seeded := map[string]string{"Sugar": "10", "Rice": "20"}[name]
		require.True(t, dec(seeded).Add(sum).Equal(repo.entries[name].AvailableQty), name)
	}
}

func TestReconcileUntrackedGoesNegative(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Bag", "0", "0")
	engine := NewEngine(repo)

	_, err := engine.Consume(context.Background(), lines("Bag", "100"), Ref{})
	require.NoError(t, err)
	require.Equal(t, "-100", repo.qty("Bag"))

	_, err = engine.Consume(context.Background(), lines("Bag", "5"), Ref{})
	require.NoError(t, err)
	require.Equal(t, "-105", repo.qty("Bag"))
}

func TestReconcileInsufficiencyBoundary(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Oil", "5", "120")
	engine := NewEngine(repo)
	ctx := context.Background()

	_, err := engine.Consume(ctx, lines("Oil", "6"), Ref{})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, "Oil", insufficient.ItemName)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.ErrorIs(t, err, shared.ErrRuleViolation)
	require.Equal(t, "5", repo.qty("Oil"))

	_, err = engine.Consume(ctx, lines("Oil", "5"), Ref{})
	require.NoError(t, err)
	require.Equal(t, "0", repo.qty("Oil"))
}

func TestReconcileValidatesBeforeWriting(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Apple", "10", "1")
	repo.seed("Zucchini", "1", "1")
	engine := NewEngine(repo)

	_, err := engine.Consume(context.Background(), lines("Apple", "2", "Zucchini", "3"), Ref{})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, "10", repo.qty("Apple"))
	require.Empty(t, repo.movements)
}

func TestReconcileRestoresOnlyExistingEntries(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Sugar", "7", "40")
	engine := NewEngine(repo)

	applied, err := engine.Reconcile(context.Background(), lines("Sugar", "3", "Ghost", "2"), nil, Ref{})
	require.NoError(t, err)
	require.Len(t, applied, 1)
	require.Equal(t, "10", repo.qty("Sugar"))
	_, found := repo.entries["Ghost"]
	require.False(t, found)
	require.Equal(t, MovementRestore, repo.movements[0].Kind)
}

func TestReceiveSetsLastRate(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Flour", "2", "30")
	engine := NewEngine(repo)

	entries, err := engine.Receive(context.Background(), []Receipt{
		{Name: "Flour", Qty: dec("8"), Rate: dec("32")},
		{Name: "Yeast", Qty: dec("1"), Rate: dec("90")},
	}, Ref{Type: "purchase"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "10", repo.qty("Flour"))
	require.True(t, repo.entries["Flour"].Rate.Equal(dec("32")))
	require.True(t, repo.entries["Yeast"].Rate.Equal(dec("90")))
	require.Len(t, repo.movements, 2)
}

func TestReceiveRejectsBadQuantityBeforeWriting(t *testing.T) {
	repo := newMemoryRepo()
	engine := NewEngine(repo)

	_, err := engine.Receive(context.Background(), []Receipt{
		{Name: "Flour", Qty: dec("1"), Rate: dec("1")},
		{Name: "Salt", Qty: dec("0"), Rate: dec("1")},
	}, Ref{})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.entries)
}

func TestConsumeStrictRequiresStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Flour", "10", "2")
	engine := NewEngine(repo)
	ctx := context.Background()

	read, err := engine.ConsumeStrict(ctx, "Flour", dec("10"), Ref{})
	require.NoError(t, err)
	require.True(t, read.Rate.Equal(dec("2")))
	require.Equal(t, "0", repo.qty("Flour"))

	_, err = engine.ConsumeStrict(ctx, "Flour", dec("1"), Ref{})
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, err = engine.ConsumeStrict(ctx, "Missing", dec("1"), Ref{})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, "Missing", insufficient.ItemName)
}

func TestProduceSeedsRateOnlyWhenNew(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Bread", "5", "20")
	engine := NewEngine(repo)
	ctx := context.Background()

	entry, created, err := engine.Produce(ctx, "Bread", dec("3"), dec("8.33"), Ref{})
	require.NoError(t, err)
	require.False(t, created)
	require.True(t, entry.Rate.Equal(dec("20")))
	require.Equal(t, "8", repo.qty("Bread"))

	entry, created, err = engine.Produce(ctx, "Cake", dec("2"), dec("15"), Ref{})
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, entry.Rate.Equal(dec("15")))
}

func TestSetOpeningRecordsDifference(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Tea", "4", "100")
	engine := NewEngine(repo)

	entry, err := engine.SetOpening(context.Background(), "Tea", dec("10"), dec("110"), Ref{Type: "opening"})
	require.NoError(t, err)
	require.Equal(t, "10", entry.AvailableQty.String())
	require.Len(t, repo.movements, 1)
	require.True(t, repo.movements[0].QtyChange.Equal(dec("6")))
	require.Equal(t, MovementOpening, repo.movements[0].Kind)
}

func TestReconcileSurfacesWriteFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Sugar", "10", "1")
	repo.failApply = "Sugar"
	engine := NewEngine(repo)

	_, err := engine.Consume(context.Background(), lines("Sugar", "1"), Ref{})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInsufficientStock)
}
