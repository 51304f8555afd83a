package manufacturing_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/manufacturing"
	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/internal/store/memory"
)

func newProcessor(t *testing.T) (*manufacturing.Processor, *memory.Store) {
	t.Helper()
	proc, store, _ := newProcessorWith(t, memory.Options{Transactions: true})
	return proc, store
}

func newProcessorWith(t *testing.T, opts memory.Options) (*manufacturing.Processor, *memory.Store, *[]uow.State) {
	t.Helper()
	var states []uow.State
	store := memory.New(opts)
	runner := uow.New(
		uow.Narrow[manufacturing.Scope, *memory.Scope](store, func(s *memory.Scope) manufacturing.Scope { return s }),
		uow.WithObserver(uow.ObserverFunc(func(_ context.Context, evt uow.Event) {
			states = append(states, evt.State)
		})),
	)
	return manufacturing.NewProcessor(runner, nil), store, &states
}

func receive(t *testing.T, store *memory.Store, name string, qty, rate string) {
	t.Helper()
	_, err := store.Direct().Stock().Receive(context.Background(), []stock.Receipt{{
		Name: name, Qty: decimal.RequireFromString(qty), Rate: decimal.RequireFromString(rate),
	}}, stock.Ref{Type: "intake"})
	require.NoError(t, err)
}

func entry(t *testing.T, store *memory.Store, name string) stock.Entry {
	t.Helper()
	e, err := store.Direct().Stock().Reader().FindByName(context.Background(), name)
	require.NoError(t, err)
	return e
}

func cakeRun(flourQty string) manufacturing.CreateRequest {
	return manufacturing.CreateRequest{
		ProductName: "Cake",
		ProducedQty: decimal.NewFromInt(3),
		Inputs: []manufacturing.InputRequest{
			{Name: "Flour", QtyUsed: decimal.RequireFromString(flourQty), FromStock: true},
			{Name: "Sugar", QtyUsed: decimal.NewFromInt(3), Rate: decimal.NewFromInt(5)},
		},
	}
}

func TestCreateCostsRunAndSeedsProductRate(t *testing.T) {
	proc, store := newProcessor(t)
	receive(t, store, "Flour", "10", "2")

	rec, err := proc.Create(context.Background(), cakeRun("5"))
	require.NoError(t, err)

	require.Equal(t, "25", rec.TotalCost.String())
	require.Equal(t, "8.33", rec.CostPerUnit.String())
	require.Equal(t, "2", rec.Inputs[0].Rate.String())
	require.Equal(t, "10", rec.Inputs[0].Cost.String())
	require.Equal(t, "15", rec.Inputs[1].Cost.String())

	require.Equal(t, "5", entry(t, store, "Flour").AvailableQty.String())
	cake := entry(t, store, "Cake")
	require.Equal(t, "3", cake.AvailableQty.String())
	require.Equal(t, "8.33", cake.Rate.String())

	_, err = store.Direct().Stock().Reader().FindByName(context.Background(), "Sugar")
	require.ErrorIs(t, err, stock.ErrEntryNotFound)
	item, err := store.Direct().Items().FindByKey(context.Background(), catalog.FoldKey("sugar"))
	require.NoError(t, err)
	require.Equal(t, "Sugar", item.Name)

	got, err := proc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, "Cake", got.ProductName)
}

func TestCreateKeepsExistingProductRate(t *testing.T) {
	proc, store := newProcessor(t)
	receive(t, store, "Flour", "10", "2")
	receive(t, store, "Cake", "1", "7")

	_, err := proc.Create(context.Background(), cakeRun("5"))
	require.NoError(t, err)

	cake := entry(t, store, "Cake")
	require.Equal(t, "4", cake.AvailableQty.String())
	require.Equal(t, "7", cake.Rate.String())
}

func TestCreateRejectsShortRawMaterial(t *testing.T) {
	proc, store := newProcessor(t)
	receive(t, store, "Flour", "10", "2")

	_, err := proc.Create(context.Background(), cakeRun("20"))
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, "Flour", insufficient.ItemName)

	require.Equal(t, "10", entry(t, store, "Flour").AvailableQty.String())
	records, err := proc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, records)
	_, err = store.Direct().Stock().Reader().FindByName(context.Background(), "Cake")
	require.ErrorIs(t, err, stock.ErrEntryNotFound)
}

func TestCreateRollsBackEarlierInputWhenLaterIsShort(t *testing.T) {
	proc, store, states := newProcessorWith(t, memory.Options{Transactions: true})
	receive(t, store, "Flour", "10", "2")
	receive(t, store, "Egg", "1", "6")

	req := manufacturing.CreateRequest{
		ProductName: "Cake",
		ProducedQty: decimal.NewFromInt(3),
		Inputs: []manufacturing.InputRequest{
			{Name: "Flour", QtyUsed: decimal.NewFromInt(5), FromStock: true},
			{Name: "Egg", QtyUsed: decimal.NewFromInt(4), FromStock: true},
		},
	}
	_, err := proc.Create(context.Background(), req)
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, "Egg", insufficient.ItemName)
	require.Equal(t, []uow.State{uow.StateAborted}, *states)

	require.Equal(t, "10", entry(t, store, "Flour").AvailableQty.String())
	require.Equal(t, "1", entry(t, store, "Egg").AvailableQty.String())
	cards, err := store.Direct().Stock().Reader().Movements(context.Background(), "Flour", 0)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	_, err = store.Direct().Stock().Reader().FindByName(context.Background(), "Cake")
	require.ErrorIs(t, err, stock.ErrEntryNotFound)
}

func TestCreateFallbackMatchesTransactionalRun(t *testing.T) {
	run := func(transactions bool) (*memory.Store, manufacturing.Record, []uow.State) {
		proc, store, states := newProcessorWith(t, memory.Options{Transactions: transactions})
		receive(t, store, "Flour", "10", "2")
		rec, err := proc.Create(context.Background(), cakeRun("5"))
		require.NoError(t, err)
		return store, rec, *states
	}

	txStore, txRec, txStates := run(true)
	fbStore, fbRec, fbStates := run(false)

	require.Equal(t, []uow.State{uow.StateCommitted}, txStates)
	require.Equal(t, []uow.State{uow.StateFallbackDone}, fbStates)
	require.Equal(t, txRec.TotalCost.String(), fbRec.TotalCost.String())
	require.Equal(t, "8.33", fbRec.CostPerUnit.String())
	for _, name := range []string{"Flour", "Cake"} {
		tx, fb := entry(t, txStore, name), entry(t, fbStore, name)
		require.Equal(t, tx.AvailableQty.String(), fb.AvailableQty.String(), name)
		require.Equal(t, tx.Rate.String(), fb.Rate.String(), name)
	}
	require.Equal(t, "5", entry(t, fbStore, "Flour").AvailableQty.String())
	require.Equal(t, "3", entry(t, fbStore, "Cake").AvailableQty.String())

	records, err := fbStore.Direct().Manufacturing().List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestCreateRequiresLedgerEntryForStockInput(t *testing.T) {
	proc, _ := newProcessor(t)

	_, err := proc.Create(context.Background(), cakeRun("1"))
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Available.IsZero())
}

func TestCreateValidatesQuantities(t *testing.T) {
	proc, _ := newProcessor(t)
	req := cakeRun("5")
	req.ProducedQty = decimal.Zero

	_, err := proc.Create(context.Background(), req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "produced_qty")
}

func TestCostPerUnitRounding(t *testing.T) {
	require.Equal(t, "8.33", manufacturing.CostPerUnit(decimal.NewFromInt(25), decimal.NewFromInt(3)).String())
	require.True(t, manufacturing.CostPerUnit(decimal.NewFromInt(25), decimal.Zero).IsZero())
	require.Equal(t, "3.33", manufacturing.InputCost(decimal.RequireFromString("1.333"), decimal.RequireFromString("2.5")).String())
}
