package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/internal/store/memory"
)

const mobile = "9876543210"

var errWriteFailed = errors.New("disk full")

type fixture struct {
	store  *memory.Store
	svc    *billing.Service
	events []uow.Event
}

func newFixture(t *testing.T, opts memory.Options, idem *shared.IdempotencyStore) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(opts)}
	narrowed := uow.Narrow[billing.Scope, *memory.Scope](f.store, func(s *memory.Scope) billing.Scope { return s })
	runner := uow.New(narrowed, uow.WithObserver(uow.ObserverFunc(func(_ context.Context, evt uow.Event) {
		f.events = append(f.events, evt)
	})))
	f.svc = billing.NewService(runner, idem, nil)

	ctx := context.Background()
	_, err := f.store.Direct().Customers().Create(ctx, customers.Customer{Mobile: mobile, Name: "Asha", Type: customers.TypeRetail})
	require.NoError(t, err)
	return f
}

func (f *fixture) stockUp(t *testing.T, name string, qty int64) {
	t.Helper()
	_, err := f.store.Direct().Stock().Receive(context.Background(), []stock.Receipt{{Name: name, Qty: decimal.NewFromInt(qty), Rate: decimal.NewFromInt(40)}}, stock.Ref{Type: "intake"})
	require.NoError(t, err)
}

func (f *fixture) qty(t *testing.T, name string) decimal.Decimal {
	t.Helper()
	entry, err := f.store.Direct().Stock().Reader().FindByName(context.Background(), name)
	require.NoError(t, err)
	return entry.AvailableQty
}

func (f *fixture) lastState() uow.State {
	if len(f.events) == 0 {
		return ""
	}
	return f.events[len(f.events)-1].State
}

func saleOf(name string, qty int64) billing.CreateBillRequest {
	return billing.CreateBillRequest{
		CustomerMobile: mobile,
		Items:          []billing.ItemInput{{Name: name, Qty: decimal.NewFromInt(qty), Rate: decimal.NewFromInt(50)}},
	}
}

func requireQty(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(decimal.NewFromInt(want)), "want %d got %s", want, got)
}

func TestCreateDeductsTrackedStock(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)
	f.stockUp(t, "Sugar", 10)

	req := saleOf("Sugar", 3)
	req.CashAmount = decimal.NewFromInt(100)
	bill, err := f.svc.Create(context.Background(), "", req)
	require.NoError(t, err)

	requireQty(t, 7, f.qty(t, "Sugar"))
	require.Equal(t, "150", bill.GrandTotal.String())
	require.Equal(t, "50", bill.DueAmount.String())
	require.Equal(t, billing.PaymentCredit, bill.PaymentMode)
	require.NotZero(t, bill.Number)
	require.Equal(t, uow.StateCommitted, f.lastState())
}

func TestEditDownAndDeleteRestoreStock(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)
	f.stockUp(t, "Sugar", 10)
	ctx := context.Background()

	bill, err := f.svc.Create(ctx, "", saleOf("Sugar", 3))
	require.NoError(t, err)
	requireQty(t, 7, f.qty(t, "Sugar"))

	_, err = f.svc.Update(ctx, bill.ID, billing.UpdateBillRequest{
		Items: []billing.ItemInput{{Name: "Sugar", Qty: decimal.Zero, Rate: decimal.NewFromInt(50)}},
	})
	require.NoError(t, err)
	requireQty(t, 10, f.qty(t, "Sugar"))

	_, err = f.svc.Update(ctx, bill.ID, billing.UpdateBillRequest{
		Items: []billing.ItemInput{{Name: "Sugar", Qty: decimal.NewFromInt(4), Rate: decimal.NewFromInt(50)}},
	})
	require.NoError(t, err)
	requireQty(t, 6, f.qty(t, "Sugar"))

	require.NoError(t, f.svc.Delete(ctx, bill.ID))
	requireQty(t, 10, f.qty(t, "Sugar"))

	stored, err := f.svc.Get(ctx, bill.ID)
	require.NoError(t, err)
	require.True(t, stored.Deleted)
	require.ErrorIs(t, f.svc.Delete(ctx, bill.ID), billing.ErrBillNotFound)

	drifts, err := f.store.Direct().Stock().Reader().Drifts(ctx)
	require.NoError(t, err)
	require.Empty(t, drifts)
}

func TestSameSetUpdateLeavesEntryUntouched(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)
	f.stockUp(t, "Sugar", 10)
	ctx := context.Background()

	bill, err := f.svc.Create(ctx, "", saleOf("Sugar", 3))
	require.NoError(t, err)
	reader := f.store.Direct().Stock().Reader()
	before, err := reader.FindByName(ctx, "Sugar")
	require.NoError(t, err)
	cardsBefore, err := reader.Movements(ctx, "Sugar", 0)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	_, err = f.svc.Update(ctx, bill.ID, billing.UpdateBillRequest{
		Items: []billing.ItemInput{{Name: "sugar", Qty: decimal.NewFromInt(3), Rate: decimal.NewFromInt(50)}},
	})
	require.NoError(t, err)

	after, err := reader.FindByName(ctx, "Sugar")
	require.NoError(t, err)
	require.Equal(t, before, after)
	cardsAfter, err := reader.Movements(ctx, "Sugar", 0)
	require.NoError(t, err)
	require.Equal(t, cardsBefore, cardsAfter)
}

func TestUntrackedSaleGoesNegative(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)

	_, err := f.svc.Create(context.Background(), "", saleOf("Loose Tea", 100))
	require.NoError(t, err)
	requireQty(t, -100, f.qty(t, "Loose Tea"))
}

func TestInsufficientStockBoundary(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)
	f.stockUp(t, "Rice", 5)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "", saleOf("Rice", 6))
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, "Rice", insufficient.ItemName)
	require.ErrorIs(t, err, shared.ErrRuleViolation)
	requireQty(t, 5, f.qty(t, "Rice"))
	require.Equal(t, uow.StateAborted, f.lastState())

	bills, err := f.svc.List(ctx, billing.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, bills)

	_, err = f.svc.Create(ctx, "", saleOf("Rice", 5))
	require.NoError(t, err)
	requireQty(t, 0, f.qty(t, "Rice"))
}

func TestMultiLineBillFailsWhole(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)
	f.stockUp(t, "Atta", 10)
	f.stockUp(t, "Rice", 2)

	req := saleOf("Atta", 4)
	req.Items = append(req.Items, billing.ItemInput{Name: "Rice", Qty: decimal.NewFromInt(3), Rate: decimal.NewFromInt(60)})
	_, err := f.svc.Create(context.Background(), "", req)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	requireQty(t, 10, f.qty(t, "Atta"))
	requireQty(t, 2, f.qty(t, "Rice"))
}

func TestCreateRequiresExistingCustomer(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)

	req := saleOf("Sugar", 1)
	req.CustomerMobile = "1112223334"
	_, err := f.svc.Create(context.Background(), "", req)
	require.ErrorIs(t, err, customers.ErrCustomerNotFound)
}

func TestCreateRejectsOverpayment(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)

	req := saleOf("Sugar", 1)
	req.CashAmount = decimal.NewFromInt(60)
	_, err := f.svc.Create(context.Background(), "", req)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateUnknownBill(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)

	_, err := f.svc.Update(context.Background(), uuid.New(), billing.UpdateBillRequest{
		Items: []billing.ItemInput{{Name: "Sugar", Qty: decimal.NewFromInt(1)}},
	})
	require.ErrorIs(t, err, billing.ErrBillNotFound)
}

func TestUpdatePatchesCustomer(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)
	ctx := context.Background()
	bill, err := f.svc.Create(ctx, "", saleOf("Sugar", 1))
	require.NoError(t, err)

	name := "Asha Rao"
	wholesale := customers.TypeWholesale
	_, err = f.svc.Update(ctx, bill.ID, billing.UpdateBillRequest{
		Items:    []billing.ItemInput{{Name: "Sugar", Qty: decimal.NewFromInt(2), Rate: decimal.NewFromInt(50)}},
		Customer: &customers.Patch{Name: &name, Type: &wholesale},
	})
	require.NoError(t, err)

	customer, err := f.store.Direct().Customers().FindByMobile(ctx, mobile)
	require.NoError(t, err)
	require.Equal(t, "Asha Rao", customer.Name)
	require.Equal(t, customers.TypeWholesale, customer.Type)
	requireQty(t, -2, f.qty(t, "Sugar"))
}

func TestFailedWriteRollsBackEverything(t *testing.T) {
	f := newFixture(t, memory.Options{
		Transactions: true,
		WriteHook: func(op string) error {
			if op == "bills.create" {
				return errWriteFailed
			}
			return nil
		},
	}, nil)
	f.stockUp(t, "Sugar", 10)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "", saleOf("Sugar", 3))
	require.ErrorIs(t, err, errWriteFailed)
	require.Equal(t, uow.StateAborted, f.lastState())

	requireQty(t, 10, f.qty(t, "Sugar"))
	cards, err := f.store.Direct().Stock().Reader().Movements(ctx, "Sugar", 10)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	bills, err := f.svc.List(ctx, billing.ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Empty(t, bills)
}

func TestFallbackMatchesTransactionalOutcome(t *testing.T) {
	run := func(t *testing.T, transactions bool) (*fixture, uow.State) {
		f := newFixture(t, memory.Options{Transactions: transactions}, nil)
		f.stockUp(t, "Sugar", 10)
		ctx := context.Background()
		bill, err := f.svc.Create(ctx, "", saleOf("Sugar", 3))
		require.NoError(t, err)
		_, err = f.svc.Update(ctx, bill.ID, billing.UpdateBillRequest{
			Items: []billing.ItemInput{
				{Name: "Sugar", Qty: decimal.NewFromInt(1), Rate: decimal.NewFromInt(50)},
				{Name: "Salt", Qty: decimal.NewFromInt(2), Rate: decimal.NewFromInt(20)},
			},
		})
		require.NoError(t, err)
		return f, f.lastState()
	}

	tx, txState := run(t, true)
	fb, fbState := run(t, false)

	require.Equal(t, uow.StateCommitted, txState)
	require.Equal(t, uow.StateFallbackDone, fbState)
	for _, name := range []string{"Sugar", "Salt"} {
		require.True(t, tx.qty(t, name).Equal(fb.qty(t, name)), name)
	}
	requireQty(t, 9, fb.qty(t, "Sugar"))
	requireQty(t, -2, fb.qty(t, "Salt"))
}

func TestCommitRejectionReRunsOnce(t *testing.T) {
	f := newFixture(t, memory.Options{
		Transactions: true,
		CommitHook:   func(context.Context) error { return uow.ErrTransactionsUnsupported },
	}, nil)
	f.stockUp(t, "Sugar", 10)

	_, err := f.svc.Create(context.Background(), "", saleOf("Sugar", 3))
	require.NoError(t, err)
	require.Equal(t, uow.StateFallbackDone, f.lastState())
	requireQty(t, 7, f.qty(t, "Sugar"))
}

func TestFallbackFailureKeepsEarlierWrites(t *testing.T) {
	f := newFixture(t, memory.Options{
		Transactions: false,
		WriteHook: func(op string) error {
			if op == "bills.create" {
				return errWriteFailed
			}
			return nil
		},
	}, nil)
	f.stockUp(t, "Sugar", 10)

	_, err := f.svc.Create(context.Background(), "", saleOf("Sugar", 3))
	require.ErrorIs(t, err, errWriteFailed)
	require.Equal(t, uow.StateFallbackFailed, f.lastState())
	requireQty(t, 7, f.qty(t, "Sugar"))
}

func TestCreateCanonicalisesItemNames(t *testing.T) {
	f := newFixture(t, memory.Options{Transactions: true}, nil)
	ctx := context.Background()
	_, err := f.store.Direct().Items().Create(ctx, "Sugar 1kg", "SG1")
	require.NoError(t, err)
	f.stockUp(t, "Sugar 1kg", 10)

	bill, err := f.svc.Create(ctx, "", saleOf("sg1", 2))
	require.NoError(t, err)
	require.Equal(t, "Sugar 1kg", bill.Items[0].Name)
	requireQty(t, 8, f.qty(t, "Sugar 1kg"))
}

func TestIdempotencyKeyBlocksReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	idem := shared.NewIdempotencyStore(client, time.Minute)

	f := newFixture(t, memory.Options{Transactions: true}, idem)
	f.stockUp(t, "Sugar", 10)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "k-1", saleOf("Sugar", 20))
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	_, err = f.svc.Create(ctx, "k-1", saleOf("Sugar", 2))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "k-1", saleOf("Sugar", 2))
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	requireQty(t, 8, f.qty(t, "Sugar"))
}
