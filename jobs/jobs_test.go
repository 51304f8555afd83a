package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/shopledger/shopledger/internal/jobs"
	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/internal/store/memory"
	"github.com/shopledger/shopledger/jobs"
)

type recordingEnqueuer struct {
	reviews []jobs.FallbackReview
	err     error
}

func (e *recordingEnqueuer) EnqueueFallbackReview(ctx context.Context, review jobs.FallbackReview) error {
	e.reviews = append(e.reviews, review)
	return e.err
}

func TestFallbackNotifierEnqueuesOnlyFallbacks(t *testing.T) {
	enq := &recordingEnqueuer{}
	notifier := jobs.NewFallbackNotifier(enq, nil)
	ctx := context.Background()

	notifier.Observe(ctx, uow.Event{Op: "bill.create", State: uow.StateCommitted})
	notifier.Observe(ctx, uow.Event{Op: "bill.create", State: uow.StateAborted, Err: errors.New("nope")})
	notifier.Observe(ctx, uow.Event{Op: "bill.update", State: uow.StateFallbackDone})
	notifier.Observe(ctx, uow.Event{Op: "manufacturing.create", State: uow.StateFallbackFailed, Err: errors.New("disk")})

	require.Len(t, enq.reviews, 2)
	require.Equal(t, "bill.update", enq.reviews[0].Op)
	require.Empty(t, enq.reviews[0].Error)
	require.Equal(t, string(uow.StateFallbackFailed), enq.reviews[1].State)
	require.Equal(t, "disk", enq.reviews[1].Error)
}

func TestFallbackNotifierSwallowsEnqueueErrors(t *testing.T) {
	enq := &recordingEnqueuer{err: errors.New("redis down")}
	notifier := jobs.NewFallbackNotifier(enq, nil)

	require.NotPanics(t, func() {
		notifier.Observe(context.Background(), uow.Event{Op: "x", State: uow.StateFallbackDone})
	})
}

func TestFallbackReviewJobRecords(t *testing.T) {
	store := memory.New(memory.Options{Transactions: true})
	job := jobs.NewFallbackReviewJob(store.Direct().Reviews(), nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := jobs.NewFallbackReviewTask(jobs.FallbackReview{Op: "bill.create", State: "FALLBACK_DONE"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	reviews, err := store.Direct().Reviews().ListFallbacks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, "bill.create", reviews[0].Op)
}

func TestFallbackReviewJobSkipsMalformedPayload(t *testing.T) {
	store := memory.New(memory.Options{})
	job := jobs.NewFallbackReviewJob(store.Direct().Reviews(), nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskFallbackReview, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestStockReconcileFindsPartialWrites(t *testing.T) {
	failMovement := false
	store := memory.New(memory.Options{WriteHook: func(op string) error {
		if failMovement && op == "stock.movement" {
			return errors.New("connection reset")
		}
		return nil
	}})
	ctx := context.Background()
	engine := store.Direct().Stock()

	_, err := engine.Receive(ctx, []stock.Receipt{{Name: "Sugar", Qty: decimal.NewFromInt(10), Rate: decimal.NewFromInt(40)}}, stock.Ref{})
	require.NoError(t, err)

	job := jobs.NewStockReconcileJob(store.Direct().Stock().Reader(), nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	drifts, err := job.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, drifts)

	// the balance is written but its movement is lost, as a failed fallback would leave it
	failMovement = true
	_, err = engine.Consume(ctx, []stock.Line{{Name: "Sugar", Qty: decimal.NewFromInt(3)}}, stock.Ref{})
	require.Error(t, err)

	drifts, err = job.Run(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	require.Equal(t, "Sugar", drifts[0].ItemName)
	require.True(t, drifts[0].AvailableQty.Equal(decimal.NewFromInt(7)))
	require.True(t, drifts[0].MovementSum.Equal(decimal.NewFromInt(10)))

	task, err := jobs.NewStockReconcileTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
}
