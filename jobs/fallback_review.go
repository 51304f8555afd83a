package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/shopledger/shopledger/internal/jobs"
	"github.com/shopledger/shopledger/internal/platform/uow"
)

// TaskFallbackReview records a unit of work that ran without a transaction.
const TaskFallbackReview = "uow:fallback-review"

// FallbackReview is one non-transactional run kept for operator review.
type FallbackReview struct {
	Op         string    `json:"op"`
	State      string    `json:"state"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ReviewLog stores fallback reviews.
type ReviewLog interface {
	RecordFallback(ctx context.Context, review FallbackReview) error
	ListFallbacks(ctx context.Context, limit int) ([]FallbackReview, error)
}

// NewFallbackReviewTask constructs an Asynq task for a fallback review.
func NewFallbackReviewTask(review FallbackReview) (*asynq.Task, error) {
	body, err := json.Marshal(review)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFallbackReview, body, asynq.Queue(QueueCritical), asynq.MaxRetry(10)), nil
}

// FallbackReviewJob persists fallback reviews.
type FallbackReviewJob struct {
	log     ReviewLog
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewFallbackReviewJob builds the job handler.
func NewFallbackReviewJob(log ReviewLog, logger *slog.Logger, metrics *jobmetrics.Metrics) *FallbackReviewJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackReviewJob{log: log, logger: logger, metrics: metrics}
}

// Handle processes TaskFallbackReview tasks.
func (j *FallbackReviewJob) Handle(ctx context.Context, t *asynq.Task) error {
	var review FallbackReview
	if err := json.Unmarshal(t.Payload(), &review); err != nil {
		return fmt.Errorf("decode fallback review: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.metrics.Track(TaskFallbackReview)
	if err := j.log.RecordFallback(ctx, review); err != nil {
		return tracker.End(fmt.Errorf("record fallback review: %w", err))
	}
	j.logger.WarnContext(ctx, "fallback review recorded",
		slog.String("op", review.Op),
		slog.String("state", review.State),
		slog.String("error", review.Error))
	j.metrics.ObserveReview(review.State)
	return tracker.End(nil)
}

// ReviewEnqueuer submits fallback reviews.
type ReviewEnqueuer interface {
	EnqueueFallbackReview(ctx context.Context, review FallbackReview) error
}

// FallbackNotifier is a uow.Observer that queues a review for every fallback run.
type FallbackNotifier struct {
	enqueuer ReviewEnqueuer
	logger   *slog.Logger
	now      func() time.Time
}

// NewFallbackNotifier builds the observer.
func NewFallbackNotifier(enqueuer ReviewEnqueuer, logger *slog.Logger) *FallbackNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackNotifier{enqueuer: enqueuer, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Observe implements uow.Observer.
func (n *FallbackNotifier) Observe(ctx context.Context, evt uow.Event) {
	if evt.State != uow.StateFallbackDone && evt.State != uow.StateFallbackFailed {
		return
	}
	review := FallbackReview{Op: evt.Op, State: string(evt.State), OccurredAt: n.now()}
	if evt.Err != nil {
		review.Error = evt.Err.Error()
	}
	if err := n.enqueuer.EnqueueFallbackReview(context.WithoutCancel(ctx), review); err != nil {
		n.logger.ErrorContext(ctx, "enqueue fallback review",
			slog.String("op", evt.Op),
			slog.Any("error", err))
	}
}
