package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/shopledger/shopledger/internal/jobs"
	"github.com/shopledger/shopledger/internal/stock"
)

const (
	// TaskStockReconcile compares every ledger balance with its stock card.
	TaskStockReconcile = "stock:reconcile"
	// StockReconcileCron runs the check nightly.
	StockReconcileCron = "15 2 * * *"
)

// StockReconcilePayload carries scheduling metadata.
type StockReconcilePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewStockReconcileTask constructs an Asynq task for ledger reconciliation.
func NewStockReconcileTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(StockReconcilePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockReconcile, body, asynq.Queue(QueueDefault)), nil
}

// DriftSource reports ledger entries that disagree with their movements.
type DriftSource interface {
	Drifts(ctx context.Context) ([]stock.Drift, error)
}

// StockReconcileJob logs drifted entries. It never corrects them.
type StockReconcileJob struct {
	source  DriftSource
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewStockReconcileJob builds the job handler.
func NewStockReconcileJob(source DriftSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockReconcileJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &StockReconcileJob{source: source, logger: logger, metrics: metrics}
}

// Handle processes TaskStockReconcile tasks.
func (j *StockReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StockReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode reconcile payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	_, err := j.Run(ctx)
	return err
}

// Run performs one reconciliation pass and returns the drifted entries.
func (j *StockReconcileJob) Run(ctx context.Context) ([]stock.Drift, error) {
	tracker := j.metrics.Track(TaskStockReconcile)
	drifts, err := j.source.Drifts(ctx)
	if err != nil {
		return nil, tracker.End(fmt.Errorf("load drifts: %w", err))
	}
	j.metrics.SetDriftItems(len(drifts))
	for _, d := range drifts {
		j.logger.WarnContext(ctx, "stock ledger drift",
			slog.String("item", d.ItemName),
			slog.String("available_qty", d.AvailableQty.String()),
			slog.String("movement_sum", d.MovementSum.String()))
	}
	if len(drifts) == 0 {
		j.logger.InfoContext(ctx, "stock ledger reconciled")
	}
	return drifts, tracker.End(nil)
}
