package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/stock"
	"github.com/shopledger/shopledger/jobs"
)

type stubRunner struct {
	drifts []stock.Drift
	err    error
}

func (s stubRunner) Run(context.Context) ([]stock.Drift, error) {
	return s.drifts, s.err
}

func TestDriftCommandJSONClean(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := DriftCommand(context.Background(), stubRunner{}, DriftOptions{JSONOutput: true, Stdout: stdout, Stderr: stderr})
	require.Zero(t, code)
	require.Empty(t, stderr.String())

	var summary DriftSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.True(t, summary.OK)
	require.Empty(t, summary.Drifts)
}

func TestDriftCommandReportsDrift(t *testing.T) {
	stdout := new(bytes.Buffer)
	runner := stubRunner{drifts: []stock.Drift{{
		ItemName:     "Sugar 1kg",
		AvailableQty: decimal.NewFromInt(7),
		MovementSum:  decimal.NewFromInt(10),
	}}}
	code := DriftCommand(context.Background(), runner, DriftOptions{Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, ExitDrift, code)
	require.Contains(t, stdout.String(), "Sugar 1kg: ledger 7, card 10")
}

func TestDriftCommandError(t *testing.T) {
	stderr := new(bytes.Buffer)
	code := DriftCommand(context.Background(), stubRunner{err: errors.New("db down")}, DriftOptions{Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "db down")
}

func TestTriggerEnqueuesReconcile(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewJobsCLI(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })

	info, err := c.Trigger(context.Background(), jobs.TaskStockReconcile)
	require.NoError(t, err)
	require.Equal(t, jobs.QueueDefault, info.Queue)
	require.Equal(t, jobs.TaskStockReconcile, info.Type)

	pending, err := mr.List("asynq:{default}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewJobsCLI(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.Trigger(context.Background(), "report:daily")
	require.ErrorContains(t, err, "unsupported job")
}

func TestInspectQueuesBeforeFirstTask(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewJobsCLI(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer c.Close()

	stats, err := c.InspectQueues(context.Background())
	require.NoError(t, err)
	require.Equal(t, []QueueStats{{Queue: jobs.QueueCritical}, {Queue: jobs.QueueDefault}}, stats)
}
