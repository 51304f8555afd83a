package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopledger/shopledger/internal/stock"
)

// ExitDrift is returned when at least one entry disagrees with its stock card.
const ExitDrift = 10

// DriftRunner performs one reconciliation pass.
type DriftRunner interface {
	Run(ctx context.Context) ([]stock.Drift, error)
}

// DriftOptions defines the flags of the drift command.
type DriftOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// DriftSummary is the JSON output of the drift command.
type DriftSummary struct {
	OK     bool          `json:"ok"`
	Drifts []stock.Drift `json:"drifts"`
}

// DriftCommand runs the check once and prints the outcome.
func DriftCommand(ctx context.Context, runner DriftRunner, opts DriftOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	drifts, err := runner.Run(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "stock drift: %v\n", err)
		return 1
	}
	if drifts == nil {
		drifts = []stock.Drift{}
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(DriftSummary{OK: len(drifts) == 0, Drifts: drifts}); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "stock drift: encode json: %v\n", err)
			return 1
		}
	} else {
		renderDriftHuman(opts.Stdout, drifts)
	}
	if len(drifts) > 0 {
		return ExitDrift
	}
	return 0
}

func renderDriftHuman(out io.Writer, drifts []stock.Drift) {
	if len(drifts) == 0 {
		_, _ = fmt.Fprintln(out, "Every ledger entry matches its stock card.")
		return
	}
	_, _ = fmt.Fprintf(out, "%d drifted entr(ies):\n", len(drifts))
	for _, d := range drifts {
		_, _ = fmt.Fprintf(out, " - %s: ledger %s, card %s\n", d.ItemName, d.AvailableQty, d.MovementSum)
	}
}
