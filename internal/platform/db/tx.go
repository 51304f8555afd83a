package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxOptions configures WithTx.
type TxOptions struct {
	IsoLevel pgx.TxIsoLevel
	// AdvisoryLock, when non-zero, is taken with pg_advisory_xact_lock before fn
	// runs and released at commit or rollback.
	AdvisoryLock int64
}

// WithTx runs fn inside one transaction and commits when it returns nil.
func WithTx(ctx context.Context, b Beginner, opts TxOptions, fn func(pgx.Tx) error) error {
	tx, err := b.BeginTx(ctx, pgx.TxOptions{IsoLevel: opts.IsoLevel})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if opts.AdvisoryLock != 0 {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, opts.AdvisoryLock); err != nil {
			return fmt.Errorf("platform/db: advisory lock: %w", err)
		}
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}
	return nil
}
