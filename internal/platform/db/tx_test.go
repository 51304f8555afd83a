package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	calls []string
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.calls = append(f.calls, "COMMIT")
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.calls = append(f.calls, "ROLLBACK")
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	iso pgx.TxIsoLevel
	err error
}

func (b *fakeBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.iso = opts.IsoLevel
	return b.tx, nil
}

func TestWithTxCommitsAfterLock(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	err := WithTx(context.Background(), b, TxOptions{IsoLevel: pgx.Serializable, AdvisoryLock: 42}, func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), "CREATE TABLE t ()")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, pgx.Serializable, b.iso)
	require.Equal(t, []string{"SELECT pg_advisory_xact_lock($1)", "CREATE TABLE t ()", "COMMIT", "ROLLBACK"}, b.tx.calls)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")
	err := WithTx(context.Background(), b, TxOptions{}, func(pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"ROLLBACK"}, b.tx.calls)
}

func TestWithTxBeginFailure(t *testing.T) {
	b := &fakeBeginner{err: errors.New("no conn")}
	err := WithTx(context.Background(), b, TxOptions{}, func(pgx.Tx) error { return nil })
	require.ErrorContains(t, err, "platform/db: begin tx")
}
