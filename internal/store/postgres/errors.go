package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/shared"
)

const (
	codeFeatureNotSupported = "0A000"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeUniqueViolation     = "23505"
)

const statementPoolingMessage = "transaction blocks not allowed"

// IsTransactionsUnsupported reports whether err means the server or a pooler in
// front of it refuses multi-statement transactions. A bare feature_not_supported
// error counts only after txBoundary has tagged it at BEGIN or COMMIT.
func IsTransactionsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, uow.ErrTransactionsUnsupported) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.Contains(strings.ToLower(pgErr.Message), statementPoolingMessage)
	}
	return strings.Contains(strings.ToLower(err.Error()), statementPoolingMessage)
}

// txBoundary tags feature_not_supported raised while opening or committing a
// transaction. The same code from a statement inside the body stays a plain error.
func txBoundary(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeFeatureNotSupported {
		return fmt.Errorf("%w: %w", uow.ErrTransactionsUnsupported, err)
	}
	return err
}

// translate maps retryable server errors onto shared.ErrConflict while keeping
// the original error in the chain.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == codeSerialization || pgErr.Code == codeDeadlock) {
		return fmt.Errorf("%w: %w", shared.ErrConflict, err)
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
