package sqlutil

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/mcdev12/fantabid/go/internal/apperr"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Run executes fn inside a *sql.Tx.
// If fn returns an error the tx rolls back, else it commits.
// Serialization failures and deadlocks surface as ConcurrencyConflict.
func Run[T any](
	ctx context.Context,
	db *sql.DB,
	newQueries func(DBTX) *T,
	fn func(q *T) error,
) error {
	return RunWithOptions(ctx, db, nil, newQueries, fn)
}

// RunWithOptions is Run with explicit isolation settings.
func RunWithOptions[T any](
	ctx context.Context,
	db *sql.DB,
	opts *sql.TxOptions,
	newQueries func(DBTX) *T,
	fn func(q *T) error,
) error {
	tx, err := db.BeginTx(ctx, opts) // BEGIN
	if err != nil {
		return TranslateError(err)
	}
	q := newQueries(tx)
	if err := fn(q); err != nil {
		_ = tx.Rollback() // ROLLBACK
		return TranslateError(err)
	}
	return TranslateError(tx.Commit()) // COMMIT
}

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
)

// TranslateError maps Postgres contention errors onto apperr kinds. Other
// errors pass through untouched.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		if apperr.Is(err, apperr.KindConcurrencyConflict) {
			return err
		}
		return apperr.ConcurrencyConflict(err)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint failure,
// optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
