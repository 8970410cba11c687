package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dwatkins/billtrack/internal/platform/logger"
)

// lockTimeout bounds row-lock waits inside a transaction. Postgres
// defaults lock_timeout to 0, which waits forever; with it set, a
// FOR UPDATE stuck behind a wedged holder fails with SQLSTATE 55P03
// instead of blocking until the caller's context expires.
const lockTimeout = "3s"

// TxFn is a function that executes within a database transaction.
// It receives the context and a transaction, and returns an error if the
// operation fails. The transaction is committed if the function returns
// nil, or rolled back if it returns an error.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction executes the given function within a database
// transaction at the default isolation level. If the function returns an
// error, the transaction is rolled back; otherwise it is committed.
// Panics inside fn roll the transaction back and are re-raised.
// Row-lock waits inside the transaction are bounded by lockTimeout.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	return RunInTransactionOpts(ctx, db, nil, fn)
}

// RunInTransactionOpts is RunInTransaction with explicit transaction
// options, for callers that need a stronger isolation level.
func RunInTransactionOpts(
	ctx context.Context,
	db *sql.DB,
	opts *sql.TxOptions,
	fn TxFn,
) error {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		log.Error("failed to begin transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Roll back on panic so no lock is held while the panic unwinds.
	defer func() {
		if p := recover(); p != nil {
			txErr := tx.Rollback()
			if txErr != nil {
				log.Error("failed to roll back transaction after panic",
					slog.String("error", txErr.Error()),
					slog.Any("panic", p))
			} else {
				log.Error("rolled back transaction after panic",
					slog.Any("panic", p))
			}
			panic(p)
		}
	}()

	// SET LOCAL scopes the timeout to this transaction, so pooled
	// connections are not left with a lingering session setting.
	_, err = tx.ExecContext(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'")
	if err != nil {
		log.Error("failed to set transaction lock timeout",
			slog.String("error", err.Error()))
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rollbackErr.Error()),
				slog.String("original_error", err.Error()))
		}
		return fmt.Errorf("failed to set transaction lock timeout: %w", err)
	}

	err = fn(ctx, tx)
	if err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rollbackErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf(
				"error rolling back transaction: %v (original error: %w)",
				rollbackErr,
				err,
			)
		}
		log.Debug("rolled back transaction due to error",
			slog.String("error", err.Error()))
		return err
	}

	err = tx.Commit()
	if err != nil {
		log.Error("failed to commit transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug("transaction committed successfully")
	return nil
}
