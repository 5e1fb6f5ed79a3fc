package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// TransactionManager runs functions inside serializable transactions.
type TransactionManager[T any] struct {
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewTransactionManager creates a new TransactionManager.
func NewTransactionManager[T any](logger *slog.Logger) *TransactionManager[T] {
	return &TransactionManager[T]{
		logger:     logger,
		maxRetries: 5,
		baseDelay:  10 * time.Millisecond,
		maxDelay:   250 * time.Millisecond,
	}
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected)
}

// ExecuteInTransaction executes fn within a serializable transaction. The
// whole unit of work is retried with backoff on serialization failures and
// deadlocks; any other error rolls back and is returned.
func (tm *TransactionManager[T]) ExecuteInTransaction(
	ctx context.Context,
	db *pgxpool.Pool,
	fn func(context.Context, pgx.Tx) (T, error),
) (T, error) {
	var zero T
	var err error

	for attempt := 0; attempt < tm.maxRetries; attempt++ {
		var result T
		result, err = tm.attempt(ctx, db, fn)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) {
			return zero, err
		}

		tm.logger.WarnContext(ctx, "serialization conflict, retrying transaction",
			"attempt", attempt+1, "max_attempts", tm.maxRetries)

		delay := tm.baseDelay * time.Duration(1<<uint(attempt))
		if delay > tm.maxDelay {
			delay = tm.maxDelay
		}
		delay += time.Duration(rand.Int63n(int64(delay)/10 + 1))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("transaction failed after %d attempts: %w", tm.maxRetries, err)
}

func (tm *TransactionManager[T]) attempt(
	ctx context.Context,
	db *pgxpool.Pool,
	fn func(context.Context, pgx.Tx) (T, error),
) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := fn(ctx, tx)
	if err != nil {
		return zero, fmt.Errorf("transaction failed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}
