package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spounge-ai/sysaudit/internal/constants"
	"github.com/spounge-ai/sysaudit/internal/domain"
)

// PostgresCheckRepository stores check state in PostgreSQL. Every batch runs
// in one serializable transaction holding an advisory lock per key.
type PostgresCheckRepository struct {
	*PostgresBase
	tm *TransactionManager[domain.SubmitResult]
}

var _ domain.CheckRepository = (*PostgresCheckRepository)(nil)

func NewPostgresCheckRepository(db *pgxpool.Pool, logger *slog.Logger) *PostgresCheckRepository {
	return &PostgresCheckRepository{
		PostgresBase: NewPostgresBase(db, logger),
		tm:           NewTransactionManager[domain.SubmitResult](logger),
	}
}

func keyArgs(k domain.CheckKey) []any {
	return []any{k.Hostname, k.OracleSID, k.PDBName, k.CheckName}
}

func recordArgs(r domain.CheckRecord, at time.Time) []any {
	return append(keyArgs(r.CheckKey), r.Result, string(r.Status), r.Fingerprint, at)
}

func (r *PostgresCheckRepository) ApplyBatch(ctx context.Context, records []domain.CheckRecord, at time.Time) (domain.SubmitResult, error) {
	if len(records) == 0 {
		return domain.SubmitResult{}, nil
	}
	lockIDs := r.lockOrder(records)

	return r.tm.ExecuteInTransaction(ctx, r.DB, func(ctx context.Context, tx pgx.Tx) (domain.SubmitResult, error) {
		res := domain.SubmitResult{Received: len(records)}

		for _, id := range lockIDs {
			if err := r.AcquireLock(ctx, tx, id); err != nil {
				return domain.SubmitResult{}, err
			}
		}

		for _, rec := range records {
			var current string
			err := tx.QueryRow(ctx, constants.Queries[constants.StmtSelectFingerprint], keyArgs(rec.CheckKey)...).Scan(&current)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				if _, err := tx.Exec(ctx, constants.Queries[constants.StmtInsertResult], recordArgs(rec, at)...); err != nil {
					return domain.SubmitResult{}, fmt.Errorf("insert %s: %w", rec.CheckName, err)
				}
				res.Inserted++
			case err != nil:
				return domain.SubmitResult{}, fmt.Errorf("read %s: %w", rec.CheckName, err)
			case current == rec.Fingerprint:
				continue
			default:
				if _, err := tx.Exec(ctx, constants.Queries[constants.StmtUpdateResult], recordArgs(rec, at)...); err != nil {
					return domain.SubmitResult{}, fmt.Errorf("update %s: %w", rec.CheckName, err)
				}
				res.Updated++
			}

			if _, err := tx.Exec(ctx, constants.Queries[constants.StmtInsertHistory], recordArgs(rec, at)...); err != nil {
				return domain.SubmitResult{}, fmt.Errorf("append history %s: %w", rec.CheckName, err)
			}
		}
		return res, nil
	})
}

func (r *PostgresCheckRepository) ListCurrent(ctx context.Context, filter domain.CheckFilter) ([]domain.CheckRecord, error) {
	rows, err := r.DB.Query(ctx, constants.Queries[constants.StmtListCurrent], string(filter.Status), filter.Hostname)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CheckRecord, error) {
		var rec domain.CheckRecord
		var status string
		err := row.Scan(&rec.Hostname, &rec.OracleSID, &rec.PDBName, &rec.CheckName,
			&rec.Result, &status, &rec.Fingerprint, &rec.UpdatedAt)
		rec.Status = domain.CheckStatus(status)
		return rec, err
	})
}

func (r *PostgresCheckRepository) ListHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	rows, err := r.DB.Query(ctx, constants.Queries[constants.StmtListHistory], limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HistoryEntry, error) {
		var e domain.HistoryEntry
		var status string
		err := row.Scan(&e.ID, &e.Hostname, &e.OracleSID, &e.PDBName, &e.CheckName,
			&e.Result, &status, &e.Fingerprint, &e.RecordedAt)
		e.Status = domain.CheckStatus(status)
		return e, err
	})
}

func (r *PostgresCheckRepository) Stats(ctx context.Context) (domain.Stats, error) {
	stats := domain.Stats{GlobalStatusCounts: map[domain.CheckStatus]int{}, PerHost: []domain.HostStatusCount{}}

	rows, err := r.DB.Query(ctx, constants.Queries[constants.StmtCountByStatus])
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count statuses: %w", err)
	}
	var status string
	var count int
	_, err = pgx.ForEachRow(rows, []any{&status, &count}, func() error {
		stats.GlobalStatusCounts[domain.CheckStatus(status)] = count
		return nil
	})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count statuses: %w", err)
	}

	rows, err = r.DB.Query(ctx, constants.Queries[constants.StmtCountByHost])
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count host statuses: %w", err)
	}
	stats.PerHost, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HostStatusCount, error) {
		var hc domain.HostStatusCount
		var s string
		err := row.Scan(&hc.Hostname, &s, &hc.Count)
		hc.Status = domain.CheckStatus(s)
		return hc, err
	})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count host statuses: %w", err)
	}
	return stats, nil
}

func (r *PostgresCheckRepository) Ping(ctx context.Context) error {
	return r.DB.Ping(ctx)
}

func (r *PostgresCheckRepository) Close() error {
	r.DB.Close()
	return nil
}
