package persistence

import (
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spounge-ai/sysaudit/internal/domain"
	"github.com/spounge-ai/sysaudit/pkg/postgres"
)

// PostgresBase provides a base implementation for PostgreSQL-backed repositories.
// It centralizes connection management, prepared statements, and other common logic.
type PostgresBase struct {
	*postgres.Client
	logger *slog.Logger
}

// NewPostgresBase creates a new PostgresBase.
func NewPostgresBase(db *pgxpool.Pool, logger *slog.Logger) *PostgresBase {
	return &PostgresBase{
		Client: postgres.NewClient(db),
		logger: logger,
	}
}

// GetLockID derives the advisory lock ID of a check key.
func (c *PostgresBase) GetLockID(key domain.CheckKey) int64 {
	return postgres.LockID(key.String())
}

// lockOrder returns the distinct lock IDs of records in ascending order, so
// concurrent batches always acquire shared keys in the same sequence.
func (c *PostgresBase) lockOrder(records []domain.CheckRecord) []int64 {
	seen := make(map[int64]struct{}, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		id := c.GetLockID(r.CheckKey)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
