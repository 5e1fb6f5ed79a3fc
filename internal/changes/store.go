// Package changes keeps the current state and change history of assessment
// checks, deduplicating resubmissions by content fingerprint.
package changes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/metrics"
	customvalidator "github.com/spounge-ai/sysaudit/pkg/validator"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

type Store struct {
	repo     domain.CheckRepository
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Store)

// WithClock replaces the clock used to stamp batches.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics records store latencies and submission outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func NewStore(repo domain.CheckRepository, logger *slog.Logger, opts ...Option) (*Store, error) {
	v := validator.New()
	if err := customvalidator.RegisterCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register custom validators: %w", err)
	}
	s := &Store{
		repo:     repo,
		validate: v,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Fingerprint is the SHA-256 hex digest of a check result.
func Fingerprint(result string) string {
	sum := sha256.Sum256([]byte(result))
	return hex.EncodeToString(sum[:])
}

// Submit validates and applies a batch. Items whose result is unchanged are
// skipped; new keys are inserted and changed keys updated, each with a
// history entry. An invalid item rejects the whole batch.
func (s *Store) Submit(ctx context.Context, batch []domain.CheckSubmission) (domain.SubmitResult, error) {
	if len(batch) == 0 {
		return domain.SubmitResult{}, nil
	}

	records := make([]domain.CheckRecord, len(batch))
	for i, item := range batch {
		rec, err := s.normalize(item)
		if err != nil {
			return domain.SubmitResult{}, fmt.Errorf("item %d: %w: %w", i, app_errors.ErrInvalidInput, err)
		}
		records[i] = rec
	}

	start := time.Now()
	res, err := s.repo.ApplyBatch(ctx, records, s.now().UTC())
	s.metrics.ObserveStore("submit", start)
	if err != nil {
		return domain.SubmitResult{}, storeError("apply batch", err)
	}

	s.metrics.RecordSubmit(res.Inserted, res.Updated, res.Received-res.Inserted-res.Updated)
	s.logger.InfoContext(ctx, "check batch applied",
		"received", res.Received, "inserted", res.Inserted, "updated", res.Updated)
	return res, nil
}

func (s *Store) normalize(item domain.CheckSubmission) (domain.CheckRecord, error) {
	item.Hostname = strings.TrimSpace(item.Hostname)
	item.OracleSID = strings.TrimSpace(item.OracleSID)
	item.PDBName = strings.TrimSpace(item.PDBName)
	item.CheckName = strings.TrimSpace(item.CheckName)

	if err := s.validate.Struct(item); err != nil {
		return domain.CheckRecord{}, err
	}
	status, _ := domain.ParseCheckStatus(item.Status)

	return domain.CheckRecord{
		CheckKey:    item.Key(),
		Result:      item.Result,
		Status:      status,
		Fingerprint: Fingerprint(item.Result),
	}, nil
}

// ReadCurrent returns the current state of every check matching filter,
// most recently changed first.
func (s *Store) ReadCurrent(ctx context.Context, filter domain.CheckFilter) ([]domain.CheckRecord, error) {
	if filter.Status != "" {
		status, ok := domain.ParseCheckStatus(string(filter.Status))
		if !ok {
			return nil, fmt.Errorf("unknown status %q: %w", filter.Status, app_errors.ErrInvalidInput)
		}
		filter.Status = status
	}

	start := time.Now()
	records, err := s.repo.ListCurrent(ctx, filter)
	s.metrics.ObserveStore("read_current", start)
	if err != nil {
		return nil, storeError("read current", err)
	}
	return records, nil
}

// LatestFailures returns the current checks whose status is FAIL.
func (s *Store) LatestFailures(ctx context.Context) ([]domain.CheckRecord, error) {
	return s.ReadCurrent(ctx, domain.CheckFilter{Status: domain.CheckStatusFail})
}

// ReadHistory returns up to limit history entries, newest first. A
// non-positive limit means the default; larger limits are capped.
func (s *Store) ReadHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	limit = ClampHistoryLimit(limit)

	start := time.Now()
	entries, err := s.repo.ListHistory(ctx, limit)
	s.metrics.ObserveStore("read_history", start)
	if err != nil {
		return nil, storeError("read history", err)
	}
	return entries, nil
}

func ClampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

// Stats counts current checks by status and by host and status.
func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	start := time.Now()
	stats, err := s.repo.Stats(ctx)
	s.metrics.ObserveStore("stats", start)
	if err != nil {
		return domain.Stats{}, storeError("stats", err)
	}
	return stats, nil
}

// Ping reports whether the backing store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// storeError tags repository failures with ErrStore unless they already
// carry a more specific class.
func storeError(op string, err error) error {
	if errors.Is(err, app_errors.ErrUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, app_errors.ErrStore, err)
}
