package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spounge-ai/sysaudit/internal/constants"
	"github.com/spounge-ai/sysaudit/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InMemorySQLite is the path that opens a private in-memory database.
const InMemorySQLite = ":memory:"

type resultModel struct {
	Hostname  string    `gorm:"primaryKey"`
	OracleSID string    `gorm:"primaryKey;column:oracle_sid"`
	PDBName   string    `gorm:"primaryKey;column:pdb_name"`
	CheckName string    `gorm:"primaryKey"`
	Result    string    `gorm:"not null"`
	Status    string    `gorm:"not null;index"`
	Hash      string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (resultModel) TableName() string { return constants.TableResults }

func (m resultModel) record() domain.CheckRecord {
	return domain.CheckRecord{
		CheckKey: domain.CheckKey{
			Hostname:  m.Hostname,
			OracleSID: m.OracleSID,
			PDBName:   m.PDBName,
			CheckName: m.CheckName,
		},
		Result:      m.Result,
		Status:      domain.CheckStatus(m.Status),
		Fingerprint: m.Hash,
		UpdatedAt:   m.UpdatedAt,
	}
}

type historyModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	Hostname   string    `gorm:"not null"`
	OracleSID  string    `gorm:"not null;column:oracle_sid"`
	PDBName    string    `gorm:"not null;column:pdb_name"`
	CheckName  string    `gorm:"not null"`
	Result     string    `gorm:"not null"`
	Status     string    `gorm:"not null"`
	Hash       string    `gorm:"not null"`
	RecordedAt time.Time `gorm:"not null;index"`
}

func (historyModel) TableName() string { return constants.TableHistory }

func (m historyModel) entry() domain.HistoryEntry {
	return domain.HistoryEntry{
		ID: m.ID,
		CheckKey: domain.CheckKey{
			Hostname:  m.Hostname,
			OracleSID: m.OracleSID,
			PDBName:   m.PDBName,
			CheckName: m.CheckName,
		},
		Result:      m.Result,
		Status:      domain.CheckStatus(m.Status),
		Fingerprint: m.Hash,
		RecordedAt:  m.RecordedAt,
	}
}

// SQLiteCheckRepository stores check state in an embedded SQLite file. A
// single connection serializes all writers.
type SQLiteCheckRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ domain.CheckRepository = (*SQLiteCheckRepository)(nil)

// NewSQLiteCheckRepository opens (creating if needed) the database at path
// and migrates its schema.
func NewSQLiteCheckRepository(path string, logger *slog.Logger) (*SQLiteCheckRepository, error) {
	if path != InMemorySQLite {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := db.AutoMigrate(&resultModel{}, &historyModel{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &SQLiteCheckRepository{db: db, logger: logger}, nil
}

func keyWhere(k domain.CheckKey) map[string]any {
	return map[string]any{
		"hostname":   k.Hostname,
		"oracle_sid": k.OracleSID,
		"pdb_name":   k.PDBName,
		"check_name": k.CheckName,
	}
}

func (r *SQLiteCheckRepository) ApplyBatch(ctx context.Context, records []domain.CheckRecord, at time.Time) (domain.SubmitResult, error) {
	if len(records) == 0 {
		return domain.SubmitResult{}, nil
	}

	res := domain.SubmitResult{Received: len(records)}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			var current resultModel
			err := tx.Where(keyWhere(rec.CheckKey)).Take(&current).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				row := resultModel{
					Hostname:  rec.Hostname,
					OracleSID: rec.OracleSID,
					PDBName:   rec.PDBName,
					CheckName: rec.CheckName,
					Result:    rec.Result,
					Status:    string(rec.Status),
					Hash:      rec.Fingerprint,
					UpdatedAt: at,
				}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("insert %s: %w", rec.CheckName, err)
				}
				res.Inserted++
			case err != nil:
				return fmt.Errorf("read %s: %w", rec.CheckName, err)
			case current.Hash == rec.Fingerprint:
				continue
			default:
				err := tx.Model(&resultModel{}).Where(keyWhere(rec.CheckKey)).Updates(map[string]any{
					"result":     rec.Result,
					"status":     string(rec.Status),
					"hash":       rec.Fingerprint,
					"updated_at": at,
				}).Error
				if err != nil {
					return fmt.Errorf("update %s: %w", rec.CheckName, err)
				}
				res.Updated++
			}

			entry := historyModel{
				Hostname:   rec.Hostname,
				OracleSID:  rec.OracleSID,
				PDBName:    rec.PDBName,
				CheckName:  rec.CheckName,
				Result:     rec.Result,
				Status:     string(rec.Status),
				Hash:       rec.Fingerprint,
				RecordedAt: at,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("append history %s: %w", rec.CheckName, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.SubmitResult{}, err
	}
	r.logger.DebugContext(ctx, "batch applied",
		"received", res.Received, "inserted", res.Inserted, "updated", res.Updated)
	return res, nil
}

func (r *SQLiteCheckRepository) ListCurrent(ctx context.Context, filter domain.CheckFilter) ([]domain.CheckRecord, error) {
	q := r.db.WithContext(ctx).Model(&resultModel{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Hostname != "" {
		q = q.Where("hostname = ?", filter.Hostname)
	}

	var rows []resultModel
	if err := q.Order("updated_at DESC, hostname, oracle_sid, pdb_name, check_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	out := make([]domain.CheckRecord, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out, nil
}

func (r *SQLiteCheckRepository) ListHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	var rows []historyModel
	err := r.db.WithContext(ctx).Order("recorded_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	out := make([]domain.HistoryEntry, len(rows))
	for i, row := range rows {
		out[i] = row.entry()
	}
	return out, nil
}

func (r *SQLiteCheckRepository) Stats(ctx context.Context) (domain.Stats, error) {
	var byStatus []struct {
		Status string
		Count  int
	}
	err := r.db.WithContext(ctx).Model(&resultModel{}).
		Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count statuses: %w", err)
	}

	var byHost []struct {
		Hostname string
		Status   string
		Count    int
	}
	err = r.db.WithContext(ctx).Model(&resultModel{}).
		Select("hostname, status, COUNT(*) AS count").Group("hostname, status").
		Order("hostname, status").Scan(&byHost).Error
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count host statuses: %w", err)
	}

	stats := domain.Stats{
		GlobalStatusCounts: make(map[domain.CheckStatus]int, len(byStatus)),
		PerHost:            make([]domain.HostStatusCount, 0, len(byHost)),
	}
	for _, row := range byStatus {
		stats.GlobalStatusCounts[domain.CheckStatus(row.Status)] = row.Count
	}
	for _, row := range byHost {
		stats.PerHost = append(stats.PerHost, domain.HostStatusCount{
			Hostname: row.Hostname,
			Status:   domain.CheckStatus(row.Status),
			Count:    row.Count,
		})
	}
	return stats, nil
}

func (r *SQLiteCheckRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *SQLiteCheckRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
