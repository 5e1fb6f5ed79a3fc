package domain

import (
	"context"
	"strings"
	"time"
)

// CheckStatus is the outcome reported for an assessment check.
type CheckStatus string

const (
	CheckStatusPass  CheckStatus = "PASS"
	CheckStatusFail  CheckStatus = "FAIL"
	CheckStatusWarn  CheckStatus = "WARN"
	CheckStatusError CheckStatus = "ERROR"
	CheckStatusSkip  CheckStatus = "SKIP"
)

// CheckStatuses lists every accepted status.
var CheckStatuses = []CheckStatus{
	CheckStatusPass,
	CheckStatusFail,
	CheckStatusWarn,
	CheckStatusError,
	CheckStatusSkip,
}

// ParseCheckStatus normalizes s and reports whether it is an accepted status.
func ParseCheckStatus(s string) (CheckStatus, bool) {
	status := CheckStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range CheckStatuses {
		if status == known {
			return status, true
		}
	}
	return status, false
}

// CheckKey identifies the subject of an assessment check.
// An absent PDB is the empty string.
type CheckKey struct {
	Hostname  string `json:"hostname"`
	OracleSID string `json:"oracle_sid"`
	PDBName   string `json:"pdb_name"`
	CheckName string `json:"check_name"`
}

// String renders the key in a stable, unambiguous form used for lock IDs.
func (k CheckKey) String() string {
	return strings.Join([]string{k.Hostname, k.OracleSID, k.PDBName, k.CheckName}, "\x1f")
}

// CheckSubmission is one item of an ingest batch.
type CheckSubmission struct {
	Hostname  string `json:"hostname"   validate:"required,max=255"`
	OracleSID string `json:"oracle_sid" validate:"required,max=64"`
	PDBName   string `json:"pdb_name"   validate:"max=128"`
	CheckName string `json:"check_name" validate:"required,max=255"`
	Result    string `json:"result"`
	Status    string `json:"status"     validate:"required,checkstatus"`
}

// Key returns the check key of the submission.
func (s CheckSubmission) Key() CheckKey {
	return CheckKey{
		Hostname:  s.Hostname,
		OracleSID: s.OracleSID,
		PDBName:   s.PDBName,
		CheckName: s.CheckName,
	}
}

// CheckRecord is the current state of one check.
type CheckRecord struct {
	CheckKey
	Result      string      `json:"result"`
	Status      CheckStatus `json:"status"`
	Fingerprint string      `json:"hash"`
	UpdatedAt   time.Time   `json:"timestamp"`
}

// HistoryEntry is an append-only record of a state change.
type HistoryEntry struct {
	ID int64 `json:"id"`
	CheckKey
	Result      string      `json:"result"`
	Status      CheckStatus `json:"status"`
	Fingerprint string      `json:"hash"`
	RecordedAt  time.Time   `json:"timestamp"`
}

// SubmitResult reports how a batch was applied.
type SubmitResult struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// HostStatusCount is a per-host status tally.
type HostStatusCount struct {
	Hostname string      `json:"hostname"`
	Status   CheckStatus `json:"status"`
	Count    int         `json:"count"`
}

// Stats summarizes the current-state table.
type Stats struct {
	GlobalStatusCounts map[CheckStatus]int `json:"global_status_counts"`
	PerHost            []HostStatusCount   `json:"per_host"`
}

// CheckFilter narrows a current-state read. Zero fields match everything.
type CheckFilter struct {
	Status   CheckStatus
	Hostname string
}

// CheckRepository persists current state and history for assessment checks.
type CheckRepository interface {
	// ApplyBatch applies records in one unit of work, stamping every change
	// with at. Records whose fingerprint matches the stored one are skipped.
	ApplyBatch(ctx context.Context, records []CheckRecord, at time.Time) (SubmitResult, error)
	ListCurrent(ctx context.Context, filter CheckFilter) ([]CheckRecord, error)
	ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error)
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}
