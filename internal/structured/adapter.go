// Package structured reads privileged connection events from the audit
// tables of a database instance.
package structured

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
)

const (
	DefaultLimit = 200
	MaxLimit     = 10000

	timestampLayout = "2006-01-02 15:04:05"
)

// Adapter probes audit capabilities and fetches audit-table events.
type Adapter struct {
	runner QueryRunner
	logger *slog.Logger
}

func NewAdapter(runner QueryRunner, logger *slog.Logger) *Adapter {
	return &Adapter{runner: runner, logger: logger}
}

// ProbeCapability determines whether unified auditing is active and where
// audit files are written. A failed unified-audit probe selects the legacy
// trail and records the reason. An error is returned only when no probe
// succeeded; the capabilities are usable either way.
func (a *Adapter) ProbeCapability(ctx context.Context, host domain.HostContext) (domain.Capabilities, error) {
	var caps domain.Capabilities
	var failures []error

	lines, err := a.runner.Query(ctx, host, unifiedOptionQuery)
	switch {
	case err != nil:
		caps.FallbackReason = err.Error()
		failures = append(failures, fmt.Errorf("unified auditing probe: %w", err))
	case len(lines) > 0 && strings.HasPrefix(strings.ToUpper(strings.TrimSpace(lines[0])), "TRUE"):
		caps.UnifiedAudit = true
	default:
		caps.FallbackReason = "unified auditing not enabled"
	}

	if caps.AuditFileDest, err = a.parameter(ctx, host, paramAuditFileDest); err != nil {
		failures = append(failures, err)
	}
	if caps.AuditSysOperations, err = a.parameter(ctx, host, paramAuditSysOperations); err != nil {
		failures = append(failures, err)
	}

	for _, f := range failures {
		a.logger.WarnContext(ctx, "capability probe failed", "sid", host.SID, "stage", "probe", "error", f)
	}
	if len(failures) == 3 {
		return caps, fmt.Errorf("probe %s: %w", host.SID, errors.Join(failures...))
	}

	a.logger.DebugContext(ctx, "capabilities probed",
		"sid", host.SID,
		"unified_audit", caps.UnifiedAudit,
		"audit_file_dest", caps.AuditFileDest,
		"audit_sys_operations", caps.AuditSysOperations,
	)
	return caps, nil
}

func (a *Adapter) parameter(ctx context.Context, host domain.HostContext, name string) (string, error) {
	lines, err := a.runner.Query(ctx, host, parameterQuery(name))
	if err != nil {
		return "", fmt.Errorf("parameter %s: %w", name, err)
	}
	if len(lines) == 0 {
		return "", nil
	}
	return strings.TrimSpace(lines[0]), nil
}

// FetchEvents returns up to limit privileged logon events, newest first,
// from the trail selected by the host's capabilities. Rows that cannot be
// parsed are skipped.
func (a *Adapter) FetchEvents(ctx context.Context, host domain.HostContext, limit int) ([]domain.StructuredEvent, error) {
	limit = clampLimit(limit)
	trail := domain.SourceSessionTrail
	if host.Capabilities.UnifiedAudit {
		trail = domain.SourceUnifiedTrail
	}

	lines, err := a.runner.Query(ctx, host, eventsQuery(host.Capabilities.UnifiedAudit, limit))
	if err != nil {
		return nil, fmt.Errorf("fetch %s events for %s: %w", trail, host.SID, err)
	}

	events := make([]domain.StructuredEvent, 0, len(lines))
	for _, line := range lines {
		ev, err := parseRow(trail, line)
		if err != nil {
			a.logger.DebugContext(ctx, "skipping audit row", "sid", host.SID, "source", trail, "error", err)
			continue
		}
		events = append(events, ev)
		if len(events) == limit {
			break
		}
	}
	return events, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func parseRow(trail domain.Source, line string) (domain.StructuredEvent, error) {
	parts := strings.SplitN(line, "|", eventColumns)
	if len(parts) != eventColumns {
		return domain.StructuredEvent{}, fmt.Errorf("expected %d columns, got %d: %w", eventColumns, len(parts), app_errors.ErrParse)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	ts, err := time.Parse(timestampLayout, parts[0])
	if err != nil {
		return domain.StructuredEvent{}, fmt.Errorf("timestamp %q: %w", parts[0], app_errors.ErrParse)
	}

	code := 0
	if parts[7] != "" {
		if code, err = strconv.Atoi(parts[7]); err != nil {
			return domain.StructuredEvent{}, fmt.Errorf("return code %q: %w", parts[7], app_errors.ErrParse)
		}
	}

	return domain.StructuredEvent{
		Trail:      trail,
		Timestamp:  ts,
		Principal:  strings.ToUpper(parts[1]),
		Action:     parts[2],
		OriginHost: parts[3],
		Program:    parts[4],
		OSUser:     parts[5],
		Terminal:   parts[6],
		ReturnCode: code,
		AuthText:   parts[8],
		Row:        line,
	}, nil
}
