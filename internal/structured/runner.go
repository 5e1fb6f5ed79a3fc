package structured

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/pkg/execution"
)

// QueryRunner executes one SQL statement against a host and returns the
// non-empty output lines.
type QueryRunner interface {
	Query(ctx context.Context, host domain.HostContext, sql string) ([]string, error)
}

// errorPrefixes mark lines that SQL*Plus prints for failed statements.
var errorPrefixes = []string{"ORA-", "SP2-", "ERROR at line", "ERROR:"}

// SQLPlusRunner runs statements through a local "sqlplus -S / as sysdba"
// session. Authentication is delegated to the operating system, so no
// credentials are handled here.
type SQLPlusRunner struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewSQLPlusRunner creates a runner invoking the binary at path. Each query
// is bounded by timeout.
func NewSQLPlusRunner(path string, timeout time.Duration, logger *slog.Logger) *SQLPlusRunner {
	return &SQLPlusRunner{path: path, timeout: timeout, logger: logger}
}

func (r *SQLPlusRunner) Query(ctx context.Context, host domain.HostContext, sql string) ([]string, error) {
	return execution.WithTimeout(ctx, r.timeout, func(ctx context.Context) ([]string, error) {
		cmd := exec.CommandContext(ctx, r.path, "-S", "/ as sysdba")
		cmd.Env = host.Environ(os.Environ())
		cmd.Stdin = strings.NewReader(wrapScript(sql))

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		start := time.Now()
		err := cmd.Run()
		r.logger.DebugContext(ctx, "sqlplus finished", "sid", host.SID, "duration", time.Since(start), "error", err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, fmt.Errorf("sqlplus timed out after %s: %w", r.timeout, app_errors.ErrConnectivity)
			}
			return nil, ctxErr
		}
		if err != nil {
			reason := strings.TrimSpace(stderr.String())
			if reason == "" {
				reason = strings.TrimSpace(stdout.String())
			}
			return nil, fmt.Errorf("sqlplus failed: %s: %w: %w", reason, app_errors.ErrConnectivity, err)
		}

		return outputLines(stdout.String())
	})
}

func wrapScript(sql string) string {
	return strings.Join([]string{
		"WHENEVER SQLERROR EXIT SQL.SQLCODE",
		"SET FEEDBACK OFF",
		"SET HEADING OFF",
		"SET PAGESIZE 0",
		"SET LINESIZE 32767",
		"SET LONG 32767",
		"SET TRIMSPOOL ON",
		"SET TRIMOUT ON",
		"SET TAB OFF",
		sql,
		"EXIT",
	}, "\n") + "\n"
}

// outputLines drops blank lines and reports SQL*Plus error lines as a
// connectivity failure.
func outputLines(out string) ([]string, error) {
	var lines []string
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		trimmed := strings.TrimSpace(line)
		for _, prefix := range errorPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				return nil, fmt.Errorf("query error: %s: %w", trimmed, app_errors.ErrConnectivity)
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}
