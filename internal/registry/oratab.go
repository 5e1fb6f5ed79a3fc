// Package registry enumerates database instances from an oratab-style file.
package registry

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
)

// placeholderSID is the literal left in templated oratab files.
const placeholderSID = "HOSTNAME"

// Enumerate reads the registry at path and returns one HostContext per
// usable entry, in file order. A missing, unreadable or empty registry
// is a configuration error.
func Enumerate(path string, logger *slog.Logger) ([]domain.HostContext, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open host registry %s: %w: %w", path, app_errors.ErrConfig, err)
	}
	defer f.Close()

	hosts, err := Parse(f, logger)
	if err != nil {
		return nil, fmt.Errorf("read host registry %s: %w", path, err)
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("host registry %s lists no instances: %w", path, app_errors.ErrConfig)
	}
	return hosts, nil
}

// Parse reads registry lines of the form SID:HOME[:FLAG]. Blank lines,
// comments, lines with fewer than two fields, empty SIDs and the template
// placeholder are skipped. A SID listed twice keeps its first entry.
func Parse(r io.Reader, logger *slog.Logger) ([]domain.HostContext, error) {
	var hosts []domain.HostContext
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ":")
		if len(parts) < 2 {
			logger.Debug("skipping malformed registry line", "line", lineNo)
			continue
		}

		sid := strings.TrimSpace(parts[0])
		home := strings.TrimSpace(parts[1])
		if sid == "" || strings.EqualFold(sid, placeholderSID) {
			logger.Debug("skipping registry line without usable sid", "line", lineNo)
			continue
		}
		if first, dup := seen[sid]; dup {
			logger.Debug("skipping duplicate sid", "sid", sid, "line", lineNo, "first_line", first)
			continue
		}

		seen[sid] = lineNo
		hosts = append(hosts, domain.NewHostContext(sid, home, lineNo))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", app_errors.ErrConfig, err)
	}

	return hosts, nil
}
