// Package scanner finds audit files on disk and extracts privileged
// connection events from their text.
package scanner

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Options configures a Scanner.
type Options struct {
	// Suffixes are matched case-insensitively against file names.
	Suffixes []string
	// Principal is the account whose connect records are extracted.
	Principal string
	Rules     []ExtractionRule
}

// Scanner is safe for concurrent use.
type Scanner struct {
	suffixes  []string
	principal string
	rules     []ExtractionRule
	logger    *slog.Logger
}

// New builds a Scanner. Empty options fall back to .aud/.log files, the
// SYS principal and DefaultExtractionRules.
func New(opts Options, logger *slog.Logger) *Scanner {
	s := &Scanner{
		principal: opts.Principal,
		rules:     opts.Rules,
		logger:    logger,
	}
	for _, suffix := range opts.Suffixes {
		s.suffixes = append(s.suffixes, strings.ToLower(suffix))
	}
	if len(s.suffixes) == 0 {
		s.suffixes = []string{".aud", ".log"}
	}
	if s.principal == "" {
		s.principal = "SYS"
	}
	if len(s.rules) == 0 {
		s.rules = DefaultExtractionRules()
	}
	return s
}

type candidate struct {
	path    string
	modTime time.Time
}

// ListCandidateFiles walks dir recursively and returns recognized audit
// files, newest first, capped at maxFiles (no cap when maxFiles <= 0).
// A missing directory yields no files. Unreadable subdirectories are skipped.
func (s *Scanner) ListCandidateFiles(dir string, maxFiles int) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var found []candidate
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			s.logger.Debug("skipping unreadable audit path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !s.matches(d.Name()) {
			return nil
		}

		var mod time.Time
		if fi, err := d.Info(); err == nil {
			mod = fi.ModTime()
		}
		found = append(found, candidate{path: path, modTime: mod})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].modTime.Equal(found[j].modTime) {
			return found[i].modTime.After(found[j].modTime)
		}
		return found[i].path < found[j].path
	})
	if maxFiles > 0 && len(found) > maxFiles {
		found = found[:maxFiles]
	}

	paths := make([]string, len(found))
	for i, c := range found {
		paths[i] = c.path
	}
	return paths, nil
}

func (s *Scanner) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
