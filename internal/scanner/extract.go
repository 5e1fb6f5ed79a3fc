package scanner

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
)

const connectAction = "CONNECT"

// ExtractEvents reads path and returns one event per block recording a
// connect by the configured principal. An unreadable file is a ParseError
// and yields no events.
func (s *Scanner) ExtractEvents(path string) ([]domain.UnstructuredEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit file %s: %w: %w", path, app_errors.ErrParse, err)
	}
	return s.ExtractFromText(path, string(data)), nil
}

// ExtractFromText applies the block rules to text attributed to path.
func (s *Scanner) ExtractFromText(path, text string) []domain.UnstructuredEvent {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var events []domain.UnstructuredEvent
	for _, block := range blockSeparator.Split(text, -1) {
		if !s.isCandidate(block) {
			continue
		}

		attrs := s.extract(block)
		action := strings.ToUpper(attrs[AttrAction])
		if !strings.HasPrefix(action, connectAction) || !strings.EqualFold(attrs[AttrPrincipal], s.principal) {
			continue
		}

		events = append(events, domain.UnstructuredEvent{
			File:          path,
			Principal:     strings.ToUpper(attrs[AttrPrincipal]),
			Action:        action,
			ClientAddress: attrs[AttrClientAddress],
			Program:       attrs[AttrProgram],
			AuthText:      strings.ToUpper(attrs[AttrAuth]),
			Block:         strings.TrimSpace(block),
		})
	}
	return events
}

// ScanFiles extracts events from every path in order. Files that cannot be
// read are logged and skipped. Scanning stops early when ctx is done.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) ([]domain.UnstructuredEvent, error) {
	var events []domain.UnstructuredEvent
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		found, err := s.ExtractEvents(path)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping audit file", "path", path, "error", err)
			continue
		}
		events = append(events, found...)
	}
	return events, nil
}

func (s *Scanner) isCandidate(block string) bool {
	return strings.Contains(strings.ToUpper(block), strings.ToUpper(s.principal))
}

func (s *Scanner) extract(block string) map[string]string {
	attrs := make(map[string]string, len(s.rules))
	for _, rule := range s.rules {
		if _, done := attrs[rule.Attribute]; done {
			continue
		}
		if m := rule.Pattern.FindStringSubmatch(block); len(m) > 1 {
			attrs[rule.Attribute] = cleanValue(m[1])
		}
	}
	return attrs
}

func cleanValue(v string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(v), `'"`))
}
