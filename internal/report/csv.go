// Package report writes and ships the results of an audit pass.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spounge-ai/sysaudit/internal/domain"
)

// preferredColumns lead the report in this order; any other column follows
// in lexical order.
var preferredColumns = []string{
	"sid", "source", "file", "row", "timestamp", "dbusername", "db_user",
	"action", "client_address", "client_host", "program", "client_program",
	"os_username", "userhost", "terminal", "auth", "detected_method",
	"detected_location", "return_code",
}

// Columns returns the header for rows: the preferred columns that occur,
// then the remaining ones sorted.
func Columns(rows []map[string]string) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for _, c := range preferredColumns {
		if _, ok := seen[c]; ok {
			columns = append(columns, c)
			delete(seen, c)
		}
	}
	rest := make([]string, 0, len(seen))
	for c := range seen {
		rest = append(rest, c)
	}
	sort.Strings(rest)
	return append(columns, rest...)
}

// WriteCSV writes one row per finding. Columns absent from a finding are
// left empty. Nothing is written when there are no findings.
func WriteCSV(w io.Writer, findings []domain.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	rows := make([]map[string]string, len(findings))
	for i, f := range findings {
		rows[i] = f.Fields()
	}
	columns := Columns(rows)

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			record[i] = row[c]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVWriter writes the findings of a pass to a file, replacing it atomically.
type CSVWriter struct {
	path string
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

func (w *CSVWriter) Name() string { return "csv" }

func (w *CSVWriter) Path() string { return w.path }

func (w *CSVWriter) Publish(_ context.Context, report *domain.PassReport) error {
	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".sysaudit-*.csv")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, report.Findings()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("replace report %s: %w", w.path, err)
	}
	return nil
}
