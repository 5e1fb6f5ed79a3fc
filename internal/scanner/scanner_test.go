package scanner_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoBlockFile = `Audit file /u01/app/oracle/admin/ORCL/adump/ORCL_ora_4242_20240115102345.aud
Oracle Database 19c Enterprise Edition Release 19.0.0.0.0 - Production

Mon Jan 15 10:23:45 2024 +00:00
LENGTH : '210'
ACTION :[7] 'CONNECT'
DATABASE USER:[3] 'SYS'
PRIVILEGE :[6] 'SYSDBA'
CLIENT USER:[6] 'oracle'
CLIENT TERMINAL:[5] 'pts/0'
CLIENT ADDRESS:[58] '(ADDRESS=(PROTOCOL=tcp)(HOST=10.20.30.40)(PORT=51311))'
PROGRAM:[27] 'sqlplus@apphost (TNS V1-V3)'
AUTHENTICATION TYPE:[8] 'PASSWORD'
STATUS:[1] '0'

Mon Jan 15 10:24:02 2024 +00:00
LENGTH : '160'
ACTION :[8] 'SHUTDOWN'
DATABASE USER:[3] 'SYS'
PRIVILEGE :[6] 'SYSDBA'
STATUS:[1] '0'
`

func newScanner() *scanner.Scanner {
	return scanner.New(scanner.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractEventsTwoBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ORCL_ora_4242.aud")
	require.NoError(t, os.WriteFile(path, []byte(twoBlockFile), 0o600))

	events, err := newScanner().ExtractEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, path, ev.File)
	assert.Equal(t, "SYS", ev.Principal)
	assert.Equal(t, "CONNECT", ev.Action)
	assert.Equal(t, "(ADDRESS=(PROTOCOL=tcp)(HOST=10.20.30.40)(PORT=51311))", ev.ClientAddress)
	assert.Equal(t, "sqlplus@apphost (TNS V1-V3)", ev.Program)
	assert.Equal(t, "PASSWORD", ev.AuthText)
	assert.Contains(t, ev.Block, "PROTOCOL=tcp")
}

func TestExtractFromText(t *testing.T) {
	s := newScanner()

	tests := []struct {
		name  string
		text  string
		count int
	}{
		{
			name:  "bequeath connect",
			text:  "ACTION : 'CONNECT'\nDATABASE USER: 'sys'\nCLIENT ADDRESS: (PROTOCOL=beq)",
			count: 1,
		},
		{
			name:  "other principal",
			text:  "ACTION :[7] 'CONNECT'\nDATABASE USER:[6] 'SYSTEM'\nPRIVILEGE :[6] 'SYSDBA'",
			count: 0,
		},
		{
			name:  "os authenticated slash user",
			text:  "ACTION :[7] 'CONNECT'\nDATABASE USER:[1] '/'\nPRIVILEGE :[6] 'SYSDBA'",
			count: 0,
		},
		{
			name:  "dashed separators",
			text:  "ACTION: CONNECT\nDATABASE USER: SYS\n-----\nACTION: CONNECT\nDATABASE USER: SYS\n",
			count: 2,
		},
		{
			name:  "missing attributes tolerated",
			text:  "ACTION :[7] 'CONNECT'\nDATABASE USER:[3] 'SYS'",
			count: 1,
		},
		{
			name:  "invalid utf8 dropped",
			text:  "ACTION : 'CONNECT'\xff\xfe\nDATABASE USER: 'SYS'\r\n",
			count: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, s.ExtractFromText("fixture.aud", tc.text), tc.count)
		})
	}
}

func TestExtractEventsUnreadable(t *testing.T) {
	events, err := newScanner().ExtractEvents(filepath.Join(t.TempDir(), "missing.aud"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, app_errors.ErrParse))
	assert.Empty(t, events)
}

func TestScanFilesSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.aud")
	require.NoError(t, os.WriteFile(good, []byte(twoBlockFile), 0o600))

	events, err := newScanner().ScanFiles(context.Background(), []string{filepath.Join(dir, "gone.aud"), good})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestListCandidateFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "2024")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	files := map[string]time.Duration{
		filepath.Join(dir, "old.aud"):     0,
		filepath.Join(dir, "newest.AUD"):  3 * time.Hour,
		filepath.Join(sub, "middle.log"):  2 * time.Hour,
		filepath.Join(dir, "ignored.trc"): 4 * time.Hour,
	}
	for path, offset := range files {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		mod := base.Add(offset)
		require.NoError(t, os.Chtimes(path, mod, mod))
	}

	s := newScanner()

	t.Run("ordered newest first", func(t *testing.T) {
		got, err := s.ListCandidateFiles(dir, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "newest.AUD"),
			filepath.Join(sub, "middle.log"),
			filepath.Join(dir, "old.aud"),
		}, got)
	})

	t.Run("capped", func(t *testing.T) {
		got, err := s.ListCandidateFiles(dir, 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, filepath.Join(dir, "newest.AUD"), got[0])
	})

	t.Run("missing directory", func(t *testing.T) {
		got, err := s.ListCandidateFiles(filepath.Join(dir, "absent"), 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("custom suffixes", func(t *testing.T) {
		custom := scanner.New(scanner.Options{Suffixes: []string{".trc"}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		got, err := custom.ListCandidateFiles(dir, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "ignored.trc")}, got)
	})
}
