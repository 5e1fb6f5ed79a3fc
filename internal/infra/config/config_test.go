package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/infra/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "log:\n  level: debug\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, "/etc/oratab", cfg.Audit.Oratab)
	assert.Equal(t, "/tmp/sys_audit_findings.csv", cfg.Audit.Output)
	assert.Equal(t, 500, cfg.Audit.MaxAuditFiles)
	assert.Equal(t, 200, cfg.Audit.LimitAuditRows)
	assert.Equal(t, 60*time.Second, cfg.Audit.QueryTimeout)
	assert.Equal(t, []string{".aud", ".log"}, cfg.Audit.FileSuffixes)
	assert.Equal(t, "sqlite", cfg.Persistence.Type)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "audit:\n  oratab: /opt/oratab\n  limit_audit_rows: 50\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("oratab", "/etc/oratab", "")
	fs.Int("limit-audit-rows", 200, "")
	require.NoError(t, fs.Parse([]string{"--limit-audit-rows=25"}))

	cfg, err := config.Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "/opt/oratab", cfg.Audit.Oratab)
	assert.Equal(t, 25, cfg.Audit.LimitAuditRows)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad schedule", "audit:\n  schedule: sometimes\n"},
		{"row limit too large", "audit:\n  limit_audit_rows: 20000\n"},
		{"unknown store", "persistence:\n  type: mongo\n"},
		{"postgres without url", "persistence:\n  type: postgres\n"},
		{"nats without url", "nats:\n  enabled: true\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.body), nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, app_errors.ErrConfig))
		})
	}
}
