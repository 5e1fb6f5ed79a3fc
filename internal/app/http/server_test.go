package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	apphttp "github.com/spounge-ai/sysaudit/internal/app/http"
	"github.com/spounge-ai/sysaudit/internal/changes"
	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/infra/config"
	"github.com/spounge-ai/sysaudit/internal/infra/persistence"
	"github.com/spounge-ai/sysaudit/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type readiness struct {
	ok  bool
	err error
}

func (r readiness) IsHealthy() (bool, error) { return r.ok, r.err }

func serverConfig() config.ServerConfig {
	return config.ServerConfig{
		Port:         0,
		Mode:         "development",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		MaxBodyBytes: 1 << 20,
		RateLimiter:  config.RateLimiterConfig{Enabled: false},
	}
}

func newServer(t *testing.T, cfg config.ServerConfig, ready apphttp.ReadinessChecker) http.Handler {
	t.Helper()
	repo, err := persistence.NewSQLiteCheckRepository(persistence.InMemorySQLite, discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	reg := prometheus.NewRegistry()
	store, err := changes.NewStore(repo, discard, changes.WithMetrics(metrics.New(reg)))
	require.NoError(t, err)

	srv := apphttp.New(cfg, apphttp.Deps{
		Store:     store,
		Readiness: ready,
		Gatherer:  reg,
		Errors:    app_errors.NewErrorClassifier(discard),
		Logger:    discard,
		Version:   "test",
	})
	return srv.Routes()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const batch = `[
	{"hostname": "db01", "oracle_sid": "ORCL", "check_name": "audit_trail", "result": "NONE", "status": "FAIL"},
	{"hostname": "db01", "oracle_sid": "ORCL", "pdb_name": "PDB1", "check_name": "audit_trail", "result": "DB", "status": "PASS"}
]`

func TestSubmitAndRead(t *testing.T) {
	h := newServer(t, serverConfig(), nil)

	rec := do(t, h, http.MethodPost, "/submit", batch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.SubmitResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, domain.SubmitResult{Received: 2, Inserted: 2}, res)

	rec = do(t, h, http.MethodPost, "/submit", batch)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, domain.SubmitResult{Received: 2}, res)

	rec = do(t, h, http.MethodGet, "/latest_failures", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var failures []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, "NONE", failures[0]["result"])
	assert.Equal(t, changes.Fingerprint("NONE"), failures[0]["hash"])
	assert.Contains(t, failures[0], "timestamp")

	rec = do(t, h, http.MethodGet, "/results?status=pass", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var passing []domain.CheckRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &passing))
	require.Len(t, passing, 1)
	assert.Equal(t, "PDB1", passing[0].PDBName)

	rec = do(t, h, http.MethodGet, "/changes?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []domain.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 1)

	rec = do(t, h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.GlobalStatusCounts[domain.CheckStatusFail])
	assert.Equal(t, 1, stats.GlobalStatusCounts[domain.CheckStatusPass])

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sysaudit_check_submissions_total")
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	h := newServer(t, serverConfig(), nil)

	for _, path := range []string{"/latest_failures", "/results", "/changes"} {
		rec := do(t, h, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, "[]", rec.Body.String(), path)
	}
}

func TestBadRequests(t *testing.T) {
	h := newServer(t, serverConfig(), nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"malformed json", http.MethodPost, "/submit", `{"hostname":`},
		{"object instead of list", http.MethodPost, "/submit", `{"hostname": "db01"}`},
		{"unknown status", http.MethodPost, "/submit", `[{"hostname":"db01","oracle_sid":"ORCL","check_name":"c","result":"r","status":"MAYBE"}]`},
		{"unknown field", http.MethodPost, "/submit", `[{"hostname":"db01","oracle_sid":"ORCL","check_name":"c","result":"r","status":"PASS","extra":1}]`},
		{"non numeric limit", http.MethodGet, "/changes?limit=ten", ""},
		{"unknown status filter", http.MethodGet, "/results?status=MAYBE", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.target, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestSubmitBodyLimit(t *testing.T) {
	cfg := serverConfig()
	cfg.MaxBodyBytes = 16
	h := newServer(t, cfg, nil)

	rec := do(t, h, http.MethodPost, "/submit", batch)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRateLimit(t *testing.T) {
	cfg := serverConfig()
	cfg.RateLimiter = config.RateLimiterConfig{Enabled: true, Rate: 0.001, Burst: 1}
	h := newServer(t, cfg, nil)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/submit", "[]").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/submit", "[]").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/stats", "").Code, "reads are not limited")
}

func TestHealthEndpoints(t *testing.T) {
	h := newServer(t, serverConfig(), readiness{ok: false, err: errors.New("ping timeout")})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/readyz", "").Code)

	h = newServer(t, serverConfig(), readiness{ok: true})
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", "").Code)
}

func TestServerLifecycle(t *testing.T) {
	repo, err := persistence.NewSQLiteCheckRepository(persistence.InMemorySQLite, discard)
	require.NoError(t, err)
	defer repo.Close()
	store, err := changes.NewStore(repo, discard)
	require.NoError(t, err)

	srv := apphttp.New(serverConfig(), apphttp.Deps{
		Store:    store,
		Gatherer: prometheus.NewRegistry(),
		Errors:   app_errors.NewErrorClassifier(discard),
		Logger:   discard,
	})
	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))
	require.NoError(t, srv.Start(ctx), "start is idempotent")
	assert.True(t, srv.Health(ctx).Ready)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(stopCtx))
	require.NoError(t, <-srv.Done())
}
