package client_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spounge-ai/sysaudit/internal/client"
	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(url string) *client.Client {
	return client.New(url, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var batch = []domain.CheckSubmission{{
	Hostname: "db01", OracleSID: "ORCL", CheckName: "sys_remote_password_connections", Result: "0", Status: "PASS",
}}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/submit", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(client.RequestIDHeader))

		var got []domain.CheckSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, batch, got)

		_ = json.NewEncoder(w).Encode(domain.SubmitResult{Received: 1, Inserted: 1})
	}))
	defer srv.Close()

	res, err := newClient(srv.URL).Submit(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitResult{Received: 1, Inserted: 1}, res)
}

func TestSubmitRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.SubmitResult{Received: 1})
	}))
	defer srv.Close()

	res, err := newClient(srv.URL).Submit(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Received)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSubmitDoesNotRetryRejectedBatch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad status", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Submit(context.Background(), batch)
	require.ErrorIs(t, err, app_errors.ErrInvalidInput)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newClient(url).Health(context.Background())
	require.ErrorIs(t, err, app_errors.ErrConnectivity)
}
