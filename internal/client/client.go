// Package client talks to the check store HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/pkg/execution"
)

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// RequestIDHeader carries a per-call identifier the server echoes in logs.
const RequestIDHeader = "X-Request-ID"

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Submit posts a batch of check results. Submissions are idempotent on the
// server, so transient failures are retried.
func (c *Client) Submit(ctx context.Context, batch []domain.CheckSubmission) (domain.SubmitResult, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("failed to marshal submission: %w", err)
	}

	return execution.WithRetry(ctx, maxAttempts, initialBackoff, maxBackoff, retryable,
		func(ctx context.Context) (domain.SubmitResult, error) {
			var result domain.SubmitResult
			err := c.do(ctx, http.MethodPost, "/submit", body, &result)
			return result, err
		})
}

// Health reports whether the store answers its readiness probe.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}

func retryable(err error) bool {
	return !errors.Is(err, app_errors.ErrInvalidInput) && !errors.Is(err, context.Canceled)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w: %w", app_errors.ErrConfig, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, app_errors.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.WarnContext(ctx, "check store request failed",
			"method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)
		return fmt.Errorf("%s %s: status %d: %s: %w", method, path, resp.StatusCode, strings.TrimSpace(string(msg)), statusError(resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w: %w", app_errors.ErrParse, err)
	}
	return nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return app_errors.ErrRateLimit
	case code == http.StatusNotFound:
		return app_errors.ErrNotFound
	case code >= 400 && code < 500:
		return app_errors.ErrInvalidInput
	case code == http.StatusServiceUnavailable:
		return app_errors.ErrUnavailable
	default:
		return app_errors.ErrStore
	}
}
