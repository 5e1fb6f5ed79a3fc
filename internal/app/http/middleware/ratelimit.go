package middleware

import (
	"fmt"
	"net"
	"net/http"

	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/infra/ratelimit"
)

// ErrorWriter renders an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error, operation string)

// RateLimit rejects requests from clients that exceeded their budget. The
// client is identified by its remote address without the port.
func RateLimit(limiter ratelimit.Limiter, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)
			if !limiter.Allow(client) {
				writeError(w, r, fmt.Errorf("client %s: %w", client, app_errors.ErrRateLimit), "RateLimit")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
