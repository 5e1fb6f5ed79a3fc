// Package http serves the change-detection API.
package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spounge-ai/sysaudit/internal/app/http/middleware"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/infra/config"
	"github.com/spounge-ai/sysaudit/internal/infra/ratelimit"
	"github.com/spounge-ai/sysaudit/pkg/patterns/lifecycle"
	"golang.org/x/time/rate"
)

type Server struct {
	cfg        config.ServerConfig
	store      CheckStore
	readiness  ReadinessChecker
	gatherer   prometheus.Gatherer
	classifier *app_errors.ErrorClassifier
	logger     *slog.Logger
	version    string

	httpServer *http.Server
	mu         sync.Mutex
	lis        net.Listener
	serveErr   chan error
}

var _ lifecycle.ManagedResource = (*Server)(nil)

type Deps struct {
	Store     CheckStore
	Readiness ReadinessChecker
	Gatherer  prometheus.Gatherer
	Errors    *app_errors.ErrorClassifier
	Logger    *slog.Logger
	Version   string
	// TLS, when set, makes the server speak HTTPS.
	TLS       *tls.Config
}

func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		cfg:        cfg,
		store:      deps.Store,
		readiness:  deps.Readiness,
		gatherer:   deps.Gatherer,
		classifier: deps.Errors,
		logger:     deps.Logger,
		version:    deps.Version,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		TLSConfig:    deps.TLS,
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimiter.Enabled {
			limiter := ratelimit.NewInMemoryRateLimiter(rate.Limit(s.cfg.RateLimiter.Rate), s.cfg.RateLimiter.Burst, ratelimit.DefaultIdleTTL)
			r.Use(middleware.RateLimit(limiter, s.writeError))
		}
		r.Post("/submit", s.handleSubmit)
	})

	r.Get("/latest_failures", s.handleLatestFailures)
	r.Get("/results", s.handleResults)
	r.Get("/changes", s.handleChanges)
	r.Get("/stats", s.handleStats)
	return r
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}

	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if s.httpServer.TLSConfig != nil {
		lis = tls.NewListener(lis, s.httpServer.TLSConfig)
	}
	s.lis = lis
	s.serveErr = make(chan error, 1)

	go func() {
		err := s.httpServer.Serve(lis)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.serveErr <- err
	}()

	s.logger.InfoContext(ctx, "check store API listening", "addr", lis.Addr().String(), "tls", s.httpServer.TLSConfig != nil)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// Done is closed with the serve error when the server stops on its own.
func (s *Server) Done() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.lis != nil
	s.mu.Unlock()
	if !started {
		return nil
	}

	s.logger.InfoContext(ctx, "stopping check store API")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) Health(_ context.Context) lifecycle.HealthStatus {
	if s.readiness == nil {
		return lifecycle.HealthStatus{Ready: true}
	}
	ok, err := s.readiness.IsHealthy()
	status := lifecycle.HealthStatus{Ready: ok}
	if err != nil {
		status.Message = err.Error()
	}
	return status
}
