package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	apphttp "github.com/spounge-ai/sysaudit/internal/app/http"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/infra/config"
	"github.com/spounge-ai/sysaudit/internal/infra/persistence"
	"github.com/spounge-ai/sysaudit/internal/metrics"
	"github.com/spounge-ai/sysaudit/internal/wiring"
	"github.com/spounge-ai/sysaudit/pkg/patterns/lifecycle"
)

const healthCheckInterval = 15 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fs := pflag.NewFlagSet("checkstore", pflag.ExitOnError)
	configPath := fs.String("config", os.Getenv("SYSAUDIT_CONFIG_PATH"), "path to the configuration file")
	fs.Int("port", 8000, "listen port")
	fs.String("store", "sqlite", "sqlite or postgres")
	fs.String("sqlite-path", "central.db", "SQLite database file")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("log-format", "text", "text or json")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	tlsConfig, err := wiring.ConfigureTLS(cfg.Server.TLS)
	if err != nil {
		logger.Error("failed to configure TLS", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	deps, err := wiring.ProvideStore(ctx, cfg, nil, m, logger)
	if err != nil {
		logger.Error("failed to open check store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Repo.Close(); err != nil {
			logger.Error("failed to close check store", "error", err)
		}
	}()

	monitor := persistence.NewConnectionMonitor(deps.Repo, healthCheckInterval, logger)

	srv := apphttp.New(cfg.Server, apphttp.Deps{
		Store:     deps.Store,
		Readiness: monitor,
		Gatherer:  registry,
		Errors:    app_errors.NewErrorClassifier(logger),
		Logger:    logger,
		Version:   cfg.ServiceVersion,
		TLS:       tlsConfig,
	})

	resources := lifecycle.NewGroup(monitor, srv)
	if err := resources.Start(ctx); err != nil {
		logger.Error("error starting resources", "error", err)
		os.Exit(1)
	}
	logger.Info("check store started", "port", cfg.Server.Port, "store", cfg.Persistence.Type, "version", cfg.ServiceVersion)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-signalChan:
		logger.Info("received shutdown signal", "signal", s.String())
	case err := <-srv.Done():
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down")
	if err := resources.Stop(shutdownCtx); err != nil {
		logger.Error("error stopping resources", "error", err)
	}
	logger.Info("shutdown complete")
}
