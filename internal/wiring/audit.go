package wiring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spounge-ai/sysaudit/internal/classify"
	"github.com/spounge-ai/sysaudit/internal/client"
	"github.com/spounge-ai/sysaudit/internal/collector"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/infra/config"
	"github.com/spounge-ai/sysaudit/internal/metrics"
	"github.com/spounge-ai/sysaudit/internal/report"
	"github.com/spounge-ai/sysaudit/internal/scanner"
	"github.com/spounge-ai/sysaudit/internal/structured"
)

// AuditDeps holds the collector and whatever connections its sinks keep
// open.
type AuditDeps struct {
	Collector *collector.Collector
	closers   []func()
}

// Close releases sink connections.
func (d *AuditDeps) Close() {
	for _, c := range d.closers {
		c()
	}
}

// ProvideClassifier returns the built-in rule table, or the one loaded from
// rulesFile when set.
func ProvideClassifier(rulesFile string) (*classify.Classifier, error) {
	if rulesFile == "" {
		return classify.Default(), nil
	}
	rules, err := classify.LoadRules(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load classifier rules: %w: %w", app_errors.ErrConfig, err)
	}
	return classify.New(rules), nil
}

// ProvideSinks builds the report sinks enabled in cfg. The CSV writer is
// always first.
func ProvideSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]collector.Sink, []func(), error) {
	sinks := []collector.Sink{report.NewCSVWriter(cfg.Audit.Output)}
	var closers []func()

	if cfg.AWS.Enabled && cfg.AWS.S3Bucket != "" {
		awsCfg, err := LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, report.NewS3ArchiverFromConfig(awsCfg, cfg.AWS.S3Bucket, cfg.AWS.S3Prefix, logger))
	}

	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("sysaudit"),
			nats.Timeout(5*time.Second),
			nats.MaxReconnects(3),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to nats: %w: %w", app_errors.ErrConnectivity, err)
		}
		closers = append(closers, nc.Close)
		sinks = append(sinks, report.NewLedgerPublisher(nc, cfg.NATS.Subject, logger))
	}

	if cfg.Audit.Submit.Enabled {
		hostname := cfg.Audit.Submit.Hostname
		if hostname == "" {
			h, err := os.Hostname()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to resolve hostname: %w: %w", app_errors.ErrConfig, err)
			}
			hostname = h
		}
		poster := client.New(cfg.Audit.Submit.URL, cfg.Audit.Submit.Timeout, logger)
		sinks = append(sinks, report.NewCheckSubmitter(poster, hostname, logger))
	}

	return sinks, closers, nil
}

// ProvideCollector assembles the audit pipeline: sqlplus-backed structured
// source, audit file scanner, classifier and report sinks.
func ProvideCollector(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*AuditDeps, error) {
	classifier, err := ProvideClassifier(cfg.Audit.RulesFile)
	if err != nil {
		return nil, err
	}

	sinks, closers, err := ProvideSinks(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	runner := structured.NewSQLPlusRunner(cfg.Audit.SQLPlusPath, cfg.Audit.QueryTimeout, logger)
	files := scanner.New(scanner.Options{
		Suffixes:  cfg.Audit.FileSuffixes,
		Principal: cfg.Audit.Principal,
	}, logger)

	c := collector.New(collector.Options{
		Oratab:         cfg.Audit.Oratab,
		Output:         cfg.Audit.Output,
		MaxAuditFiles:  cfg.Audit.MaxAuditFiles,
		LimitAuditRows: cfg.Audit.LimitAuditRows,
		Concurrency:    cfg.Audit.Concurrency,
		HostTimeout:    cfg.Audit.HostTimeout,
	}, structured.NewAdapter(runner, logger), files, classifier, m, logger, sinks...)

	return &AuditDeps{Collector: c, closers: closers}, nil
}

// IsConfigError reports whether err should end the process with a non-zero
// status.
func IsConfigError(err error) bool {
	return errors.Is(err, app_errors.ErrConfig)
}
