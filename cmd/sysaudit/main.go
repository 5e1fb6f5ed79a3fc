package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spounge-ai/sysaudit/internal/domain"
	"github.com/spounge-ai/sysaudit/internal/infra/config"
	"github.com/spounge-ai/sysaudit/internal/metrics"
	"github.com/spounge-ai/sysaudit/internal/scheduler"
	"github.com/spounge-ai/sysaudit/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := pflag.NewFlagSet("sysaudit", pflag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("SYSAUDIT_CONFIG_PATH"), "path to the configuration file")
	fs.String("oratab", "/etc/oratab", "host registry in oratab format")
	fs.String("output", "/tmp/sys_audit_findings.csv", "CSV report path")
	fs.Int("max-audit-files", 500, "newest audit files scanned per host (0 = no cap)")
	fs.Int("limit-audit-rows", 200, "rows fetched from the audit trail per host")
	fs.Int("concurrency", 4, "hosts audited in parallel")
	fs.String("rules", "", "YAML file overriding the classifier rules")
	fs.String("schedule", "", "cron schedule; empty runs a single pass")
	fs.String("submit-url", "", "check store URL for per-host summaries")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("log-format", "text", "text or json")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		return 1
	}
	if fs.Changed("submit-url") {
		cfg.Audit.Submit.Enabled = true
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.NewRegistry())
	deps, err := wiring.ProvideCollector(ctx, cfg, m, logger)
	if err != nil {
		logger.Error("failed to build audit pipeline", "error", err)
		return 1
	}
	defer deps.Close()

	if cfg.Audit.Schedule != "" {
		s, err := scheduler.New(cfg.Audit.Schedule, deps.Collector, logger)
		if err != nil {
			logger.Error("failed to create scheduler", "error", err)
			return 1
		}
		if err := s.Run(ctx); err != nil {
			logger.Error("scheduler stopped", "error", err)
		}
		return 0
	}

	report, err := deps.Collector.RunPass(ctx)
	if err != nil {
		logger.Error("audit pass failed", "error", err)
		if wiring.IsConfigError(err) {
			return 1
		}
		return 0
	}
	printSummary(os.Stdout, report, cfg.Audit.Output)
	return 0
}

func printSummary(w io.Writer, report *domain.PassReport, output string) {
	for _, l := range report.Ledgers {
		fmt.Fprintf(w, "[%s] %d findings (probable remote password: %d, probable local password: %d)\n",
			l.Host.SID, len(l.Findings), l.Summary.ProbableRemotePassword(), l.Summary.ProbableLocalPassword())
		for _, pair := range l.Summary.Pairs() {
			fmt.Fprintf(w, "    %-8s %-30s %d\n", pair.Location, pair.Method, pair.Count)
		}
	}
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "[%s] %s failed: %s\n", issue.SID, issue.Stage, issue.Reason)
	}
	if report.Cancelled {
		fmt.Fprintln(w, "pass cancelled; report holds completed hosts only")
	}
	fmt.Fprintf(w, "wrote %d findings to %s\n", report.Totals.Total(), output)
}
