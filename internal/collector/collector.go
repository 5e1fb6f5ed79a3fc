// Package collector runs audit passes over every host in the registry.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/ledger"
	"github.com/spounge-ai/sysaudit/internal/metrics"
	"github.com/spounge-ai/sysaudit/internal/registry"
	"github.com/spounge-ai/sysaudit/pkg/execution"
	"github.com/spounge-ai/sysaudit/pkg/patterns/batch"
)

const sinkTimeout = 30 * time.Second

// EventSource probes and reads the audit tables of a host.
type EventSource interface {
	ProbeCapability(ctx context.Context, host domain.HostContext) (domain.Capabilities, error)
	FetchEvents(ctx context.Context, host domain.HostContext, limit int) ([]domain.StructuredEvent, error)
}

// FileScanner lists and parses audit files.
type FileScanner interface {
	ListCandidateFiles(dir string, maxFiles int) ([]string, error)
	ScanFiles(ctx context.Context, paths []string) ([]domain.UnstructuredEvent, error)
}

// Sink receives the report of a finished pass.
type Sink interface {
	Name() string
	Publish(ctx context.Context, report *domain.PassReport) error
}

type Options struct {
	Oratab         string
	Output         string
	MaxAuditFiles  int
	LimitAuditRows int
	Concurrency    int
	HostTimeout    time.Duration
}

type Collector struct {
	opts       Options
	source     EventSource
	files      FileScanner
	classifier ledger.Classifier
	sinks      []Sink
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func New(opts Options, source EventSource, files FileScanner, classifier ledger.Classifier, m *metrics.Metrics, logger *slog.Logger, sinks ...Sink) *Collector {
	return &Collector{
		opts:       opts,
		source:     source,
		files:      files,
		classifier: classifier,
		sinks:      sinks,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

type hostResult struct {
	ledger domain.Ledger
	issues []domain.HostIssue
}

// hostError is a fatal per-host failure.
type hostError struct {
	issue domain.HostIssue
	err   error
}

func (e *hostError) Error() string { return fmt.Sprintf("%s %s: %v", e.issue.SID, e.issue.Stage, e.err) }
func (e *hostError) Unwrap() error { return e.err }

// RunPass audits every host in the registry and hands the report to the
// configured sinks. Only configuration problems are returned as errors;
// per-host failures are recorded in the report.
func (c *Collector) RunPass(ctx context.Context) (*domain.PassReport, error) {
	hosts, err := registry.Enumerate(c.opts.Oratab, c.logger)
	if err != nil {
		return nil, err
	}
	if err := ensureOutputDir(c.opts.Output); err != nil {
		return nil, err
	}

	report := &domain.PassReport{
		ID:        uuid.NewString(),
		StartedAt: c.now(),
		Hosts:     len(hosts),
	}
	logger := c.logger.With("pass_id", report.ID)
	logger.InfoContext(ctx, "audit pass started", "hosts", len(hosts), "concurrency", c.opts.Concurrency)

	processor := batch.BatchProcessor[domain.HostContext, hostResult]{
		MaxConcurrency: c.opts.Concurrency,
		Process:        c.auditHost,
	}
	result, _ := processor.ProcessBatch(ctx, hosts, true)

	var totals domain.Summary
	for i, item := range result.Items {
		host := hosts[i]
		switch {
		case item.Skipped:
			report.Issues = append(report.Issues, domain.HostIssue{
				SID: host.SID, Stage: domain.StageCancelled, Reason: "not started", Fatal: true,
			})
			c.metrics.RecordHostFailure(string(domain.StageCancelled))
		case item.Error != nil:
			var he *hostError
			if !errors.As(item.Error, &he) {
				he = &hostError{issue: domain.HostIssue{SID: host.SID, Stage: domain.StageProbe, Reason: item.Error.Error(), Fatal: true}}
			}
			report.Issues = append(report.Issues, he.issue)
			c.metrics.RecordHostFailure(string(he.issue.Stage))
		default:
			report.Ledgers = append(report.Ledgers, item.Result.ledger)
			report.Issues = append(report.Issues, item.Result.issues...)
			totals = totals.Merge(item.Result.ledger.Summary)
			c.metrics.RecordHostAudited()
			for _, pair := range item.Result.ledger.Summary.Pairs() {
				c.metrics.RecordFinding(string(pair.Location), string(pair.Method), pair.Count)
			}
		}
	}
	report.Totals = totals
	report.Cancelled = ctx.Err() != nil
	report.FinishedAt = c.now()

	c.publish(ctx, report)

	c.metrics.RecordPass(report.FinishedAt.Sub(report.StartedAt))
	logger.LogAttrs(ctx, slog.LevelInfo, "audit pass finished",
		slog.Int("hosts", report.Hosts),
		slog.Int("ledgers", len(report.Ledgers)),
		slog.Int("failed_hosts", report.FailedHosts()),
		slog.Bool("cancelled", report.Cancelled),
		slog.Group("findings",
			slog.Int("total", totals.Total()),
			slog.Int("probable_remote_password", totals.ProbableRemotePassword()),
			slog.Int("probable_local_password", totals.ProbableLocalPassword()),
		),
	)
	return report, nil
}

// publish runs every sink even when the pass was cancelled, so ledgers that
// completed are still written.
func (c *Collector) publish(ctx context.Context, report *domain.PassReport) {
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	for _, sink := range c.sinks {
		if err := sink.Publish(sinkCtx, report); err != nil {
			c.logger.ErrorContext(ctx, "report sink failed", "sink", sink.Name(), "error", err)
			c.metrics.RecordSinkError(sink.Name())
		}
	}
}

func (c *Collector) auditHost(ctx context.Context, host domain.HostContext) (hostResult, error) {
	res, err := execution.WithTimeout(ctx, c.opts.HostTimeout, func(hctx context.Context) (hostResult, error) {
		return c.collectHost(hctx, host)
	})
	if err == nil {
		c.logHost(ctx, res.ledger)
		return res, nil
	}

	var he *hostError
	if errors.As(err, &he) && he.issue.Stage == domain.StageCancelled && ctx.Err() == nil {
		he.issue.Stage = domain.StageTimeout
	}
	c.logger.WarnContext(ctx, "host audit failed", "sid", host.SID, "stage", stageOf(err), "error", err)
	return hostResult{}, err
}

func (c *Collector) collectHost(ctx context.Context, host domain.HostContext) (hostResult, error) {
	caps, err := c.source.ProbeCapability(ctx, host)
	if err != nil {
		if ctx.Err() != nil {
			return hostResult{}, cancelled(host, ctx.Err())
		}
		return hostResult{}, &hostError{
			issue: domain.HostIssue{SID: host.SID, Stage: domain.StageProbe, Reason: err.Error(), Fatal: true},
			err:   err,
		}
	}
	host = host.WithCapabilities(caps)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		issues       []domain.HostIssue
		structured   []domain.StructuredEvent
		unstructured []domain.UnstructuredEvent
	)
	addIssue := func(stage domain.Stage, err error) {
		mu.Lock()
		defer mu.Unlock()
		issues = append(issues, domain.HostIssue{SID: host.SID, Stage: stage, Reason: err.Error()})
		c.logger.WarnContext(ctx, "host stage failed", "sid", host.SID, "stage", stage, "error", err)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		events, err := c.source.FetchEvents(ctx, host, c.opts.LimitAuditRows)
		if err != nil {
			addIssue(domain.StageFetch, err)
			return
		}
		structured = events
	}()
	go func() {
		defer wg.Done()
		dir := host.AuditDir()
		if dir == "" {
			c.logger.DebugContext(ctx, "no audit file destination, skipping file scan", "sid", host.SID)
			return
		}
		paths, err := c.files.ListCandidateFiles(dir, c.opts.MaxAuditFiles)
		if err != nil {
			addIssue(domain.StageScan, err)
			return
		}
		events, err := c.files.ScanFiles(ctx, paths)
		if err != nil {
			addIssue(domain.StageScan, err)
			return
		}
		unstructured = events
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return hostResult{}, cancelled(host, err)
	}

	return hostResult{
		ledger: ledger.Aggregate(host, structured, unstructured, c.classifier),
		issues: issues,
	}, nil
}

func (c *Collector) logHost(ctx context.Context, l domain.Ledger) {
	attrs := make([]any, 0, len(l.Summary.Pairs()))
	for _, pair := range l.Summary.Pairs() {
		attrs = append(attrs, slog.Int(string(pair.Location)+"/"+string(pair.Method), pair.Count))
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "host audited",
		slog.String("sid", l.Host.SID),
		slog.Bool("unified_audit", l.Host.Capabilities.UnifiedAudit),
		slog.Int("findings", len(l.Findings)),
		slog.Group("summary", attrs...),
	)
}

func cancelled(host domain.HostContext, err error) *hostError {
	return &hostError{
		issue: domain.HostIssue{SID: host.SID, Stage: domain.StageCancelled, Reason: err.Error(), Fatal: true},
		err:   err,
	}
}

func stageOf(err error) domain.Stage {
	var he *hostError
	if errors.As(err, &he) {
		return he.issue.Stage
	}
	return domain.StageProbe
}

func ensureOutputDir(output string) error {
	if output == "" {
		return fmt.Errorf("output path is empty: %w", app_errors.ErrConfig)
	}
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w: %w", dir, app_errors.ErrConfig, err)
	}
	return nil
}
